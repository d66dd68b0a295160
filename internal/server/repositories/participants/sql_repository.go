package participants

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/dbx"
	"github.com/dmitrijs2005/eventsignup/internal/server/models"
)

// SQLRepository works on both PostgreSQL (pgx) and SQLite: the queries use
// only $n placeholders and RETURNING, which both dialects accept.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM participants`

	var n int
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT COUNT(*) FROM participants WHERE email = $1`

	var n int
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// Create inserts p and fills in its ID. A clash on the email unique index
// is reported as common.ErrorDuplicateEmail.
func (r *SQLRepository) Create(ctx context.Context, p *models.Participant) (*models.Participant, error) {
	query :=
		`INSERT INTO participants
		    (first_name, last_name, address, city, email, phone, age, height_cm, weight_kg, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.FirstName, p.LastName, p.Address, p.City, p.Email, p.Phone,
		p.Age, p.HeightCm, p.WeightKg, p.RegisteredAt.UTC(),
	).Scan(&p.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

// ListAll returns every participant in registration order.
func (r *SQLRepository) ListAll(ctx context.Context) ([]models.Participant, error) {
	query :=
		`SELECT id, first_name, last_name, address, city, email, phone, age, height_cm, weight_kg, registered_at
		 FROM participants
		 ORDER BY registered_at ASC, id ASC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	list := make([]models.Participant, 0)
	for rows.Next() {
		var (
			p  models.Participant
			at dbx.Timestamp
		)
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Address, &p.City, &p.Email, &p.Phone,
			&p.Age, &p.HeightCm, &p.WeightKg, &at); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.RegisteredAt = at.Time
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return list, nil
}

// Delete removes the row with the given id and reports whether one existed.
func (r *SQLRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM participants WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// DeleteAll empties the table and returns how many rows were removed.
func (r *SQLRepository) DeleteAll(ctx context.Context) (int64, error) {
	query := `DELETE FROM participants`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Package admincli provisions admin accounts for the sign-up service. It is
// the only way admin_users rows are created or changed.
package admincli

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/eventsignup/internal/cryptox"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repomanager"
)

const minPasswordLen = 8

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", minPasswordLen)
	ErrEmptyUsername    = errors.New("username must not be empty")
)

// Options selects the database and the account to provision.
type Options struct {
	DatabaseDriver string `env:"DATABASE_DRIVER"`
	DatabaseDSN    string `env:"DATABASE_DSN"`
	Username       string `env:"ADMIN_USERNAME"`
	Cost           int
}

// ParseOptions starts from the server defaults, applies environment
// variables and then the -k, -d and -u flags in args.
func ParseOptions(args []string) (Options, error) {
	var defaults config.Config
	defaults.LoadDefaults()

	o := Options{
		DatabaseDriver: defaults.DatabaseDriver,
		DatabaseDSN:    defaults.DatabaseDSN,
		Cost:           cryptox.DefaultCost,
	}
	if err := env.Parse(&o); err != nil {
		return Options{}, err
	}

	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.DatabaseDriver, "k", o.DatabaseDriver, "database driver (pgx or sqlite)")
	fs.StringVar(&o.DatabaseDSN, "d", o.DatabaseDSN, "database DSN")
	fs.StringVar(&o.Username, "u", o.Username, "admin username")
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	return o, nil
}

// PromptCredentials asks for the username when it is empty and for the
// password twice. The returned password must be wiped by the caller.
func PromptCredentials(reader *bufio.Reader, w io.Writer, username string) (string, []byte, error) {
	if username == "" {
		var err error
		username, err = GetSimpleText(reader, "Admin username", w)
		if err != nil {
			return "", nil, err
		}
	}
	if username == "" {
		return "", nil, ErrEmptyUsername
	}

	pw, err := GetPassword("Password", w)
	if err != nil {
		return "", nil, err
	}
	again, err := GetPassword("Repeat password", w)
	defer wipe(again)
	if err != nil {
		wipe(pw)
		return "", nil, err
	}

	if !bytes.Equal(pw, again) {
		wipe(pw)
		return "", nil, ErrPasswordMismatch
	}
	if len(pw) < minPasswordLen {
		wipe(pw)
		return "", nil, ErrPasswordTooShort
	}
	return username, pw, nil
}

// Provision hashes password and creates or updates the admin row.
func Provision(ctx context.Context, db *sql.DB, m repomanager.RepositoryManager, username string, password []byte, cost int) (int64, error) {
	hash, err := cryptox.HashPassword(password, cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	u, err := m.Admins(db).Upsert(ctx, username, hash)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

// Run is the whole CLI: parse args, migrate, prompt and provision.
func Run(ctx context.Context, args []string, in io.Reader, w io.Writer) error {
	o, err := ParseOptions(args)
	if err != nil {
		return err
	}

	db, m, err := repomanager.Open(ctx, o.DatabaseDriver, o.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := m.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	username, pw, err := PromptCredentials(bufio.NewReader(in), w, o.Username)
	if err != nil {
		return err
	}
	defer wipe(pw)

	id, err := Provision(ctx, db, m, username, pw, o.Cost)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "admin %q saved (id %d)\n", username, id)
	return nil
}

package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/common"
	"github.com/dmitrijs2005/eventsignup/internal/logging"
	"github.com/dmitrijs2005/eventsignup/internal/server/archive"
	"github.com/dmitrijs2005/eventsignup/internal/server/config"
	"github.com/dmitrijs2005/eventsignup/internal/server/models"
	"github.com/dmitrijs2005/eventsignup/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventsignup/internal/server/session"
	"github.com/dmitrijs2005/eventsignup/internal/xlsx"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	CSVContentType = "text/csv; charset=utf-8"

	registeredAtLayout = "2006-01-02 15:04:05"
	fileStampLayout    = "20060102_150405"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportHeader is the first row of every export.
var ExportHeader = []string{
	"ID", "First name", "Last name", "Address", "City", "E-mail", "Phone",
	"Age", "Height (cm)", "Weight (kg)", "Registered at",
}

type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	auth        *AdminAuthService
	archive     archive.Archive
	logger      logging.Logger
	loc         *time.Location
	filePrefix  string
	sheetName   string
	now         func() time.Time
}

// NewExportService wires the service. arch may be nil when no archive is
// configured.
func NewExportService(db *sql.DB, m repomanager.RepositoryManager, auth *AdminAuthService, arch archive.Archive,
	cfg *config.Config, logger logging.Logger) *ExportService {
	return &ExportService{
		db:          db,
		repomanager: m,
		auth:        auth,
		archive:     arch,
		logger:      logger,
		loc:         cfg.Location(),
		filePrefix:  cfg.ExportFilePrefix,
		sheetName:   cfg.ExportSheetName,
		now:         time.Now,
	}
}

// NormalizeFormat lower-cases and trims format and checks it is supported.
func NormalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", common.ErrorUnsupportedFormat
	}
}

// Export renders every participant in registration order. The session is
// checked first, then the format, and only then is storage read.
func (s *ExportService) Export(ctx context.Context, sess *session.Session, format string) (*ExportFile, error) {
	if err := s.auth.Authorize(sess); err != nil {
		return nil, err
	}

	f, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}

	list, err := s.repomanager.Participants(s.db).ListAll(ctx)
	if err != nil {
		s.logger.Error(ctx, "export list failed", "error", err)
		return nil, fmt.Errorf("%w: export: %v", common.ErrorStorageUnavailable, err)
	}

	file := &ExportFile{Name: s.fileName(f)}
	switch f {
	case FormatCSV:
		file.ContentType = CSVContentType
		file.Data, err = EncodeCSV(list, s.loc)
	case FormatXLSX:
		file.ContentType = xlsx.ContentType
		file.Data, err = EncodeXLSX(list, s.loc, s.sheetName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", common.ErrorInternal, f, err)
	}

	s.logger.Info(ctx, "participants exported", "format", f, "rows", len(list), "admin", sess.Username())
	s.store(ctx, file)
	return file, nil
}

func (s *ExportService) store(ctx context.Context, file *ExportFile) {
	if s.archive == nil {
		return
	}
	loc, err := s.archive.Store(ctx, file.Name, file.ContentType, file.Data)
	if err != nil {
		s.logger.Error(ctx, "export archive failed", "archive", s.archive.Name(), "file", file.Name, "error", err)
	}
	if loc != "" {
		s.logger.Info(ctx, "export archived", "archive", s.archive.Name(), "location", loc)
	}
}

func (s *ExportService) fileName(format string) string {
	return s.filePrefix + "_" + s.now().In(s.loc).Format(fileStampLayout) + "." + format
}

// ExportRow formats p as the text values of one export row.
func ExportRow(p models.Participant, loc *time.Location) []string {
	return []string{
		strconv.FormatInt(p.ID, 10),
		p.FirstName,
		p.LastName,
		p.Address,
		p.City,
		p.Email,
		p.Phone,
		strconv.Itoa(p.Age),
		strconv.Itoa(p.HeightCm),
		strconv.FormatFloat(p.WeightKg, 'f', 1, 64),
		p.RegisteredAt.In(loc).Format(registeredAtLayout),
	}
}

// EncodeCSV writes a UTF-8 BOM, the header and one line per participant,
// separated by semicolons.
func EncodeCSV(list []models.Participant, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := w.Write(ExportHeader); err != nil {
		return nil, err
	}
	for _, p := range list {
		if err := w.Write(ExportRow(p, loc)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeXLSX builds a one-sheet workbook. ID, age, height and weight are
// number cells, everything else (header included) goes through the
// shared-string table.
func EncodeXLSX(list []models.Participant, loc *time.Location, sheetName string) ([]byte, error) {
	doc := xlsx.NewDocument(sheetName)
	doc.AddStringRow(ExportHeader...)

	for _, p := range list {
		v := ExportRow(p, loc)
		doc.AddRow(
			xlsx.Int(p.ID),
			xlsx.String(v[1]),
			xlsx.String(v[2]),
			xlsx.String(v[3]),
			xlsx.String(v[4]),
			xlsx.String(v[5]),
			xlsx.String(v[6]),
			xlsx.Int(int64(p.Age)),
			xlsx.Int(int64(p.HeightCm)),
			xlsx.Float(p.WeightKg, 1),
			xlsx.String(v[10]),
		)
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

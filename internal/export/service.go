// Package export renders filtered recordings as an XLSX workbook.
package export

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/ksuid"
	"github.com/xuri/excelize/v2"

	"github.com/bisicus/segreteriacanti-api/internal/archive"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
	"github.com/bisicus/segreteriacanti-api/internal/reqctx"
)

// Source loads the recordings to export, with their relations attached.
type Source interface {
	FilteredRecordings(ctx context.Context, filters map[string]filter.Input) ([]archive.RecordingPublic, error)
}

type Service struct {
	source    Source
	sheetName string
	prefix    string
	newID     func() string
}

type Option func(*Service)

func WithSheetName(name string) Option {
	return func(s *Service) {
		if strings.TrimSpace(name) != "" {
			s.sheetName = name
		}
	}
}

// WithFilePrefix sets the stem placed before the unique id in file names.
func WithFilePrefix(prefix string) Option {
	return func(s *Service) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = prefix
		}
	}
}

func NewService(source Source, opts ...Option) *Service {
	service := &Service{
		source:    source,
		sheetName: "Recordings",
		prefix:    "recordings",
		newID:     func() string { return ksuid.New().String() },
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Workbook is a rendered export. Close releases it.
type Workbook struct {
	Name string
	Rows int
	file *excelize.File
}

func (w *Workbook) WriteTo(dst io.Writer) (int64, error) {
	return w.file.WriteTo(dst)
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

var header = []any{
	"ID", "Song", "Comment", "Evaluation", "Audio",
	"Event", "Event start", "Event end", "Deed", "Moment",
	"Created at", "Updated at",
}

// Recordings renders every recording matching filters.
func (s *Service) Recordings(ctx context.Context, filters map[string]filter.Input) (*Workbook, error) {
	rows, err := s.source.FilteredRecordings(ctx, filters)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := s.fill(f, rows); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "render recordings workbook")
	}

	name := s.prefix + "-" + s.newID() + ".xlsx"
	reqctx.Logger(ctx).Info("recordings exported", slog.String("file", name), slog.Int("rows", len(rows)))
	return &Workbook{Name: name, Rows: len(rows), file: f}, nil
}

func (s *Service) fill(f *excelize.File, rows []archive.RecordingPublic) error {
	if err := f.SetSheetName("Sheet1", s.sheetName); err != nil {
		return err
	}
	if err := setRow(f, s.sheetName, 1, header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(s.sheetName, 1, 1, bold); err != nil {
		return err
	}

	for i, rec := range rows {
		if err := setRow(f, s.sheetName, i+2, recordingRow(rec)); err != nil {
			return err
		}
	}
	return f.SetColWidth(s.sheetName, "A", "L", 18)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func recordingRow(rec archive.RecordingPublic) []any {
	row := []any{
		rec.ID, "", text(rec.Comment), text(rec.Evaluation), text(rec.RefAudio),
		"", "", "", "", "",
		stamp(rec.CreatedAt), stamp(rec.UpdatedAt),
	}
	if rec.Song != nil {
		row[1] = rec.Song.Title
	}
	if rec.Event != nil {
		row[5] = rec.Event.Name
		row[6] = date(rec.Event.StartDate)
		row[7] = date(rec.Event.EndDate)
	}
	if rec.Deed != nil {
		row[8] = rec.Deed.Type
	}
	if rec.Moment != nil {
		row[9] = rec.Moment.OccurredOn
	}
	return row
}

func text(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func date(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(time.DateOnly)
}

func stamp(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

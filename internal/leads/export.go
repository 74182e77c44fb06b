package leads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"grahalia-estates/internal/models"
	"grahalia-estates/internal/notify"
)

// ExportHeader is the column order of the CSV export
var ExportHeader = []string{
	"id", "created_at", "processed_at", "status", "source", "name", "email",
	"phone", "lang", "page_url", "property_id", "property_slug", "message",
}

// utf8BOM lets spreadsheet apps detect the encoding
const utf8BOM = "\ufeff"

// Export describes a finished CSV export
type Export struct {
	Filename string
	Rows     int
}

// ExportFilename returns leads-YYYY-MM-DD.csv for the UTC date of t
func ExportFilename(t time.Time) string {
	return "leads-" + t.UTC().Format("2006-01-02") + ".csv"
}

// ExportCSV writes up to the export limit of leads matching f to w and
// queues a copy for the admin address. Mail problems are logged only.
func (s *Service) ExportCSV(ctx context.Context, f Filter, w io.Writer) (*Export, error) {
	f = ParseFilter(f.Status, f.Q)
	leads, err := s.find(ctx, f, s.cfg.ExportLimit)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	WriteCSV(&buf, leads)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}

	exp := &Export{Filename: ExportFilename(s.now()), Rows: len(leads)}
	s.logger.Info("leads exported", "rows", exp.Rows, "status", f.Status, "q", f.Q)

	if s.adminEmail == "" || s.notifier == nil {
		s.logger.Debug("admin email not set, export copy skipped")
		return exp, nil
	}
	status := f.Status
	if status == StatusAll {
		status = ""
	}
	n := notify.LeadsExport(s.adminEmail, exp.Filename, buf.String(), exp.Rows, status, f.Q)
	if err := s.notifier.Enqueue(ctx, n); err != nil {
		s.logger.Error("failed to queue export copy", "error", err)
	}
	return exp, nil
}

// WriteCSV renders leads with a BOM, a header line and "\n" line breaks
func WriteCSV(buf *bytes.Buffer, leads []models.Lead) {
	buf.WriteString(utf8BOM)
	writeRow(buf, ExportHeader)
	for _, l := range leads {
		buf.WriteByte('\n')
		writeRow(buf, leadRecord(l))
	}
}

func leadRecord(l models.Lead) []string {
	processedAt := ""
	if l.ProcessedAt != nil {
		processedAt = l.ProcessedAt.UTC().Format(time.RFC3339)
	}
	propertyID := ""
	if l.PropertyID != nil {
		propertyID = fmt.Sprint(*l.PropertyID)
	}
	return []string{
		fmt.Sprint(l.ID),
		l.CreatedAt.UTC().Format(time.RFC3339),
		processedAt,
		string(l.Status),
		l.Source,
		l.Name,
		l.Email,
		l.Phone,
		l.Lang,
		l.PageURL,
		propertyID,
		l.PropertySlug,
		l.Message,
	}
}

func writeRow(buf *bytes.Buffer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(escapeCell(c))
	}
}

// escapeCell quotes cells holding a quote, comma or line break and doubles
// embedded quotes.
func escapeCell(s string) string {
	if !strings.ContainsAny(s, "\",\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

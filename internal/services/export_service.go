// Package services – ExportService
//
// ExportService renders the request log as CSV: a localized header row
// followed by one row per record in log order. Timestamps are emitted as
// stored. Quoting follows RFC 4180 via encoding/csv.
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/daily-verse/internal/domain"
	"github.com/tbourn/daily-verse/internal/locale"
	"github.com/tbourn/daily-verse/internal/repo"
)

// ExportService serializes the request log.
type ExportService struct {
	Requests repo.Collection[domain.PrayerRequest]
	Labels   locale.Labels
}

// ExportCSV returns the whole CSV document. Any failure is an *ExportError
// and no bytes are returned with it.
func (s *ExportService) ExportCSV(ctx context.Context) (out []byte, err error) {
	ctx, span := otel.Tracer("services/ExportService").Start(ctx, "ExportCSV")
	defer span.End()
	defer func() {
		if err != nil {
			csvExports.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "export csv")
			return
		}
		csvExports.WithLabelValues("ok").Inc()
	}()

	items, err := s.Requests.ReadAll(ctx)
	if err != nil {
		return nil, &ExportError{Err: err}
	}
	span.SetAttributes(attribute.Int("requests.count", len(items)))

	header := s.Labels.CSVHeader
	if len(header) == 0 {
		header = locale.French().CSVHeader
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, &ExportError{Err: err}
	}
	for _, r := range items {
		row := []string{r.Name, r.Phone, r.Prayer, r.SubmittedAt}
		if err := w.Write(row); err != nil {
			return nil, &ExportError{Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, &ExportError{Err: err}
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the document to dst. Nothing is written when the export
// itself fails.
func (s *ExportService) WriteCSV(ctx context.Context, dst io.Writer) error {
	data, err := s.ExportCSV(ctx)
	if err != nil {
		return err
	}
	_, err = dst.Write(data)
	return err
}


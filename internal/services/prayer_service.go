// Package services – PrayerService
//
// PrayerService appends prayer-request submissions to the request log with a
// server-assigned timestamp. The log is append-only: existing entries are
// never reordered, changed, or removed.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/daily-verse/internal/domain"
	"github.com/tbourn/daily-verse/internal/repo"
)

// PrayerService owns the request log.
type PrayerService struct {
	Requests repo.Collection[domain.PrayerRequest]
	Now      func() time.Time
}

// LogRequest appends one record and returns its timestamp (UTC, millisecond
// precision). Every call appends, blank fields included; only store
// failures are returned, wrapped.
func (s *PrayerService) LogRequest(ctx context.Context, name, phone, prayer string) (time.Time, error) {
	ctx, span := otel.Tracer("services/PrayerService").Start(ctx, "LogRequest")
	defer span.End()

	rec := domain.PrayerRequest{
		Name:   strings.TrimSpace(name),
		Phone:  strings.TrimSpace(phone),
		Prayer: strings.TrimSpace(prayer),
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	at := now().UTC().Truncate(time.Millisecond)
	rec.SubmittedAt = domain.Stamp(at)

	var total int
	err := s.Requests.Update(ctx, func(items []domain.PrayerRequest) ([]domain.PrayerRequest, error) {
		total = len(items) + 1
		return append(items, rec), nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append request")
		return time.Time{}, fmt.Errorf("log prayer request: %w", err)
	}

	prayersLogged.Inc()
	span.SetAttributes(attribute.Int("requests.count", total))
	return at, nil
}

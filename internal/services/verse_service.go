// Package services – VerseService
//
// VerseService gates verse handouts per session: a session that received a
// verse less than Window ago is denied, otherwise one verse is picked
// uniformly at random from the whole collection and the session marker is
// moved to now.
package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/daily-verse/internal/domain"
	"github.com/tbourn/daily-verse/internal/locale"
	"github.com/tbourn/daily-verse/internal/repo"
)

// DefaultWindow is the cooldown between two verses for the same session.
const DefaultWindow = 24 * time.Hour

// Session is the per-visitor marker store consumed by Dispense.
type Session interface {
	LastVerseTime() (time.Time, bool)
	SetLastVerseTime(time.Time) error
}

// Rand picks an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Dispensed is the successful outcome of Dispense.
type Dispensed struct {
	Name  string
	Phone string
	Verse domain.Verse
	At    time.Time
}

// Denied is the cooldown outcome. It is not an error.
type Denied struct {
	Message string
	RetryAt time.Time
}

// DispenseResult holds exactly one of Dispensed or Denied.
type DispenseResult struct {
	Dispensed *Dispensed
	Denied    *Denied
}

// VerseService hands out verses from Verses.
type VerseService struct {
	Verses repo.Collection[domain.Verse]

	// Window defaults to DefaultWindow.
	Window time.Duration
	Labels locale.Labels

	Now  func() time.Time
	Rand Rand
}

func (s *VerseService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *VerseService) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return DefaultWindow
}

func (s *VerseService) rnd() Rand {
	if s.Rand != nil {
		return s.Rand
	}
	return globalRand{}
}

// Dispense decides whether sess may receive a verse now.
//
// A denied call reads nothing and mutates nothing. An eligible call reads the
// whole collection, picks one entry, and records now on the session. An empty
// collection yields ErrEmptyCollection with the session untouched.
func (s *VerseService) Dispense(ctx context.Context, sess Session, name, phone string) (*DispenseResult, error) {
	ctx, span := otel.Tracer("services/VerseService").Start(ctx, "Dispense")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.GuestName
	}

	now := s.now()
	marker := domain.DispenseMarker{}
	if last, ok := sess.LastVerseTime(); ok {
		marker.LastVerseTime = last
	}
	if !marker.Eligible(now, s.window()) {
		versesDenied.Inc()
		span.SetAttributes(attribute.Bool("verse.denied", true))
		msg := s.Labels.DenialMessage
		if msg == "" {
			msg = locale.French().DenialMessage
		}
		return &DispenseResult{Denied: &Denied{
			Message: msg,
			RetryAt: marker.NextEligible(s.window()),
		}}, nil
	}

	verses, err := s.Verses.ReadAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read verses")
		return nil, fmt.Errorf("read verses: %w", err)
	}
	if len(verses) == 0 {
		span.SetStatus(codes.Error, ErrEmptyCollection.Error())
		return nil, ErrEmptyCollection
	}

	idx := s.rnd().IntN(len(verses))
	if err := sess.SetLastVerseTime(now); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("set session marker: %w", err)
	}

	versesDispensed.Inc()
	span.SetAttributes(
		attribute.Bool("verse.denied", false),
		attribute.Int("verse.index", idx),
		attribute.Int("verse.count", len(verses)),
	)
	span.AddEvent("verse dispensed")

	return &DispenseResult{Dispensed: &Dispensed{
		Name:  name,
		Phone: phone,
		Verse: verses[idx],
		At:    now,
	}}, nil
}

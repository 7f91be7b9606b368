// Package session carries the per-visitor dispense marker between requests.
//
// The marker lives entirely client-side in a signed cookie: an HS256 JWT
// whose claims hold the time of the last dispensed verse and an expiry equal
// to the configured max age. Nothing is stored on the server, so a visitor who
// discards the cookie also discards the marker.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/daily-verse/internal/domain"
)

// ErrNoSecret is returned by NewCodec when the signing secret is empty.
var ErrNoSecret = errors.New("session secret is empty")

// claims is the JWT payload. LastVerseTime is unix milliseconds; zero means
// the visitor has never been served a verse.
type claims struct {
	LastVerseTime int64 `json:"last_verse_time,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies dispense markers.
type Codec struct {
	secret []byte
	maxAge time.Duration

	// Now is the clock used for issued-at and expiry checks. Tests override it.
	Now func() time.Time
}

// NewCodec returns a Codec signing with secret; tokens expire after maxAge.
func NewCodec(secret string, maxAge time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Codec{secret: []byte(secret), maxAge: maxAge, Now: time.Now}, nil
}

// MaxAge is the token lifetime, also used as the cookie Max-Age.
func (c *Codec) MaxAge() time.Duration { return c.maxAge }

// Encode returns a signed token carrying m.
func (c *Codec) Encode(m domain.DispenseMarker) (string, error) {
	now := c.Now()
	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry(now, c.maxAge)),
		},
	}
	if !m.LastVerseTime.IsZero() {
		cl.LastVerseTime = m.LastVerseTime.UnixMilli()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
}

// expiry is now+maxAge rounded up to a whole second. NumericDate drops the
// fraction, and the token must not lapse before the window ends.
func expiry(now time.Time, maxAge time.Duration) time.Time {
	exp := now.Add(maxAge)
	if t := exp.Truncate(time.Second); !t.Equal(exp) {
		return t.Add(time.Second)
	}
	return exp
}

// Decode verifies token and returns the marker it carries. Any failure
// (bad signature, wrong algorithm, expired, malformed) reports ok=false and
// the caller treats the visitor as having no marker.
func (c *Codec) Decode(token string) (domain.DispenseMarker, bool) {
	if token == "" {
		return domain.DispenseMarker{}, false
	}
	var cl claims
	parsed, err := jwt.ParseWithClaims(token, &cl,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.Now),
	)
	if err != nil || !parsed.Valid {
		return domain.DispenseMarker{}, false
	}
	if cl.LastVerseTime == 0 {
		return domain.DispenseMarker{}, true
	}
	return domain.DispenseMarker{LastVerseTime: time.UnixMilli(cl.LastVerseTime).UTC()}, true
}

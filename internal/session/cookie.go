package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/daily-verse/internal/domain"
)

// Options controls the cookie attributes.
type Options struct {
	Name   string
	Path   string
	Secure bool
}

// DefaultCookieName is used when Options.Name is empty.
const DefaultCookieName = "dv_session"

// Cookie is a request-scoped session backed by a signed cookie. The incoming
// cookie is decoded lazily on first access.
type Cookie struct {
	c     *gin.Context
	codec *Codec
	opts  Options

	loaded bool
	marker domain.DispenseMarker
}

// NewCookie binds a session to the request in c.
func NewCookie(c *gin.Context, codec *Codec, opts Options) *Cookie {
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &Cookie{c: c, codec: codec, opts: opts}
}

func (s *Cookie) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	raw, err := s.c.Cookie(s.opts.Name)
	if err != nil {
		return
	}
	if m, ok := s.codec.Decode(raw); ok {
		s.marker = m
	}
}

// LastVerseTime returns the recorded dispense time, if any.
func (s *Cookie) LastVerseTime() (time.Time, bool) {
	s.load()
	if s.marker.LastVerseTime.IsZero() {
		return time.Time{}, false
	}
	return s.marker.LastVerseTime, true
}

// SetLastVerseTime records t and writes the Set-Cookie header. It must be
// called before the response body is written.
func (s *Cookie) SetLastVerseTime(t time.Time) error {
	s.load()
	m := domain.DispenseMarker{LastVerseTime: t.UTC()}
	tok, err := s.codec.Encode(m)
	if err != nil {
		return err
	}
	http.SetCookie(s.c.Writer, &http.Cookie{
		Name:     s.opts.Name,
		Value:    tok,
		Path:     s.opts.Path,
		MaxAge:   int(s.codec.MaxAge() / time.Second),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	// JWT timestamps are millisecond precision; keep the in-request view
	// consistent with what the next request will decode.
	s.marker = domain.DispenseMarker{LastVerseTime: time.UnixMilli(m.LastVerseTime.UnixMilli()).UTC()}
	return nil
}

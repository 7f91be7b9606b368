// Page handlers.
//
// This file exposes the form-driven endpoints of the site:
//   - GET  /            (entry form)
//   - POST /verse       (dispense a verse or show the cooldown page)
//   - POST /prayer      (log a prayer request)
//   - GET  /export.csv  (download the request log)
//   - GET  /health      (liveness)
//
// Handlers are transport-thin: they bind form fields, call the services,
// and pick the template to render.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/daily-verse/internal/domain"
	"github.com/tbourn/daily-verse/internal/http/middleware"
	"github.com/tbourn/daily-verse/internal/http/views"
	"github.com/tbourn/daily-verse/internal/locale"
	"github.com/tbourn/daily-verse/internal/services"
)

//
// Service contracts (context-aware)
//

// VerseDispenser hands out at most one verse per session and window.
type VerseDispenser interface {
	Dispense(ctx context.Context, sess services.Session, name, phone string) (*services.DispenseResult, error)
}

// PrayerLogger appends prayer requests to the log.
type PrayerLogger interface {
	LogRequest(ctx context.Context, name, phone, prayer string) (time.Time, error)
}

// CSVExporter streams the request log as CSV. Nothing is written to dst
// when an error is returned.
type CSVExporter interface {
	WriteCSV(ctx context.Context, dst io.Writer) error
}

//
// Handler wiring
//

// Handlers groups the page endpoints.
type Handlers struct {
	verses  VerseDispenser
	prayers PrayerLogger
	export  CSVExporter
	labels  locale.Labels

	// sessionOf resolves the visitor's session. Tests swap it for an
	// in-memory one.
	sessionOf func(*gin.Context) services.Session
}

// New constructs Handlers bound to the given services. Sessions come from
// the middleware.Session cookie.
func New(v VerseDispenser, p PrayerLogger, e CSVExporter, labels locale.Labels) *Handlers {
	return &Handlers{verses: v, prayers: p, export: e, labels: labels, sessionOf: cookieSession}
}

func cookieSession(c *gin.Context) services.Session {
	if s := middleware.SessionFrom(c); s != nil {
		return s
	}
	return nil
}

// verseForm is the body of POST /verse. The phone field is named "number"
// in the forms.
type verseForm struct {
	Name  string `form:"name"`
	Phone string `form:"number"`
}

type prayerForm struct {
	Name   string `form:"name"`
	Phone  string `form:"number"`
	Prayer string `form:"prayer"`
}

const (
	ExportFilename = "prayer_requests.csv"
	csvContentType = "text/csv; charset=utf-8"
)

// Index renders the entry form.
func (h *Handlers) Index(c *gin.Context) {
	render(c, http.StatusOK, "index.html", views.Page{Title: "Accueil"})
}

// Verse dispenses a verse to the visitor's session. A visitor still inside
// the cooldown window gets limit_reached.html; both outcomes are 200.
func (h *Handlers) Verse(c *gin.Context) {
	var in verseForm
	if err := c.ShouldBind(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid form")
		return
	}

	sess := h.sessionOf(c)
	if sess == nil {
		fail(c, http.StatusInternalServerError, ErrCodeSessionFailed, "session unavailable")
		return
	}

	res, err := h.verses.Dispense(c.Request.Context(), sess, in.Name, in.Phone)
	switch {
	case errors.Is(err, services.ErrEmptyCollection):
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeNoVerses, "no verse available")
		return
	case err != nil:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not dispense a verse")
		return
	}

	if d := res.Denied; d != nil {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = domain.GuestName
		}
		render(c, http.StatusOK, "limit_reached.html", views.Page{
			Title:   "Revenez demain",
			Name:    name,
			Phone:   strings.TrimSpace(in.Phone),
			Message: d.Message,
			RetryAt: d.RetryAt,
		})
		return
	}

	v := res.Dispensed
	render(c, http.StatusOK, "verse.html", views.Page{
		Title: "Votre verset",
		Name:  v.Name,
		Phone: v.Phone,
		Verse: v.Verse,
	})
}

// Prayer logs a prayer request and thanks the visitor. The form marks the
// prayer as required; the handler records whatever arrives.
func (h *Handlers) Prayer(c *gin.Context) {
	var in prayerForm
	if err := c.ShouldBind(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid form")
		return
	}

	if _, err := h.prayers.LogRequest(c.Request.Context(), in.Name, in.Phone, in.Prayer); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeStoreFailed, "could not record the prayer request")
		return
	}

	render(c, http.StatusOK, "thank_you.html", views.Page{Title: "Merci", Name: in.Name})
}

// Export serves the request log as a CSV attachment. The body is buffered,
// so a failure never leaves a partial download.
func (h *Handlers) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.export.WriteCSV(c.Request.Context(), &buf); err != nil {
		_ = c.Error(err)
		msg := h.labels.CSVError
		if msg == "" {
			msg = locale.French().CSVError
		}
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, msg)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	c.Data(http.StatusOK, csvContentType, buf.Bytes())
}

// Health is a liveness probe.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

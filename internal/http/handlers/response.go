// Package handlers provides the HTTP handlers of the web front end.
//
// This file holds the response helpers. Every failure goes through fail(),
// which negotiates the representation: browsers get the error.html page,
// other clients the JSON envelope
//
//	{ "request_id": "...", "code": "not_found", "message": "..." }
//
// Server errors (>= 500) are logged with the request-scoped logger. The
// engine must have the views templates loaded.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/daily-verse/internal/http/middleware"
	"github.com/tbourn/daily-verse/internal/http/views"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse = middleware.ErrorEnvelope

// fail aborts the request with a negotiated error and logs server errors.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")

	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg)
		if last := c.Errors.Last(); last != nil {
			ev = ev.Err(last.Err)
		}
		ev.Msg("request failed")
	}

	if !middleware.PrefersHTML(c) {
		c.AbortWithStatusJSON(status, ErrorResponse{RequestID: reqID, Code: code, Message: msg})
		return
	}
	c.Abort()
	render(c, status, "error.html", views.Page{
		Title:     http.StatusText(status),
		Status:    strconv.Itoa(status) + " " + http.StatusText(status),
		Message:   msg,
		RequestID: reqID,
	})
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func render(c *gin.Context, status int, name string, p views.Page) {
	c.HTML(status, name, p)
}

package middleware

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrorEnvelope is the JSON error body shared by middleware and handlers.
type ErrorEnvelope struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// PrefersHTML reports whether the client ranks text/html ahead of JSON.
// Requests without an Accept header get JSON.
func PrefersHTML(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}

var bareErrorPage = template.Must(template.New("bare").Parse(
	`<!doctype html><html lang="fr"><head><meta charset="utf-8"><title>{{.Status}}</title></head>` +
		`<body><h1>{{.Status}}</h1><p>{{.Message}}</p>{{if .RequestID}}<p><small>{{.RequestID}}</small></p>{{end}}</body></html>`))

// AbortNegotiated stops the chain with status. It is used by middleware,
// which cannot rely on the engine's templates being loaded.
func AbortNegotiated(c *gin.Context, status int, code, msg string) {
	rid := c.Writer.Header().Get(requestIDHeader)
	if !PrefersHTML(c) {
		c.AbortWithStatusJSON(status, ErrorEnvelope{RequestID: rid, Code: code, Message: msg})
		return
	}
	c.Abort()
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = bareErrorPage.Execute(c.Writer, map[string]string{
		"Status":    strconv.Itoa(status) + " " + http.StatusText(status),
		"Message":   msg,
		"RequestID": rid,
	})
}

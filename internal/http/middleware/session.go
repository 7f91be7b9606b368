package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/daily-verse/internal/session"
)

const sessionKey = "session"

// Session binds a cookie-backed session to every request. The cookie is only
// decoded when a handler asks for the marker.
func Session(codec *session.Codec, opts session.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sessionKey, session.NewCookie(c, codec, opts))
		c.Next()
	}
}

// SessionFrom returns the session attached by Session, or nil when the
// middleware is not installed.
func SessionFrom(c *gin.Context) *session.Cookie {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*session.Cookie); ok {
			return s
		}
	}
	return nil
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filevault/internal/session"
)

const sessionKey = "session"

// Sessions resolves the caller's session once per request and stores it on
// the gin context. Anonymous callers get a fresh, unsaved session.
func Sessions(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := m.Load(c)
		c.Set(sessionKey, s)
		if s.Authenticated() {
			c.Set("user_id", s.UserID())
		}
		c.Next()
	}
}

// RequireSession rejects callers without an authenticated session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentSession(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHENTICATED", "message": "Please log in to continue"},
			})
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session placed by Sessions, or an empty
// anonymous one when the middleware did not run.
func CurrentSession(c *gin.Context) *session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	return &session.Session{IsNew: true}
}

// WithSession stores s directly; used by tests and internal callers.
func WithSession(c *gin.Context, s *session.Session) {
	c.Set(sessionKey, s)
	if s.Authenticated() {
		c.Set("user_id", s.UserID())
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepdeck/interview-api/internal/domain"
)

// SessionCookieName carries the session credential between requests.
const SessionCookieName = "session"

const currentUserKey = "currentUser"

// SessionResolver recovers the user behind a session credential.
type SessionResolver interface {
	CurrentUser(ctx context.Context, rawCredential string) (domain.User, error)
}

// Auth validates the session cookie and attaches the current user.
type Auth struct {
	Sessions SessionResolver
}

// RequireSession ensures the request carries a valid session cookie.
// Missing, tampered, expired, revoked, and orphaned credentials all
// answer with the same 401.
func (m *Auth) RequireSession(c *gin.Context) {
	raw, err := c.Cookie(SessionCookieName)
	if err != nil || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "error_description": "Session cookie required."})
		return
	}

	user, err := m.Sessions.CurrentUser(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "error_description": "Invalid or expired session."})
			return
		}
		// Storage faults are server errors, not a verdict on the session.
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Session lookup failed."})
		return
	}

	c.Set(currentUserKey, user)
	c.Next()
}

// GetCurrentUser exposes the authenticated user to handlers.
func GetCurrentUser(c *gin.Context) (domain.User, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}

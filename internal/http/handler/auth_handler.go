package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepdeck/interview-api/internal/config"
	"github.com/prepdeck/interview-api/internal/domain"
	"github.com/prepdeck/interview-api/internal/http/middleware"
	"github.com/prepdeck/interview-api/internal/service"
)

// AuthHandler exposes sign-up, sign-in, and session endpoints.
type AuthHandler struct {
	Auth         *service.AuthService
	cookieDomain string
	secure       bool
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		Auth:         auth,
		cookieDomain: cfg.CookieDomain,
		secure:       cfg.Production(),
	}
}

// SignUp verifies the identity token and creates the user record once.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken" binding:"required"`
		Name    string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "idToken is required."})
		return
	}

	user, err := h.Auth.SignUp(c.Request.Context(), req.IDToken, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidIdentity):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_identity", "error_description": "Identity token is invalid or expired."})
		case errors.Is(err, domain.ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "already_exists", "error_description": "User already exists. Please sign in instead."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Sign up failed."})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": userResponse(user)})
}

// SignIn exchanges a verified identity token for a session cookie.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "idToken is required."})
		return
	}

	user, credential, err := h.Auth.SignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidIdentity):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_identity", "error_description": "Identity token is invalid or expired."})
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "User not found. Please sign up first."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Sign in failed."})
		}
		return
	}

	h.setSessionCookie(c, credential.Token, int(h.Auth.SessionTTL().Seconds()))
	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

// SignOut revokes the session and clears the cookie. Clearing is
// unconditional; a broken cookie still gets removed from the client.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if raw, err := c.Cookie(middleware.SessionCookieName); err == nil && raw != "" {
		if err := h.Auth.SignOut(c.Request.Context(), raw); err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Sign out failed."})
			return
		}
	}

	h.setSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "error_description": "Session required."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.cookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func userResponse(user domain.User) gin.H {
	return gin.H{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	}
}

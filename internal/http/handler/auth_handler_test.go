package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prepdeck/interview-api/internal/config"
	"github.com/prepdeck/interview-api/internal/domain"
	"github.com/prepdeck/interview-api/internal/http/handler"
	"github.com/prepdeck/interview-api/internal/http/middleware"
	"github.com/prepdeck/interview-api/internal/identity"
	"github.com/prepdeck/interview-api/internal/service"
	"github.com/prepdeck/interview-api/internal/session"
)

type stubVerifier struct {
	identities map[string]identity.Identity
}

func (s *stubVerifier) Verify(ctx context.Context, rawToken string) (identity.Identity, error) {
	id, ok := s.identities[rawToken]
	if !ok {
		return identity.Identity{}, domain.ErrInvalidIdentity
	}
	return id, nil
}

type stubUserRepo struct {
	users map[string]domain.User
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *stubUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	if _, ok := s.users[user.ID]; ok {
		return domain.User{}, domain.ErrAlreadyExists
	}
	s.users[user.ID] = user
	return user, nil
}

type stubKeyRepo struct {
	key domain.SigningKey
}

func (s *stubKeyRepo) GetActiveKey(ctx context.Context) (domain.SigningKey, error) {
	if s.key.ID == 0 {
		return domain.SigningKey{}, domain.ErrNotFound
	}
	return s.key, nil
}

func (s *stubKeyRepo) CreateKey(ctx context.Context, key domain.SigningKey) (domain.SigningKey, error) {
	key.ID = 1
	s.key = key
	return key, nil
}

type stubRevocations struct {
	revoked map[string]bool
}

func (s *stubRevocations) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	s.revoked[sessionID] = true
	return nil
}

func (s *stubRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	return s.revoked[sessionID], nil
}

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := &stubUserRepo{users: make(map[string]domain.User)}
	verifier := &stubVerifier{identities: map[string]identity.Identity{
		"token-sam": {SubjectID: "subject-sam", Email: "sam@example.com", Name: "Sam"},
	}}
	manager := session.NewKeyManager(&stubKeyRepo{})
	issuer := session.NewIssuer(manager, time.Hour)
	authenticator := session.NewAuthenticator(manager, users, &stubRevocations{revoked: make(map[string]bool)})
	svc := service.NewAuthService(users, verifier, issuer, authenticator, zap.NewNop())

	h := handler.NewAuthHandler(svc, config.Config{Environment: "test"})
	authMW := &middleware.Auth{Sessions: svc}

	r := gin.New()
	r.POST("/auth/sign-up", h.SignUp)
	r.POST("/auth/sign-in", h.SignIn)
	r.POST("/auth/sign-out", h.SignOut)
	r.GET("/auth/me", authMW.RequireSession, h.Me)
	return r
}

func postJSON(router *gin.Engine, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSignUpThenSignInSetsSessionCookie(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/sign-up", `{"idToken": "token-sam", "name": "Sam"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(router, "/auth/sign-in", `{"idToken": "token-sam"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/", cookie.Path)
	require.Equal(t, 3600, cookie.MaxAge)
	require.False(t, cookie.Secure, "secure only in production")
}

func TestSignUpDuplicate(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/sign-up", `{"idToken": "token-sam"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(router, "/auth/sign-up", `{"idToken": "token-sam"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignInUnknownUser(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/sign-in", `{"idToken": "token-sam"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignInBadToken(t *testing.T) {
	router := newAuthRouter(t)

	rec := postJSON(router, "/auth/sign-in", `{"idToken": "forged"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignOutRevokesAndClearsCookie(t *testing.T) {
	router := newAuthRouter(t)

	postJSON(router, "/auth/sign-up", `{"idToken": "token-sam"}`)
	rec := postJSON(router, "/auth/sign-in", `{"idToken": "token-sam"}`)
	cookie := sessionCookie(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)

	rec = postJSON(router, "/auth/sign-out", "", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cleared := sessionCookie(t, rec)
	require.Empty(t, cleared.Value)
	require.Negative(t, cleared.MaxAge)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookie)
	me = httptest.NewRecorder()
	router.ServeHTTP(me, req)
	require.Equal(t, http.StatusUnauthorized, me.Code)
}

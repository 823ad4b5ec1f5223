package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prepdeck/interview-api/internal/domain"
	"github.com/prepdeck/interview-api/internal/identity"
	"github.com/prepdeck/interview-api/internal/repository"
	"github.com/prepdeck/interview-api/internal/session"
)

// IdentityVerifier validates identity-provider tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (identity.Identity, error)
}

// AuthService converts short-lived identity proofs into long-lived
// sessions and resolves sessions back to users.
type AuthService struct {
	users         repository.UserRepository
	verifier      IdentityVerifier
	issuer        *session.Issuer
	authenticator *session.Authenticator
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, verifier IdentityVerifier, issuer *session.Issuer, authenticator *session.Authenticator, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:         users,
		verifier:      verifier,
		issuer:        issuer,
		authenticator: authenticator,
		logger:        logger,
		tracer:        otel.Tracer("github.com/prepdeck/interview-api/internal/service"),
	}
}

// SignUp verifies the identity token and creates the user record
// exactly once. A second sign-up for the same subject fails with
// ErrAlreadyExists; the storage layer arbitrates the race.
func (s *AuthService) SignUp(ctx context.Context, idToken, name string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.SignUp")
	defer span.End()

	verified, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = verified.Name
	}

	user, err := s.users.Create(ctx, domain.User{
		ID:    verified.SubjectID,
		Name:  name,
		Email: verified.Email,
	})
	if err != nil {
		span.RecordError(err)
		return domain.User{}, err
	}

	s.audit("user.signup", "user_id", user.ID)
	return user, nil
}

// SignIn verifies the identity token and exchanges it for a session
// credential. The subject must already have a user record; identities
// that never signed up fail with ErrNotFound.
func (s *AuthService) SignIn(ctx context.Context, idToken string) (domain.User, session.Credential, error) {
	ctx, span := s.startSpan(ctx, "AuthService.SignIn")
	defer span.End()

	verified, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, session.Credential{}, err
	}

	user, err := s.users.GetByID(ctx, verified.SubjectID)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, session.Credential{}, fmt.Errorf("sign in lookup user: %w", err)
	}

	credential, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, session.Credential{}, fmt.Errorf("issue session: %w", err)
	}

	s.audit("user.signin", "user_id", user.ID)
	return user, credential, nil
}

// CurrentUser resolves a session credential to its user.
func (s *AuthService) CurrentUser(ctx context.Context, rawCredential string) (domain.User, error) {
	return s.authenticator.Authenticate(ctx, rawCredential)
}

// SignOut revokes the credential's session for its remaining lifetime.
func (s *AuthService) SignOut(ctx context.Context, rawCredential string) error {
	ctx, span := s.startSpan(ctx, "AuthService.SignOut")
	defer span.End()

	if err := s.authenticator.Revoke(ctx, rawCredential); err != nil {
		span.RecordError(err)
		return err
	}
	s.audit("user.signout")
	return nil
}

// SessionTTL exposes the configured session lifetime.
func (s *AuthService) SessionTTL() time.Duration {
	return s.issuer.TTL()
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

// Package session mints and verifies the long-lived session credential
// handed to clients after identity verification.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/prepdeck/interview-api/internal/domain"
	"github.com/prepdeck/interview-api/internal/repository"
)

// Credential is a freshly issued session token and its expiry, ready
// to be set as a cookie with a matching max-age.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Issuer signs session credentials with the server-held key.
type Issuer struct {
	keys *KeyManager
	ttl  time.Duration
}

// NewIssuer constructs an Issuer with the configured session lifetime.
func NewIssuer(manager *KeyManager, ttl time.Duration) *Issuer {
	return &Issuer{keys: manager, ttl: ttl}
}

// Issue mints a credential for the subject. Two credentials for the
// same subject are independent; both stay valid until expiry.
func (i *Issuer) Issue(ctx context.Context, subjectID string) (Credential, error) {
	key, err := i.keys.EnsureSigningKey(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("ensure signing key: %w", err)
	}

	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.SignatureAlgorithm(key.Algorithm), Key: key.Secret},
		(&gojose.SignerOptions{}).WithType("JWT").WithHeader("kid", key.KID),
	)
	if err != nil {
		return Credential{}, fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := gojwt.Claims{
		ID:       uuid.NewString(),
		Subject:  subjectID,
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(expiresAt),
	}

	token, err := gojwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return Credential{}, fmt.Errorf("serialize session token: %w", err)
	}

	return Credential{Token: token, ExpiresAt: expiresAt}, nil
}

// TTL exposes the configured session lifetime for cookie max-age.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Authenticator verifies previously issued credentials. It performs no
// writes and is safe under arbitrary concurrent invocation.
type Authenticator struct {
	keys        *KeyManager
	users       repository.UserRepository
	revocations repository.RevocationStore
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(manager *KeyManager, users repository.UserRepository, revocations repository.RevocationStore) *Authenticator {
	return &Authenticator{keys: manager, users: users, revocations: revocations}
}

// Authenticate recovers the user behind a credential. A bad signature,
// malformed token, expired credential, revoked session, or orphaned
// subject all fail with ErrUnauthenticated; a user is never auto-created.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (domain.User, error) {
	key, err := a.keys.ActiveKey(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("load signing key: %w", err)
	}

	algorithms := []gojose.SignatureAlgorithm{gojose.SignatureAlgorithm(key.Algorithm)}
	parsed, err := gojwt.ParseSigned(rawToken, algorithms)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: parse token: %v", domain.ErrUnauthenticated, err)
	}

	var claims gojwt.Claims
	if err := parsed.Claims(key.Secret, &claims); err != nil {
		return domain.User{}, fmt.Errorf("%w: verify signature: %v", domain.ErrUnauthenticated, err)
	}

	if err := claims.Validate(gojwt.Expected{Time: time.Now()}); err != nil {
		return domain.User{}, fmt.Errorf("%w: expired or not yet valid: %v", domain.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return domain.User{}, fmt.Errorf("%w: empty subject", domain.ErrUnauthenticated)
	}

	if a.revocations != nil && claims.ID != "" {
		revoked, err := a.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return domain.User{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return domain.User{}, fmt.Errorf("%w: revoked", domain.ErrUnauthenticated)
		}
	}

	user, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: unknown subject", domain.ErrUnauthenticated)
		}
		// A storage fault is not an authentication verdict.
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Revoke invalidates the credential's session id until the credential
// would have expired anyway.
func (a *Authenticator) Revoke(ctx context.Context, rawToken string) error {
	key, err := a.keys.ActiveKey(ctx)
	if err != nil {
		return fmt.Errorf("load signing key: %w", err)
	}

	algorithms := []gojose.SignatureAlgorithm{gojose.SignatureAlgorithm(key.Algorithm)}
	parsed, err := gojwt.ParseSigned(rawToken, algorithms)
	if err != nil {
		return fmt.Errorf("%w: parse token: %v", domain.ErrUnauthenticated, err)
	}
	var claims gojwt.Claims
	if err := parsed.Claims(key.Secret, &claims); err != nil {
		return fmt.Errorf("%w: verify signature: %v", domain.ErrUnauthenticated, err)
	}
	if a.revocations == nil || claims.ID == "" || claims.Expiry == nil {
		return nil
	}

	ttl := time.Until(claims.Expiry.Time())
	if ttl <= 0 {
		return nil
	}
	if err := a.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

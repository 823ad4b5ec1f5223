// Package identity validates identity-provider tokens presented at
// sign-in and resolves them to a stable subject id.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/prepdeck/interview-api/internal/domain"
)

// Identity is the verified outcome of an identity token check.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
}

type profileClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

const keySetTTL = 15 * time.Minute

var allowedAlgorithms = []gojose.SignatureAlgorithm{gojose.RS256, gojose.ES256}

// Verifier checks identity tokens against the provider's published key
// set. Safe for concurrent use; the key set is cached and refreshed
// when stale or when an unknown key id appears.
type Verifier struct {
	issuer     string
	audience   string
	jwksURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	keySet    gojose.JSONWebKeySet
	fetchedAt time.Time
}

// NewVerifier constructs a Verifier for the given provider endpoints.
func NewVerifier(issuer, audience, jwksURL string, client *http.Client) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{
		issuer:     issuer,
		audience:   audience,
		jwksURL:    jwksURL,
		httpClient: client,
	}
}

// Verify validates the raw identity token's signature, issuer,
// audience, and expiry. Every failure collapses to ErrInvalidIdentity.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	parsed, err := gojwt.ParseSigned(rawToken, allowedAlgorithms)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: parse token: %v", domain.ErrInvalidIdentity, err)
	}
	if len(parsed.Headers) == 0 {
		return Identity{}, fmt.Errorf("%w: missing token header", domain.ErrInvalidIdentity)
	}

	key, err := v.signingKey(ctx, parsed.Headers[0].KeyID)
	if err != nil {
		return Identity{}, err
	}

	var std gojwt.Claims
	var profile profileClaims
	if err := parsed.Claims(key.Key, &std, &profile); err != nil {
		return Identity{}, fmt.Errorf("%w: verify signature: %v", domain.ErrInvalidIdentity, err)
	}

	expected := gojwt.Expected{Issuer: v.issuer, Time: time.Now()}
	if v.audience != "" {
		expected.AnyAudience = gojwt.Audience{v.audience}
	}
	if err := std.Validate(expected); err != nil {
		return Identity{}, fmt.Errorf("%w: validate claims: %v", domain.ErrInvalidIdentity, err)
	}
	if std.Subject == "" {
		return Identity{}, fmt.Errorf("%w: empty subject", domain.ErrInvalidIdentity)
	}

	return Identity{SubjectID: std.Subject, Email: profile.Email, Name: profile.Name}, nil
}

func (v *Verifier) signingKey(ctx context.Context, kid string) (gojose.JSONWebKey, error) {
	v.mu.RLock()
	keys := v.keySet.Key(kid)
	fresh := time.Since(v.fetchedAt) < keySetTTL
	v.mu.RUnlock()

	if len(keys) > 0 && fresh {
		return keys[0], nil
	}

	if err := v.refreshKeySet(ctx); err != nil {
		return gojose.JSONWebKey{}, err
	}

	v.mu.RLock()
	keys = v.keySet.Key(kid)
	v.mu.RUnlock()
	if len(keys) == 0 {
		return gojose.JSONWebKey{}, fmt.Errorf("%w: unknown key id %q", domain.ErrInvalidIdentity, kid)
	}
	return keys[0], nil
}

func (v *Verifier) refreshKeySet(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read jwks: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("fetch jwks: status=%d", resp.StatusCode)
	}

	var keySet gojose.JSONWebKeySet
	if err := json.Unmarshal(body, &keySet); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	v.mu.Lock()
	v.keySet = keySet
	v.fetchedAt = time.Now()
	v.mu.Unlock()
	return nil
}

package session_test

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stretchr/testify/require"

	"github.com/prepdeck/interview-api/internal/domain"
	"github.com/prepdeck/interview-api/internal/session"
)

func TestIssueAuthenticateRoundTrip(t *testing.T) {
	users := newFakeUserRepo("user-1")
	manager := session.NewKeyManager(&fakeKeyRepo{})
	issuer := session.NewIssuer(manager, time.Hour)
	authenticator := session.NewAuthenticator(manager, users, newFakeRevocations())

	cred, err := issuer.Issue(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, cred.Token)
	require.WithinDuration(t, time.Now().Add(time.Hour), cred.ExpiresAt, time.Minute)

	user, err := authenticator.Authenticate(context.Background(), cred.Token)
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
}

func TestAuthenticateExpiredCredential(t *testing.T) {
	users := newFakeUserRepo("user-1")
	manager := session.NewKeyManager(&fakeKeyRepo{})
	issuer := session.NewIssuer(manager, -2*time.Hour)
	authenticator := session.NewAuthenticator(manager, users, newFakeRevocations())

	cred, err := issuer.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = authenticator.Authenticate(context.Background(), cred.Token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuthenticateTamperedToken(t *testing.T) {
	users := newFakeUserRepo("user-1")
	manager := session.NewKeyManager(&fakeKeyRepo{})
	issuer := session.NewIssuer(manager, time.Hour)
	authenticator := session.NewAuthenticator(manager, users, newFakeRevocations())

	cred, err := issuer.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	// Flip a character in the signature segment.
	parts := strings.Split(cred.Token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = authenticator.Authenticate(context.Background(), tampered)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	users := newFakeUserRepo("user-1")
	manager := session.NewKeyManager(&fakeKeyRepo{})
	issuer := session.NewIssuer(manager, time.Hour)
	authenticator := session.NewAuthenticator(manager, users, newFakeRevocations())

	_, err := issuer.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = authenticator.Authenticate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuthenticateOrphanedSubject(t *testing.T) {
	users := newFakeUserRepo()
	manager := session.NewKeyManager(&fakeKeyRepo{})
	issuer := session.NewIssuer(manager, time.Hour)
	authenticator := session.NewAuthenticator(manager, users, newFakeRevocations())

	cred, err := issuer.Issue(context.Background(), "ghost")
	require.NoError(t, err)

	_, err = authenticator.Authenticate(context.Background(), cred.Token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	require.Zero(t, users.created, "authentication must never create users")
}

func TestTwoCredentialsSameSubjectStayIndependent(t *testing.T) {
	users := newFakeUserRepo("user-1")
	manager := session.NewKeyManager(&fakeKeyRepo{})
	issuer := session.NewIssuer(manager, time.Hour)
	authenticator := session.NewAuthenticator(manager, users, newFakeRevocations())

	first, err := issuer.Issue(context.Background(), "user-1")
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	_, err = authenticator.Authenticate(context.Background(), first.Token)
	require.NoError(t, err)
	_, err = authenticator.Authenticate(context.Background(), second.Token)
	require.NoError(t, err)
}

func TestRevokeOnlyAffectsOneCredential(t *testing.T) {
	users := newFakeUserRepo("user-1")
	manager := session.NewKeyManager(&fakeKeyRepo{})
	issuer := session.NewIssuer(manager, time.Hour)
	authenticator := session.NewAuthenticator(manager, users, newFakeRevocations())

	first, err := issuer.Issue(context.Background(), "user-1")
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	require.NoError(t, authenticator.Revoke(context.Background(), first.Token))

	_, err = authenticator.Authenticate(context.Background(), first.Token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = authenticator.Authenticate(context.Background(), second.Token)
	require.NoError(t, err)
}

func TestConcurrentFirstIssueAgreesOnOneKey(t *testing.T) {
	users := newFakeUserRepo("user-1")
	keys := &fakeKeyRepo{}
	manager := session.NewKeyManager(keys)
	issuer := session.NewIssuer(manager, time.Hour)
	authenticator := session.NewAuthenticator(manager, users, newFakeRevocations())

	const workers = 8
	credentials := make([]session.Credential, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			credentials[i], errs[i] = issuer.Issue(context.Background(), "user-1")
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, keys.creates)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		_, err := authenticator.Authenticate(context.Background(), credentials[i].Token)
		require.NoError(t, err, "credential %d must verify against the single key", i)
	}
}

func TestEnsureSigningKeyLostRaceUsesWinner(t *testing.T) {
	winner := domain.SigningKey{
		ID:        7,
		KID:       uuid.NewString(),
		Secret:    make([]byte, 64),
		Algorithm: "HS256",
		IsActive:  true,
	}
	_, err := rand.Read(winner.Secret)
	require.NoError(t, err)

	repo := &racedKeyRepo{winner: winner}
	manager := session.NewKeyManager(repo)

	key, err := manager.EnsureSigningKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, winner.ID, key.ID)
	require.Equal(t, winner.KID, key.KID)
}

func TestAuthenticateStorageFaultIsNotUnauthenticated(t *testing.T) {
	users := newFakeUserRepo("user-1")
	manager := session.NewKeyManager(&fakeKeyRepo{})
	issuer := session.NewIssuer(manager, time.Hour)
	authenticator := session.NewAuthenticator(manager, users, newFakeRevocations())

	cred, err := issuer.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	storageFault := errors.New("connection refused")
	users.failWith = storageFault

	_, err = authenticator.Authenticate(context.Background(), cred.Token)
	require.ErrorIs(t, err, storageFault)
	require.NotErrorIs(t, err, domain.ErrUnauthenticated)
}

type fakeKeyRepo struct {
	mu      sync.Mutex
	key     domain.SigningKey
	creates int
}

func (f *fakeKeyRepo) GetActiveKey(ctx context.Context) (domain.SigningKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.key.ID == 0 {
		return domain.SigningKey{}, domain.ErrNotFound
	}
	return f.key, nil
}

func (f *fakeKeyRepo) CreateKey(ctx context.Context, key domain.SigningKey) (domain.SigningKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.key.ID != 0 {
		return domain.SigningKey{}, domain.ErrAlreadyExists
	}
	key.ID = 1
	f.key = key
	f.creates++
	return key, nil
}

// racedKeyRepo simulates another instance creating the key between this
// manager's lookup and its insert.
type racedKeyRepo struct {
	winner domain.SigningKey
	looked bool
}

func (r *racedKeyRepo) GetActiveKey(ctx context.Context) (domain.SigningKey, error) {
	if !r.looked {
		r.looked = true
		return domain.SigningKey{}, domain.ErrNotFound
	}
	return r.winner, nil
}

func (r *racedKeyRepo) CreateKey(ctx context.Context, key domain.SigningKey) (domain.SigningKey, error) {
	return domain.SigningKey{}, domain.ErrAlreadyExists
}

type fakeUserRepo struct {
	users    map[string]domain.User
	created  int
	failWith error
}

func newFakeUserRepo(ids ...string) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]domain.User)}
	for _, id := range ids {
		repo.users[id] = domain.User{ID: id, Name: "Test User", Email: id + "@example.com"}
	}
	return repo
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	if f.failWith != nil {
		return domain.User{}, f.failWith
	}
	user, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	if _, ok := f.users[user.ID]; ok {
		return domain.User{}, domain.ErrAlreadyExists
	}
	f.users[user.ID] = user
	f.created++
	return user, nil
}

type fakeRevocations struct {
	revoked map[string]bool
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{revoked: make(map[string]bool)}
}

func (f *fakeRevocations) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	f.revoked[id] = true
	return nil
}

func (f *fakeRevocations) IsRevoked(ctx context.Context, id string) (bool, error) {
	return f.revoked[id], nil
}

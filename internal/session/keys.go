package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"

	"github.com/prepdeck/interview-api/internal/domain"
	"github.com/prepdeck/interview-api/internal/repository"
)

// KeyManager ensures the server always has an active session signing
// key, creating one on first use. The active key is cached after the
// first load; rotation is a restart-level operation.
type KeyManager struct {
	repo repository.KeyRepository

	mu     sync.RWMutex
	cached domain.SigningKey

	// Serializes the create-on-miss path so concurrent first issues
	// agree on a single key. Across processes the partial unique index
	// on session_keys arbitrates instead.
	ensureMu sync.Mutex
}

// NewKeyManager creates a KeyManager.
func NewKeyManager(repo repository.KeyRepository) *KeyManager {
	return &KeyManager{repo: repo}
}

// EnsureSigningKey returns the active key or creates a new one if missing.
// Losing the creation race, in-process or against another instance, falls
// back to the winner's key so every issued credential verifies.
func (m *KeyManager) EnsureSigningKey(ctx context.Context) (domain.SigningKey, error) {
	m.mu.RLock()
	cached := m.cached
	m.mu.RUnlock()
	if cached.ID != 0 {
		return cached, nil
	}

	m.ensureMu.Lock()
	defer m.ensureMu.Unlock()

	key, err := m.repo.GetActiveKey(ctx)
	if err == nil {
		m.store(key)
		return key, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.SigningKey{}, fmt.Errorf("ensure signing key: %w", err)
	}

	secret := make([]byte, 64)
	if _, randErr := rand.Read(secret); randErr != nil {
		return domain.SigningKey{}, fmt.Errorf("generate secret: %w", randErr)
	}

	key = domain.SigningKey{
		KID:       uuid.NewString(),
		Secret:    secret,
		Algorithm: string(jose.HS256),
		IsActive:  true,
	}

	created, err := m.repo.CreateKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			winner, loadErr := m.repo.GetActiveKey(ctx)
			if loadErr != nil {
				return domain.SigningKey{}, fmt.Errorf("load winning key: %w", loadErr)
			}
			m.store(winner)
			return winner, nil
		}
		return domain.SigningKey{}, fmt.Errorf("persist signing key: %w", err)
	}

	m.store(created)
	return created, nil
}

// ActiveKey retrieves the current signing key without creating one.
func (m *KeyManager) ActiveKey(ctx context.Context) (domain.SigningKey, error) {
	m.mu.RLock()
	cached := m.cached
	m.mu.RUnlock()
	if cached.ID != 0 {
		return cached, nil
	}

	key, err := m.repo.GetActiveKey(ctx)
	if err != nil {
		return domain.SigningKey{}, fmt.Errorf("active key: %w", err)
	}
	m.store(key)
	return key, nil
}

func (m *KeyManager) store(key domain.SigningKey) {
	m.mu.Lock()
	m.cached = key
	m.mu.Unlock()
}

package repository

import (
	"context"
	"time"

	"github.com/prepdeck/interview-api/internal/domain"
)

// UserRepository exposes persistence for candidate accounts.
// Create must be conditional on the subject id: a second create for the
// same id returns domain.ErrAlreadyExists, with the store as the final
// arbiter of uniqueness.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
}

// InterviewRepository exposes interview metadata queries.
type InterviewRepository interface {
	Create(ctx context.Context, interview domain.Interview) (domain.Interview, error)
	ByID(ctx context.Context, id string) (domain.Interview, error)
	ByUser(ctx context.Context, userID string) ([]domain.Interview, error)
	LatestExcluding(ctx context.Context, userID string, limit int) ([]domain.Interview, error)
}

// FeedbackRepository persists committed evaluations. Create enforces
// at most one feedback per (interview, user) pair at the storage layer
// and returns domain.ErrAlreadyExists on a duplicate.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback domain.Feedback) (string, error)
	ByInterviewAndUser(ctx context.Context, interviewID, userID string) (domain.Feedback, error)
}

// KeyRepository stores the server session signing keys.
type KeyRepository interface {
	GetActiveKey(ctx context.Context) (domain.SigningKey, error)
	CreateKey(ctx context.Context, key domain.SigningKey) (domain.SigningKey, error)
}

// RevocationStore tracks revoked session ids until their natural expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

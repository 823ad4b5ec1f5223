package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prepdeck/interview-api/internal/domain"
)

type memoryUserRepo struct {
	mu      sync.Mutex
	users   map[string]domain.User
	creates int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.User)}
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *memoryUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return domain.User{}, domain.ErrAlreadyExists
	}
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = user
	r.creates++
	return user, nil
}

type memoryKeyRepo struct {
	mu  sync.Mutex
	key domain.SigningKey
}

func (r *memoryKeyRepo) GetActiveKey(ctx context.Context) (domain.SigningKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.key.ID == 0 {
		return domain.SigningKey{}, domain.ErrNotFound
	}
	return r.key, nil
}

func (r *memoryKeyRepo) CreateKey(ctx context.Context, key domain.SigningKey) (domain.SigningKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key.ID = 1
	r.key = key
	return key, nil
}

type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{revoked: make(map[string]bool)}
}

func (r *memoryRevocations) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[sessionID] = true
	return nil
}

func (r *memoryRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[sessionID], nil
}

type memoryInterviewRepo struct {
	mu         sync.Mutex
	interviews map[string]domain.Interview
}

func newMemoryInterviewRepo() *memoryInterviewRepo {
	return &memoryInterviewRepo{interviews: make(map[string]domain.Interview)}
}

func (r *memoryInterviewRepo) Create(ctx context.Context, interview domain.Interview) (domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	interview.CreatedAt = time.Now().UTC()
	r.interviews[interview.ID] = interview
	return interview, nil
}

func (r *memoryInterviewRepo) ByID(ctx context.Context, id string) (domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	interview, ok := r.interviews[id]
	if !ok {
		return domain.Interview{}, domain.ErrNotFound
	}
	return interview, nil
}

func (r *memoryInterviewRepo) ByUser(ctx context.Context, userID string) ([]domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Interview
	for _, interview := range r.interviews {
		if interview.UserID == userID {
			out = append(out, interview)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *memoryInterviewRepo) LatestExcluding(ctx context.Context, userID string, limit int) ([]domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Interview
	for _, interview := range r.interviews {
		if interview.UserID != userID && interview.Finalized {
			out = append(out, interview)
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(interviews []domain.Interview) {
	sort.Slice(interviews, func(i, j int) bool {
		return interviews[i].CreatedAt.After(interviews[j].CreatedAt)
	})
}

type memoryFeedbackRepo struct {
	mu      sync.Mutex
	records map[string]domain.Feedback
	creates int
}

func newMemoryFeedbackRepo() *memoryFeedbackRepo {
	return &memoryFeedbackRepo{records: make(map[string]domain.Feedback)}
}

func feedbackKey(interviewID, userID string) string {
	return interviewID + "/" + userID
}

func (r *memoryFeedbackRepo) Create(ctx context.Context, feedback domain.Feedback) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := feedbackKey(feedback.InterviewID, feedback.UserID)
	if _, ok := r.records[key]; ok {
		return "", domain.ErrAlreadyExists
	}
	feedback.CreatedAt = time.Now().UTC()
	r.records[key] = feedback
	r.creates++
	return feedback.ID, nil
}

func (r *memoryFeedbackRepo) ByInterviewAndUser(ctx context.Context, interviewID, userID string) (domain.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	feedback, ok := r.records[feedbackKey(interviewID, userID)]
	if !ok {
		return domain.Feedback{}, domain.ErrNotFound
	}
	return feedback, nil
}

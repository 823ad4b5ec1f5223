package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepdeck/interview-api/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository      = (*PostgresUserRepo)(nil)
	_ InterviewRepository = (*PostgresInterviewRepo)(nil)
	_ FeedbackRepository  = (*PostgresFeedbackRepo)(nil)
	_ KeyRepository       = (*PostgresKeyRepo)(nil)
)

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const getUserByIDSQL = `SELECT id, name, email, created_at FROM users WHERE id = $1`

func (r *PostgresUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, getUserByIDSQL, id).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

const getUserByEmailSQL = `SELECT id, name, email, created_at FROM users WHERE email = $1`

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, getUserByEmailSQL, email).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// Uniqueness on the subject id is enforced by the primary key; the
// conditional insert makes concurrent first sign-ups race-free.
const insertUserSQL = `INSERT INTO users (id, name, email)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO NOTHING
RETURNING id, name, email, created_at`

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	var created domain.User
	err := r.db.QueryRow(ctx, insertUserSQL, user.ID, user.Name, user.Email).
		Scan(&created.ID, &created.Name, &created.Email, &created.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrAlreadyExists
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// PostgresInterviewRepo implements InterviewRepository.
type PostgresInterviewRepo struct {
	db *pgxpool.Pool
}

func NewPostgresInterviewRepo(pool *pgxpool.Pool) *PostgresInterviewRepo {
	return &PostgresInterviewRepo{db: pool}
}

const interviewColumns = `id, role, type, level, tech_stack, questions, user_id, finalized, cover_image, created_at`

const insertInterviewSQL = `INSERT INTO interviews (id, role, type, level, tech_stack, questions, user_id, finalized, cover_image)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + interviewColumns

func (r *PostgresInterviewRepo) Create(ctx context.Context, interview domain.Interview) (domain.Interview, error) {
	row := r.db.QueryRow(ctx, insertInterviewSQL,
		interview.ID,
		interview.Role,
		interview.Type,
		interview.Level,
		interview.TechStack,
		interview.Questions,
		interview.UserID,
		interview.Finalized,
		interview.CoverImage,
	)
	created, err := scanInterview(row)
	if err != nil {
		return domain.Interview{}, fmt.Errorf("create interview: %w", err)
	}
	return created, nil
}

const getInterviewSQL = `SELECT ` + interviewColumns + ` FROM interviews WHERE id = $1`

func (r *PostgresInterviewRepo) ByID(ctx context.Context, id string) (domain.Interview, error) {
	interview, err := scanInterview(r.db.QueryRow(ctx, getInterviewSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, domain.ErrNotFound
		}
		return domain.Interview{}, fmt.Errorf("get interview: %w", err)
	}
	return interview, nil
}

const interviewsByUserSQL = `SELECT ` + interviewColumns + `
FROM interviews
WHERE user_id = $1
ORDER BY created_at DESC`

func (r *PostgresInterviewRepo) ByUser(ctx context.Context, userID string) ([]domain.Interview, error) {
	rows, err := r.db.Query(ctx, interviewsByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()
	return collectInterviews(rows)
}

const latestInterviewsSQL = `SELECT ` + interviewColumns + `
FROM interviews
WHERE finalized AND user_id <> $1
ORDER BY created_at DESC
LIMIT $2`

func (r *PostgresInterviewRepo) LatestExcluding(ctx context.Context, userID string, limit int) ([]domain.Interview, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, latestInterviewsSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list latest interviews: %w", err)
	}
	defer rows.Close()
	return collectInterviews(rows)
}

func collectInterviews(rows pgx.Rows) ([]domain.Interview, error) {
	var interviews []domain.Interview
	for rows.Next() {
		interview, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		interviews = append(interviews, interview)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interviews: %w", err)
	}
	return interviews, nil
}

func scanInterview(row pgx.Row) (domain.Interview, error) {
	var interview domain.Interview
	err := row.Scan(
		&interview.ID,
		&interview.Role,
		&interview.Type,
		&interview.Level,
		&interview.TechStack,
		&interview.Questions,
		&interview.UserID,
		&interview.Finalized,
		&interview.CoverImage,
		&interview.CreatedAt,
	)
	return interview, err
}

// PostgresFeedbackRepo implements FeedbackRepository.
type PostgresFeedbackRepo struct {
	db *pgxpool.Pool
}

func NewPostgresFeedbackRepo(pool *pgxpool.Pool) *PostgresFeedbackRepo {
	return &PostgresFeedbackRepo{db: pool}
}

// The unique index on (interview_id, user_id) is the arbiter of the
// write-once invariant; DO NOTHING turns the duplicate into zero rows.
const insertFeedbackSQL = `INSERT INTO feedback (id, interview_id, user_id, total_score, category_scores, strengths, areas_for_improvement, final_assessment)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (interview_id, user_id) DO NOTHING
RETURNING id`

func (r *PostgresFeedbackRepo) Create(ctx context.Context, feedback domain.Feedback) (string, error) {
	categories, err := json.Marshal(feedback.CategoryScores)
	if err != nil {
		return "", fmt.Errorf("encode category scores: %w", err)
	}

	var id string
	err = r.db.QueryRow(ctx, insertFeedbackSQL,
		feedback.ID,
		feedback.InterviewID,
		feedback.UserID,
		feedback.TotalScore,
		categories,
		feedback.Strengths,
		feedback.AreasForImprovement,
		feedback.FinalAssessment,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrAlreadyExists
		}
		return "", fmt.Errorf("create feedback: %w", err)
	}
	return id, nil
}

const getFeedbackSQL = `SELECT id, interview_id, user_id, total_score, category_scores, strengths, areas_for_improvement, final_assessment, created_at
FROM feedback
WHERE interview_id = $1 AND user_id = $2
LIMIT 1`

func (r *PostgresFeedbackRepo) ByInterviewAndUser(ctx context.Context, interviewID, userID string) (domain.Feedback, error) {
	var (
		feedback   domain.Feedback
		categories []byte
	)
	err := r.db.QueryRow(ctx, getFeedbackSQL, interviewID, userID).Scan(
		&feedback.ID,
		&feedback.InterviewID,
		&feedback.UserID,
		&feedback.TotalScore,
		&categories,
		&feedback.Strengths,
		&feedback.AreasForImprovement,
		&feedback.FinalAssessment,
		&feedback.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Feedback{}, domain.ErrNotFound
		}
		return domain.Feedback{}, fmt.Errorf("get feedback: %w", err)
	}
	if err := json.Unmarshal(categories, &feedback.CategoryScores); err != nil {
		return domain.Feedback{}, fmt.Errorf("decode category scores: %w", err)
	}
	return feedback, nil
}

// PostgresKeyRepo implements KeyRepository.
type PostgresKeyRepo struct {
	db *pgxpool.Pool
}

func NewPostgresKeyRepo(pool *pgxpool.Pool) *PostgresKeyRepo {
	return &PostgresKeyRepo{db: pool}
}

const getActiveKeySQL = `SELECT id, kid, secret, algorithm, is_active, created_at, rotated_at
FROM session_keys
WHERE is_active
ORDER BY created_at DESC
LIMIT 1`

func (r *PostgresKeyRepo) GetActiveKey(ctx context.Context) (domain.SigningKey, error) {
	var key domain.SigningKey
	err := r.db.QueryRow(ctx, getActiveKeySQL).Scan(
		&key.ID,
		&key.KID,
		&key.Secret,
		&key.Algorithm,
		&key.IsActive,
		&key.CreatedAt,
		&key.RotatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SigningKey{}, domain.ErrNotFound
		}
		return domain.SigningKey{}, fmt.Errorf("get signing key: %w", err)
	}
	return key, nil
}

// The partial unique index on (is_active) WHERE is_active admits one
// active key; a lost creation race comes back as ErrAlreadyExists and
// the caller reloads the winner.
const insertKeySQL = `INSERT INTO session_keys (kid, secret, algorithm, is_active)
VALUES ($1, $2, $3, $4)
ON CONFLICT (is_active) WHERE is_active DO NOTHING
RETURNING id, kid, secret, algorithm, is_active, created_at, rotated_at`

func (r *PostgresKeyRepo) CreateKey(ctx context.Context, key domain.SigningKey) (domain.SigningKey, error) {
	var created domain.SigningKey
	err := r.db.QueryRow(ctx, insertKeySQL, key.KID, key.Secret, key.Algorithm, key.IsActive).Scan(
		&created.ID,
		&created.KID,
		&created.Secret,
		&created.Algorithm,
		&created.IsActive,
		&created.CreatedAt,
		&created.RotatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SigningKey{}, domain.ErrAlreadyExists
		}
		return domain.SigningKey{}, fmt.Errorf("create signing key: %w", err)
	}
	return created, nil
}

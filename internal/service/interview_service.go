package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prepdeck/interview-api/internal/domain"
	"github.com/prepdeck/interview-api/internal/repository"
	"github.com/prepdeck/interview-api/internal/scoring"
)

const (
	defaultLatestLimit = 20
	maxLatestLimit     = 100
)

// QuestionPlanner produces the ordered question list for an interview.
type QuestionPlanner interface {
	Plan(ctx context.Context, spec scoring.QuestionSpec) ([]string, error)
}

// CreateInterviewInput carries the interview generation parameters.
type CreateInterviewInput struct {
	Role      string
	Level     string
	Type      string
	TechStack []string
	Amount    int
}

// InterviewService generates and queries mock interviews.
type InterviewService struct {
	interviews repository.InterviewRepository
	planner    QuestionPlanner
	node       *snowflake.Node
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewInterviewService wires dependencies.
func NewInterviewService(interviews repository.InterviewRepository, planner QuestionPlanner, node *snowflake.Node, logger *zap.Logger) *InterviewService {
	return &InterviewService{
		interviews: interviews,
		planner:    planner,
		node:       node,
		logger:     logger,
		tracer:     otel.Tracer("github.com/prepdeck/interview-api/internal/service"),
	}
}

// CreateInterview generates questions for the given parameters and
// stores the interview already finalized; the question set is
// immutable from here on.
func (s *InterviewService) CreateInterview(ctx context.Context, userID string, in CreateInterviewInput) (domain.Interview, error) {
	ctx, span := s.startSpan(ctx, "InterviewService.CreateInterview")
	defer span.End()

	if strings.TrimSpace(in.Role) == "" {
		return domain.Interview{}, fmt.Errorf("role is required")
	}

	questions, err := s.planner.Plan(ctx, scoring.QuestionSpec{
		Role:      in.Role,
		Level:     in.Level,
		Type:      in.Type,
		TechStack: in.TechStack,
		Amount:    in.Amount,
	})
	if err != nil {
		span.RecordError(err)
		return domain.Interview{}, fmt.Errorf("plan questions: %w", err)
	}

	interview, err := s.interviews.Create(ctx, domain.Interview{
		ID:         s.node.Generate().String(),
		Role:       in.Role,
		Type:       in.Type,
		Level:      in.Level,
		TechStack:  in.TechStack,
		Questions:  questions,
		UserID:     userID,
		Finalized:  true,
		CoverImage: randomCover(),
	})
	if err != nil {
		span.RecordError(err)
		return domain.Interview{}, fmt.Errorf("persist interview: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("interview created",
			zap.String("interview_id", interview.ID),
			zap.String("user_id", userID),
			zap.Int("questions", len(interview.Questions)),
		)
	}
	return interview, nil
}

// ByUser lists the user's interviews, newest first.
func (s *InterviewService) ByUser(ctx context.Context, userID string) ([]domain.Interview, error) {
	return s.interviews.ByUser(ctx, userID)
}

// Latest lists finalized interviews from other users, newest first.
func (s *InterviewService) Latest(ctx context.Context, userID string, limit int) ([]domain.Interview, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}
	if limit > maxLatestLimit {
		limit = maxLatestLimit
	}
	return s.interviews.LatestExcluding(ctx, userID, limit)
}

// ByID loads a single interview.
func (s *InterviewService) ByID(ctx context.Context, id string) (domain.Interview, error) {
	return s.interviews.ByID(ctx, id)
}

func (s *InterviewService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

var interviewCovers = []string{
	"/covers/adobe.png",
	"/covers/amazon.png",
	"/covers/facebook.png",
	"/covers/hostinger.png",
	"/covers/pinterest.png",
	"/covers/quora.png",
	"/covers/reddit.png",
	"/covers/skype.png",
	"/covers/spotify.png",
	"/covers/telegram.png",
	"/covers/tiktok.png",
	"/covers/yahoo.png",
}

func randomCover() string {
	return interviewCovers[rand.Intn(len(interviewCovers))]
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prepdeck/interview-api/internal/domain"
	"github.com/prepdeck/interview-api/internal/repository"
)

// TranscriptScorer evaluates a transcript in a single attempt.
type TranscriptScorer interface {
	Score(ctx context.Context, turns []domain.TranscriptTurn) (domain.ScoreDraft, error)
}

// FeedbackService runs the scoring+commit sequence at interview end.
type FeedbackService struct {
	scorer     TranscriptScorer
	feedback   repository.FeedbackRepository
	interviews repository.InterviewRepository
	node       *snowflake.Node
	timeout    time.Duration
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewFeedbackService wires dependencies. timeout bounds the scoring call.
func NewFeedbackService(scorer TranscriptScorer, feedback repository.FeedbackRepository, interviews repository.InterviewRepository, node *snowflake.Node, timeout time.Duration, logger *zap.Logger) *FeedbackService {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &FeedbackService{
		scorer:     scorer,
		feedback:   feedback,
		interviews: interviews,
		node:       node,
		timeout:    timeout,
		logger:     logger,
		tracer:     otel.Tracer("github.com/prepdeck/interview-api/internal/service"),
	}
}

// CreateFeedback scores the transcript and commits the result exactly
// once per (interview, user) pair. Scoring runs detached from the
// request context so a client disconnect cannot discard a validated
// draft mid-commit; the unique index remains the final arbiter of the
// write-once invariant.
func (s *FeedbackService) CreateFeedback(ctx context.Context, interviewID, userID string, transcript []domain.TranscriptTurn) (string, error) {
	ctx, span := s.startSpan(ctx, "FeedbackService.CreateFeedback")
	defer span.End()

	if _, err := s.interviews.ByID(ctx, interviewID); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("load interview: %w", err)
	}

	// Best-effort duplicate check before burning an AI call.
	if existing, err := s.feedback.ByInterviewAndUser(ctx, interviewID, userID); err == nil {
		return existing.ID, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return "", fmt.Errorf("check existing feedback: %w", err)
	}

	scoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	draft, err := s.scorer.Score(scoreCtx, transcript)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	id, err := s.feedback.Create(scoreCtx, domain.Feedback{
		ID:                  s.node.Generate().String(),
		InterviewID:         interviewID,
		UserID:              userID,
		TotalScore:          draft.TotalScore,
		CategoryScores:      draft.CategoryScores,
		Strengths:           draft.Strengths,
		AreasForImprovement: draft.AreasForImprovement,
		FinalAssessment:     draft.FinalAssessment,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost the race; surface the committed record instead. The
			// lookup stays on the detached context so a disconnected
			// client still gets the winning id.
			if existing, lookupErr := s.feedback.ByInterviewAndUser(scoreCtx, interviewID, userID); lookupErr == nil {
				return existing.ID, domain.ErrAlreadyExists
			}
			return "", err
		}
		span.RecordError(err)
		return "", fmt.Errorf("persist feedback: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("feedback committed",
			zap.String("feedback_id", id),
			zap.String("interview_id", interviewID),
			zap.String("user_id", userID),
			zap.Int("total_score", draft.TotalScore),
		)
	}
	return id, nil
}

// ForInterview returns the committed feedback for the pair, if any.
func (s *FeedbackService) ForInterview(ctx context.Context, interviewID, userID string) (domain.Feedback, error) {
	return s.feedback.ByInterviewAndUser(ctx, interviewID, userID)
}

func (s *FeedbackService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

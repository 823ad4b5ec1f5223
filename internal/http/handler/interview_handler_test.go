package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prepdeck/interview-api/internal/domain"
	"github.com/prepdeck/interview-api/internal/http/handler"
	"github.com/prepdeck/interview-api/internal/http/middleware"
	"github.com/prepdeck/interview-api/internal/scoring"
	"github.com/prepdeck/interview-api/internal/service"
)

type stubInterviewRepo struct {
	interviews map[string]domain.Interview
}

func (s *stubInterviewRepo) Create(ctx context.Context, interview domain.Interview) (domain.Interview, error) {
	s.interviews[interview.ID] = interview
	return interview, nil
}

func (s *stubInterviewRepo) ByID(ctx context.Context, id string) (domain.Interview, error) {
	interview, ok := s.interviews[id]
	if !ok {
		return domain.Interview{}, domain.ErrNotFound
	}
	return interview, nil
}

func (s *stubInterviewRepo) ByUser(ctx context.Context, userID string) ([]domain.Interview, error) {
	return nil, nil
}

func (s *stubInterviewRepo) LatestExcluding(ctx context.Context, userID string, limit int) ([]domain.Interview, error) {
	return nil, nil
}

type stubFeedbackRepo struct {
	existing map[string]domain.Feedback
}

func (s *stubFeedbackRepo) Create(ctx context.Context, feedback domain.Feedback) (string, error) {
	key := feedback.InterviewID + "/" + feedback.UserID
	if _, ok := s.existing[key]; ok {
		return "", domain.ErrAlreadyExists
	}
	s.existing[key] = feedback
	return feedback.ID, nil
}

func (s *stubFeedbackRepo) ByInterviewAndUser(ctx context.Context, interviewID, userID string) (domain.Feedback, error) {
	feedback, ok := s.existing[interviewID+"/"+userID]
	if !ok {
		return domain.Feedback{}, domain.ErrNotFound
	}
	return feedback, nil
}

type countingScorer struct {
	calls int
}

func (c *countingScorer) Score(ctx context.Context, turns []domain.TranscriptTurn) (domain.ScoreDraft, error) {
	c.calls++
	return domain.ScoreDraft{}, domain.ErrScoringUnavailable
}

type noopPlanner struct{}

func (noopPlanner) Plan(ctx context.Context, spec scoring.QuestionSpec) ([]string, error) {
	return []string{"Q1"}, nil
}

type sessionStub struct{}

func (sessionStub) CurrentUser(ctx context.Context, rawCredential string) (domain.User, error) {
	return domain.User{ID: "user-1", Name: "Test"}, nil
}

func newInterviewRouter(t *testing.T, feedback *stubFeedbackRepo, scorer *countingScorer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	interviews := &stubInterviewRepo{interviews: map[string]domain.Interview{
		"iv-1": {ID: "iv-1", Role: "Backend Engineer", UserID: "user-2", Finalized: true},
	}}

	interviewSvc := service.NewInterviewService(interviews, noopPlanner{}, node, zap.NewNop())
	feedbackSvc := service.NewFeedbackService(scorer, feedback, interviews, node, time.Minute, zap.NewNop())

	h := handler.NewInterviewHandler(interviewSvc, feedbackSvc)
	authMW := &middleware.Auth{Sessions: sessionStub{}}

	r := gin.New()
	group := r.Group("/interviews", authMW.RequireSession)
	group.POST("/:id/feedback", h.CreateFeedback)
	group.GET("/:id/feedback", h.GetFeedback)
	return r
}

func postFeedback(router *gin.Engine, id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/interviews/"+id+"/feedback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-token"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateFeedbackEmptyTranscript(t *testing.T) {
	scorer := &countingScorer{}
	router := newInterviewRouter(t, &stubFeedbackRepo{existing: map[string]domain.Feedback{}}, scorer)

	rec := postFeedback(router, "iv-1", `{"transcript": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, scorer.calls)
}

func TestCreateFeedbackMissingTranscript(t *testing.T) {
	scorer := &countingScorer{}
	router := newInterviewRouter(t, &stubFeedbackRepo{existing: map[string]domain.Feedback{}}, scorer)

	rec := postFeedback(router, "iv-1", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, scorer.calls)
}

func TestCreateFeedbackUnknownRole(t *testing.T) {
	scorer := &countingScorer{}
	router := newInterviewRouter(t, &stubFeedbackRepo{existing: map[string]domain.Feedback{}}, scorer)

	rec := postFeedback(router, "iv-1", `{"transcript": [{"role": "moderator", "content": "hi"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, scorer.calls)
}

func TestCreateFeedbackDuplicateAnswersConflictWithID(t *testing.T) {
	scorer := &countingScorer{}
	feedback := &stubFeedbackRepo{existing: map[string]domain.Feedback{
		"iv-1/user-1": {ID: "fb-existing", InterviewID: "iv-1", UserID: "user-1"},
	}}
	router := newInterviewRouter(t, feedback, scorer)

	rec := postFeedback(router, "iv-1", `{"transcript": [{"role": "candidate", "content": "hi"}]}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "fb-existing")
	require.Zero(t, scorer.calls)
}

func TestCreateFeedbackScoringOutage(t *testing.T) {
	scorer := &countingScorer{}
	router := newInterviewRouter(t, &stubFeedbackRepo{existing: map[string]domain.Feedback{}}, scorer)

	rec := postFeedback(router, "iv-1", `{"transcript": [{"role": "candidate", "content": "hi"}]}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, 1, scorer.calls)
}

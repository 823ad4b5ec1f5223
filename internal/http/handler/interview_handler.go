package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prepdeck/interview-api/internal/domain"
	"github.com/prepdeck/interview-api/internal/http/middleware"
	"github.com/prepdeck/interview-api/internal/service"
)

// InterviewHandler exposes interview generation, lookup, and feedback.
type InterviewHandler struct {
	Interviews *service.InterviewService
	Feedback   *service.FeedbackService
}

func NewInterviewHandler(interviews *service.InterviewService, feedback *service.FeedbackService) *InterviewHandler {
	return &InterviewHandler{Interviews: interviews, Feedback: feedback}
}

// Create generates a question set and stores the finalized interview.
func (h *InterviewHandler) Create(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "error_description": "Session required."})
		return
	}

	var req struct {
		Role      string `json:"role" binding:"required"`
		Level     string `json:"level" binding:"required"`
		Type      string `json:"type" binding:"required"`
		TechStack string `json:"techstack" binding:"required"`
		Amount    int    `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "role, level, type and techstack are required."})
		return
	}

	interview, err := h.Interviews.CreateInterview(c.Request.Context(), user.ID, service.CreateInterviewInput{
		Role:      req.Role,
		Level:     req.Level,
		Type:      req.Type,
		TechStack: splitTechStack(req.TechStack),
		Amount:    req.Amount,
	})
	if err != nil {
		if errors.Is(err, domain.ErrScoringUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "generation_unavailable", "error_description": "Question generation is temporarily unavailable.", "retryable": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to create interview."})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"interview": interviewResponse(interview)})
}

// List returns the caller's interviews, newest first.
func (h *InterviewHandler) List(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "error_description": "Session required."})
		return
	}

	interviews, err := h.Interviews.ByUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to list interviews."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"interviews": interviewListResponse(interviews)})
}

// Latest returns recently finalized interviews from other users.
func (h *InterviewHandler) Latest(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "error_description": "Session required."})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "limit must be a positive integer."})
			return
		}
		limit = n
	}

	interviews, err := h.Interviews.Latest(c.Request.Context(), user.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to list interviews."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"interviews": interviewListResponse(interviews)})
}

// Get returns one interview by id.
func (h *InterviewHandler) Get(c *gin.Context) {
	interview, err := h.Interviews.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Interview not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to load interview."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"interview": interviewResponse(interview)})
}

// CreateFeedback scores the submitted transcript and commits the result.
// A duplicate submission returns the existing record's id rather than an
// error; the evaluation is immutable once stored.
func (h *InterviewHandler) CreateFeedback(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "error_description": "Session required."})
		return
	}

	var req struct {
		Transcript []domain.TranscriptTurn `json:"transcript" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "transcript is required."})
		return
	}
	// binding:"required" lets an empty array through.
	if len(req.Transcript) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "transcript must not be empty."})
		return
	}
	for _, turn := range req.Transcript {
		if turn.Role != domain.TurnRoleInterviewer && turn.Role != domain.TurnRoleCandidate {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "transcript roles must be interviewer or candidate."})
			return
		}
	}

	feedbackID, err := h.Feedback.CreateFeedback(c.Request.Context(), c.Param("id"), user.ID, req.Transcript)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			// The record is already committed; hand back its id so the
			// client can redirect instead of retrying.
			c.JSON(http.StatusConflict, gin.H{"error": "already_exists", "feedbackId": feedbackID})
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Interview not found."})
		case errors.Is(err, domain.ErrSchemaViolation):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "schema_violation", "error_description": "The evaluation did not match the required shape.", "retryable": false})
		case errors.Is(err, domain.ErrScoringUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "scoring_unavailable", "error_description": "Scoring is temporarily unavailable.", "retryable": true})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to create feedback."})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"feedbackId": feedbackID})
}

// GetFeedback returns the caller's feedback for an interview.
func (h *InterviewHandler) GetFeedback(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "error_description": "Session required."})
		return
	}

	feedback, err := h.Feedback.ForInterview(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Feedback not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to load feedback."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": feedbackResponse(feedback)})
}

func splitTechStack(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func interviewResponse(in domain.Interview) gin.H {
	return gin.H{
		"id":         in.ID,
		"role":       in.Role,
		"type":       in.Type,
		"level":      in.Level,
		"techstack":  in.TechStack,
		"questions":  in.Questions,
		"userId":     in.UserID,
		"finalized":  in.Finalized,
		"coverImage": in.CoverImage,
		"createdAt":  in.CreatedAt,
	}
}

func interviewListResponse(interviews []domain.Interview) []gin.H {
	out := make([]gin.H, 0, len(interviews))
	for _, in := range interviews {
		out = append(out, interviewResponse(in))
	}
	return out
}

func feedbackResponse(f domain.Feedback) gin.H {
	return gin.H{
		"id":                  f.ID,
		"interviewId":         f.InterviewID,
		"userId":              f.UserID,
		"totalScore":          f.TotalScore,
		"categoryScores":      f.CategoryScores,
		"strengths":           f.Strengths,
		"areasForImprovement": f.AreasForImprovement,
		"finalAssessment":     f.FinalAssessment,
		"createdAt":           f.CreatedAt,
	}
}

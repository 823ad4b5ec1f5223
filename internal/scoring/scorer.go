// Package scoring converts an interview transcript into a validated
// score draft via a structured-generation backend.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/prepdeck/interview-api/internal/domain"
)

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

type feedbackGenerator interface {
	GenerateFeedback(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// Scorer formats transcripts, invokes the backend once per call, and
// validates the response fail-closed against the fixed score schema.
// Retry policy is the caller's.
type Scorer struct {
	generator feedbackGenerator
	schema    *genai.Schema
	logger    *zap.Logger
	maxLogLen int
}

// NewScorer constructs a Scorer around the given generator.
func NewScorer(generator feedbackGenerator, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.L()
	}
	return &Scorer{
		generator: generator,
		schema:    FeedbackSchema(),
		logger:    logger,
		maxLogLen: defaultMaxLogLength,
	}
}

// Score evaluates the transcript. Turn order is significant and is
// presented to the backend exactly as given.
func (s *Scorer) Score(ctx context.Context, turns []domain.TranscriptTurn) (domain.ScoreDraft, error) {
	if len(turns) == 0 {
		return domain.ScoreDraft{}, errors.New("transcript must not be empty")
	}

	prompt := buildPrompt(turns)

	s.logger.Debug("scoring request",
		zap.Int("turns", len(turns)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", truncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateFeedback(ctx, prompt, s.schema)
	if err != nil {
		return domain.ScoreDraft{}, fmt.Errorf("%w: %v", domain.ErrScoringUnavailable, err)
	}

	s.logger.Debug("scoring response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", truncateForLog(raw, s.maxLogLen)),
	)

	return parseDraft(raw)
}

func buildPrompt(turns []domain.TranscriptTurn) string {
	var transcript strings.Builder
	for _, turn := range turns {
		transcript.WriteString("- ")
		transcript.WriteString(turn.Role)
		transcript.WriteString(": ")
		transcript.WriteString(turn.Content)
		transcript.WriteString("\n")
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Transcript:\n{{TRANSCRIPT}}\n\nJSON Response:"
	}
	return strings.ReplaceAll(template, "{{TRANSCRIPT}}", transcript.String())
}

// parseDraft distinguishes a payload that is not JSON at all (a
// transport-level fault) from JSON that fails the schema (a contract
// violation). Nothing is clamped, renamed, or dropped.
func parseDraft(raw string) (domain.ScoreDraft, error) {
	cleaned := extractJSON(raw)

	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return domain.ScoreDraft{}, fmt.Errorf("%w: non-json payload: %v", domain.ErrScoringUnavailable, err)
	}

	allowed := map[string]bool{
		"totalScore":          true,
		"categoryScores":      true,
		"strengths":           true,
		"areasForImprovement": true,
		"finalAssessment":     true,
	}
	for key := range payload {
		if !allowed[key] {
			return domain.ScoreDraft{}, fmt.Errorf("%w: unexpected field %q", domain.ErrSchemaViolation, key)
		}
	}
	for key := range allowed {
		if _, ok := payload[key]; !ok {
			return domain.ScoreDraft{}, fmt.Errorf("%w: missing field %q", domain.ErrSchemaViolation, key)
		}
	}

	totalScore, err := scoreValue(payload["totalScore"])
	if err != nil {
		return domain.ScoreDraft{}, fmt.Errorf("%w: totalScore: %v", domain.ErrSchemaViolation, err)
	}

	categories, err := categoryScores(payload["categoryScores"])
	if err != nil {
		return domain.ScoreDraft{}, err
	}

	strengths, err := stringList(payload["strengths"])
	if err != nil {
		return domain.ScoreDraft{}, fmt.Errorf("%w: strengths: %v", domain.ErrSchemaViolation, err)
	}
	areas, err := stringList(payload["areasForImprovement"])
	if err != nil {
		return domain.ScoreDraft{}, fmt.Errorf("%w: areasForImprovement: %v", domain.ErrSchemaViolation, err)
	}

	assessment, ok := payload["finalAssessment"].(string)
	if !ok {
		return domain.ScoreDraft{}, fmt.Errorf("%w: finalAssessment must be a string", domain.ErrSchemaViolation)
	}

	return domain.ScoreDraft{
		TotalScore:          totalScore,
		CategoryScores:      categories,
		Strengths:           strengths,
		AreasForImprovement: areas,
		FinalAssessment:     assessment,
	}, nil
}

// categoryScores requires exactly the five known categories, each once,
// with no extras.
func categoryScores(value any) ([]domain.CategoryScore, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: categoryScores must be an array", domain.ErrSchemaViolation)
	}

	known := make(map[string]bool, 5)
	for _, name := range domain.ScoreCategories() {
		known[name] = true
	}

	seen := make(map[string]int, len(items))
	var scores []domain.CategoryScore
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: category entry must be an object", domain.ErrSchemaViolation)
		}
		name, ok := entry["name"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: category name must be a string", domain.ErrSchemaViolation)
		}
		if !known[name] {
			return nil, fmt.Errorf("%w: unknown category %q", domain.ErrSchemaViolation, name)
		}
		if seen[name] > 0 {
			return nil, fmt.Errorf("%w: duplicate category %q", domain.ErrSchemaViolation, name)
		}
		seen[name]++

		score, err := scoreValue(entry["score"])
		if err != nil {
			return nil, fmt.Errorf("%w: category %q: %v", domain.ErrSchemaViolation, name, err)
		}
		scores = append(scores, domain.CategoryScore{Name: name, Score: score})
	}

	for _, name := range domain.ScoreCategories() {
		if seen[name] == 0 {
			return nil, fmt.Errorf("%w: missing category %q", domain.ErrSchemaViolation, name)
		}
	}
	return scores, nil
}

func scoreValue(value any) (int, error) {
	number, ok := value.(json.Number)
	if !ok {
		return 0, errors.New("must be a number")
	}
	n, err := number.Int64()
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("%d out of range [0, 100]", n)
	}
	return int(n), nil
}

func stringList(value any) ([]string, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, errors.New("must be an array")
	}
	list := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, errors.New("entries must be strings")
		}
		list = append(list, s)
	}
	return list, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}

func truncateForLog(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

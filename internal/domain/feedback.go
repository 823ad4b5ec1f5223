package domain

import "time"

// The five evaluation categories. The scorer requires exactly this set,
// in this order, from the AI backend.
const (
	CategoryCommunicationSkills = "Communication Skills"
	CategoryTechnicalKnowledge  = "Technical Knowledge"
	CategoryProblemSolving      = "Problem-Solving"
	CategoryCulturalRoleFit     = "Cultural & Role Fit"
	CategoryConfidenceClarity   = "Confidence & Clarity"
)

// ScoreCategories lists the closed category set in canonical order.
func ScoreCategories() []string {
	return []string{
		CategoryCommunicationSkills,
		CategoryTechnicalKnowledge,
		CategoryProblemSolving,
		CategoryCulturalRoleFit,
		CategoryConfidenceClarity,
	}
}

// CategoryScore is one named category score in [0, 100].
type CategoryScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ScoreDraft is a validated evaluation produced by the scorer but not
// yet persisted. Every field has already passed schema validation.
type ScoreDraft struct {
	TotalScore          int             `json:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"`
}

// Feedback is the committed evaluation for one (interview, user) pair.
// At most one exists per pair; it is never mutated after creation.
type Feedback struct {
	ID                  string
	InterviewID         string
	UserID              string
	TotalScore          int
	CategoryScores      []CategoryScore
	Strengths           []string
	AreasForImprovement []string
	FinalAssessment     string
	CreatedAt           time.Time
}

// SigningKey is a server-held session signing key. Distinct from any
// identity provider key; sessions minted with it verify locally.
type SigningKey struct {
	ID        int64
	KID       string
	Secret    []byte
	Algorithm string
	IsActive  bool
	CreatedAt time.Time
	RotatedAt *time.Time
}

package scoring

import (
	"google.golang.org/genai"

	"github.com/prepdeck/interview-api/internal/domain"
)

// FeedbackSchema builds the response schema handed to the structured
// generation backend: five fixed categories scored 0-100, a total
// score, strengths, areas for improvement, and a final assessment.
func FeedbackSchema() *genai.Schema {
	scoreSchema := &genai.Schema{
		Type:    genai.TypeInteger,
		Minimum: genai.Ptr(0.0),
		Maximum: genai.Ptr(100.0),
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"totalScore": scoreSchema,
			"categoryScores": {
				Type:     genai.TypeArray,
				MinItems: genai.Ptr(int64(5)),
				MaxItems: genai.Ptr(int64(5)),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {
							Type: genai.TypeString,
							Enum: domain.ScoreCategories(),
						},
						"score": scoreSchema,
					},
					Required: []string{"name", "score"},
				},
			},
			"strengths": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"areasForImprovement": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"finalAssessment": {Type: genai.TypeString},
		},
		Required: []string{"totalScore", "categoryScores", "strengths", "areasForImprovement", "finalAssessment"},
	}
}

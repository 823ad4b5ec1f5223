package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/prepdeck/interview-api/internal/domain"
)

type questionGenerator interface {
	GenerateQuestions(ctx context.Context, prompt string) (string, error)
}

// QuestionSpec describes the interview to generate questions for.
type QuestionSpec struct {
	Role      string
	Level     string
	Type      string
	TechStack []string
	Amount    int
}

// QuestionPlanner asks the AI backend for an ordered question list.
type QuestionPlanner struct {
	generator questionGenerator
	logger    *zap.Logger
}

// NewQuestionPlanner constructs a QuestionPlanner.
func NewQuestionPlanner(generator questionGenerator, logger *zap.Logger) *QuestionPlanner {
	if logger == nil {
		logger = zap.L()
	}
	return &QuestionPlanner{generator: generator, logger: logger}
}

// Questions are read aloud by a voice assistant, so the prompt forbids
// characters that would break it.
const questionPromptTemplate = `Prepare questions for a job interview.
The job role is {{ROLE}}.
The job experience level is {{LEVEL}}.
The tech stack used in the job is: {{TECHSTACK}}.
The focus between behavioural and technical questions should lean towards: {{TYPE}}.
The amount of questions required is: {{AMOUNT}}.
Please return only the questions, without any additional text.
The questions are going to be read by a voice assistant so do not use "/" or "*" or any other special characters which might break the voice assistant.
Return the questions formatted like this:
["Question 1", "Question 2", "Question 3"]`

// Plan generates the question list for the spec.
func (p *QuestionPlanner) Plan(ctx context.Context, spec QuestionSpec) ([]string, error) {
	if spec.Amount <= 0 {
		spec.Amount = 5
	}

	replacer := strings.NewReplacer(
		"{{ROLE}}", spec.Role,
		"{{LEVEL}}", spec.Level,
		"{{TECHSTACK}}", strings.Join(spec.TechStack, ", "),
		"{{TYPE}}", spec.Type,
		"{{AMOUNT}}", fmt.Sprintf("%d", spec.Amount),
	)
	prompt := replacer.Replace(questionPromptTemplate)

	raw, err := p.generator.GenerateQuestions(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScoringUnavailable, err)
	}

	var questions []string
	if err := json.Unmarshal([]byte(extractJSON(raw)), &questions); err != nil {
		return nil, fmt.Errorf("%w: question list not a json array: %v", domain.ErrScoringUnavailable, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty question list", domain.ErrScoringUnavailable)
	}

	for i, q := range questions {
		questions[i] = strings.TrimSpace(q)
		if questions[i] == "" {
			return nil, fmt.Errorf("%w: blank question at index %d", domain.ErrScoringUnavailable, i)
		}
	}

	p.logger.Debug("question plan generated",
		zap.String("role", spec.Role),
		zap.Int("questions", len(questions)),
	)
	return questions, nil
}

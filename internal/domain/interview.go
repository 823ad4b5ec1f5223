package domain

import "time"

// Interview is a generated mock interview. Once Finalized is set the
// question set is immutable; the record only gains feedback afterwards.
type Interview struct {
	ID         string
	Role       string
	Type       string
	Level      string
	TechStack  []string
	Questions  []string
	UserID     string
	Finalized  bool
	CoverImage string
	CreatedAt  time.Time
}

// Transcript turn roles as produced by the call layer.
const (
	TurnRoleInterviewer = "interviewer"
	TurnRoleCandidate   = "candidate"
)

// TranscriptTurn is a single utterance of the interview conversation.
// Turns are ordered and never persisted; only derived feedback is.
type TranscriptTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

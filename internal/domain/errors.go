package domain

import "errors"

var (
	// ErrInvalidIdentity signals a bad or expired identity-provider token.
	ErrInvalidIdentity = errors.New("identity: token invalid")
	// ErrUnauthenticated signals a bad, expired, revoked, or orphaned
	// session credential. Callers cannot distinguish which; the single
	// failure kind keeps verification internals off the wire.
	ErrUnauthenticated = errors.New("session: unauthenticated")
	// ErrScoringUnavailable signals a transport-level AI backend failure.
	// Retrying the call may succeed.
	ErrScoringUnavailable = errors.New("scoring: backend unavailable")
	// ErrSchemaViolation signals the AI backend returned a structurally
	// invalid result. Retrying with the same schema is unlikely to help.
	ErrSchemaViolation = errors.New("scoring: schema violation")
	// ErrAlreadyExists signals a duplicate write for a record that is
	// write-once, such as feedback for an (interview, user) pair.
	ErrAlreadyExists = errors.New("store: already exists")
	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("store: not found")
)

package domain

import "time"

// User is a candidate account. The ID is the identity provider's
// subject id, so one verified identity maps to at most one user.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

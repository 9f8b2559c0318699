package domain

import "time"

// SubjectType differentiates regular accounts from administrators in tokens.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeAdmin SubjectType = "ADMIN"
)

// Token represents issued authentication token metadata.
type Token struct {
	SubjectID string
	Subject   SubjectType
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Actor is the caller of a service operation. A nil Actor is an anonymous caller.
type Actor struct {
	User    *User
	Profile *UserProfile
}

// IsAdmin reports whether the actor holds the administrator capability.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.User != nil && a.User.IsAdmin
}

// UserID returns the acting user's id, or nil for anonymous callers.
func (a *Actor) UserID() *string {
	if a == nil || a.User == nil {
		return nil
	}
	id := a.User.ID
	return &id
}

package auth

import "context"

// User represents an authenticated account attached to a request.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// SessionLookup is the interface for resolving session tokens to users.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (*User, error)
}

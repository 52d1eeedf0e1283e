package user

import "time"

// Profile represents a registered user account. Accounts are global;
// organization membership is tracked separately and removing a membership
// never deletes the profile.
type Profile struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	PasswordHash         string    `json:"-"`
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	ActiveOrganizationID *string   `json:"active_organization_id"`
	CreatedAt            time.Time `json:"created_at"`
}

// CreateProfileInput holds the fields required to create a new account.
type CreateProfileInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Session represents an active user session.
type Session struct {
	TokenHash string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

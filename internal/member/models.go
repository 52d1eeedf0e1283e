package member

import "time"

// Role is a member's role within an organization.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole validates a role string from an external source.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleUser:
		return Role(s), true
	}
	return "", false
}

// Action is a mutation a performer may attempt against another member.
type Action string

const (
	ActionUpdateRole   Action = "update_role"
	ActionUpdateStatus Action = "update_status"
	ActionRemoveMember Action = "remove_member"
)

// Membership is the raw organization_members row.
type Membership struct {
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           Role      `json:"role"`
	IsActive       bool      `json:"is_active"`
	JoinedAt       time.Time `json:"joined_at"`
}

// Member is the read projection of a membership joined with the user's
// profile and their conversation count within the organization. It is
// derived for presentation and never persisted separately.
type Member struct {
	UserID            string    `json:"user_id"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Role              Role      `json:"role"`
	IsActive          bool      `json:"is_active"`
	JoinedAt          time.Time `json:"joined_at"`
	ConversationCount int       `json:"conversation_count"`
}

// RemovedMember describes a membership that was just deleted.
type RemovedMember struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// ListParams controls filtering, ordering and pagination of member lists.
type ListParams struct {
	Role      *Role
	Limit     int
	Offset    int
	SortBy    string // "email", "role" or "joined_at"
	SortOrder string // "asc" or "desc"
}

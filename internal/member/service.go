package member

import (
	"context"
	"errors"
	"time"

	"github.com/ritahq/rita/internal/notify"
)

// MembershipStore is the persistence surface the service depends on.
// Mutating methods run their existence and last-owner checks inside a
// single database transaction, write the matching audit entry in the same
// transaction, and return the membership as it was before the change.
type MembershipStore interface {
	List(ctx context.Context, orgID string, p ListParams) ([]*Member, int, error)
	Get(ctx context.Context, orgID, userID string) (*Member, error)
	GetMembership(ctx context.Context, orgID, userID string) (*Membership, error)
	UpdateRole(ctx context.Context, orgID, userID string, newRole Role, performedBy string) (*Membership, error)
	UpdateStatus(ctx context.Context, orgID, userID string, isActive bool, performedBy string) (*Membership, error)
	Remove(ctx context.Context, orgID, userID, performedBy string) (*Membership, string, error)
}

// Notifier pushes live updates to connected clients of an organization.
type Notifier interface {
	SendToOrganization(orgID string, ev notify.Event)
}

// Service enforces organization-membership invariants on top of the store
// and emits a notification for every successful mutation. Notifications are
// delivered strictly after the transaction commits, best effort.
type Service struct {
	store    MembershipStore
	notifier Notifier
	now      func() time.Time
}

// NewService creates a member service. The notifier may be nil, in which
// case live updates are skipped.
func NewService(store MembershipStore, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, now: time.Now}
}

// List returns one page of the organization's members plus the total count.
// The total ignores pagination but respects the role filter.
func (s *Service) List(ctx context.Context, orgID string, p ListParams) ([]*Member, int, error) {
	return s.store.List(ctx, orgID, p)
}

// Get returns the member projection for a single user.
func (s *Service) Get(ctx context.Context, orgID, userID string) (*Member, error) {
	return s.store.Get(ctx, orgID, userID)
}

// UpdateRole changes a member's role. Callers must already hold the owner
// role; the service still blocks self-modification and demoting the last
// active owner. The member projection is read before the write and patched
// with the applied change, so a committed mutation is never turned into an
// error response by a read that fails afterwards.
func (s *Service) UpdateRole(ctx context.Context, orgID, userID string, newRole Role, performedBy string) (*Member, error) {
	if userID == performedBy {
		return nil, ErrCannotModifySelf
	}

	m, err := s.store.Get(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	old, err := s.store.UpdateRole(ctx, orgID, userID, newRole, performedBy)
	if err != nil {
		return nil, err
	}
	m.Role = newRole
	m.IsActive = old.IsActive

	s.send(orgID, notify.EventMemberRoleUpdated, map[string]any{
		"userId":      userID,
		"userEmail":   m.Email,
		"oldRole":     old.Role,
		"newRole":     newRole,
		"performedBy": performedBy,
		"timestamp":   s.timestamp(),
	})
	return m, nil
}

// UpdateStatus activates or deactivates a member.
func (s *Service) UpdateStatus(ctx context.Context, orgID, userID string, isActive bool, performedBy string) (*Member, error) {
	if userID == performedBy {
		return nil, ErrCannotModifySelf
	}

	allowed, err := s.CanPerformAction(ctx, orgID, performedBy, userID, ActionUpdateStatus)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}

	m, err := s.store.Get(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	old, err := s.store.UpdateStatus(ctx, orgID, userID, isActive, performedBy)
	if err != nil {
		return nil, err
	}
	m.IsActive = isActive
	m.Role = old.Role

	s.send(orgID, notify.EventMemberStatusUpdated, map[string]any{
		"userId":      userID,
		"userEmail":   m.Email,
		"oldStatus":   old.IsActive,
		"newStatus":   isActive,
		"performedBy": performedBy,
		"timestamp":   s.timestamp(),
	})
	return m, nil
}

// Remove deletes a membership row. The underlying user account persists;
// only the member's link to the organization is removed.
func (s *Service) Remove(ctx context.Context, orgID, userID, performedBy string) (*RemovedMember, error) {
	if userID == performedBy {
		return nil, ErrCannotRemoveSelf
	}

	allowed, err := s.CanPerformAction(ctx, orgID, performedBy, userID, ActionRemoveMember)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}

	old, email, err := s.store.Remove(ctx, orgID, userID, performedBy)
	if err != nil {
		return nil, err
	}

	s.send(orgID, notify.EventMemberRemoved, map[string]any{
		"userId":      userID,
		"userEmail":   email,
		"role":        old.Role,
		"performedBy": performedBy,
		"timestamp":   s.timestamp(),
	})
	return &RemovedMember{UserID: userID, Email: email, Role: old.Role}, nil
}

// HardDelete is a deferred operation: permanent removal with identity
// provider cleanup is not part of this phase.
func (s *Service) HardDelete(ctx context.Context, orgID, userID, performedBy string) error {
	return ErrNotImplemented
}

// DeleteSelf is a deferred operation: self-service permanent account
// deletion is not part of this phase.
func (s *Service) DeleteSelf(ctx context.Context, orgID, userID string) error {
	return ErrNotImplemented
}

// CanPerformAction reports whether performer may apply the given action to
// target. The performer must hold a membership row in the organization. When
// the target row is missing, owners are allowed through so the subsequent
// existence check reports not-found; anyone else is denied.
func (s *Service) CanPerformAction(ctx context.Context, orgID, performerID, targetID string, action Action) (bool, error) {
	performer, err := s.store.GetMembership(ctx, orgID, performerID)
	if errors.Is(err, ErrMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if performerID == targetID {
		return false, nil
	}

	target, err := s.store.GetMembership(ctx, orgID, targetID)
	if errors.Is(err, ErrMemberNotFound) {
		return performer.Role == RoleOwner, nil
	}
	if err != nil {
		return false, err
	}

	return roleAllows(performer.Role, target.Role, action), nil
}

// roleAllows is the permission matrix: owners may do anything to others,
// admins may change status of or remove plain users only, users nothing.
func roleAllows(performer, target Role, action Action) bool {
	switch performer {
	case RoleOwner:
		return true
	case RoleAdmin:
		if action == ActionUpdateRole {
			return false
		}
		return target == RoleUser
	default:
		return false
	}
}

func (s *Service) send(orgID, eventType string, data map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.SendToOrganization(orgID, notify.Event{Type: eventType, Data: data})
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

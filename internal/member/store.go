package member

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ritahq/rita/internal/audit"
)

// Store provides database operations for organization memberships.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new member store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const memberColumns = `om.user_id, up.email, up.first_name, up.last_name, om.role, om.is_active, om.joined_at,
	(SELECT count(*) FROM conversations c
	 WHERE c.organization_id = om.organization_id AND c.user_id = om.user_id) AS conversation_count`

// sortColumns whitelists the sortable fields; anything else falls back to
// joined_at.
var sortColumns = map[string]string{
	"email":     "up.email",
	"role":      "om.role",
	"joined_at": "om.joined_at",
}

// List returns one page of member projections plus the total row count.
// The count ignores limit/offset but applies the role filter.
func (s *Store) List(ctx context.Context, orgID string, p ListParams) ([]*Member, int, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}

	col, ok := sortColumns[p.SortBy]
	if !ok {
		col = "om.joined_at"
	}
	dir := "ASC"
	if p.SortOrder == "desc" {
		dir = "DESC"
	}

	where := `om.organization_id = $1`
	args := []any{orgID}
	if p.Role != nil {
		where += ` AND om.role = $2`
		args = append(args, *p.Role)
	}

	var total int
	countQuery := fmt.Sprintf(
		`SELECT count(*) FROM organization_members om WHERE %s`, where)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting members: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s
		 FROM organization_members om
		 JOIN user_profiles up ON up.id = om.user_id
		 WHERE %s
		 ORDER BY %s %s, om.user_id ASC
		 LIMIT $%d OFFSET $%d`,
		memberColumns, where, col, dir, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.UserID, &m.Email, &m.FirstName, &m.LastName, &m.Role, &m.IsActive, &m.JoinedAt, &m.ConversationCount); err != nil {
			return nil, 0, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating member rows: %w", err)
	}
	return members, total, nil
}

// Get returns the member projection for a single user.
func (s *Store) Get(ctx context.Context, orgID, userID string) (*Member, error) {
	query := fmt.Sprintf(
		`SELECT %s
		 FROM organization_members om
		 JOIN user_profiles up ON up.id = om.user_id
		 WHERE om.organization_id = $1 AND om.user_id = $2`,
		memberColumns)

	m := &Member{}
	err := s.pool.QueryRow(ctx, query, orgID, userID).
		Scan(&m.UserID, &m.Email, &m.FirstName, &m.LastName, &m.Role, &m.IsActive, &m.JoinedAt, &m.ConversationCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting member: %w", err)
	}
	return m, nil
}

// GetMembership returns the raw membership row.
func (s *Store) GetMembership(ctx context.Context, orgID, userID string) (*Membership, error) {
	m := &Membership{}
	err := s.pool.QueryRow(ctx,
		`SELECT organization_id, user_id, role, is_active, joined_at
		 FROM organization_members
		 WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID,
	).Scan(&m.OrganizationID, &m.UserID, &m.Role, &m.IsActive, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting membership: %w", err)
	}
	return m, nil
}

// UpdateRole changes a member's role inside one transaction: lock the target
// and owner rows in one ordered statement, re-verify the last-owner invariant
// under those locks, update, and append the audit entry. Returns the
// membership as it was before the change.
func (s *Store) UpdateRole(ctx context.Context, orgID, userID string, newRole Role, performedBy string) (*Membership, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning role update: %w", err)
	}
	defer tx.Rollback(ctx)

	old, otherOwners, err := lockForMutation(ctx, tx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if old.Role == RoleOwner && newRole != RoleOwner && otherOwners == 0 {
		return nil, ErrLastOwner
	}

	if _, err := tx.Exec(ctx,
		`UPDATE organization_members SET role = $3
		 WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID, newRole,
	); err != nil {
		return nil, fmt.Errorf("updating member role: %w", err)
	}

	err = audit.InsertTx(ctx, tx, audit.Entry{
		OrganizationID: orgID,
		UserID:         performedBy,
		Action:         "member.role_updated",
		ResourceType:   "organization_member",
		ResourceID:     userID,
		Metadata:       map[string]any{"old_role": old.Role, "new_role": newRole},
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing role update: %w", err)
	}
	return old, nil
}

// UpdateStatus flips a member's active flag, guarding against deactivating
// the last active owner.
func (s *Store) UpdateStatus(ctx context.Context, orgID, userID string, isActive bool, performedBy string) (*Membership, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning status update: %w", err)
	}
	defer tx.Rollback(ctx)

	old, otherOwners, err := lockForMutation(ctx, tx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if old.Role == RoleOwner && !isActive && otherOwners == 0 {
		return nil, ErrLastOwner
	}

	if _, err := tx.Exec(ctx,
		`UPDATE organization_members SET is_active = $3
		 WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID, isActive,
	); err != nil {
		return nil, fmt.Errorf("updating member status: %w", err)
	}

	err = audit.InsertTx(ctx, tx, audit.Entry{
		OrganizationID: orgID,
		UserID:         performedBy,
		Action:         "member.status_updated",
		ResourceType:   "organization_member",
		ResourceID:     userID,
		Metadata:       map[string]any{"old_status": old.IsActive, "new_status": isActive},
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing status update: %w", err)
	}
	return old, nil
}

// Remove deletes a membership row. The audit entry is written before the
// delete so it can reference the pre-delete state. If the removed user's
// active organization pointer referenced this organization it is cleared.
// Returns the removed membership and the user's email.
func (s *Store) Remove(ctx context.Context, orgID, userID, performedBy string) (*Membership, string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("beginning member removal: %w", err)
	}
	defer tx.Rollback(ctx)

	old, otherOwners, err := lockForMutation(ctx, tx, orgID, userID)
	if err != nil {
		return nil, "", err
	}

	if old.Role == RoleOwner && old.IsActive && otherOwners == 0 {
		return nil, "", ErrLastOwner
	}

	var email string
	if err := tx.QueryRow(ctx,
		`SELECT email FROM user_profiles WHERE id = $1`, userID,
	).Scan(&email); err != nil {
		return nil, "", fmt.Errorf("reading removed member email: %w", err)
	}

	err = audit.InsertTx(ctx, tx, audit.Entry{
		OrganizationID: orgID,
		UserID:         performedBy,
		Action:         "member.removed",
		ResourceType:   "organization_member",
		ResourceID:     userID,
		Metadata:       map[string]any{"email": email, "role": old.Role, "was_active": old.IsActive},
	})
	if err != nil {
		return nil, "", err
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM organization_members
		 WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID,
	); err != nil {
		return nil, "", fmt.Errorf("deleting membership: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE user_profiles SET active_organization_id = NULL
		 WHERE id = $2 AND active_organization_id = $1`,
		orgID, userID,
	); err != nil {
		return nil, "", fmt.Errorf("clearing active organization: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("committing member removal: %w", err)
	}
	return old, email, nil
}

// lockForMutation takes every row lock a membership mutation can need in one
// statement: the target row plus all active owner rows of the organization,
// ordered by user_id. The single ordered acquisition means two concurrent
// mutations in the same organization always lock rows in the same sequence
// and cannot deadlock each other. Returns the target membership as currently
// stored and the number of active owners other than the target.
func lockForMutation(ctx context.Context, tx pgx.Tx, orgID, userID string) (*Membership, int, error) {
	rows, err := tx.Query(ctx,
		`SELECT organization_id, user_id, role, is_active, joined_at
		 FROM organization_members
		 WHERE organization_id = $1
		   AND (user_id = $2 OR (role = 'owner' AND is_active))
		 ORDER BY user_id
		 FOR UPDATE`,
		orgID, userID,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("locking membership rows: %w", err)
	}
	defer rows.Close()

	var target *Membership
	otherOwners := 0
	for rows.Next() {
		m := &Membership{}
		if err := rows.Scan(&m.OrganizationID, &m.UserID, &m.Role, &m.IsActive, &m.JoinedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning membership row: %w", err)
		}
		if m.UserID == userID {
			target = m
		} else if m.Role == RoleOwner && m.IsActive {
			otherOwners++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating membership rows: %w", err)
	}
	if target == nil {
		return nil, 0, ErrMemberNotFound
	}
	return target, otherOwners, nil
}

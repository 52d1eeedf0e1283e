package passreset

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// errUnusedTokenExists reports an insert that lost the race against a
// concurrent request for the same email: the partial unique index on
// (user_email) WHERE used_at IS NULL rejected the row. The caller retries;
// its delete will then see the winner's committed token.
var errUnusedTokenExists = errors.New("an unused reset token already exists for this email")

// Store provides database operations for password reset tokens.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new token store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a fresh token inside one transaction. Two maintenance
// deletes ride along on the write path: tokens expired more than 24 hours
// ago or used more than 7 days ago are garbage-collected, and any prior
// unused token for the same email is dropped so at most one unused token
// exists per account. Under READ COMMITTED two concurrent requests can both
// pass the delete without seeing each other's insert, so the partial unique
// index on (user_email) WHERE used_at IS NULL backstops the rule; the loser
// gets errUnusedTokenExists and retries.
func (s *Store) Create(ctx context.Context, tok *Token) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning token insert: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM password_reset_tokens
		 WHERE token_expires_at < now() - interval '24 hours'
		    OR (used_at IS NOT NULL AND used_at < now() - interval '7 days')`,
	); err != nil {
		return fmt.Errorf("cleaning up stale tokens: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM password_reset_tokens
		 WHERE user_email = $1 AND used_at IS NULL`,
		tok.UserEmail,
	); err != nil {
		return fmt.Errorf("deleting prior unused token: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO password_reset_tokens
		 (id, user_email, reset_token, token_expires_at, created_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tok.ID, tok.UserEmail, tok.ResetToken, tok.TokenExpiresAt, tok.CreatedAt, tok.IPAddress, tok.UserAgent,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return errUnusedTokenExists
		}
		return fmt.Errorf("inserting reset token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing token insert: %w", err)
	}
	return nil
}

// GetByToken retrieves a token row by exact token match. A missing row is
// indistinguishable from a malformed token to callers.
func (s *Store) GetByToken(ctx context.Context, token string) (*Token, error) {
	tok := &Token{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_email, reset_token, token_expires_at, created_at, used_at, ip_address, user_agent
		 FROM password_reset_tokens WHERE reset_token = $1`,
		token,
	).Scan(&tok.ID, &tok.UserEmail, &tok.ResetToken, &tok.TokenExpiresAt, &tok.CreatedAt, &tok.UsedAt, &tok.IPAddress, &tok.UserAgent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("getting reset token: %w", err)
	}
	return tok, nil
}

// Consume marks the token used, but only if it is still unused. Reports
// false when a concurrent request got there first.
func (s *Store) Consume(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE password_reset_tokens SET used_at = now()
		 WHERE id = $1 AND used_at IS NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("consuming reset token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a token by its token value.
func (s *Store) Delete(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM password_reset_tokens WHERE reset_token = $1`, token,
	); err != nil {
		return fmt.Errorf("deleting reset token: %w", err)
	}
	return nil
}

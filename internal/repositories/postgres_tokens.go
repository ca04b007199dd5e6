package repositories

import (
	"context"
	"fmt"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
)

// PostgresRefreshTokenStore keeps each user's single active refresh token on the users row.
type PostgresRefreshTokenStore struct {
	pool db.Pool
}

// NewPostgresRefreshTokenStore constructs a refresh token store backed by PostgreSQL.
func NewPostgresRefreshTokenStore(pool db.Pool) *PostgresRefreshTokenStore {
	return &PostgresRefreshTokenStore{pool: pool}
}

// ReplaceRefreshToken overwrites the stored token.
func (s *PostgresRefreshTokenStore) ReplaceRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $2
        WHERE id = $1
    `, userID, token)
	if err != nil {
		if translatePgError(err) == ErrNotFound {
			return auth.ErrUnknownUser
		}
		return fmt.Errorf("store refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrUnknownUser
	}

	return nil
}

// CompareAndSwapRefreshToken replaces the token only while it still equals expected.
// Serialization conflicts are retried, so a concurrent loser sees a mismatch.
func (s *PostgresRefreshTokenStore) CompareAndSwapRefreshToken(ctx context.Context, userID, expected, next string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var swapped, exists bool
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE users
            SET refresh_token = $3
            WHERE id = $1 AND refresh_token = $2
        `, userID, expected, next)
		if err != nil {
			return err
		}
		swapped = tag.RowsAffected() == 1
		if swapped {
			return nil
		}
		return tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	})
	if err != nil {
		if translatePgError(err) == ErrNotFound {
			return auth.ErrUnknownUser
		}
		return fmt.Errorf("rotate refresh token: %w", err)
	}

	switch {
	case swapped:
		return nil
	case !exists:
		return auth.ErrUnknownUser
	default:
		return auth.ErrRefreshTokenMismatch
	}
}

// ClearRefreshToken removes the stored token. Clearing an already empty value succeeds.
func (s *PostgresRefreshTokenStore) ClearRefreshToken(ctx context.Context, userID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = NULL
        WHERE id = $1
    `, userID); err != nil {
		if translatePgError(err) == ErrNotFound {
			return nil
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}

	return nil
}

var _ auth.RefreshTokenStore = (*PostgresRefreshTokenStore)(nil)

package repositories

import (
	"context"
	"errors"
	"fmt"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const userColumns = `
    u.id, u.username, u.email, u.full_name, u.password_hash,
    u.avatar_url, u.avatar_secure_url, u.avatar_public_id,
    u.cover_url, u.cover_secure_url, u.cover_public_id,
    u.watch_history::TEXT[], u.created_at, u.updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.Password,
		&user.Avatar.URL, &user.Avatar.SecureURL, &user.Avatar.ProviderID,
		&user.CoverImage.URL, &user.CoverImage.SecureURL, &user.CoverImage.ProviderID,
		&user.WatchHistory, &user.CreatedAt, &user.UpdatedAt,
	)
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}
	return user, err
}

// nullableID binds an empty id as SQL NULL.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record. Username and email are expected in canonical lowercase form.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (
            id, username, email, full_name, password_hash,
            avatar_url, avatar_secure_url, avatar_public_id,
            cover_url, cover_secure_url, cover_public_id,
            created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, user.ID, user.Username, user.Email, user.FullName, user.Password,
		user.Avatar.URL, user.Avatar.SecureURL, user.Avatar.ProviderID,
		user.CoverImage.URL, user.CoverImage.SecureURL, user.CoverImage.ProviderID,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if mapped := translatePgError(err); errors.Is(mapped, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(translatePgError(err), ErrNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// FindByUsernameOrEmail fetches the user matching either identifier. Empty
// identifiers never match.
func (r *PostgresUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users u
        WHERE (u.username = $1 AND $1 <> '') OR (u.email = $2 AND $2 <> '')
        ORDER BY u.created_at
        LIMIT 1
    `, username, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by username or email: %w", err)
	}

	return user, nil
}

// UpdateAccount changes the display name and email and returns the updated user.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users AS u
        SET full_name = $2, email = $3, updated_at = now()
        WHERE u.id = $1
        RETURNING `+userColumns, id, fullName, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		if mapped := translatePgError(err); mapped != nil {
			return models.User{}, mapped
		}
		return models.User{}, fmt.Errorf("update account: %w", err)
	}

	return user, nil
}

// UpdatePassword stores a new password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = now()
        WHERE id = $1
    `, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SwapAvatar replaces the avatar reference and returns the one it replaced.
func (r *PostgresUserRepository) SwapAvatar(ctx context.Context, id string, ref models.MediaRef) (models.MediaRef, error) {
	return r.swapMedia(ctx, id, "avatar", ref)
}

// SwapCoverImage replaces the cover image reference and returns the one it replaced.
func (r *PostgresUserRepository) SwapCoverImage(ctx context.Context, id string, ref models.MediaRef) (models.MediaRef, error) {
	return r.swapMedia(ctx, id, "cover", ref)
}

// swapMedia updates one of the fixed media column groups. column is never user input.
func (r *PostgresUserRepository) swapMedia(ctx context.Context, id, column string, ref models.MediaRef) (models.MediaRef, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var previous models.MediaRef
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            SELECT %[1]s_url, %[1]s_secure_url, %[1]s_public_id
            FROM users
            WHERE id = $1
            FOR UPDATE
        `, column), id)
		if err := row.Scan(&previous.URL, &previous.SecureURL, &previous.ProviderID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("select current %s: %w", column, err)
		}

		if _, err := tx.Exec(ctx, fmt.Sprintf(`
            UPDATE users
            SET %[1]s_url = $2, %[1]s_secure_url = $3, %[1]s_public_id = $4, updated_at = now()
            WHERE id = $1
        `, column), id, ref.URL, ref.SecureURL, ref.ProviderID); err != nil {
			return fmt.Errorf("update %s: %w", column, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(translatePgError(err), ErrNotFound) {
			return models.MediaRef{}, ErrNotFound
		}
		return models.MediaRef{}, err
	}

	return previous, nil
}

// PrependWatchHistory records videoID as the most recently watched entry.
func (r *PostgresUserRepository) PrependWatchHistory(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET watch_history = array_prepend($2::UUID, watch_history)
        WHERE id = $1
    `, userID, videoID)
	if err != nil {
		return fmt.Errorf("prepend watch history: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)

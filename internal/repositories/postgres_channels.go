package repositories

import (
	"context"
	"errors"
	"fmt"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresChannelRepository answers the channel profile and watch history views.
type PostgresChannelRepository struct {
	pool db.Pool
}

// NewPostgresChannelRepository constructs a channel repository backed by PostgreSQL.
func NewPostgresChannelRepository(pool db.Pool) *PostgresChannelRepository {
	return &PostgresChannelRepository{pool: pool}
}

// ChannelProfile computes the public profile of username in one statement, so
// both counts and the subscription flag come from the same snapshot.
func (r *PostgresChannelRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT
            u.full_name, u.username,
            (SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id),
            (SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
            EXISTS (
                SELECT 1 FROM subscriptions s
                WHERE s.channel_id = u.id AND s.subscriber_id = $2
            ),
            u.avatar_url, u.avatar_secure_url, u.avatar_public_id,
            u.cover_url, u.cover_secure_url, u.cover_public_id
        FROM users u
        WHERE u.username = $1
    `, username, nullableID(viewerID))

	var p models.ChannelProfile
	if err := row.Scan(
		&p.FullName, &p.Username,
		&p.SubscribersCount, &p.ChannelsSubscribedToCount, &p.IsSubscribed,
		&p.Avatar.URL, &p.Avatar.SecureURL, &p.Avatar.ProviderID,
		&p.CoverImage.URL, &p.CoverImage.SecureURL, &p.CoverImage.ProviderID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(translatePgError(err), ErrNotFound) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return p, nil
}

// WatchHistory resolves the user's watch history in stored order. Entries
// whose video has been deleted are skipped.
func (r *PostgresChannelRepository) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		if errors.Is(translatePgError(err), ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`, `+ownerColumns+`
        FROM users u
        CROSS JOIN LATERAL unnest(u.watch_history) WITH ORDINALITY AS h(video_id, ord)
        JOIN videos v ON v.id = h.video_id
        JOIN users o ON o.id = v.owner_id
        WHERE u.id = $1
        ORDER BY h.ord
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	history := []models.WatchedVideo{}
	for rows.Next() {
		entry, err := scanWatchedVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return history, nil
}

// PostgresSubscriptionRepository persists subscription edges.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle removes the edge if it exists and creates it otherwise, returning
// whether the subscriber is now subscribed. An unknown user yields ErrNotFound.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var subscribed bool
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            DELETE FROM subscriptions
            WHERE subscriber_id = $1 AND channel_id = $2
        `, subscriberID, channelID)
		if err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}
		if tag.RowsAffected() > 0 {
			subscribed = false
			return nil
		}

		if _, err := tx.Exec(ctx, `
            INSERT INTO subscriptions (id, subscriber_id, channel_id)
            VALUES ($1, $2, $3)
            ON CONFLICT (subscriber_id, channel_id) DO NOTHING
        `, uuid.NewString(), subscriberID, channelID); err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
		subscribed = true
		return nil
	})
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return false, mapped
		}
		return false, err
	}

	return subscribed, nil
}

var (
	_ ChannelRepository      = (*PostgresChannelRepository)(nil)
	_ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
)

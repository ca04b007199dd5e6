package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const videoColumns = `
    v.id, v.owner_id,
    v.video_url, v.video_secure_url, v.video_public_id,
    v.thumbnail_url, v.thumbnail_secure_url, v.thumbnail_public_id,
    v.title, v.description, v.duration, v.views, v.is_published,
    v.created_at, v.updated_at`

const ownerColumns = `o.id, o.full_name, o.username, o.avatar_url, o.avatar_secure_url, o.avatar_public_id`

const searchDocument = `to_tsvector('english', v.title || ' ' || v.description)`

var videoSortColumns = map[string]string{
	"createdAt": "v.created_at",
	"views":     "v.views",
	"duration":  "v.duration",
	"title":     "v.title",
}

func videoScanTargets(v *models.Video) []any {
	return []any{
		&v.ID, &v.OwnerID,
		&v.VideoFile.URL, &v.VideoFile.SecureURL, &v.VideoFile.ProviderID,
		&v.Thumbnail.URL, &v.Thumbnail.SecureURL, &v.Thumbnail.ProviderID,
		&v.Title, &v.Description, &v.Duration, &v.Views, &v.IsPublished,
		&v.CreatedAt, &v.UpdatedAt,
	}
}

func ownerScanTargets(o *models.OwnerSummary) []any {
	return []any{&o.ID, &o.FullName, &o.Username, &o.Avatar.URL, &o.Avatar.SecureURL, &o.Avatar.ProviderID}
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(videoScanTargets(&v)...)
	return v, err
}

func scanWatchedVideo(row pgx.Row) (models.WatchedVideo, error) {
	var w models.WatchedVideo
	err := row.Scan(append(videoScanTargets(&w.Video), ownerScanTargets(&w.Owner)...)...)
	return w, err
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record. An unknown owner yields ErrNotFound.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (
            id, owner_id,
            video_url, video_secure_url, video_public_id,
            thumbnail_url, thumbnail_secure_url, thumbnail_public_id,
            title, description, duration, views, is_published, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    `, video.ID, video.OwnerID,
		video.VideoFile.URL, video.VideoFile.SecureURL, video.VideoFile.ProviderID,
		video.Thumbnail.URL, video.Thumbnail.SecureURL, video.Thumbnail.ProviderID,
		video.Title, video.Description, video.Duration, video.Views, video.IsPublished,
		video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a single video.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos v WHERE v.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(translatePgError(err), ErrNotFound) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// IncrementViews adds one view in a single statement and returns the new count.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var views int64
	err = conn.QueryRow(ctx, `
        UPDATE videos
        SET views = views + 1
        WHERE id = $1
        RETURNING views
    `, id).Scan(&views)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(translatePgError(err), ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment views: %w", err)
	}

	return views, nil
}

// Details resolves a video with its owner, engagement counts and the viewer's
// subscription state in one statement. An empty viewerID is anonymous.
func (r *PostgresVideoRepository) Details(ctx context.Context, id, viewerID string) (models.VideoDetails, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoDetails{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+videoColumns+`, `+ownerColumns+`,
            (SELECT count(*) FROM subscriptions s WHERE s.channel_id = v.owner_id),
            (SELECT count(*) FROM likes l WHERE l.video_id = v.id),
            (SELECT count(*) FROM comments c WHERE c.video_id = v.id),
            EXISTS (
                SELECT 1 FROM subscriptions s
                WHERE s.channel_id = v.owner_id AND s.subscriber_id = $2
            )
        FROM videos v
        JOIN users o ON o.id = v.owner_id
        WHERE v.id = $1
    `, id, nullableID(viewerID))

	var details models.VideoDetails
	targets := append(videoScanTargets(&details.Video), ownerScanTargets(&details.Owner)...)
	targets = append(targets, &details.SubscribersCount, &details.LikesCount, &details.CommentsCount, &details.IsSubscribed)
	if err := row.Scan(targets...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(translatePgError(err), ErrNotFound) {
			return models.VideoDetails{}, ErrNotFound
		}
		return models.VideoDetails{}, fmt.Errorf("select video details: %w", err)
	}

	return details, nil
}

// Search lists published videos matching the filters and returns the page
// alongside the total number of matches.
func (r *PostgresVideoRepository) Search(ctx context.Context, search VideoSearch) ([]models.WatchedVideo, int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	where := []string{"v.is_published"}
	var args []any
	rank := ""
	if q := strings.TrimSpace(search.Query); q != "" {
		args = append(args, q)
		where = append(where, fmt.Sprintf("%s @@ plainto_tsquery('english', $%d)", searchDocument, len(args)))
		rank = fmt.Sprintf("ts_rank(%s, plainto_tsquery('english', $%d))", searchDocument, len(args))
	}
	if search.OwnerID != "" {
		args = append(args, search.OwnerID)
		where = append(where, fmt.Sprintf("v.owner_id = $%d", len(args)))
	}
	filter := strings.Join(where, " AND ")

	var total int64
	if err := conn.QueryRow(ctx, `SELECT count(*) FROM videos v WHERE `+filter, args...).Scan(&total); err != nil {
		if errors.Is(translatePgError(err), ErrNotFound) {
			return []models.WatchedVideo{}, 0, nil
		}
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	direction := "ASC"
	if search.SortDesc {
		direction = "DESC"
	}
	order := ""
	if column, ok := videoSortColumns[search.SortBy]; ok {
		order = fmt.Sprintf("%s %s, v.id", column, direction)
	} else if rank != "" {
		order = rank + " DESC, v.id"
	} else {
		order = "v.created_at DESC, v.id"
	}

	args = append(args, search.Limit, search.Offset)
	rows, err := conn.Query(ctx, fmt.Sprintf(`
        SELECT %s, %s
        FROM videos v
        JOIN users o ON o.id = v.owner_id
        WHERE %s
        ORDER BY %s
        LIMIT $%d OFFSET $%d
    `, videoColumns, ownerColumns, filter, order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos := []models.WatchedVideo{}
	for rows.Next() {
		video, err := scanWatchedVideo(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, total, nil
}

// Update changes title and description and, when provided, swaps the
// thumbnail. The replaced thumbnail is returned so the caller can delete it.
func (r *PostgresVideoRepository) Update(ctx context.Context, update VideoUpdate) (models.Video, models.MediaRef, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, models.MediaRef{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		updated  models.Video
		replaced models.MediaRef
	)
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		current, err := scanVideo(tx.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos v WHERE v.id = $1 FOR UPDATE`, update.ID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("select video for update: %w", err)
		}

		thumbnail := current.Thumbnail
		replaced = models.MediaRef{}
		if update.Thumbnail != nil {
			thumbnail = *update.Thumbnail
			replaced = current.Thumbnail
		}

		updated, err = scanVideo(tx.QueryRow(ctx, `
            UPDATE videos AS v
            SET title = $2, description = $3,
                thumbnail_url = $4, thumbnail_secure_url = $5, thumbnail_public_id = $6,
                updated_at = now()
            WHERE v.id = $1
            RETURNING `+videoColumns,
			update.ID, update.Title, update.Description, thumbnail.URL, thumbnail.SecureURL, thumbnail.ProviderID))
		if err != nil {
			return fmt.Errorf("update video: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(translatePgError(err), ErrNotFound) {
			return models.Video{}, models.MediaRef{}, ErrNotFound
		}
		return models.Video{}, models.MediaRef{}, err
	}

	return updated, replaced, nil
}

// Delete removes the video and strips it from every watch history atomically.
// The deleted row is returned so the caller can release its media.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var deleted models.Video
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		deleted, err = scanVideo(tx.QueryRow(ctx, `DELETE FROM videos AS v WHERE v.id = $1 RETURNING `+videoColumns, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("delete video: %w", err)
		}

		if _, err := tx.Exec(ctx, `
            UPDATE users
            SET watch_history = array_remove(watch_history, $1::UUID)
            WHERE $1::UUID = ANY (watch_history)
        `, id); err != nil {
			return fmt.Errorf("strip watch history: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(translatePgError(err), ErrNotFound) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, err
	}

	return deleted, nil
}

// TogglePublish flips the publication flag in a single statement.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `
        UPDATE videos AS v
        SET is_published = NOT v.is_published, updated_at = now()
        WHERE v.id = $1
        RETURNING `+videoColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(translatePgError(err), ErrNotFound) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("toggle publish: %w", err)
	}

	return video, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)

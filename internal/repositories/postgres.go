package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/streamhub/backend/internal/db"
	"github.com/streamhub/backend/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, username, email, full_name, avatar_url, cover_image_url, password_hash, COALESCE(refresh_token, ''), created_at, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar, &user.CoverImage,
		&user.Password, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

const videoColumns = `id, owner_id, title, description, duration, thumbnail_url, video_url, views, is_published, created_at, updated_at`

func scanVideo(row rowScanner) (models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.Duration, &video.Thumbnail,
		&video.VideoFile, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt)
	return video, err
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Password, user.Avatar, user.CoverImage, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return r.findOne(ctx, "select user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByIdentifier fetches a user whose username or email equals identifier.
func (r *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	return r.findOne(ctx, "select user by identifier", `
        SELECT `+userColumns+`
        FROM users
        WHERE username = $1 OR email = $1
        LIMIT 1
    `, identifier)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, op, query string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// ExistsByUsernameOrEmail reports whether either value is already taken.
func (r *PostgresUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)
    `, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing user: %w", err)
	}
	return exists, nil
}

// UpdatePassword stores a new password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateAccount changes the display name and email of a user.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id uuid.UUID, fullName, email string) (models.User, error) {
	return r.updateReturning(ctx, "update account", `
        UPDATE users
        SET full_name = $2, email = $3, updated_at = $4
        WHERE id = $1
        RETURNING `+userColumns, id, fullName, email, time.Now().UTC())
}

// UpdateAvatar replaces the avatar URL of a user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (models.User, error) {
	return r.updateReturning(ctx, "update avatar", `
        UPDATE users
        SET avatar_url = $2, updated_at = $3
        WHERE id = $1
        RETURNING `+userColumns, id, avatarURL, time.Now().UTC())
}

// UpdateCoverImage replaces the cover image URL of a user.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id uuid.UUID, coverURL string) (models.User, error) {
	return r.updateReturning(ctx, "update cover image", `
        UPDATE users
        SET cover_image_url = $2, updated_at = $3
        WHERE id = $1
        RETURNING `+userColumns, id, coverURL, time.Now().UTC())
}

func (r *PostgresUserRepository) updateReturning(ctx context.Context, op, query string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		if pgCode(err) == pgUniqueViolation {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// ChannelProfile resolves a channel page by username. Counts come from two
// independent joins against the subscription edges; isSubscribed is false
// when viewerID is uuid.Nil.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.full_name, u.email, u.avatar_url, u.cover_image_url, u.created_at,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
               EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2)
        FROM users u
        WHERE u.username = $1
    `, username, viewerID)

	var profile models.ChannelProfile
	if err := row.Scan(&profile.ID, &profile.Username, &profile.FullName, &profile.Email, &profile.Avatar,
		&profile.CoverImage, &profile.CreatedAt, &profile.SubscribersCount, &profile.ChannelsSubscribedToCount,
		&profile.IsSubscribed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// AppendWatchHistory records that userID watched videoID. Repeated views keep
// the original position in the history.
func (r *PostgresUserRepository) AppendWatchHistory(ctx context.Context, userID, videoID uuid.UUID) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, added_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id) DO NOTHING
    `, userID, videoID, time.Now().UTC())
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("append watch history: %w", err)
	}

	return nil
}

// WatchHistory resolves a user's history into videos with their owners, oldest first.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.duration, v.thumbnail_url, v.video_url, v.views,
               v.is_published, v.created_at, v.updated_at,
               o.id, o.username, o.full_name, o.avatar_url,
               wh.added_at
        FROM watch_history wh
        JOIN videos v ON v.id = wh.video_id
        JOIN users o ON o.id = v.owner_id
        WHERE wh.user_id = $1
        ORDER BY wh.added_at ASC, wh.video_id ASC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	history := []models.WatchedVideo{}
	for rows.Next() {
		var entry models.WatchedVideo
		v := &entry.Video
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.Duration, &v.Thumbnail, &v.VideoFile,
			&v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt,
			&entry.Owner.ID, &entry.Owner.Username, &entry.Owner.FullName, &entry.Owner.Avatar,
			&entry.WatchedAt); err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return history, nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, duration, thumbnail_url, video_url, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.Duration, video.Thumbnail, video.VideoFile,
		video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return ErrConflict
		case pgForeignKeyViolation:
			return ErrNotFound
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a video without side effects.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Video, error) {
	return r.one(ctx, "select video", `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
}

// RecordView atomically increments the view counter and returns the updated video.
func (r *PostgresVideoRepository) RecordView(ctx context.Context, id uuid.UUID) (models.Video, error) {
	return r.one(ctx, "increment video views", `
        UPDATE videos
        SET views = views + 1
        WHERE id = $1
        RETURNING `+videoColumns, id)
}

// Update writes the mutable fields of video.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) (models.Video, error) {
	return r.one(ctx, "update video", `
        UPDATE videos
        SET title = $2, description = $3, thumbnail_url = $4, is_published = $5, updated_at = $6
        WHERE id = $1
        RETURNING `+videoColumns,
		video.ID, video.Title, video.Description, video.Thumbnail, video.IsPublished, time.Now().UTC())
}

// TogglePublished flips the publish flag in place.
func (r *PostgresVideoRepository) TogglePublished(ctx context.Context, id uuid.UUID) (models.Video, error) {
	return r.one(ctx, "toggle video publish", `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = $2
        WHERE id = $1
        RETURNING `+videoColumns, id, time.Now().UTC())
}

func (r *PostgresVideoRepository) one(ctx context.Context, op, query string, args ...any) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("%s: %w", op, err)
	}
	return video, nil
}

// Delete removes a video record. Watch-history references cascade.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns one page of published videos matching query.
func (r *PostgresVideoRepository) List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 10
	}

	conditions := []string{"is_published = TRUE"}
	var args []any
	if search := strings.TrimSpace(query.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if query.OwnerID != uuid.Nil {
		args = append(args, query.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	column, ok := VideoSortColumns[query.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if query.SortType == models.SortAsc {
		direction = "ASC"
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos WHERE `+where, args...).Scan(&total); err != nil {
		return models.VideoPage{}, fmt.Errorf("count videos: %w", err)
	}

	pageArgs := append(append([]any{}, args...), query.Limit, (query.Page-1)*query.Limit)
	rows, err := conn.Query(ctx, fmt.Sprintf(`
        SELECT %s
        FROM videos
        WHERE %s
        ORDER BY %s %s, id %s
        LIMIT $%d OFFSET $%d
    `, videoColumns, where, column, direction, direction, len(args)+1, len(args)+2), pageArgs...)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos, err := collectVideos(rows)
	if err != nil {
		return models.VideoPage{}, err
	}

	return models.NewVideoPage(videos, total, query.Page, query.Limit), nil
}

// ListUnpublished returns every unpublished video of ownerID, newest first.
func (r *PostgresVideoRepository) ListUnpublished(ctx context.Context, ownerID uuid.UUID) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE owner_id = $1 AND is_published = FALSE
        ORDER BY created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query unpublished videos: %w", err)
	}
	defer rows.Close()

	return collectVideos(rows)
}

func collectVideos(rows pgx.Rows) ([]models.Video, error) {
	videos := []models.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle flips the subscription edge. The unique (subscriber, channel)
// constraint keeps concurrent toggles from creating duplicate edges.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (subscriber_id, channel_id) DO NOTHING
    `, uuid.New(), subscriberID, channelID, time.Now().UTC())
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("insert subscription: %w", err)
	}

	return true, nil
}

// Subscribers lists the users subscribed to channelID, newest first.
func (r *PostgresSubscriptionRepository) Subscribers(ctx context.Context, channelID uuid.UUID) (models.SubscriberList, error) {
	return r.list(ctx, "subscribers", `
        SELECT u.id, u.username, u.full_name, u.email, u.avatar_url
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC, u.id
    `, channelID)
}

// SubscribedChannels lists the channels subscriberID follows, newest first.
func (r *PostgresSubscriptionRepository) SubscribedChannels(ctx context.Context, subscriberID uuid.UUID) (models.SubscriberList, error) {
	return r.list(ctx, "subscribed channels", `
        SELECT u.id, u.username, u.full_name, u.email, u.avatar_url
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC, u.id
    `, subscriberID)
}

func (r *PostgresSubscriptionRepository) list(ctx context.Context, op, query string, id uuid.UUID) (models.SubscriberList, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.SubscriberList{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, id)
	if err != nil {
		return models.SubscriberList{}, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	result := models.SubscriberList{Users: []models.PublicProfile{}}
	for rows.Next() {
		var profile models.PublicProfile
		if err := rows.Scan(&profile.ID, &profile.Username, &profile.FullName, &profile.Email, &profile.Avatar); err != nil {
			return models.SubscriberList{}, fmt.Errorf("scan %s: %w", op, err)
		}
		result.Users = append(result.Users, profile)
	}
	if err := rows.Err(); err != nil {
		return models.SubscriberList{}, fmt.Errorf("iterate %s: %w", op, err)
	}

	result.Count = len(result.Users)
	return result, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"golang.org/x/oauth2"

	"creatorChallengeAPI/internal/achievement"
	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/channel"
	"creatorChallengeAPI/internal/notification"
	"creatorChallengeAPI/internal/storage/migrations"
	"creatorChallengeAPI/internal/upload"
	"creatorChallengeAPI/internal/user"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// PoolConfig holds the connection pool knobs exposed through configuration.
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func OpenPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// translate maps constraint violations to ErrDuplicate and everything else to a
// storage error.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23P01":
			return ErrDuplicate
		}
	}
	return apperr.Storage(op, err)
}

func (s *PostgresStore) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperr.Storage(op, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(op, err)
	}
	return nil
}

const challengeColumns = `id, owner_id, title, cadence_days, videos_per_cadence, duration_days, start_date,
	status, streak_count, longest_streak, missed_days, completion_percentage, points_earned,
	next_deadline, email_notifications, schedule, version, created_at, updated_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	ch := &challenge.Challenge{}
	var schedule []byte
	err := row.Scan(
		&ch.ID, &ch.OwnerID, &ch.Title, &ch.CadenceDays, &ch.VideosPerCadence, &ch.DurationDays,
		&ch.StartDate, &ch.Status, &ch.StreakCount, &ch.LongestStreak, &ch.MissedDays,
		&ch.CompletionPercentage, &ch.PointsEarned, &ch.NextDeadline, &ch.EmailNotifications,
		&schedule, &ch.Version, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(schedule, &ch.Schedule); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	return ch, nil
}

func (s *PostgresStore) CreateChallenge(ctx context.Context, ch *challenge.Challenge) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	schedule, err := json.Marshal(ch.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}

	query := `
	INSERT INTO challenges (id, owner_id, title, cadence_days, videos_per_cadence, duration_days,
		start_date, status, streak_count, longest_streak, missed_days, completion_percentage,
		points_earned, next_deadline, email_notifications, schedule, version)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)
	RETURNING version, created_at, updated_at
	`

	err = s.db.QueryRow(ctx, query,
		ch.ID, ch.OwnerID, ch.Title, ch.CadenceDays, ch.VideosPerCadence, ch.DurationDays,
		ch.StartDate, ch.Status, ch.StreakCount, ch.LongestStreak, ch.MissedDays,
		ch.CompletionPercentage, ch.PointsEarned, ch.NextDeadline, ch.EmailNotifications, schedule,
	).Scan(&ch.Version, &ch.CreatedAt, &ch.UpdatedAt)
	return translate("create challenge", err)
}

func (s *PostgresStore) GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	ch, err := scanChallenge(s.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("challenge %s", id)
		}
		return nil, apperr.Storage("get challenge", err)
	}
	return ch, nil
}

func (s *PostgresStore) ListChallengesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*challenge.Challenge, error) {
	return s.listChallenges(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE owner_id = $1 AND status <> 'deleted' ORDER BY created_at`,
		ownerID)
}

func (s *PostgresStore) ListActiveChallenges(ctx context.Context) ([]*challenge.Challenge, error) {
	return s.listChallenges(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE status = 'active' ORDER BY created_at`)
}

func (s *PostgresStore) listChallenges(ctx context.Context, query string, args ...any) ([]*challenge.Challenge, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list challenges", err)
	}
	defer rows.Close()

	var out []*challenge.Challenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, apperr.Storage("scan challenge", err)
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list challenges", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateChallenge(ctx context.Context, ch *challenge.Challenge) error {
	return updateChallenge(ctx, s.db, ch)
}

// updateChallenge writes every mutable column when the stored version still matches.
func updateChallenge(ctx context.Context, q querier, ch *challenge.Challenge) error {
	schedule, err := json.Marshal(ch.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}

	query := `
	UPDATE challenges
	SET title = $3, status = $4, streak_count = $5, longest_streak = $6, missed_days = $7,
		completion_percentage = $8, points_earned = $9, next_deadline = $10,
		email_notifications = $11, schedule = $12, version = version + 1, updated_at = NOW()
	WHERE id = $1 AND version = $2
	RETURNING version, updated_at
	`

	err = q.QueryRow(ctx, query,
		ch.ID, ch.Version, ch.Title, ch.Status, ch.StreakCount, ch.LongestStreak, ch.MissedDays,
		ch.CompletionPercentage, ch.PointsEarned, ch.NextDeadline, ch.EmailNotifications, schedule,
	).Scan(&ch.Version, &ch.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return translate("update challenge", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM challenges WHERE id = $1)`, ch.ID).Scan(&exists); err != nil {
		return apperr.Storage("update challenge", err)
	}
	if !exists {
		return apperr.NotFound("challenge %s", ch.ID)
	}
	return ErrVersionConflict
}

func (s *PostgresStore) UploadExists(ctx context.Context, challengeID uuid.UUID, videoID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM challenge_uploads WHERE challenge_id = $1 AND video_id = $2)`,
		challengeID, videoID,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Storage("check upload", err)
	}
	return exists, nil
}

func (s *PostgresStore) RecordUpload(ctx context.Context, ch *challenge.Challenge, rec *upload.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	next := ch.Clone()

	err := s.inTx(ctx, "record upload", func(tx pgx.Tx) error {
		query := `
		INSERT INTO challenge_uploads (id, challenge_id, video_id, title, url, published_at, slot_index,
			slot_date, on_time, points_earned, view_count, like_count, comment_count, duration_seconds, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
		`
		err := tx.QueryRow(ctx, query,
			rec.ID, rec.ChallengeID, rec.VideoID, rec.Title, rec.URL, rec.PublishedAt, rec.SlotIndex,
			rec.SlotDate, rec.OnTime, rec.PointsEarned, rec.ViewCount, rec.LikeCount, rec.CommentCount,
			int64(rec.Duration/time.Second), rec.Source,
		).Scan(&rec.CreatedAt)
		if err != nil {
			return translate("insert upload", err)
		}
		return updateChallenge(ctx, tx, next)
	})
	if err != nil {
		return err
	}
	ch.Version, ch.UpdatedAt = next.Version, next.UpdatedAt
	return nil
}

func (s *PostgresStore) ListUploads(ctx context.Context, challengeID uuid.UUID) ([]*upload.Record, error) {
	query := `
	SELECT id, challenge_id, video_id, title, url, published_at, slot_index, slot_date, on_time,
		points_earned, view_count, like_count, comment_count, duration_seconds, source, created_at
	FROM challenge_uploads
	WHERE challenge_id = $1
	ORDER BY slot_index
	`

	rows, err := s.db.Query(ctx, query, challengeID)
	if err != nil {
		return nil, apperr.Storage("list uploads", err)
	}
	defer rows.Close()

	var out []*upload.Record
	for rows.Next() {
		r := &upload.Record{}
		var seconds int64
		err := rows.Scan(
			&r.ID, &r.ChallengeID, &r.VideoID, &r.Title, &r.URL, &r.PublishedAt, &r.SlotIndex,
			&r.SlotDate, &r.OnTime, &r.PointsEarned, &r.ViewCount, &r.LikeCount, &r.CommentCount,
			&seconds, &r.Source, &r.CreatedAt,
		)
		if err != nil {
			return nil, apperr.Storage("scan upload", err)
		}
		r.Duration = time.Duration(seconds) * time.Second
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListAchievements(ctx context.Context, challengeID uuid.UUID) ([]*achievement.Record, error) {
	query := `
	SELECT id, user_id, challenge_id, type, title, description, points, unlocked_at
	FROM challenge_achievements
	WHERE challenge_id = $1
	ORDER BY unlocked_at
	`

	rows, err := s.db.Query(ctx, query, challengeID)
	if err != nil {
		return nil, apperr.Storage("list achievements", err)
	}
	defer rows.Close()

	var out []*achievement.Record
	for rows.Next() {
		a := &achievement.Record{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.ChallengeID, &a.Type, &a.Title, &a.Description, &a.Points, &a.UnlockedAt); err != nil {
			return nil, apperr.Storage("scan achievement", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UnlockAchievement(ctx context.Context, rec *achievement.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.UnlockedAt.IsZero() {
		rec.UnlockedAt = time.Now()
	}

	return s.inTx(ctx, "unlock achievement", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
		INSERT INTO challenge_achievements (id, user_id, challenge_id, type, title, description, points, unlocked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, rec.ID, rec.UserID, rec.ChallengeID, rec.Type, rec.Title, rec.Description, rec.Points, rec.UnlockedAt)
		if err != nil {
			return translate("insert achievement", err)
		}

		tag, err := tx.Exec(ctx, `
		UPDATE challenges SET points_earned = points_earned + $2, version = version + 1, updated_at = NOW()
		WHERE id = $1
		`, rec.ChallengeID, rec.Points)
		if err != nil {
			return apperr.Storage("add achievement points", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("challenge %s", rec.ChallengeID)
		}
		return nil
	})
}

func insertLog(ctx context.Context, q querier, e *notification.LogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = q.Exec(ctx, `
	INSERT INTO challenge_notification_log (id, challenge_id, type, dedup_key, sent_at, dedup_until, payload)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.ChallengeID, e.Type, e.DedupKey, e.SentAt, e.DedupUntil, payload)
	return translate("insert notification log", err)
}

func (s *PostgresStore) InsertNotificationLog(ctx context.Context, e *notification.LogEntry) error {
	return insertLog(ctx, s.db, e)
}

func (s *PostgresStore) RecordMissed(ctx context.Context, ch *challenge.Challenge, e *notification.LogEntry) error {
	next := ch.Clone()
	err := s.inTx(ctx, "record missed", func(tx pgx.Tx) error {
		if err := insertLog(ctx, tx, e); err != nil {
			return err
		}
		return updateChallenge(ctx, tx, next)
	})
	if err != nil {
		return err
	}
	ch.Version, ch.UpdatedAt = next.Version, next.UpdatedAt
	return nil
}

const logColumns = `id, challenge_id, type, dedup_key, sent_at, dedup_until, payload`

func scanLog(row pgx.Row) (*notification.LogEntry, error) {
	e := &notification.LogEntry{}
	var payload []byte
	if err := row.Scan(&e.ID, &e.ChallengeID, &e.Type, &e.DedupKey, &e.SentAt, &e.DedupUntil, &payload); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &e.Payload)
	}
	return e, nil
}

func (s *PostgresStore) LastNotification(ctx context.Context, challengeID uuid.UUID, t notification.NotificationType) (*notification.LogEntry, error) {
	e, err := scanLog(s.db.QueryRow(ctx, `
	SELECT `+logColumns+` FROM challenge_notification_log
	WHERE challenge_id = $1 AND type = $2
	ORDER BY sent_at DESC LIMIT 1
	`, challengeID, t))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("last notification", err)
	}
	return e, nil
}

func (s *PostgresStore) ListNotificationLog(ctx context.Context, challengeID uuid.UUID) ([]*notification.LogEntry, error) {
	rows, err := s.db.Query(ctx, `
	SELECT `+logColumns+` FROM challenge_notification_log
	WHERE challenge_id = $1 ORDER BY sent_at
	`, challengeID)
	if err != nil {
		return nil, apperr.Storage("list notification log", err)
	}
	defer rows.Close()

	var out []*notification.LogEntry
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, apperr.Storage("scan notification log", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendInbox(ctx context.Context, item *notification.InboxItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	data, err := json.Marshal(item.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	err = s.db.QueryRow(ctx, `
	INSERT INTO notifications (id, user_id, challenge_id, type, title, body, data)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at
	`, item.ID, item.UserID, item.ChallengeID, item.Type, item.Title, item.Body, data).Scan(&item.CreatedAt)
	return translate("append inbox", err)
}

func (s *PostgresStore) ListInbox(ctx context.Context, f notification.InboxFilter) ([]*notification.InboxItem, int, error) {
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	offset := (page - 1) * size

	whereClause := "WHERE user_id = $1"
	if f.UnreadOnly {
		whereClause += " AND read_at IS NULL"
	}

	query := fmt.Sprintf(`
	SELECT id, user_id, challenge_id, type, title, body, data, read_at, created_at
	FROM notifications
	%s
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3
	`, whereClause)

	rows, err := s.db.Query(ctx, query, f.UserID, size, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list inbox", err)
	}
	defer rows.Close()

	var items []*notification.InboxItem
	for rows.Next() {
		it := &notification.InboxItem{}
		var data []byte
		err := rows.Scan(&it.ID, &it.UserID, &it.ChallengeID, &it.Type, &it.Title, &it.Body, &data, &it.ReadAt, &it.CreatedAt)
		if err != nil {
			return nil, 0, apperr.Storage("scan inbox", err)
		}
		_ = json.Unmarshal(data, &it.Data)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("list inbox", err)
	}

	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications "+whereClause, f.UserID).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count inbox", err)
	}
	return items, total, nil
}

func (s *PostgresStore) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL", userID).Scan(&n)
	if err != nil {
		return 0, apperr.Storage("unread count", err)
	}
	return n, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	tag, err := s.db.Exec(ctx, `
	UPDATE notifications SET read_at = NOW()
	WHERE user_id = $1 AND id = ANY($2) AND read_at IS NULL
	`, userID, ids)
	if err != nil {
		return 0, apperr.Storage("mark read", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID)
	if err != nil {
		return apperr.Storage("mark all read", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	return s.getUser(ctx, `WHERE clerk_id = $1`, clerkID)
}

// UpsertUser keys on clerk_id and fills u.ID and u.CreatedAt from the stored row.
func (s *PostgresStore) UpsertUser(ctx context.Context, u *user.User) error {
	err := s.db.QueryRow(ctx, `
	INSERT INTO users (clerk_id, email, display_name)
	VALUES ($1, $2, $3)
	ON CONFLICT (clerk_id) DO UPDATE SET email = EXCLUDED.email, display_name = EXCLUDED.display_name
	RETURNING id, created_at
	`, u.ClerkID, u.Email, u.DisplayName).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return apperr.Storage("upsert user", err)
	}
	return nil
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (*user.User, error) {
	u := &user.User{}
	err := s.db.QueryRow(ctx, `SELECT id, clerk_id, email, display_name, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.ClerkID, &u.Email, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user %v", arg)
		}
		return nil, apperr.Storage("get user", err)
	}
	return u, nil
}

func (s *PostgresStore) GetChannelConnection(ctx context.Context, userID uuid.UUID) (*channel.Connection, error) {
	c := &channel.Connection{}
	err := s.db.QueryRow(ctx, `
	SELECT user_id, channel_id, channel_title, access_token, refresh_token, token_expiry, updated_at
	FROM channel_connections WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.ChannelID, &c.ChannelTitle, &c.AccessToken, &c.RefreshToken, &c.TokenExpiry, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("channel connection for user %s", userID)
		}
		return nil, apperr.Storage("get channel connection", err)
	}
	return c, nil
}

func (s *PostgresStore) SaveChannelToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error {
	tag, err := s.db.Exec(ctx, `
	UPDATE channel_connections
	SET access_token = $2,
		refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
		token_expiry = $4,
		updated_at = NOW()
	WHERE user_id = $1
	`, userID, tok.AccessToken, tok.RefreshToken, tok.Expiry)
	if err != nil {
		return apperr.Storage("save channel token", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("channel connection for user %s", userID)
	}
	return nil
}

func (s *PostgresStore) ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `
	SELECT token, platform, added_at, last_used FROM device_tokens WHERE user_id = $1 ORDER BY added_at
	`, userID)
	if err != nil {
		return nil, apperr.Storage("list device tokens", err)
	}
	defer rows.Close()

	var out []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.AddedAt, &t.LastUsed); err != nil {
			return nil, apperr.Storage("scan device token", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RegisterDevice(ctx context.Context, userID uuid.UUID, tok notification.DeviceToken) error {
	_, err := s.db.Exec(ctx, `
	INSERT INTO device_tokens (user_id, token, platform, added_at, last_used)
	VALUES ($1, $2, $3, NOW(), NOW())
	ON CONFLICT (user_id, token) DO UPDATE SET platform = EXCLUDED.platform, last_used = NOW()
	`, userID, tok.Token, tok.Platform)
	if err != nil {
		return apperr.Storage("register device", err)
	}
	return nil
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

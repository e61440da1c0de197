// Package postgres implements store.Store on PostgreSQL through pgx. Each
// WithTx call is one database transaction; upserts use ON CONFLICT on the
// natural key and read xmax to tell inserts from updates.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"tikscraper/pkg/config"
	"tikscraper/pkg/logger"
	"tikscraper/pkg/models"
	"tikscraper/pkg/store"
)

// Store is a PostgreSQL store.Store
type Store struct {
	pool   *pgxpool.Pool
	now    func() time.Time
	logger logger.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to cfg.URL, verifies the connection and applies the schema
func Open(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{pool: pool, now: time.Now, logger: log}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.InfoWithFields("connected to database", map[string]interface{}{
		"host":      poolCfg.ConnConfig.Host,
		"database":  poolCfg.ConnConfig.Database,
		"max_conns": poolCfg.MaxConns,
	})
	return s, nil
}

// Migrate creates missing tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}

// Close releases the connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, now: s.now().UTC()})
	})
}

type pgTx struct {
	tx  pgx.Tx
	now time.Time
}

func (t *pgTx) UpsertGroup(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("group name is required")
	}
	var created bool
	err := t.tx.QueryRow(ctx, `
		INSERT INTO tiktok_groups (name, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING (xmax = 0)`, name, t.now).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert group %q: %w", name, err)
	}
	return created, nil
}

func (t *pgTx) UpsertProfile(ctx context.Context, p store.ProfileUpsert) (bool, error) {
	if p.Username == "" {
		return false, fmt.Errorf("profile username is required")
	}

	var groupID int64
	if p.Group != "" {
		err := t.tx.QueryRow(ctx, `SELECT id FROM tiktok_groups WHERE name = $1`, p.Group).Scan(&groupID)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("unknown group %q", p.Group)
		}
		if err != nil {
			return false, fmt.Errorf("lookup group %q: %w", p.Group, err)
		}
	}

	var (
		profileID int64
		created   bool
	)
	err := t.tx.QueryRow(ctx, `
		INSERT INTO tiktok_profiles (username, name, profile_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (username) DO UPDATE SET
			name = EXCLUDED.name,
			profile_url = EXCLUDED.profile_url,
			updated_at = EXCLUDED.updated_at
		RETURNING id, (xmax = 0)`, p.Username, p.Name, p.ProfileURL, t.now).Scan(&profileID, &created)
	if err != nil {
		return false, fmt.Errorf("upsert profile %q: %w", p.Username, err)
	}

	if p.Group != "" {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO tiktok_profile_groups (profile_id, group_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, profileID, groupID)
		if err != nil {
			return false, fmt.Errorf("add %q to group %q: %w", p.Username, p.Group, err)
		}
	}
	return created, nil
}

func (t *pgTx) UpsertVideo(ctx context.Context, v models.Video) (bool, error) {
	if v.VideoID == "" {
		return false, fmt.Errorf("video id is required")
	}
	var created bool
	err := t.tx.QueryRow(ctx, `
		INSERT INTO tiktok_videos (video_id, profile_id, description, video_url,
			play_count, like_count, comment_count, share_count, posted_at, created_at, updated_at)
		SELECT $1, p.id, $3, $4, $5, $6, $7, $8, $9, $10, $10
		FROM tiktok_profiles p WHERE p.username = $2
		ON CONFLICT (video_id) DO UPDATE SET
			profile_id = EXCLUDED.profile_id,
			description = EXCLUDED.description,
			video_url = EXCLUDED.video_url,
			play_count = EXCLUDED.play_count,
			like_count = EXCLUDED.like_count,
			comment_count = EXCLUDED.comment_count,
			share_count = EXCLUDED.share_count,
			posted_at = EXCLUDED.posted_at,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		v.VideoID, v.ProfileUsername, v.Description, v.VideoURL,
		v.PlayCount, v.LikeCount, v.CommentCount, v.ShareCount, v.PostedAt, t.now,
	).Scan(&created)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("video %s: unknown profile %q", v.VideoID, v.ProfileUsername)
	}
	if err != nil {
		return false, fmt.Errorf("upsert video %s: %w", v.VideoID, err)
	}
	return created, nil
}

func (t *pgTx) UpsertComment(ctx context.Context, c models.Comment) (bool, error) {
	if c.CommentID == "" {
		return false, fmt.Errorf("comment id is required")
	}

	var videoPK int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM tiktok_videos WHERE video_id = $1`, c.VideoID).Scan(&videoPK)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("comment %s: unknown video %q", c.CommentID, c.VideoID)
	}
	if err != nil {
		return false, fmt.Errorf("lookup video %s: %w", c.VideoID, err)
	}

	var parentPK *int64
	if c.ParentCommentID != "" {
		var id, parentVideo int64
		err := t.tx.QueryRow(ctx, `SELECT id, video_id FROM tiktok_comments WHERE comment_id = $1`,
			c.ParentCommentID).Scan(&id, &parentVideo)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && parentVideo != videoPK) {
			return false, fmt.Errorf("comment %s: %w", c.CommentID, store.ErrParentMismatch)
		}
		if err != nil {
			return false, fmt.Errorf("lookup parent %s: %w", c.ParentCommentID, err)
		}
		parentPK = &id
	}

	var created bool
	err = t.tx.QueryRow(ctx, `
		INSERT INTO tiktok_comments (comment_id, video_id, parent_id, author_username, author_nickname,
			content, like_count, reply_count, avatar_url, posted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (comment_id) DO UPDATE SET
			video_id = EXCLUDED.video_id,
			parent_id = EXCLUDED.parent_id,
			author_username = EXCLUDED.author_username,
			author_nickname = EXCLUDED.author_nickname,
			content = EXCLUDED.content,
			like_count = EXCLUDED.like_count,
			reply_count = EXCLUDED.reply_count,
			avatar_url = EXCLUDED.avatar_url,
			posted_at = EXCLUDED.posted_at,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		c.CommentID, videoPK, parentPK, c.AuthorUsername, c.AuthorNickname,
		c.Content, c.LikeCount, c.ReplyCount, c.AvatarURL, c.PostedAt, t.now,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert comment %s: %w", c.CommentID, err)
	}
	return created, nil
}

const profileSelect = `
	SELECT p.id, p.username, p.name, p.profile_url, p.full_name, p.bio,
		p.followers_count, p.following_count, p.likes_count,
		COALESCE(array_agg(g.name ORDER BY g.name) FILTER (WHERE g.name IS NOT NULL), '{}'),
		p.created_at, p.updated_at
	FROM tiktok_profiles p
	LEFT JOIN tiktok_profile_groups pg ON pg.profile_id = p.id
	LEFT JOIN tiktok_groups g ON g.id = pg.group_id`

const videoSelect = `
	SELECT v.id, v.video_id, p.username, v.description, v.video_url,
		v.play_count, v.like_count, v.comment_count, v.share_count,
		v.posted_at, v.created_at, v.updated_at
	FROM tiktok_videos v
	JOIN tiktok_profiles p ON p.id = v.profile_id`

const commentSelect = `
	SELECT c.id, c.comment_id, v.video_id, c.author_username, c.author_nickname,
		c.content, c.like_count, c.reply_count, c.avatar_url,
		COALESCE(pc.comment_id, ''), c.posted_at, c.created_at, c.updated_at
	FROM tiktok_comments c
	JOIN tiktok_videos v ON v.id = c.video_id
	LEFT JOIN tiktok_comments pc ON pc.id = c.parent_id`

func scanProfile(row pgx.Row) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Username, &p.Name, &p.ProfileURL, &p.FullName, &p.Bio,
		&p.FollowersCount, &p.FollowingCount, &p.LikesCount, &p.Groups, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.VideoID, &v.ProfileUsername, &v.Description, &v.VideoURL,
		&v.PlayCount, &v.LikeCount, &v.CommentCount, &v.ShareCount,
		&v.PostedAt, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func scanComment(row pgx.Row) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.CommentID, &c.VideoID, &c.AuthorUsername, &c.AuthorNickname,
		&c.Content, &c.LikeCount, &c.ReplyCount, &c.AvatarURL,
		&c.ParentCommentID, &c.PostedAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) GetProfile(ctx context.Context, username string) (*models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, profileSelect+` WHERE p.username = $1 GROUP BY p.id`, username))
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	v, err := scanVideo(s.pool.QueryRow(ctx, videoSelect+` WHERE v.video_id = $1`, videoID))
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (s *Store) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, commentSelect+` WHERE c.comment_id = $1`, commentID))
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// videoQuery builds the SQL and arguments for ListVideos
func videoQuery(filter store.VideoFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.Username != "" {
		add("p.username = $%d", filter.Username)
	}
	if filter.VideoID != "" {
		add("v.video_id = $%d", filter.VideoID)
	}
	if !filter.Since.IsZero() {
		add("v.posted_at >= $%d", filter.Since)
	}

	var b strings.Builder
	b.WriteString(videoSelect)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY v.posted_at DESC NULLS LAST, v.video_id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func (s *Store) ListVideos(ctx context.Context, filter store.VideoFilter) ([]models.Video, error) {
	query, args := videoQuery(filter)
	return queryAll(ctx, s.pool, scanVideo, query, args...)
}

func (s *Store) ListComments(ctx context.Context, videoID string) ([]models.Comment, error) {
	return queryAll(ctx, s.pool, scanComment, commentSelect+` WHERE v.video_id = $1 ORDER BY c.comment_id`, videoID)
}

func (s *Store) Snapshot(ctx context.Context) (*store.Snapshot, error) {
	snap := &store.Snapshot{}

	// one repeatable-read transaction so the sections agree with each other
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		snap.Groups, err = queryAll(ctx, tx, func(row pgx.Row) (models.Group, error) {
			var g models.Group
			err := row.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
			return g, err
		}, `SELECT id, name, created_at, updated_at FROM tiktok_groups ORDER BY name`)
		if err != nil {
			return err
		}
		if snap.Profiles, err = queryAll(ctx, tx, scanProfile, profileSelect+` GROUP BY p.id ORDER BY p.username`); err != nil {
			return err
		}
		if snap.Videos, err = queryAll(ctx, tx, scanVideo, videoSelect+` ORDER BY v.video_id`); err != nil {
			return err
		}
		snap.Comments, err = queryAll(ctx, tx, scanComment, commentSelect+` ORDER BY c.comment_id`)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM tiktok_groups),
			(SELECT count(*) FROM tiktok_profiles),
			(SELECT count(*) FROM tiktok_videos),
			(SELECT count(*) FROM tiktok_comments)`).Scan(&st.Groups, &st.Profiles, &st.Videos, &st.Comments)
	if err != nil {
		return store.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryAll[T any](ctx context.Context, q querier, scan func(pgx.Row) (T, error), sql string, args ...interface{}) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

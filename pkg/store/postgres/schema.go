package postgres

// schema is applied by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tiktok_groups (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tiktok_profiles (
		id              BIGSERIAL PRIMARY KEY,
		username        TEXT NOT NULL UNIQUE,
		name            TEXT NOT NULL DEFAULT '',
		profile_url     TEXT NOT NULL DEFAULT '',
		full_name       TEXT NOT NULL DEFAULT '',
		bio             TEXT NOT NULL DEFAULT '',
		followers_count BIGINT NOT NULL DEFAULT 0 CHECK (followers_count >= 0),
		following_count BIGINT NOT NULL DEFAULT 0 CHECK (following_count >= 0),
		likes_count     BIGINT NOT NULL DEFAULT 0 CHECK (likes_count >= 0),
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tiktok_profile_groups (
		profile_id BIGINT NOT NULL REFERENCES tiktok_profiles(id) ON DELETE CASCADE,
		group_id   BIGINT NOT NULL REFERENCES tiktok_groups(id) ON DELETE CASCADE,
		PRIMARY KEY (profile_id, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tiktok_videos (
		id            BIGSERIAL PRIMARY KEY,
		video_id      TEXT NOT NULL UNIQUE,
		profile_id    BIGINT NOT NULL REFERENCES tiktok_profiles(id) ON DELETE CASCADE,
		description   TEXT NOT NULL DEFAULT '',
		video_url     TEXT NOT NULL DEFAULT '',
		play_count    BIGINT NOT NULL DEFAULT 0 CHECK (play_count >= 0),
		like_count    BIGINT NOT NULL DEFAULT 0 CHECK (like_count >= 0),
		comment_count BIGINT NOT NULL DEFAULT 0 CHECK (comment_count >= 0),
		share_count   BIGINT NOT NULL DEFAULT 0 CHECK (share_count >= 0),
		posted_at     TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tiktok_videos_posted_at_idx ON tiktok_videos (posted_at DESC NULLS LAST)`,
	`CREATE TABLE IF NOT EXISTS tiktok_comments (
		id              BIGSERIAL PRIMARY KEY,
		comment_id      TEXT NOT NULL UNIQUE,
		video_id        BIGINT NOT NULL REFERENCES tiktok_videos(id) ON DELETE CASCADE,
		parent_id       BIGINT REFERENCES tiktok_comments(id) ON DELETE CASCADE,
		author_username TEXT NOT NULL DEFAULT '',
		author_nickname TEXT NOT NULL DEFAULT '',
		content         TEXT NOT NULL DEFAULT '',
		like_count      BIGINT NOT NULL DEFAULT 0 CHECK (like_count >= 0),
		reply_count     BIGINT NOT NULL DEFAULT 0 CHECK (reply_count >= 0),
		avatar_url      TEXT NOT NULL DEFAULT '',
		posted_at       TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tiktok_comments_video_idx ON tiktok_comments (video_id)`,
}

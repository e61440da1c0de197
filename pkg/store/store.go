// Package store defines persistence for groups, profiles, videos and
// comments. Writes happen inside WithTx so that a batch becomes visible to
// readers all at once or not at all.
package store

import (
	"context"
	"errors"
	"time"

	"tikscraper/pkg/models"
)

// ErrNotFound is returned by lookups of unknown natural keys
var ErrNotFound = errors.New("not found")

// ErrParentMismatch is returned when a reply references a parent comment
// that is missing or belongs to another video
var ErrParentMismatch = errors.New("parent comment must belong to the same video")

// Store is a persistence backend
type Store interface {
	// WithTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetProfile(ctx context.Context, username string) (*models.Profile, error)
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	GetComment(ctx context.Context, commentID string) (*models.Comment, error)

	// ListVideos returns videos ordered by posted_at descending, undated
	// videos last
	ListVideos(ctx context.Context, filter VideoFilter) ([]models.Video, error)
	// ListComments returns the comments of a video, top-level comments and
	// replies alike, ordered by comment id
	ListComments(ctx context.Context, videoID string) ([]models.Comment, error)

	// Snapshot returns every entity for export
	Snapshot(ctx context.Context) (*Snapshot, error)
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// Tx is the write side of a transaction. Every upsert reports whether the
// record was created (true) or updated (false).
type Tx interface {
	// UpsertGroup creates the group if it does not exist
	UpsertGroup(ctx context.Context, name string) (bool, error)
	// UpsertProfile creates the profile or refreshes its name and URL. A
	// non-empty group is added to the profile's memberships; existing
	// memberships are kept.
	UpsertProfile(ctx context.Context, p ProfileUpsert) (bool, error)
	// UpsertVideo creates the video or overwrites every mutable field,
	// including the owning profile
	UpsertVideo(ctx context.Context, v models.Video) (bool, error)
	// UpsertComment creates the comment or overwrites every mutable field.
	// A reply's parent must already be stored for the same video.
	UpsertComment(ctx context.Context, c models.Comment) (bool, error)
}

// ProfileUpsert carries the fields refreshed on every profile pass
type ProfileUpsert struct {
	Username   string
	Name       string
	ProfileURL string
	Group      string
}

// VideoFilter narrows ListVideos. Zero values match everything.
type VideoFilter struct {
	Username string
	VideoID  string
	// Since keeps videos posted on or after it; undated videos are dropped
	// when set
	Since time.Time
	Limit int
}

// Snapshot is a full copy of the stored data
type Snapshot struct {
	Groups   []models.Group
	Profiles []models.Profile
	Videos   []models.Video
	Comments []models.Comment
}

// Stats counts stored entities
type Stats struct {
	Groups   int `json:"total_groups"`
	Profiles int `json:"total_profiles"`
	Videos   int `json:"total_videos"`
	Comments int `json:"total_comments"`
}

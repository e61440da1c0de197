// Package reconcile maps fetched records onto stored entities. Each batch
// (one profile with its videos, or one video's comment tree) is written in a
// single transaction.
package reconcile

import (
	"context"
	"fmt"

	"tikscraper/pkg/logger"
	"tikscraper/pkg/models"
	"tikscraper/pkg/store"
)

// Counts tallies created and updated records of one batch
type Counts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

func (c *Counts) add(created bool) {
	if created {
		c.Created++
	} else {
		c.Updated++
	}
}

// Add accumulates other into c
func (c *Counts) Add(other Counts) {
	c.Created += other.Created
	c.Updated += other.Updated
}

// Total is the number of records written
func (c Counts) Total() int {
	return c.Created + c.Updated
}

// Reconciler writes fetched records to a store
type Reconciler struct {
	store  store.Store
	logger logger.Logger
}

// New creates a Reconciler
func New(s store.Store, log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Reconciler{store: s, logger: log}
}

// ReconcileProfile upserts the target's group and profile, then every video.
// The returned counts cover the videos. Nothing is written if any upsert
// fails.
func (r *Reconciler) ReconcileProfile(ctx context.Context, target models.ProfileTarget, videos []models.VideoRecord) (Counts, error) {
	var (
		counts         Counts
		profileCreated bool
	)

	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		counts = Counts{}

		if target.Group != "" {
			if _, err := tx.UpsertGroup(ctx, target.Group); err != nil {
				return err
			}
		}

		created, err := tx.UpsertProfile(ctx, store.ProfileUpsert{
			Username:   target.Username,
			Name:       target.Name,
			ProfileURL: target.URL,
			Group:      target.Group,
		})
		if err != nil {
			return err
		}
		profileCreated = created

		for _, rec := range videos {
			created, err := tx.UpsertVideo(ctx, VideoFromRecord(target.Username, rec))
			if err != nil {
				return err
			}
			counts.add(created)
		}
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("reconcile profile %s: %w", target.Username, err)
	}

	r.logger.DebugWithFields("profile reconciled", map[string]interface{}{
		"username":        target.Username,
		"profile_created": profileCreated,
		"created":         counts.Created,
		"updated":         counts.Updated,
	})
	return counts, nil
}

// ReconcileComments upserts the comment tree of videoID. Every top-level
// comment is written before its replies, and replies point at it. The
// returned counts cover comments and replies.
func (r *Reconciler) ReconcileComments(ctx context.Context, videoID string, comments []models.CommentRecord) (Counts, error) {
	var counts Counts

	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		counts = Counts{}
		for _, rec := range comments {
			created, err := tx.UpsertComment(ctx, CommentFromRecord(videoID, "", rec))
			if err != nil {
				return err
			}
			counts.add(created)

			for _, reply := range rec.Replies {
				created, err := tx.UpsertComment(ctx, CommentFromRecord(videoID, rec.CommentID, reply))
				if err != nil {
					return err
				}
				counts.add(created)
			}
		}
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("reconcile comments of %s: %w", videoID, err)
	}

	r.logger.DebugWithFields("comments reconciled", map[string]interface{}{
		"video_id": videoID,
		"created":  counts.Created,
		"updated":  counts.Updated,
	})
	return counts, nil
}

// VideoFromRecord maps an extractor record onto a Video owned by username
func VideoFromRecord(username string, rec models.VideoRecord) models.Video {
	return models.Video{
		VideoID:         rec.VideoID,
		ProfileUsername: username,
		Description:     rec.Title,
		VideoURL:        rec.URL,
		PlayCount:       nonNegative(rec.PlayCount),
		LikeCount:       nonNegative(rec.LikeCount),
		CommentCount:    nonNegative(rec.CommentCount),
		ShareCount:      nonNegative(rec.ShareCount),
		PostedAt:        rec.PostedAt,
	}
}

// CommentFromRecord maps an API record onto a Comment of videoID. A non-empty
// parentID marks a reply; replies carry a reply count of 0.
func CommentFromRecord(videoID, parentID string, rec models.CommentRecord) models.Comment {
	c := models.Comment{
		CommentID:       rec.CommentID,
		VideoID:         videoID,
		AuthorUsername:  rec.Username,
		AuthorNickname:  rec.Nickname,
		Content:         rec.Text,
		LikeCount:       nonNegative(rec.LikeCount),
		ReplyCount:      nonNegative(rec.ReplyTotal),
		AvatarURL:       rec.AvatarURL,
		ParentCommentID: parentID,
		PostedAt:        rec.PostedAt,
	}
	if parentID != "" {
		c.ReplyCount = 0
	}
	return c
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

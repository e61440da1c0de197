package tiktok

import (
	"context"
	"time"

	"tikscraper/pkg/logger"
	"tikscraper/pkg/models"
	"tikscraper/pkg/paginate"
)

// CommentAPI lists pages of comments and replies. *Client implements it.
type CommentAPI interface {
	ListComments(ctx context.Context, videoID string, cursor, count int) (*Page, error)
	ListReplies(ctx context.Context, videoID, commentID string, cursor, count int) (*Page, error)
}

// FetcherOptions tunes pagination of the comment fetcher
type FetcherOptions struct {
	PageSize       int
	PageDelay      time.Duration
	ReplyPageDelay time.Duration
}

// CommentFetcher assembles the comment tree of a video
type CommentFetcher struct {
	api    CommentAPI
	opts   FetcherOptions
	logger logger.Logger
}

// NewCommentFetcher creates a CommentFetcher on top of api
func NewCommentFetcher(api CommentAPI, opts FetcherOptions, log logger.Logger) *CommentFetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	opts.PageSize = clampPageSize(opts.PageSize)
	return &CommentFetcher{api: api, opts: opts, logger: log}
}

// FetchComments returns the top-level comments of videoID in listing order,
// each carrying its replies. Replies are fetched only for comments reporting
// a reply total above zero and are never expanded further.
//
// A failed page ends its listing and the comments gathered so far are kept.
// The only error returned is cancellation of ctx.
func (f *CommentFetcher) FetchComments(ctx context.Context, videoID string) ([]models.CommentRecord, error) {
	log := f.logger.WithField("video_id", videoID)
	start := time.Now()

	skipped := 0
	p := paginate.NewCounted(func(ctx context.Context, cursor int) ([]models.CommentRecord, int, bool, error) {
		page, err := f.api.ListComments(ctx, videoID, cursor, f.opts.PageSize)
		if err != nil {
			return nil, 0, false, err
		}
		skipped += page.Skipped
		return page.Comments, len(page.Comments) + page.Skipped, page.HasMore, nil
	}, f.opts.PageSize, f.opts.PageDelay)

	var (
		comments []models.CommentRecord
		replies  int
		partial  bool
	)
	for {
		page, ok, err := p.Next(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			partial = true
			log.WithError(err).WarnWithFields("comment page failed, keeping partial results", map[string]interface{}{
				"cursor":   p.Cursor(),
				"comments": len(comments),
			})
			break
		}
		if !ok {
			break
		}

		for i := range page {
			if page[i].ReplyTotal <= 0 {
				continue
			}
			r, err := f.fetchReplies(ctx, log, videoID, page[i].CommentID)
			if err != nil {
				return nil, err
			}
			page[i].Replies = r
			replies += len(r)
		}
		comments = append(comments, page...)
	}

	if skipped > 0 {
		log.WarnWithFields("skipped comments without id", map[string]interface{}{
			"count": skipped,
		})
	}

	log.InfoWithFields("comments fetched", map[string]interface{}{
		"comments": len(comments),
		"replies":  replies,
		"pages":    p.Pages(),
		"partial":  partial,
		"duration": time.Since(start),
	})

	return comments, nil
}

// fetchReplies collects every reply to commentID, stopping at the first
// empty page. Only cancellation is returned as an error.
func (f *CommentFetcher) fetchReplies(ctx context.Context, log logger.Logger, videoID, commentID string) ([]models.CommentRecord, error) {
	skipped := 0
	p := paginate.NewCounted(func(ctx context.Context, cursor int) ([]models.CommentRecord, int, bool, error) {
		page, err := f.api.ListReplies(ctx, videoID, commentID, cursor, f.opts.PageSize)
		if err != nil {
			return nil, 0, false, err
		}
		skipped += page.Skipped
		return page.Comments, len(page.Comments) + page.Skipped, page.HasMore, nil
	}, f.opts.PageSize, f.opts.ReplyPageDelay)

	replies, err := paginate.Collect(ctx, p)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.WithError(err).WarnWithFields("reply page failed, keeping partial results", map[string]interface{}{
			"comment_id": commentID,
			"replies":    len(replies),
		})
	}
	if skipped > 0 {
		log.WarnWithFields("skipped replies without id", map[string]interface{}{
			"comment_id": commentID,
			"count":      skipped,
		})
	}

	// replies are leaves
	for i := range replies {
		replies[i].Replies = nil
	}

	log.DebugWithFields("replies fetched", map[string]interface{}{
		"comment_id": commentID,
		"replies":    len(replies),
		"pages":      p.Pages(),
	})
	return replies, nil
}

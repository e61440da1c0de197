// Package ingest drives ingestion passes. The profile pass lists each
// profile's recent videos and stores them; the comment pass fetches the
// comment tree of stored videos. Items are processed one at a time with a
// fixed pause between them. A failing item never stops the pass unless the
// failure is a configuration error.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"tikscraper/pkg/checkpoint"
	errs "tikscraper/pkg/errors"
	"tikscraper/pkg/logger"
	"tikscraper/pkg/models"
	"tikscraper/pkg/reconcile"
	"tikscraper/pkg/retry"
	"tikscraper/pkg/store"
)

const (
	PassProfiles = "profiles"
	PassComments = "comments"
)

// VideoFetcher lists the recent videos of a profile
type VideoFetcher interface {
	FetchVideos(ctx context.Context, profileURL, username string, cutoff time.Time) ([]models.VideoRecord, error)
}

// CommentFetcher fetches the comment tree of a video
type CommentFetcher interface {
	FetchComments(ctx context.Context, videoID string) ([]models.CommentRecord, error)
}

// ItemResult describes one processed profile or video
type ItemResult struct {
	Pass   string
	Index  int
	Total  int
	Key    string
	Found  int
	Counts reconcile.Counts
	Err    error
}

// Orchestrator runs ingestion passes against a store
type Orchestrator struct {
	videos     VideoFetcher
	comments   CommentFetcher
	store      store.Store
	reconciler *reconcile.Reconciler
	logger     logger.Logger

	// OnItem, when set, is called after every item
	OnItem func(ItemResult)

	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

// New creates an Orchestrator. Either fetcher may be nil when its pass is
// not used.
func New(videos VideoFetcher, comments CommentFetcher, s store.Store, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Orchestrator{
		videos:     videos,
		comments:   comments,
		store:      s,
		reconciler: reconcile.New(s, log),
		logger:     log,
		wait:       retry.Wait,
		now:        time.Now,
	}
}

// ProfileOptions selects and paces a profile pass
type ProfileOptions struct {
	Targets []models.ProfileTarget
	Cutoff  time.Time
	// Delay is the pause between profiles
	Delay time.Duration
	// Checkpoint, when set, skips profiles finished by an interrupted run
	// and records progress
	Checkpoint *checkpoint.Manager
}

// CommentOptions selects and paces a comment pass
type CommentOptions struct {
	VideoID string
	Profile string
	Limit   int
	// Since restricts the pass to videos posted on or after it
	Since time.Time
	// Delay is the pause between videos
	Delay      time.Duration
	Checkpoint *checkpoint.Manager
}

// Failure records why one item failed
type Failure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// Summary aggregates the outcome of a pass
type Summary struct {
	RunID     string        `json:"run_id"`
	Pass      string        `json:"pass"`
	Items     int           `json:"items"`
	Resumed   int           `json:"resumed"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Failed    int           `json:"failed"`
	Failures  []Failure     `json:"failures,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

func (s *Summary) fail(key string, err error) {
	s.Failed++
	s.Failures = append(s.Failures, Failure{Key: key, Error: err.Error()})
}

// errNoResults marks an item whose fetch returned nothing
var errNoResults = errors.New("no results")

// RunProfiles runs the profile pass over opts.Targets. It returns an error
// only when the pass cannot start or ctx is cancelled; per-profile failures
// are reported in the summary.
func (o *Orchestrator) RunProfiles(ctx context.Context, opts ProfileOptions) (*Summary, error) {
	if o.videos == nil {
		return nil, errs.New(errs.ErrorTypeConfig, "profile pass requires a video fetcher")
	}
	if len(opts.Targets) == 0 {
		return nil, errs.New(errs.ErrorTypeConfig, "no profiles to scrape")
	}

	// a profile may be listed under several groups
	keys := make([]string, len(opts.Targets))
	for i, t := range opts.Targets {
		keys[i] = t.Group + "/" + t.Username
	}

	return o.run(ctx, PassProfiles, keys, opts.Delay, opts.Checkpoint, func(ctx context.Context, log logger.Logger, i int) (int, reconcile.Counts, error) {
		t := opts.Targets[i]
		log.InfoWithFields("processing profile", map[string]interface{}{
			"group":  t.Group,
			"name":   t.Name,
			"url":    t.URL,
			"cutoff": opts.Cutoff.Format(DateLayout),
		})

		videos, err := o.videos.FetchVideos(ctx, t.URL, t.Username, opts.Cutoff)
		if err != nil {
			return 0, reconcile.Counts{}, err
		}
		if len(videos) == 0 {
			// the group and profile are still recorded
			if _, err := o.reconciler.ReconcileProfile(ctx, t, nil); err != nil {
				return 0, reconcile.Counts{}, err
			}
			return 0, reconcile.Counts{}, fmt.Errorf("%w: no videos since %s", errNoResults, opts.Cutoff.Format(DateLayout))
		}

		counts, err := o.reconciler.ReconcileProfile(ctx, t, videos)
		return len(videos), counts, err
	})
}

// SelectVideos resolves the comment pass selection against the store. An
// unknown video or profile is a configuration error.
func (o *Orchestrator) SelectVideos(ctx context.Context, opts CommentOptions) ([]models.Video, error) {
	if opts.VideoID != "" {
		if _, err := o.store.GetVideo(ctx, opts.VideoID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, errs.New(errs.ErrorTypeConfig, "video %s not found in the database", opts.VideoID)
			}
			return nil, err
		}
	}
	if opts.Profile != "" {
		if _, err := o.store.GetProfile(ctx, opts.Profile); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, errs.New(errs.ErrorTypeConfig, "profile @%s not found in the database", opts.Profile)
			}
			return nil, err
		}
	}

	videos, err := o.store.ListVideos(ctx, store.VideoFilter{
		Username: opts.Profile,
		VideoID:  opts.VideoID,
		Since:    opts.Since,
		Limit:    opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	if len(videos) == 0 && (opts.Profile != "" || opts.VideoID != "") {
		return nil, errs.New(errs.ErrorTypeConfig, "no stored videos match the selection")
	}
	return videos, nil
}

// RunComments runs the comment pass over the stored videos chosen by opts,
// newest first
func (o *Orchestrator) RunComments(ctx context.Context, opts CommentOptions) (*Summary, error) {
	if o.comments == nil {
		return nil, errs.New(errs.ErrorTypeConfig, "comment pass requires a comment fetcher")
	}

	videos, err := o.SelectVideos(ctx, opts)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(videos))
	for i, v := range videos {
		keys[i] = v.VideoID
	}

	return o.run(ctx, PassComments, keys, opts.Delay, opts.Checkpoint, func(ctx context.Context, log logger.Logger, i int) (int, reconcile.Counts, error) {
		v := videos[i]
		log.InfoWithFields("processing video", map[string]interface{}{
			"profile": v.ProfileUsername,
			"url":     v.VideoURL,
		})

		comments, err := o.comments.FetchComments(ctx, v.VideoID)
		if err != nil {
			return 0, reconcile.Counts{}, err
		}
		if len(comments) == 0 {
			return 0, reconcile.Counts{}, fmt.Errorf("%w: no comments", errNoResults)
		}

		counts, err := o.reconciler.ReconcileComments(ctx, v.VideoID, comments)
		return len(comments), counts, err
	})
}

type itemFunc func(ctx context.Context, log logger.Logger, i int) (found int, counts reconcile.Counts, err error)

// run processes keys in order with delay between consecutive items. Items
// already completed according to the checkpoint are skipped.
func (o *Orchestrator) run(ctx context.Context, pass string, keys []string, delay time.Duration, cpm *checkpoint.Manager, process itemFunc) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.New().String(),
		Pass:      pass,
		StartedAt: o.now(),
	}
	log := o.logger.WithFields(map[string]interface{}{
		"run_id": summary.RunID,
		"pass":   pass,
	})

	cp, err := o.openCheckpoint(cpm, pass, summary.RunID, log)
	if err != nil {
		return nil, err
	}

	var pending []int
	for i, key := range keys {
		if cp != nil && cp.IsDone(key) {
			summary.Resumed++
			continue
		}
		pending = append(pending, i)
	}

	log.InfoWithFields("pass started", map[string]interface{}{
		"items":   len(pending),
		"resumed": summary.Resumed,
		"delay":   delay,
	})

	for n, i := range pending {
		key := keys[i]
		itemLog := log.WithField("item", key)

		found, counts, err := process(ctx, itemLog, i)
		if ctxErr := ctx.Err(); ctxErr != nil {
			summary.Duration = time.Since(summary.StartedAt)
			log.WarnWithFields("pass interrupted", map[string]interface{}{
				"processed": summary.Items,
			})
			return summary, ctxErr
		}

		summary.Items++
		if errs.IsType(err, errs.ErrorTypeConfig) {
			summary.fail(key, err)
			summary.Duration = time.Since(summary.StartedAt)
			itemLog.WithError(err).Error("pass aborted")
			return summary, err
		}
		if err != nil {
			summary.fail(key, err)
			itemLog.WithError(err).Warn("item failed")
			if cp != nil {
				if cerr := cpm.MarkFailed(cp, key, err); cerr != nil {
					itemLog.WithError(cerr).Warn("failed to save checkpoint")
				}
			}
		} else {
			summary.Created += counts.Created
			summary.Updated += counts.Updated
			itemLog.InfoWithFields("item stored", map[string]interface{}{
				"found":   found,
				"created": counts.Created,
				"updated": counts.Updated,
			})
			if cp != nil {
				if cerr := cpm.MarkDone(cp, key); cerr != nil {
					itemLog.WithError(cerr).Warn("failed to save checkpoint")
				}
			}
		}

		if o.OnItem != nil {
			o.OnItem(ItemResult{
				Pass:   pass,
				Index:  n + 1,
				Total:  len(pending),
				Key:    key,
				Found:  found,
				Counts: counts,
				Err:    err,
			})
		}

		if n < len(pending)-1 {
			log.DebugWithFields("waiting before next item", map[string]interface{}{"delay": delay})
			if err := o.wait(ctx, delay); err != nil {
				summary.Duration = time.Since(summary.StartedAt)
				return summary, err
			}
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	if cp != nil {
		if err := cpm.Delete(); err != nil {
			log.WithError(err).Warn("failed to remove checkpoint")
		}
	}

	log.InfoWithFields("pass finished", map[string]interface{}{
		"items":    summary.Items,
		"created":  summary.Created,
		"updated":  summary.Updated,
		"failed":   summary.Failed,
		"duration": summary.Duration,
	})
	return summary, nil
}

func (o *Orchestrator) openCheckpoint(cpm *checkpoint.Manager, pass, runID string, log logger.Logger) (*checkpoint.Checkpoint, error) {
	if cpm == nil {
		return nil, nil
	}
	cp, err := cpm.Load()
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, err, "cannot resume %s pass", pass)
	}
	if cp != nil {
		log.InfoWithFields("resuming from checkpoint", map[string]interface{}{
			"previous_run_id": cp.RunID,
			"completed":       len(cp.Completed),
		})
		return cp, nil
	}
	cp, err = cpm.Create(pass, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint: %w", err)
	}
	return cp, nil
}

// Package extractor lists the recent videos of a profile through an external
// extraction tool and turns its pipe-delimited output into video records.
package extractor

import (
	"context"
	"strings"
	"time"

	"tikscraper/pkg/logger"
	"tikscraper/pkg/models"
)

// Source returns raw output lines describing up to limit recent items of a
// profile, most recent first
type Source interface {
	RecentItems(ctx context.Context, profileURL string, limit int) ([]string, error)
}

// Fetcher is the profile video fetcher
type Fetcher struct {
	source Source
	limit  int
	logger logger.Logger
}

// NewFetcher creates a Fetcher returning at most limit items per profile
func NewFetcher(source Source, limit int, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{source: source, limit: limit, logger: log}
}

// FetchVideos lists the videos of one profile posted on or after cutoff.
// Malformed lines are skipped with a warning. Videos without a parseable
// upload date cannot be checked against the cutoff and are skipped as well.
// Every line is examined; an old video does not end the scan.
func (f *Fetcher) FetchVideos(ctx context.Context, profileURL, username string, cutoff time.Time) ([]models.VideoRecord, error) {
	log := f.logger.WithField("username", username)
	cleanURL := CleanProfileURL(profileURL)

	start := time.Now()
	lines, err := f.source.RecentItems(ctx, cleanURL, f.limit)
	if err != nil {
		log.WithError(err).Error("video listing failed")
		return nil, err
	}

	var (
		videos  []models.VideoRecord
		skipped int
		tooOld  int
		undated int
	)
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := ParseLine(line, username)
		if err != nil {
			skipped++
			log.WarnWithFields("skipping malformed line", map[string]interface{}{
				"line_no": i + 1,
				"line":    line,
				"error":   err.Error(),
			})
			continue
		}

		if rec.PostedAt == nil {
			undated++
			log.DebugWithFields("skipping video without upload date", map[string]interface{}{
				"video_id": rec.VideoID,
			})
			continue
		}
		if rec.PostedAt.Before(cutoff) {
			tooOld++
			continue
		}

		videos = append(videos, rec)
	}

	log.InfoWithFields("videos listed", map[string]interface{}{
		"lines":    len(lines),
		"videos":   len(videos),
		"too_old":  tooOld,
		"undated":  undated,
		"skipped":  skipped,
		"cutoff":   cutoff.Format("2006-01-02"),
		"duration": time.Since(start),
	})

	return videos, nil
}

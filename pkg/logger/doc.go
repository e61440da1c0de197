// Package logger provides the structured logging interface used across
// tikscraper.
//
// It wraps zerolog with a small interface so components can attach fields
// (run_id, username, video_id, page) without depending on zerolog directly:
//
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("profile processed", map[string]interface{}{
//	    "username": "alice",
//	    "created":  3,
//	    "updated":  12,
//	})
//
// Console output is colored and human readable. When a log file is
// configured every event is also appended to it as JSON. Tests use
// NewNopLogger or NewTestLogger, which captures messages for assertions.
package logger

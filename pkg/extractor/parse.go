package extractor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	errs "tikscraper/pkg/errors"
	"tikscraper/pkg/models"
)

// PrintTemplate is the --print template; ParseLine relies on its field order
const PrintTemplate = "%(id)s|%(title)s|%(upload_date)s|%(like_count)s|%(view_count)s|%(comment_count)s|%(repost_count)s"

const (
	fieldSeparator = "|"
	notAvailable   = "NA"
	minFields      = 6
)

// ParseLine parses one line of extractor output for username. Lines with
// fewer than six fields return a parsing error. Counters that are NA or
// malformed become 0, and an NA or malformed upload date leaves PostedAt nil.
func ParseLine(line, username string) (models.VideoRecord, error) {
	parts := strings.Split(line, fieldSeparator)
	if len(parts) < minFields {
		return models.VideoRecord{}, errs.New(errs.ErrorTypeParsing,
			"expected at least %d fields, got %d", minFields, len(parts))
	}

	// without a share count the line has exactly six fields
	if len(parts) == minFields {
		parts = append(parts, notAvailable)
	}

	// a title containing the separator spreads over several parts; the last
	// five fields are always date and counters
	n := len(parts)
	id := strings.TrimSpace(parts[0])
	title := strings.Join(parts[1:n-5], fieldSeparator)
	date, likes, views, comments, shares := parts[n-5], parts[n-4], parts[n-3], parts[n-2], parts[n-1]

	if id == "" || id == notAvailable {
		return models.VideoRecord{}, errs.New(errs.ErrorTypeParsing, "missing video id")
	}

	rec := models.VideoRecord{
		VideoID:      id,
		Title:        title,
		URL:          VideoURL(username, id),
		LikeCount:    ParseCount(likes),
		PlayCount:    ParseCount(views),
		CommentCount: ParseCount(comments),
		ShareCount:   ParseCount(shares),
	}
	if t, ok := ParseUploadDate(date); ok {
		rec.PostedAt = &t
	}
	return rec, nil
}

// ParseCount converts a counter field, mapping NA, negative and malformed
// values to 0
func ParseCount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == notAvailable {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// yt-dlp occasionally prints floats for counters
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		n = int64(f)
	}
	if n < 0 {
		return 0
	}
	return n
}

// ParseUploadDate parses a YYYYMMDD date as midnight UTC
func ParseUploadDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 8 || s == notAvailable {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("20060102", s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// VideoURL builds the canonical URL of a video
func VideoURL(username, videoID string) string {
	return fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", username, videoID)
}

// CleanProfileURL strips the query string from a profile URL
func CleanProfileURL(profileURL string) string {
	if i := strings.Index(profileURL, "?"); i >= 0 {
		return profileURL[:i]
	}
	return profileURL
}

// UsernameFromURL extracts the handle after the last "@" of a profile URL.
// It returns "" when the URL has no handle.
func UsernameFromURL(profileURL string) string {
	i := strings.LastIndex(profileURL, "@")
	if i < 0 {
		return ""
	}
	handle := CleanProfileURL(profileURL[i+1:])
	handle = strings.Trim(handle, "/")
	if j := strings.Index(handle, "/"); j >= 0 {
		handle = handle[:j]
	}
	return strings.TrimSpace(handle)
}

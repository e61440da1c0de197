package extractor

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strconv"
	"strings"
	"time"

	errs "tikscraper/pkg/errors"
	"tikscraper/pkg/logger"
)

// YtDlp runs the yt-dlp binary as a Source
type YtDlp struct {
	Binary           string
	SleepRequests    int
	ExtractorRetries int
	Timeout          time.Duration
	// CookiesBrowser is passed to --cookies-from-browser when non-empty
	CookiesBrowser string
	Logger         logger.Logger
}

// Args builds the command line for one profile
func (y *YtDlp) Args(profileURL string, limit int) []string {
	args := []string{
		"--flat-playlist",
		"--print", PrintTemplate,
		"--playlist-end", strconv.Itoa(limit),
		"--sleep-requests", strconv.Itoa(y.SleepRequests),
		"--extractor-retries", strconv.Itoa(y.ExtractorRetries),
	}
	if y.CookiesBrowser != "" {
		args = append(args, "--cookies-from-browser", y.CookiesBrowser)
	}
	return append(args, profileURL)
}

// Check reports a configuration error when the binary cannot be found
func (y *YtDlp) Check() error {
	if _, err := exec.LookPath(y.Binary); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "yt-dlp not found: %s", y.Binary)
	}
	return nil
}

// RecentItems runs yt-dlp and returns its stdout lines. A non-zero exit is
// fatal only when stderr reports an error without any warning; otherwise
// whatever was printed is used.
func (y *YtDlp) RecentItems(ctx context.Context, profileURL string, limit int) ([]string, error) {
	log := y.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	if y.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, y.Binary, y.Args(profileURL, limit)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.DebugWithFields("running extractor", map[string]interface{}{
		"binary": y.Binary,
		"url":    profileURL,
	})

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, errs.Wrap(errs.ErrorTypeTimeout, ctxErr, "yt-dlp timed out after %s for %s", y.Timeout, profileURL)
		}
		return nil, ctxErr
	}

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrorTypeConfig, err, "yt-dlp not found: %s", y.Binary)
		}

		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, errs.Wrap(errs.ErrorTypeExtractor, err, "failed to run %s", y.Binary)
		}

		msg := strings.ToLower(stderr.String())
		if strings.Contains(msg, "error:") && !strings.Contains(msg, "warning:") {
			return nil, &errs.Error{
				Type:    errs.ErrorTypeExtractor,
				Message: "yt-dlp failed: " + firstLine(stderr.String()),
				Code:    exitErr.ExitCode(),
			}
		}

		log.WarnWithFields("yt-dlp exited with warnings", map[string]interface{}{
			"exit_code": exitErr.ExitCode(),
			"stderr":    truncate(stderr.String(), 200),
		})
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tikscraper/pkg/auth"
	"tikscraper/pkg/checkpoint"
	"tikscraper/pkg/config"
	errs "tikscraper/pkg/errors"
	"tikscraper/pkg/export"
	"tikscraper/pkg/extractor"
	"tikscraper/pkg/ingest"
	"tikscraper/pkg/logger"
	"tikscraper/pkg/ratelimit"
	"tikscraper/pkg/retry"
	"tikscraper/pkg/storage"
	"tikscraper/pkg/store"
	"tikscraper/pkg/store/memory"
	"tikscraper/pkg/store/postgres"
	"tikscraper/pkg/tiktok"
	"tikscraper/pkg/ui"
)

// loadConfig merges the command's flag map with the global flags, loads the
// configuration and initializes the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, logger.Logger, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrorTypeConfig, err, "failed to load configuration")
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, errs.Wrap(errs.ErrorTypeConfig, err, "failed to initialize logger")
	}

	log := logger.GetLogger()
	log.WithField("version", version).Debug("tikscraper starting")
	return cfg, log, nil
}

// signalContext is cancelled on Ctrl-C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openStore opens Postgres when a database URL is configured and the
// in-memory store otherwise
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	if cfg.Database.URL == "" {
		log.Warn("no database url configured, records are kept in memory for this run only")
		return memory.New(), nil
	}
	return postgres.Open(ctx, &cfg.Database, log)
}

// newVideoFetcher wires yt-dlp into the profile video fetcher. A missing
// binary is a configuration error.
func newVideoFetcher(cfg *config.Config, useCookies bool, log logger.Logger) (*extractor.Fetcher, error) {
	ytdlp := &extractor.YtDlp{
		Binary:           cfg.Extractor.Binary,
		SleepRequests:    cfg.Extractor.SleepRequests,
		ExtractorRetries: cfg.Extractor.ExtractorRetries,
		Timeout:          cfg.Extractor.Timeout,
		Logger:           log,
	}
	if useCookies {
		ytdlp.CookiesBrowser = cfg.Extractor.CookiesBrowser
	}
	if err := ytdlp.Check(); err != nil {
		return nil, err
	}
	return extractor.NewFetcher(ytdlp, cfg.Extractor.PlaylistEnd, log), nil
}

// newCommentFetcher builds the rate limited comment API client. The session
// is resolved from the named account, then the configuration, then the
// default stored account.
func newCommentFetcher(cfg *config.Config, accountName string, log logger.Logger) (*tiktok.CommentFetcher, error) {
	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("credential manager unavailable")
		manager = nil
	}

	account, err := resolveSession(manager, cfg, accountName)
	if err != nil {
		return nil, err
	}
	if account != nil {
		cfg.TikTok.SessionID = account.SessionID
		cfg.TikTok.MsToken = account.MsToken
		if account.UserAgent != "" {
			cfg.TikTok.UserAgent = account.UserAgent
		}
		log.WithField("account", account.Username).Info("using stored session")
	} else if cfg.TikTok.SessionID == "" {
		log.Info("no session configured, calling the comment api anonymously")
	}

	client, err := tiktok.NewClient(&cfg.TikTok, log)
	if err != nil {
		return nil, err
	}
	client.SetLimiter(ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst))
	client.SetRetry(&retry.Config{
		MaxAttempts: cfg.RateLimit.MaxRetries + 1,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    cfg.RateLimit.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		RetryIf: retry.DefaultRetryIf,
		Logger:  log,
	})

	return tiktok.NewCommentFetcher(client, tiktok.FetcherOptions{
		PageSize:       cfg.Scrape.CommentPageSize,
		PageDelay:      cfg.Scrape.CommentPageDelay,
		ReplyPageDelay: cfg.Scrape.ReplyPageDelay,
	}, log), nil
}

// resolveSession returns the stored account to use, or nil when the
// configured session (or none) applies. A named account that cannot be found
// is an error.
func resolveSession(manager *auth.Manager, cfg *config.Config, accountName string) (*auth.Account, error) {
	if accountName != "" {
		if manager == nil {
			return nil, errs.New(errs.ErrorTypeConfig, "account %q requested but no credential store is available", accountName)
		}
		account, err := manager.Retrieve(accountName)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeConfig, err, "account %q not found, see 'tikscraper auth list'", accountName)
		}
		return account, nil
	}

	if cfg.TikTok.SessionID != "" || manager == nil {
		return nil, nil
	}

	account, err := manager.RetrieveDefault()
	if errors.Is(err, auth.ErrCredentialsNotFound) {
		return nil, nil
	}
	return account, err
}

// progressHook prints one progress line per finished item. The tracker is
// created on the first item because the comment pass selects its videos
// inside the run.
func progressHook(label string) func(ingest.ItemResult) {
	var tracker *ui.ProgressTracker
	return func(r ingest.ItemResult) {
		if tracker == nil {
			tracker = ui.NewProgressTracker(label, r.Total)
		}
		if r.Err != nil {
			tracker.FailedItem(r.Key, r.Err)
			return
		}
		tracker.Succeeded(r.Key, r.Found, r.Counts.Created, r.Counts.Updated)
	}
}

func summaryRows(s *ingest.Summary) []ui.Row {
	rows := []ui.Row{
		{Label: "Run", Value: s.RunID},
		{Label: "Items", Value: fmt.Sprintf("%d", s.Items)},
	}
	if s.Resumed > 0 {
		rows = append(rows, ui.Row{Label: "Resumed", Value: fmt.Sprintf("%d", s.Resumed)})
	}
	rows = append(rows,
		ui.Row{Label: "Created", Value: fmt.Sprintf("%d", s.Created)},
		ui.Row{Label: "Updated", Value: fmt.Sprintf("%d", s.Updated)},
		ui.Row{Label: "Failed", Value: fmt.Sprintf("%d", s.Failed)},
		ui.Row{Label: "Duration", Value: s.Duration.Round(time.Second).String()},
	)
	for _, f := range s.Failures {
		rows = append(rows, ui.Row{Label: "  " + f.Key, Value: f.Error})
	}
	return rows
}

// reportSummary prints the closing table and raises the desktop notification
func reportSummary(title string, s *ingest.Summary, runErr error) {
	if s != nil {
		ui.PrintTable(title, summaryRows(s))
	}

	notifier := ui.NewNotifier(notify)
	switch {
	case runErr != nil:
		notifier.SendError(title, runErr.Error())
	case s != nil && s.Failed > 0:
		notifier.SendWarning(title, fmt.Sprintf("%d stored, %d failed", s.Items-s.Failed, s.Failed))
	case s != nil:
		notifier.SendSuccess(title, fmt.Sprintf("%d created, %d updated", s.Created, s.Updated))
	}
}

// runExport writes an export of s into the configured directory
func runExport(ctx context.Context, cfg *config.Config, s store.Store, log logger.Logger) (*export.Result, error) {
	files, err := storage.NewManager(cfg.Export.Directory)
	if err != nil {
		return nil, err
	}
	return export.New(s, files, cfg.Export.Keep, log).Export(ctx)
}

// checkpointFor returns the checkpoint manager of pass when resuming
func checkpointFor(resume bool, pass string, log logger.Logger) (*checkpoint.Manager, error) {
	if !resume {
		return nil, nil
	}
	return checkpoint.NewManager("", pass, log)
}

package main

import (
	"time"

	"github.com/spf13/cobra"
	"tikscraper/pkg/ingest"
	"tikscraper/pkg/ui"
)

var (
	// Comments command flags
	commentVideoID  string
	commentProfile  string
	commentLimit    int
	videoDelay      time.Duration
	commentDays     int
	commentFromDate string
	commentProxy    string
)

var commentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Fetch the comment trees of stored videos",
	Long: `Run the comment pass.

Stored videos are processed newest first. For each video every page of
top-level comments is fetched, then the replies of every comment that has
any. Comments and replies are stored with their parent links. A video that
fails is reported and the pass moves on.

The comment pass reads the videos stored by 'tikscraper scrape', so it needs
a database url.`,
	Example: `  # All stored videos
  tikscraper comments --database-url postgres://localhost/tiktok

  # The ten newest videos of one profile
  tikscraper comments --profile bbcnews --limit 10

  # A single video through a SOCKS proxy
  tikscraper comments --video-id 7340000000000000000 --proxy socks5://127.0.0.1:1080`,
	Args: cobra.NoArgs,
	RunE: runComments,
}

func init() {
	rootCmd.AddCommand(commentsCmd)

	commentsCmd.Flags().StringVar(&commentVideoID, "video-id", "", "only this video")
	commentsCmd.Flags().StringVar(&commentProfile, "profile", "", "only videos of this profile")
	commentsCmd.Flags().IntVar(&commentLimit, "limit", 0, "at most N videos (0 means all)")
	commentsCmd.Flags().DurationVar(&videoDelay, "delay", 2*time.Second, "pause between videos")
	commentsCmd.Flags().IntVar(&commentDays, "days", 0, "only videos posted in the last N days")
	commentsCmd.Flags().StringVar(&commentFromDate, "from-date", "", "only videos posted on or after YYYY-MM-DD")
	commentsCmd.Flags().StringVar(&commentProxy, "proxy", "", "http(s) or socks5 proxy for the comment api")
	commentsCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	commentsCmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection url")
	commentsCmd.Flags().BoolVar(&resumePass, "resume", false, "skip videos finished by an interrupted run")
}

func runComments(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("delay") {
		flags["video-delay"] = videoDelay
	}
	if commentProxy != "" {
		flags["proxy"] = commentProxy
	}
	if databaseURL != "" {
		flags["database-url"] = databaseURL
	}

	cfg, log, err := loadConfig(flags)
	if err != nil {
		return err
	}

	// The video window is optional for this pass
	var since time.Time
	if commentFromDate != "" || cmd.Flags().Changed("days") {
		since, err = ingest.ResolveCutoff(commentFromDate, commentDays, time.Now())
		if err != nil {
			return err
		}
	}

	fetcher, err := newCommentFetcher(cfg, accountName, log)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	cpm, err := checkpointFor(resumePass, ingest.PassComments, log)
	if err != nil {
		return err
	}

	if !since.IsZero() {
		ui.PrintInfo("Videos since", since.Format(ingest.DateLayout))
	}
	ui.PrintHighlight("[COMMENT PASS]")

	orch := ingest.New(nil, fetcher, s, log)
	orch.OnItem = progressHook("video")
	summary, err := orch.RunComments(ctx, ingest.CommentOptions{
		VideoID:    commentVideoID,
		Profile:    commentProfile,
		Limit:      commentLimit,
		Since:      since,
		Delay:      cfg.Scrape.VideoDelay,
		Checkpoint: cpm,
	})
	reportSummary("Comment pass", summary, err)
	return err
}

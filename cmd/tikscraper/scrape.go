package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"tikscraper/pkg/ingest"
	"tikscraper/pkg/ui"
)

var (
	// Scrape command flags
	profilesFile   string
	scrapeUsername string
	scrapeDebug    bool
	scrapeDays     int
	scrapeFromDate string
	profileDelay   time.Duration
	useCookies     bool
	cookiesBrowser string
	resumePass     bool
	databaseURL    string
	accountName    string
	withComments   bool
	withExport     bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "List recent videos of every profile and store them",
	Long: `Run the profile pass.

Every profile of the profiles file is listed with yt-dlp. Videos posted on or
after the cutoff are stored and linked to their profile, and the profile is
linked to its group. A profile that fails is reported and the pass moves on.

The profiles file maps group names to profiles:

  {"news": [{"url": "https://www.tiktok.com/@bbcnews", "name": "BBC News"}]}

Without a database url the records only live for the duration of the run;
combine --comments and --export to get a complete dataset in one go.`,
	Example: `  # Scrape the last 30 days of every profile
  tikscraper scrape --profiles profiles.json

  # Only one profile, since a fixed date
  tikscraper scrape --username bbcnews --from-date 2024-03-01

  # One profile per group, then fetch comments and export
  tikscraper scrape --debug --comments --export

  # Continue an interrupted run
  tikscraper scrape --resume`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&profilesFile, "profiles", "f", "", "profiles file (JSON or YAML)")
	scrapeCmd.Flags().StringVarP(&scrapeUsername, "username", "u", "", "only scrape this profile")
	scrapeCmd.Flags().BoolVar(&scrapeDebug, "debug", false, "only scrape the first profile of each group")
	scrapeCmd.Flags().IntVar(&scrapeDays, "days", 30, "keep videos posted in the last N days")
	scrapeCmd.Flags().StringVar(&scrapeFromDate, "from-date", "", "keep videos posted on or after YYYY-MM-DD (overrides --days)")
	scrapeCmd.Flags().DurationVar(&profileDelay, "delay", 15*time.Second, "pause between profiles")
	scrapeCmd.Flags().BoolVar(&useCookies, "use-cookies", false, "pass browser cookies to yt-dlp")
	scrapeCmd.Flags().StringVar(&cookiesBrowser, "browser", "", "browser to read cookies from (default from config)")
	scrapeCmd.Flags().BoolVar(&resumePass, "resume", false, "skip profiles finished by an interrupted run")
	scrapeCmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection url")
	scrapeCmd.Flags().StringVarP(&accountName, "account", "a", "", "stored account for the comment pass")
	scrapeCmd.Flags().BoolVar(&withComments, "comments", false, "run the comment pass on the scraped videos afterwards")
	scrapeCmd.Flags().BoolVar(&withExport, "export", false, "write an export when the run is done")
}

func runScrape(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if profilesFile != "" {
		flags["profiles"] = profilesFile
	}
	if cmd.Flags().Changed("days") {
		flags["days"] = scrapeDays
	}
	if cmd.Flags().Changed("delay") {
		flags["profile-delay"] = profileDelay
	}
	if databaseURL != "" {
		flags["database-url"] = databaseURL
	}

	cfg, log, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if cookiesBrowser != "" {
		cfg.Extractor.CookiesBrowser = cookiesBrowser
	}

	targets, err := ingest.LoadTargets(cfg.Scrape.ProfilesFile)
	if err != nil {
		return err
	}
	targets, err = ingest.SelectTargets(targets, scrapeUsername, scrapeDebug)
	if err != nil {
		return err
	}
	cutoff, err := ingest.ResolveCutoff(scrapeFromDate, cfg.Scrape.Days, time.Now())
	if err != nil {
		return err
	}

	videos, err := newVideoFetcher(cfg, useCookies, log)
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

	cpm, err := checkpointFor(resumePass, ingest.PassProfiles, log)
	if err != nil {
		return err
	}

	var comments ingest.CommentFetcher
	if withComments {
		fetcher, err := newCommentFetcher(cfg, accountName, log)
		if err != nil {
			return err
		}
		comments = fetcher
	}
	orch := ingest.New(videos, comments, s, log)

	ui.PrintInfo("Profiles file", cfg.Scrape.ProfilesFile)
	ui.PrintInfo("Profiles", fmt.Sprintf("%d", len(targets)))
	ui.PrintInfo("Cutoff", cutoff.Format(ingest.DateLayout))
	ui.PrintHighlight("[PROFILE PASS]")

	orch.OnItem = progressHook("profile")
	summary, err := orch.RunProfiles(ctx, ingest.ProfileOptions{
		Targets:    targets,
		Cutoff:     cutoff,
		Delay:      cfg.Scrape.ProfileDelay,
		Checkpoint: cpm,
	})
	reportSummary("Profile pass", summary, err)
	if err != nil {
		return err
	}

	if withComments {
		cpm, err := checkpointFor(resumePass, ingest.PassComments, log)
		if err != nil {
			return err
		}

		ui.PrintHighlight("[COMMENT PASS]")
		orch.OnItem = progressHook("video")
		summary, err := orch.RunComments(ctx, ingest.CommentOptions{
			Since:      cutoff,
			Delay:      cfg.Scrape.VideoDelay,
			Checkpoint: cpm,
		})
		reportSummary("Comment pass", summary, err)
		if err != nil {
			return err
		}
	}

	if withExport {
		result, err := runExport(ctx, cfg, s, log)
		if err != nil {
			return err
		}
		ui.PrintSuccess("Export written: " + result.Path)
	}
	return nil
}

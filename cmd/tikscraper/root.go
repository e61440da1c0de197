package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"tikscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	notify     bool
	noBanner   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tikscraper",
	Short: "Collect TikTok profile videos and comment threads into a local dataset",
	Long: `tikscraper ingests public TikTok data for a list of grouped profiles.

Passes:
  - scrape    lists the recent videos of every profile via yt-dlp
  - comments  fetches the comment tree of stored videos
  - export    writes the accumulated dataset as one JSON document
  - serve     exposes the newest export over HTTP

Records are reconciled by their natural keys, so every pass can be rerun
safely.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noBanner {
			return
		}
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.tikscraper.yaml or ~/.config/tikscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&notify, "notify", false, "send a desktop notification when a pass ends")
	rootCmd.PersistentFlags().BoolVar(&noBanner, "no-banner", false, "do not print the banner")

	rootCmd.SetVersionTemplate(`tikscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

package main

import (
	"github.com/spf13/cobra"
	"tikscraper/pkg/server"
	"tikscraper/pkg/ui"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the newest export over HTTP",
	Long: `Start an HTTP server exposing the export directory.

Endpoints:
  GET /healthz              liveness probe
  GET /api/stats            record counts of the database
  GET /api/exports          export file names, newest first
  GET /api/exports/latest   download the newest export`,
	Example: `  tikscraper serve --addr :8080 --database-url postgres://localhost/tiktok`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := make(map[string]interface{})
		if serveAddr != "" {
			flags["addr"] = serveAddr
		}
		if databaseURL != "" {
			flags["database-url"] = databaseURL
		}
		if exportDir != "" {
			flags["export-dir"] = exportDir
		}

		cfg, log, err := loadConfig(flags)
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

		ui.PrintInfo("Listening on", cfg.Server.Addr)
		ui.PrintInfo("Export directory", cfg.Export.Directory)
		return server.New(log, s, cfg.Export.Directory).Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "export directory (default from config)")
	serveCmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection url")
}

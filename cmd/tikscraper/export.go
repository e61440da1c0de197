package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"tikscraper/pkg/ui"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the stored dataset as a JSON document",
	Long: `Write every group, profile, video and comment of the database into
<dir>/tiktok_data_<YYYYMMDD_HHMMSS>.json. The file is written atomically and
older exports beyond export.keep are removed afterwards.`,
	Example: `  tikscraper export --database-url postgres://localhost/tiktok --dir ./exports`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := make(map[string]interface{})
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

		result, err := runExport(ctx, cfg, s, log)
		if err != nil {
			return err
		}

		ui.PrintTable("Export", []ui.Row{
			{Label: "File", Value: result.Path},
			{Label: "Groups", Value: fmt.Sprintf("%d", result.Statistics.Groups)},
			{Label: "Profiles", Value: fmt.Sprintf("%d", result.Statistics.Profiles)},
			{Label: "Videos", Value: fmt.Sprintf("%d", result.Statistics.Videos)},
			{Label: "Comments", Value: fmt.Sprintf("%d", result.Statistics.Comments)},
			{Label: "Pruned", Value: fmt.Sprintf("%d", len(result.Pruned))},
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "export directory (default from config)")
	exportCmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection url")
}

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/varoOP/cardvault/internal/app"
	"github.com/varoOP/cardvault/internal/domain"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show card cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()

		stats, err := application.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read cache stats: %w", err)
		}

		fmt.Println(renderStats(application.Config(), stats))
		return nil
	},
}

func renderStats(cfg *domain.Config, stats *domain.CacheStats) string {
	lastUpdate := "never"
	if stats.LastUpdate != nil {
		lastUpdate = fmt.Sprintf("%s (%s)", stats.LastUpdate.Local().Format("2006-01-02 15:04"), humanize.Time(*stats.LastUpdate))
	}

	valid := "no"
	if stats.IsValid {
		valid = "yes"
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Database", cfg.DBPath},
		{"Catalog", cfg.BulkDataType},
		{"Cards", humanize.Comma(int64(stats.TotalCards))},
		{"Sets", humanize.Comma(int64(stats.TotalSets))},
		{"Last update", lastUpdate},
		{"Fresh", valid},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

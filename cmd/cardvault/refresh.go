package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/varoOP/cardvault/internal/app"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload the card cache from the bulk catalog",
	Long: `Refresh downloads the configured Scryfall bulk catalog and atomically
replaces the local card cache with it. A cache younger than cache_ttl is left
alone unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()

		stats, err := application.Refresh(cmd.Context(), force)
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}

		if stats == nil {
			fmt.Println("Card cache is fresh, nothing to do (use --force to reload)")
			return nil
		}

		fmt.Printf("\n✓ Card cache refreshed\n")
		fmt.Printf("  Catalog:  %s\n", stats.DataType)
		fmt.Printf("  Cards:    %s\n", humanize.Comma(int64(stats.TotalCards)))
		fmt.Printf("  Sets:     %s\n", humanize.Comma(int64(stats.TotalSets)))
		fmt.Printf("  Download: %s\n", humanize.Bytes(uint64(max(stats.SizeBytes, 0))))
		fmt.Printf("  Duration: %s\n\n", stats.Duration.Round(time.Second))

		return nil
	},
}

func init() {
	refreshCmd.Flags().Bool("force", false, "reload even if the cache is fresh")
	rootCmd.AddCommand(refreshCmd)
}

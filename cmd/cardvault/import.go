package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/varoOP/cardvault/internal/app"
	"github.com/varoOP/cardvault/internal/collection"
	"github.com/varoOP/cardvault/internal/domain"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import a collection CSV",
	Long: `Import resolves every row of a collection export (mtggoldfish, deckbox and
similar layouts) and prints a summary. With --out the resulting collection is
written as CSV in --format ('mtggoldfish' or 'deckbox').`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		formatName, _ := cmd.Flags().GetString("format")
		format, err := collection.ParseFormat(formatName)
		if err != nil {
			return err
		}

		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Importing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		result, err := application.Import(cmd.Context(), args[0], func(ev domain.ProgressEvent) {
			if ev.TotalRows > 0 {
				bar.ChangeMax(ev.TotalRows)
			}
			if ev.CardName != "" {
				bar.Describe(ev.CardName)
			}
			bar.Set(ev.CurrentRow)
		})
		bar.Finish()
		if err != nil {
			return err
		}

		printImportResult(result)

		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()

			if err := application.ExportCollection(f, format); err != nil {
				return fmt.Errorf("failed to export collection: %w", err)
			}

			summary := application.CollectionSummary()
			fmt.Printf("  Exported %d cards (%d unique, %d sets) to %s\n", summary.TotalCards, summary.UniqueCards, summary.SetsRepresented, out)
		}

		if !result.Success {
			return fmt.Errorf("no cards were imported")
		}

		return nil
	},
}

func printImportResult(result domain.ImportResult) {
	fmt.Printf("\n✓ Import finished\n")
	fmt.Printf("  Imported:   %d\n", result.ImportedCount)
	fmt.Printf("  Cache hits: %d\n", result.CacheHits)
	fmt.Printf("  API calls:  %d\n", result.APICalls)
	fmt.Printf("  Hit rate:   %.1f%%\n", result.CacheHitRate)

	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:     %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    %s\n", e)
		}
	}
	fmt.Println()
}

func init() {
	importCmd.Flags().String("out", "", "write the imported collection to this CSV file")
	importCmd.Flags().String("format", "mtggoldfish", "export format: 'mtggoldfish' or 'deckbox'")
	rootCmd.AddCommand(importCmd)
}

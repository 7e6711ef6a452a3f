package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/varoOP/cardvault/internal/app"
	"github.com/varoOP/cardvault/internal/domain"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <name> <set> [collector-number]",
	Short: "Resolve a single card",
	Long: `Resolve looks a card up the same way an import row is resolved: local
cache first, then the live API. The set may be a code ("6ed") or a full
edition name ("Classic Sixth Edition").`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		number := ""
		if len(args) == 3 {
			number = args[2]
		}

		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()

		card, provenance, err := application.Resolve(cmd.Context(), args[0], args[1], number)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("could not find card '%s' in set '%s'", args[0], args[1])
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", card.Name)
		fmt.Printf("  Set:       %s (%s)\n", card.SetName, card.SetCode)
		fmt.Printf("  Number:    %s\n", card.CollectorNumber)
		fmt.Printf("  Rarity:    %s\n", card.Rarity)
		if card.PriceUSD != "" {
			fmt.Printf("  Price:     $%s\n", card.PriceUSD)
		}
		fmt.Printf("  ID:        %s\n", card.ID)
		fmt.Printf("  Source:    %s\n", provenance)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

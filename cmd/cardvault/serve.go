package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/varoOP/cardvault/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve starts the HTTP API for set browsing, card resolution, CSV imports
with pollable progress, and collection export. Unless the refresh policy is
'never', a stale card cache is refreshed in the background on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()

		return application.Serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "address to listen on (default 127.0.0.1:5000)")
	viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}

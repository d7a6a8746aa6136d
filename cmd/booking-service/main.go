package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/draftea/saga-orchestrator/booking-service/config"
)

var rootCmd = &cobra.Command{
	Use:   "booking-service",
	Short: "Booking saga orchestrator",
	Long:  "Runs the flight, hotel and payment booking saga over a pluggable message transport",
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd)

	rootCmd.SilenceUsage = true
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the service logger from it
func loadConfig() (*config.Config, zerolog.Logger) {
	cfg, err := config.ReadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger := config.NewLogger(cfg.Log, os.Stderr).With().
		Str("service", cfg.ServiceName).
		Logger()
	return cfg, logger
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mr1hm/go-lostfound/internal/backend"
	"github.com/mr1hm/go-lostfound/internal/config"
	"github.com/mr1hm/go-lostfound/internal/logging"
)

var (
	apiURL   string
	logLevel string

	cfg    *config.Config
	client *backend.Client
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lostfound",
	Short: "Lost & Found command line client",
	Long: `lostfound talks to the Lost & Found report backend.

It lists the map markers for a time range, files stray reports and marks
lost announcements as found.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if apiURL != "" {
			cfg.API.BaseURL = apiURL
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level)

		client = backend.NewClient(cfg.API.BaseURL, cfg.API.Timeout, cfg.API.RateLimit)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Backend API base URL (or set API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(markersCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(announceCmd)
	rootCmd.AddCommand(markFoundCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

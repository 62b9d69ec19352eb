package cmd

import (
	"os"
	"strings"

	"example.com/backstage/services/procurement/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	apiURL   string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "procurement",
	Short: "Procurement console for deliveries, supplier prices and reports",
	Long: `An administrative console for the procurement backend. Staff record
deliveries from suppliers, maintain per-supplier prices and generate
delivery reports from the command line or through the dashboard server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if apiURL != "" {
			cfg.API.BaseURL = strings.TrimRight(apiURL, "/")
		}

		setupLogging(cfg.Logging)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, then ./app.env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "procurement backend base URL")
}

// setupLogging configures the global logger. The --log-level flag wins over
// LOG_LEVEL, which wins over the configured level.
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level := cfg.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	if logLevel != "" {
		level = logLevel
	}
	zerolog.SetGlobalLevel(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

package cmd

import (
	"os"
	"strings"

	"example.com/pacific/relief/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "relief",
	Short: "Pacific disaster relief coordination service",
	Long: `A service that records disaster events and the relief requests raised
against them, exposes them over HTTP and processes field updates from
Azure Service Bus.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// loadConfig reads the configuration and applies its logging settings
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(".", cfgFile)
	if err != nil {
		return config.Config{}, err
	}

	setupLogging(cfg.Logging)
	return cfg, nil
}

// setupLogging configures the global logger. LOG_LEVEL set in the
// environment keeps precedence over the configured level.
func setupLogging(cfg config.LoggingConfig) {
	if strings.EqualFold(cfg.Format, "json") {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if os.Getenv("LOG_LEVEL") != "" {
		return
	}
	if level, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		zerolog.SetGlobalLevel(level)
	}
}

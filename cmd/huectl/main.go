// Huectl controls Philips Hue bridges on the local network.
//
// It discovers bridges, pairs with them through the link button, stores the
// issued keys in a credentials file and sends commands to lights, groups and
// scenes.
//
// Usage:
//
//	huectl [command] [flags]
//
// See 'huectl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	hue "github.com/lexfrei/go-hue"
	"github.com/lexfrei/go-hue/internal/config"
	"github.com/lexfrei/go-hue/observability/zerologadapter"
)

// Global flags
var (
	configPath   string
	bridgeFlag   string
	logLevel     string
	logJSON      bool
	outputFormat string
)

// app holds what every command needs once the configuration is loaded.
type app struct {
	cfg    *config.Config
	creds  *config.Credentials
	client *hue.Client
}

var current *app

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "huectl",
	Short: "Control Philips Hue bridges on the local network",
	Long: `A command line client for the local API of Philips Hue bridges.

Find bridges with 'discover', pair once with 'pair' (press the link button
when asked) and control lights, groups and scenes. Keys are kept in a
credentials file readable only by you.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if current != nil {
			current.client.Close()
		}
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&bridgeFlag, "bridge", "b", "", "Bridge id or address (defaults to the only paired bridge)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logJSON {
		cfg.Log.JSON = true
	}
	setupLogging(cfg.Log)

	clientCfg, err := cfg.ClientConfig(zerologadapter.New(log.Logger), nil)
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	client, err := hue.NewWithConfig(clientCfg)
	if err != nil {
		return errors.Wrap(err, "failed to create client")
	}

	creds, err := config.LoadCredentials(cfg.Credentials)
	if err != nil {
		return err
	}
	for _, stored := range creds.Bridges {
		if err := client.Restore(stored.Credential()); err != nil {
			log.Warn().Err(err).Str("bridge_id", stored.BridgeID).Msg("Skipping stored credential")
		}
	}

	current = &app{cfg: cfg, creds: creds, client: client}

	log.Debug().Str("command", cmd.Name()).Str("credentials", cfg.Credentials).Msg("Configuration loaded")

	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	return cfg, nil
}

func setupLogging(cfg config.LogConfig) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05.000",
			NoColor:    !cfg.Colors,
		})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

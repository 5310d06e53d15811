package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codr1/dashprefs/internal/app"
	"github.com/codr1/dashprefs/internal/config"
)

var (
	verbose bool
	jsonOut bool
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "prefsctl",
	Short: "Manage dashboard display and accessibility settings",
	Long: `prefsctl reads and edits the settings stored on this device and keeps
them in step with the signed-in user's profile.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		if path == "" {
			path = config.DefaultConfigPath
		}

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		setupLogger()
		return nil
	},
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: "+config.DefaultConfigPath+")")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Log output goes to stderr so stdout stays parseable.
func setupLogger() {
	level := zerolog.WarnLevel
	if verbose || cfg.Features.EnableDebug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func openApp() (*app.App, error) {
	application, err := app.New(cfg, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return application, nil
}

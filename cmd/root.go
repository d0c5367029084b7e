// Package cmd assembles the jobapply command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jobapply/jobapply/cmd/backup"
	"github.com/jobapply/jobapply/cmd/config"
	"github.com/jobapply/jobapply/cmd/restore"
	"github.com/jobapply/jobapply/cmd/worker"
	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/logger"
	"github.com/jobapply/jobapply/internal/telemetry"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings, version string) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "jobapply",
		Short:         "JobApply Google Drive backup tooling",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		worker.Command(settings),
		backup.Command(settings),
		restore.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(settings, configFile, version)
	}

	return rootCmd
}

// initialize loads the configuration and sets up logging and telemetry.
func initialize(settings *conf.Settings, configFile, version string) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	central, err := logger.NewCentralLogger(settings.LoggingConfig(), os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(central)

	if err := telemetry.InitSentry(settings, version); err != nil {
		// Telemetry is optional.
		logger.Global().Module("main").Warn("sentry initialization failed", logger.Error(err))
	}
	return nil
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	rootCmd.PersistentFlags().StringVar(configFile, "config", "", "Path to config.yaml (default: search $HOME/.config/jobapply, /etc/jobapply, .)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

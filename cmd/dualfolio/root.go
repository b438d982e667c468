package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dualfolio/dualfolio/internal/infrastructure/logging"
	"github.com/dualfolio/dualfolio/internal/infrastructure/system"
)

var (
	cfgFile string
	verbose bool

	// processLogger holds the log file open for the lifetime of the command
	processLogger *logging.Logger
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "dualfolio",
	Short: "Dual-persona portfolio server",
	Long: `Dualfolio serves a personal portfolio that presents two personas of the
same owner. Each visitor can flip between them with a themed transition; the
choice is remembered per visitor. A moderated, rate limited contact form lets
visitors reach either persona.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return setupLogging()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		closeLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	closeLogging()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dualfolio.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().String("storage", "", "storage backend: memory, sqlite (overrides storage.backend)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides storage.path)")
	rootCmd.PersistentFlags().String("personas", "", "persona registry file (overrides personas.file)")

	mustBindFlag("storage.backend", rootCmd.PersistentFlags().Lookup("storage"))
	mustBindFlag("storage.path", rootCmd.PersistentFlags().Lookup("db"))
	mustBindFlag("personas.file", rootCmd.PersistentFlags().Lookup("personas"))
}

// initConfig loads configuration from the config file and environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("failed to find home directory", "error", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dualfolio")
	}

	viper.SetEnvPrefix(system.EnvPrefix)
	viper.SetEnvKeyReplacer(system.EnvKeyReplacer())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "file", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		slog.Error("failed to read config file", "file", cfgFile, "error", err)
		os.Exit(1)
	}
}

func setupLogging() error {
	logger, err := logging.New(logging.Options{
		Terminal: os.Stderr,
		File:     viper.GetString("log.file"),
		Verbose:  verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	processLogger = logger
	slog.SetDefault(logger.Logger)
	return nil
}

func closeLogging() {
	if processLogger == nil {
		return
	}
	if err := processLogger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
	processLogger = nil
}

// mustBindFlag binds a flag to a config key. Binding only fails for a nil
// flag, which is a programming error.
func mustBindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

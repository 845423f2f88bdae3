package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ent0n29/duet/internal/config"
	"github.com/ent0n29/duet/internal/logger"
)

var (
	// Version is set at build time.
	Version = ""

	dotenvFile string

	cfg        config.Config
	log        *zap.Logger
	logCleanup = func() {}

	rootCmd = &cobra.Command{
		Use:           "duet",
		Short:         "Two AI personas holding a spoken conversation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var err error
			cfg, err = config.LoadFrom(dotenvFile)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			log, logCleanup, err = logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logCleanup()
		},
	}
)

func init() {
	if Version == "" {
		Version = "dev"
	}
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&dotenvFile, "env-file", config.DefaultDotEnv, "dotenv file read before the environment")
	rootCmd.AddCommand(serveCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logCleanup()
		os.Exit(1)
	}
}

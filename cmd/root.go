package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kebairia/mcutil/internal/config"
	"github.com/kebairia/mcutil/internal/logger"
)

var (
	configFile string
	debug      bool
	log        logger.Logger

	rootCmd = &cobra.Command{
		Use:   "mcutil",
		Short: "Minecraft server manager with automated backups",
		Long: `mcutil supervises a Minecraft server running in a detached screen
session and produces point-in-time zip backups of its directory,
with per-day retention and a background backup scheduler.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			log, err = logger.Init(debug)
			return err
		},
	}
)

// Execute runs the root command. Failures exit non-zero with a one-line
// error, never a stack dump.
func Execute() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mcutil.yaml"
	}
	return filepath.Join(home, ".mcutil.yaml")
}

// loadConfig reads and validates the configuration before any side effect.
func loadConfig() (*config.Config, error) {
	var cfg config.Config
	if err := cfg.Load(configFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configFile, "config", "c", defaultConfigPath(), "path to YAML config file")
	rootCmd.PersistentFlags().
		BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(sendCmd)
}

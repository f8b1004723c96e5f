package main

import (
	"fmt"
	"os"

	"github.com/obentoo/nugetwatch/internal/common/config"
	"github.com/obentoo/nugetwatch/internal/common/logger"
	"github.com/obentoo/nugetwatch/internal/common/output"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	quiet      bool
	noColor    bool
	logToFile  bool
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "nugetwatch",
	Short: "Watch a NuGet package for new releases",
	Long: `Poll the NuGet search service for a package, remember the last version seen,
and post a webhook notification when a new version is published.

Configuration is read from the XDG config file, a .env file and NUGETWATCH_*
environment variables, in increasing order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Configure logging based on flags
		if verbose {
			logger.SetVerbose(true)
		}
		if quiet {
			logger.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "Also write logs to the log directory")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Dotenv file to load (default .env)")
}

// loadConfig loads the configuration and enables file logging when requested.
// storeOnly relaxes validation for commands that only read the state store.
func loadConfig(storeOnly bool) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigPath: configPath, EnvFile: envFile, StoreOnly: storeOnly})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if logToFile {
		if err := logger.Default().EnableFileLogging(cfg.LogDir); err != nil {
			logger.Warn("file logging disabled: %v", err)
		}
	}
	return cfg, nil
}

func main() {
	err := rootCmd.Execute()
	logger.Default().Close()
	if err != nil {
		output.PrintError("%v", err)
		os.Exit(1)
	}
}

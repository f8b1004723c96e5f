package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/obentoo/nugetwatch/internal/common/config"
	"github.com/obentoo/nugetwatch/internal/common/output"
	"github.com/spf13/cobra"
)

// configInitForce overwrites an existing config file
var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or check the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a config file interactively",
	Long: `Prompt for the package id, state store and alert endpoint and write a config
file. The format follows the extension (.yaml, .yml or .toml). Without a path
the file is written to $XDG_CONFIG_HOME/nugetwatch/config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Validate a config file",
	Long: `Read a config file on its own, without .env or environment overrides, and
report whether it is complete. Without a path the discovered config file is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigCheck,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := targetConfigPath(args)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		output.PrintWarning("Config already exists at: %s", path)
		return errors.New("refusing to overwrite, use --force")
	}

	fmt.Println()
	output.PrintInfo("nugetwatch configuration")
	fmt.Println()

	cfg, err := promptConfig(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	output.PrintSuccess("Config written to %s", path)
	return nil
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		found, err := config.FindConfigPath()
		if err != nil {
			return err
		}
		if found == "" {
			return errors.New("no config file found")
		}
		path = found
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	output.PrintSuccess("%s is valid (package %s)", path, cfg.PackageID)
	return nil
}

// targetConfigPath resolves the init destination
func targetConfigPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if configPath != "" {
		return configPath, nil
	}
	paths, err := config.ConfigPaths()
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// promptConfig asks for each setting, offering the default in brackets.
// An empty answer keeps the default.
func promptConfig(r *bufio.Reader, w io.Writer) (*config.Config, error) {
	cfg := config.Default()
	cfg.StorageConnectionString = "file:///var/lib/nugetwatch"

	ask := func(label, def string) (string, error) {
		if def != "" {
			fmt.Fprintf(w, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(w, "%s: ", label)
		}
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if answer := strings.TrimSpace(line); answer != "" {
			return answer, nil
		}
		return def, nil
	}

	var err error
	if cfg.PackageID, err = ask("Package id", cfg.PackageID); err != nil {
		return nil, err
	}
	if cfg.StorageConnectionString, err = ask("State store (file:// or sqlite://)", cfg.StorageConnectionString); err != nil {
		return nil, err
	}
	if cfg.AlertEndpoint, err = ask("Alert endpoint URL", cfg.AlertEndpoint); err != nil {
		return nil, err
	}
	if cfg.Schedule, err = ask("Schedule (six-field cron)", cfg.Schedule); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

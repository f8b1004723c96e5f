package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/obentoo/nugetwatch/internal/common/output"
	"github.com/obentoo/nugetwatch/internal/state"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the recorded version",
	Long: `Print the last version recorded for the configured package. Nothing is fetched
and no notification is sent, so alert_endpoint does not need to be set.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := state.Open(ctx, cfg.StorageConnectionString, cfg.Container)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer store.Close()

	version, found, err := recordedVersion(ctx, store, cfg.PackageID)
	if err != nil {
		return err
	}

	fmt.Println()
	output.Header.Println("Package Status")
	fmt.Println()
	fmt.Printf("  Package:  %s\n", output.Package.Sprint(cfg.PackageID))
	fmt.Printf("  Store:    %s\n", output.Dim.Sprint(storeLocation(store)))
	if !found {
		fmt.Println()
		output.PrintInfo("No version recorded yet; the next run stores a baseline")
		return nil
	}
	fmt.Printf("  Version:  %s\n", output.Changed.Sprint(version))
	return nil
}

// recordedVersion reads the record for id, reporting absence as found=false
func recordedVersion(ctx context.Context, store state.Store, id string) (string, bool, error) {
	version, err := store.ReadText(ctx, id)
	switch {
	case errors.Is(err, state.ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("reading record: %w", err)
	}
	return version, true, nil
}

// storeLocation describes where a backend keeps its records
func storeLocation(store state.Store) string {
	switch s := store.(type) {
	case *state.DirStore:
		return "directory " + s.Dir()
	case *state.SQLiteStore:
		return "sqlite " + s.Path()
	default:
		return fmt.Sprintf("%T", store)
	}
}

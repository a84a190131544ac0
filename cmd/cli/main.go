package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sensetrack/internal/config"
	"sensetrack/internal/container"
	"sensetrack/internal/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "sensetrack",
		Short:         "SenseTrack CLI for caregiver records, analyses and reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newImportCmd(),
		newExportCmd(),
		newReportCmd(),
		newSeedCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openContainer loads configuration and wires the application. The CLI logs
// warnings and above unless LOG_LEVEL says otherwise.
func openContainer(cmd *cobra.Command) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	level := cfg.Log.Level
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	log, err := logger.New(cfg.Log.Mode, level)
	if err != nil {
		return nil, err
	}
	return container.New(cmd.Context(), cfg, log)
}

// parseNow reads an optional RFC3339 reference time
func parseNow(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now format (use RFC3339): %w", err)
	}
	return t, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

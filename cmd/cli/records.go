package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sensetrack/internal/testkit"
)

func newImportCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import logs and schedule entries from an xlsx workbook or CSV file",
		Long: `Import caregiver records from a spreadsheet.

An xlsx workbook is read from its "Logs" and "Schedule" sheets. A CSV file holds
one kind of record, chosen with --kind. Rows whose id is already stored are skipped.

Example: sensetrack import export.xlsx
         sensetrack import logs.csv --kind logs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			isCSV := strings.EqualFold(filepath.Ext(path), ".csv")
			switch kind {
			case "logs", "schedule":
			case "all":
				if isCSV {
					return fmt.Errorf("a CSV file holds one kind of record: use --kind logs or --kind schedule")
				}
			default:
				return fmt.Errorf("--kind must be all, logs or schedule")
			}

			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			out := cmd.OutOrStdout()
			if kind == "all" || kind == "logs" {
				logs, err := c.Workbook.ReadLogs(path)
				if err != nil {
					return err
				}
				added, err := c.Tracker.ImportLogs(cmd.Context(), logs)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported %d logs (%d already present)\n", added, len(logs)-added)
			}
			if kind == "all" || kind == "schedule" {
				entries, err := c.Workbook.ReadSchedule(path)
				if err != nil {
					return err
				}
				added, err := c.Tracker.ImportSchedule(cmd.Context(), entries)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported %d schedule entries (%d already present)\n", added, len(entries)-added)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "all", "Records to import: all|logs|schedule")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.xlsx]",
		Short: "Export logs and schedule entries to an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.EqualFold(filepath.Ext(args[0]), ".xlsx") {
				return fmt.Errorf("export path must end in .xlsx")
			}
			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			logs, schedule := c.Tracker.Logs(), c.Tracker.ScheduleEntries()
			if err := c.Workbook.WriteWorkbook(args[0], logs, schedule); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d logs and %d schedule entries to %s\n", len(logs), len(schedule), args[0])
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	config := testkit.DefaultCaregiverConfig()
	var clearFirst bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the store with synthetic caregiver data for demos",
		Long: `Generate deterministic synthetic records ending now and store them.

The data has known patterns: school is more aroused than home, one weekday has
an afternoon peak, and one activity gets easier over time.

Example: sensetrack seed --days 60 --seed 7 --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if clearFirst {
				if err := c.Tracker.Clear(cmd.Context()); err != nil {
					return err
				}
			}

			config.End = c.Clock().In(c.Config.Location)
			ds, err := testkit.NewCaregiverDataGenerator(config).Generate()
			if err != nil {
				return err
			}
			start := time.Now()
			result, err := testkit.Seed(cmd.Context(), c.Tracker, ds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d logs, %d crises, %d schedule entries and %d goals in %v\n",
				result.Logs, result.Crises, result.Schedule, result.Goals, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVar(&config.Days, "days", config.Days, "Days of history to generate")
	cmd.Flags().IntVar(&config.LogsPerDay, "logs-per-day", config.LogsPerDay, "Routine logs per day")
	cmd.Flags().Int64Var(&config.Seed, "seed", config.Seed, "Random seed for deterministic generation")
	cmd.Flags().Float64Var(&config.CrisisRate, "crisis-rate", config.CrisisRate, "Chance of a crisis per day")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "Remove all stored records first")
	return cmd
}

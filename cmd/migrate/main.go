package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sensetrack/adapters/sqlstore"
	"sensetrack/adapters/sqlstore/migrations"
)

type dbFlags struct {
	driver string
	dsn    string
}

func main() {
	_ = godotenv.Load()

	flags := &dbFlags{}
	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or roll back sensetrack schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.driver, "driver", envOr("STORAGE_DRIVER", sqlstore.DriverSQLite), "Database driver: sqlite3|postgres")
	rootCmd.PersistentFlags().StringVar(&flags.dsn, "dsn", defaultDSN(), "Database URL or SQLite path")

	rootCmd.AddCommand(
		newUpCmd(flags),
		newDownCmd(flags),
		newStatusCmd(flags),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return envOr("SQLITE_PATH", "sensetrack.db")
}

// withMigrator opens the database and runs fn against a migrator for it
func withMigrator(cmd *cobra.Command, flags *dbFlags, fn func(*migrations.Migrator) error) error {
	if flags.dsn == "" {
		return fmt.Errorf("--dsn is required")
	}
	db, err := sqlstore.Open(cmd.Context(), flags.driver, flags.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator, err := migrations.NewMigrator(db)
	if err != nil {
		return err
	}
	return fn(migrator)
}

func newUpCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, flags, func(m *migrations.Migrator) error {
				applied, err := m.Up(cmd.Context())
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
					return nil
				}
				for _, v := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", v)
				}
				return nil
			})
		},
	}
}

func newDownCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, flags, func(m *migrations.Migrator) error {
				version, err := m.Down(cmd.Context())
				if errors.Is(err, migrations.ErrNoMigrations) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to roll back")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s\n", version)
				return nil
			})
		},
	}
}

func newStatusCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether each is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, flags, func(m *migrations.Migrator) error {
				statuses, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s %s\n", s.Version, state, s.Name)
				}
				return nil
			})
		},
	}
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cloudboost/cloudboost-api/internal/config"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withMigrator(func(m *repository.Migrator) error {
				n, err := m.Up()
				if err != nil {
					return err
				}
				if n == 0 {
					fmt.Println("No pending migrations.")
					return nil
				}
				fmt.Printf("Applied %d migration(s).\n", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: withMigrator(func(m *repository.Migrator) error {
				mg, err := m.Down()
				if err != nil {
					return err
				}
				if mg == nil {
					fmt.Println("No migrations to roll back.")
					return nil
				}
				fmt.Printf("Rolled back %s_%s.\n", mg.Version, mg.Name)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the state of every migration",
			RunE: withMigrator(func(m *repository.Migrator) error {
				statuses, err := m.Status()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED AT")
				for _, st := range statuses {
					applied := "pending"
					if st.AppliedAt != nil {
						applied = st.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Version, st.Name, applied)
				}
				return tw.Flush()
			}),
		},
	)
	return cmd
}

// withMigrator opens the configured database for the duration of fn.
func withMigrator(fn func(m *repository.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		return fn(repository.NewMigrator(db, repository.Migrations()))
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	return repository.NewDB(repository.Config{
		Driver:     cfg.Database.Driver,
		DSN:        cfg.Database.DSN(),
		SQLitePath: cfg.Database.SQLitePath,
	})
}

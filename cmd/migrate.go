package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/fulltext/pkg/db"
	"github.com/rubiojr/fulltext/pkg/storage"
	"github.com/urfave/cli/v3"
)

// MigrateCommand creates the migrate command
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show migration status without applying migrations",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "dataset",
				Usage: "Apply migrations to a specific dataset only",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return RunMigrations(cfg.StorageDir, c.Bool("status"), c.String("dataset"))
		},
	}
}

// RunMigrations migrates every dataset database under storageDir, or only
// datasetID when set. Databases are opened directly so that the status
// reflects what is on disk.
func RunMigrations(storageDir string, statusOnly bool, datasetID string) error {
	manager := storage.NewManager(storageDir)
	defer closeManager(manager)

	datasets := []string{datasetID}
	if datasetID == "" {
		var err error
		datasets, err = manager.Datasets()
		if err != nil {
			return fmt.Errorf("listing datasets: %w", err)
		}
	}

	if len(datasets) == 0 {
		fmt.Println("No dataset databases found")
		return nil
	}

	for _, name := range datasets {
		fmt.Printf("\n=== Dataset: %s ===\n", name)

		dbPath := manager.DBPath(name)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			fmt.Printf("Database does not exist, will be created on first load: %s\n", dbPath)
			continue
		}

		if err := migrateDatabase(dbPath, statusOnly); err != nil {
			return fmt.Errorf("migrating %s: %w", name, err)
		}
	}

	if statusOnly {
		fmt.Println("\nMigration status check completed")
	} else {
		fmt.Println("\nAll migrations completed successfully")
	}

	return nil
}

func migrateDatabase(dbPath string, statusOnly bool) error {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warnf("failed to close %s: %v", dbPath, err)
		}
	}()

	migrationManager := db.NewMigrationManager(conn)
	if statusOnly {
		return showMigrationStatus(migrationManager)
	}

	applied, err := migrationManager.ApplyPendingMigrations()
	if err != nil {
		return err
	}
	fmt.Printf("Applied %d migrations\n", applied)
	return nil
}

// showMigrationStatus displays the current migration status
func showMigrationStatus(manager *db.MigrationManager) error {
	status, err := manager.GetMigrationStatus()
	if err != nil {
		return err
	}

	fmt.Printf("Applied migrations: %d\n", len(status.Applied))
	for _, migration := range status.Applied {
		appliedTime := "unknown"
		if migration.AppliedAt != nil {
			appliedTime = migration.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  ✓ %03d: %s (applied: %s)\n", migration.Version, migration.Name, appliedTime)
	}

	fmt.Printf("Pending migrations: %d\n", len(status.Pending))
	for _, migration := range status.Pending {
		fmt.Printf("  • %03d: %s\n", migration.Version, migration.Name)
	}

	if len(status.Pending) == 0 {
		fmt.Println("  (none - database is up to date)")
	}

	return nil
}

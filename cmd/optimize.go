package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/fulltext/pkg/storage"
	"github.com/urfave/cli/v3"
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	datasetFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "dataset",
			Usage: "Target specific dataset (optional)",
		}
	}
	return &cli.Command{
		Name:  "optimize",
		Usage: "Database optimization and maintenance commands",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Run integrity checks on all databases",
				Flags: []cli.Flag{
					datasetFlag(),
					&cli.BoolFlag{
						Name:  "quick",
						Usage: "Skip deep FTS5-specific integrity checks",
						Value: false,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDatasets(c, func(m *storage.Manager, names []string) error {
						return checkDatabases(m, names, !c.Bool("quick"))
					})
				},
			},
			{
				Name:  "fts-rebuild",
				Usage: "Rebuild FTS5 indexes",
				Flags: []cli.Flag{datasetFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDatasets(c, func(m *storage.Manager, names []string) error {
						return eachStorage(m, names, "Rebuilding", (*storage.PageStorage).FTSRebuild)
					})
				},
			},
			{
				Name:  "vacuum",
				Usage: "Run VACUUM to defragment databases",
				Flags: []cli.Flag{datasetFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDatasets(c, func(m *storage.Manager, names []string) error {
						return eachStorage(m, names, "Vacuuming", (*storage.PageStorage).Vacuum)
					})
				},
			},
			{
				Name:  "checkpoint",
				Usage: "Run WAL checkpoint to flush changes",
				Flags: []cli.Flag{datasetFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDatasets(c, func(m *storage.Manager, names []string) error {
						return eachStorage(m, names, "Checkpointing", (*storage.PageStorage).WALCheckpoint)
					})
				},
			},
			{
				Name:  "all",
				Usage: "Run all optimization operations (optimize, index merge, checkpoint)",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					manager := storage.NewManager(cfg.StorageDir)
					defer closeManager(manager)

					fmt.Println("Optimizing all databases...")
					if err := manager.OptimizeAll(); err != nil {
						return err
					}
					fmt.Println("✓ Optimization completed")
					return nil
				},
			},
		},
	}
}

// withDatasets opens the storage manager and resolves the --dataset filter
// against the databases on disk.
func withDatasets(c *cli.Command, fn func(*storage.Manager, []string) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	manager := storage.NewManager(cfg.StorageDir)
	defer closeManager(manager)

	names, err := manager.Datasets()
	if err != nil {
		return fmt.Errorf("listing datasets: %w", err)
	}
	if want := c.String("dataset"); want != "" {
		names = filterDatasets(names, want)
	}
	if len(names) == 0 {
		return fmt.Errorf("no datasets found")
	}
	return fn(manager, names)
}

func filterDatasets(names []string, want string) []string {
	for _, name := range names {
		if name == want {
			return []string{want}
		}
	}
	return nil
}

func eachStorage(m *storage.Manager, names []string, verb string, op func(*storage.PageStorage) error) error {
	hasErrors := false
	for _, name := range names {
		fmt.Printf("%s %s... ", verb, name)
		s, err := m.GetStorage(name)
		if err == nil {
			err = op(s)
		}
		if err != nil {
			fmt.Printf("✗ FAILED - %v\n", err)
			hasErrors = true
			continue
		}
		fmt.Printf("✓ OK\n")
	}
	if hasErrors {
		return fmt.Errorf("operation failed for one or more databases")
	}
	return nil
}

// checkDatabases runs integrity checks on the named databases
func checkDatabases(m *storage.Manager, names []string, deepFTS bool) error {
	hasErrors := false
	for _, name := range names {
		fmt.Printf("Checking %s... ", name)

		s, err := m.GetStorage(name)
		if err != nil {
			fmt.Printf("✗ FAILED - %v\n", err)
			hasErrors = true
			continue
		}

		if err := s.IntegrityCheck(); err != nil {
			fmt.Printf("✗ FAILED - %v\n", err)
			hasErrors = true
			continue
		}

		if deepFTS {
			if err := s.FTSIntegrityCheck(); err != nil {
				fmt.Printf("✗ FTS FAILED - %v\n", err)
				hasErrors = true
				continue
			}
		}

		fmt.Printf("✓ OK\n")
	}

	fmt.Println()
	if hasErrors {
		fmt.Println("Some databases failed integrity checks.")
		fmt.Println("To fix FTS index corruption, run: fulltext optimize fts-rebuild")
		return fmt.Errorf("integrity check failed for one or more databases")
	}

	fmt.Println("All databases passed integrity checks")
	return nil
}

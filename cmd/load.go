package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rubiojr/fulltext/pkg/loader"
	"github.com/rubiojr/fulltext/pkg/storage"
	"github.com/urfave/cli/v3"
)

// LoadCommand creates the load command
func LoadCommand() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "Import annotation pages from JSON files",
		ArgsUsage: "<file.json> [file.json...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Pages stored per transaction",
				Value: loader.DefaultBatchSize,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Files decoded concurrently (0 for half the CPUs)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			files := c.Args().Slice()
			if len(files) == 0 {
				return fmt.Errorf("at least one JSON file is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return loadFiles(ctx, cfg.StorageDir, files, int(c.Int("batch-size")), int(c.Int("workers")))
		},
	}
}

func loadFiles(ctx context.Context, storageDir string, files []string, batchSize, workers int) error {
	manager := storage.NewManager(storageDir)
	defer closeManager(manager)

	l := loader.New(manager)
	if batchSize > 0 {
		l.BatchSize = batchSize
	}
	if workers > 0 {
		l.Workers = workers
	}

	start := time.Now()
	results, err := l.LoadFiles(ctx, files)
	total := 0
	for _, r := range results {
		total += r.Pages
		fmt.Printf("Loaded %d pages from %s\n", r.Pages, r.Path)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d pages from %d files in %s\n", total, len(files), time.Since(start).Round(time.Millisecond))
	return nil
}

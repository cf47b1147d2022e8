package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/fulltext/pkg/storage"
	"github.com/urfave/cli/v3"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return showStats(ctx, cfg.StorageDir)
		},
	}
}

// showStats displays storage statistics
func showStats(ctx context.Context, storageDir string) error {
	manager := storage.NewManager(storageDir)
	defer closeManager(manager)

	stats, err := manager.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	formatStats(stats)
	return nil
}

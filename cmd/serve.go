package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/fulltext/pkg/api"
	"github.com/rubiojr/fulltext/pkg/config"
	"github.com/rubiojr/fulltext/pkg/iiif"
	"github.com/rubiojr/fulltext/pkg/log"
	"github.com/rubiojr/fulltext/pkg/storage"
	"github.com/rubiojr/fulltext/pkg/warehouse"
	"github.com/urfave/cli/v3"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the IIIF search HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides listen_addr)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			addr := c.String("addr")
			if addr == "" {
				addr = cfg.ListenAddr
			}
			return serve(ctx, c.String("config"), c.Bool("debug"), addr, cfg)
		},
	}
}

// serve runs the HTTP server until SIGINT/SIGTERM. Presentation settings and
// debug switches follow changes to the config file.
func serve(ctx context.Context, configPath string, debug bool, addr string, cfg *config.Config) error {
	manager := storage.NewManager(cfg.StorageDir)
	defer closeManager(manager)

	settings := iiif.NewSettingsHolder(presentationSettings(cfg))
	apiServer := api.NewServer(newSearchService(cfg, manager), manager, iiif.NewMapper(settings), cfg.RequestTimeout.Duration)

	wh := warehouse.NewWarehouse(warehouse.Config{OptimizeInterval: cfg.OptimizeInterval.Duration}, manager)
	if err := wh.Start(ctx); err != nil {
		return fmt.Errorf("starting warehouse: %w", err)
	}
	defer wh.Stop()

	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           api.CorsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on http://%s", addr)
		logger.Infof("  GET /presentation/{dataset}/{local}/search - Search a record")
		logger.Infof("  GET /api/stats - Get storage statistics")
		logger.Infof("  GET /health - Health check")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		err := watchConfig(watchCtx, configPath, func() {
			if err := reloadSettings(configPath, debug, settings); err != nil {
				logger.Errorf("Failed to reload configuration: %v", err)
				return
			}
			logger.Infof("Configuration reloaded")
		})
		if err != nil {
			logger.Warnf("Config file watcher disabled: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-sigCh:
	case <-ctx.Done():
	}

	logger.Infof("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// reloadSettings reads configPath and swaps the presentation settings and
// debug switches. Storage and search options need a restart.
func reloadSettings(configPath string, debug bool, settings *iiif.SettingsHolder) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	settings.Store(presentationSettings(cfg))
	log.Configure(debug, cfg.DebugServices)
	return nil
}

// watchConfig calls onChange after every change to path until ctx is done.
func watchConfig(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warnf("failed to close config file watcher: %v", err)
		}
	}()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watching config file %s: %w", path, err)
	}
	logger.Infof("Watching config file for changes: %s", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often replace the file with an atomic rename.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			logger.Debugf("Config file changed: %s (event: %s)", event.Name, event.Op.String())

			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(path); os.IsNotExist(err) {
					logger.Warnf("Config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(path); err != nil {
					logger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("Config file watcher error: %v", err)
		}
	}
}

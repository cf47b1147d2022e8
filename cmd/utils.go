package cmd

import (
	"fmt"

	"github.com/rubiojr/fulltext/pkg/config"
	"github.com/rubiojr/fulltext/pkg/iiif"
	"github.com/rubiojr/fulltext/pkg/log"
	"github.com/rubiojr/fulltext/pkg/search"
	"github.com/rubiojr/fulltext/pkg/storage"
	"github.com/urfave/cli/v3"
)

var logger = log.ForService("cmd")

// loadConfig loads the configuration named by the global --config flag and
// applies the logging switches.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log.Configure(c.Bool("debug"), cfg.DebugServices)
	return cfg, nil
}

// closeManager closes the storage manager, warning on failure.
func closeManager(m *storage.Manager) {
	if err := m.Close(); err != nil {
		logger.Warnf("failed to close storage manager: %v", err)
	}
}

// newSearchService wires the storage manager as both engine and page store.
func newSearchService(cfg *config.Config, m *storage.Manager) *search.Service {
	return search.NewService(m, m, search.Options{
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
		MergeDistance:   cfg.MergeDistance(),
	})
}

// presentationSettings converts the presentation config section.
func presentationSettings(cfg *config.Config) iiif.Settings {
	p := cfg.Presentation
	return iiif.Settings{
		ResourceBaseURL:     p.ResourceBaseURL,
		AnnoPageBaseURL:     p.AnnoPageBaseURL,
		AnnotationBaseURL:   p.AnnotationBaseURL,
		SearchBaseURL:       p.SearchBaseURL,
		AnnoPageDirectory:   p.AnnoPageDirectory,
		AnnotationDirectory: p.AnnotationDirectory,
	}
}

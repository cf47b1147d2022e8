package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/highlight"
	"github.com/rubiojr/fulltext/pkg/search"
)

// ErrInvalidDataset is returned for dataset ids that cannot name a database.
var ErrInvalidDataset = errors.New("invalid dataset id")

var datasetPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Manager keeps one PageStorage per dataset, each in its own
// {storageDir}/{datasetID}.db database. It implements search.Engine and
// search.PageStore.
type Manager struct {
	storageDir string
	storages   map[string]*PageStorage
	mu         sync.RWMutex
}

var (
	_ search.Engine    = (*Manager)(nil)
	_ search.PageStore = (*Manager)(nil)
)

func NewManager(storageDir string) *Manager {
	return &Manager{
		storageDir: storageDir,
		storages:   make(map[string]*PageStorage),
	}
}

// DBPath returns the database file of a dataset.
func (m *Manager) DBPath(datasetID string) string {
	return filepath.Join(m.storageDir, datasetID+".db")
}

// GetStorage returns the storage of datasetID, creating the database if it
// does not exist yet.
func (m *Manager) GetStorage(datasetID string) (*PageStorage, error) {
	if !datasetPattern.MatchString(datasetID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDataset, datasetID)
	}

	m.mu.RLock()
	storage, exists := m.storages[datasetID]
	m.mu.RUnlock()

	if exists {
		return storage, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if storage, exists := m.storages[datasetID]; exists {
		return storage, nil
	}

	if err := os.MkdirAll(m.storageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	storage, err := NewPageStorage(m.DBPath(datasetID), datasetID)
	if err != nil {
		return nil, fmt.Errorf("creating storage for %s: %w", datasetID, err)
	}

	m.storages[datasetID] = storage
	return storage, nil
}

// existingStorage is GetStorage for readers: unknown datasets return nil
// instead of creating an empty database.
func (m *Manager) existingStorage(datasetID string) (*PageStorage, error) {
	if !datasetPattern.MatchString(datasetID) {
		return nil, nil
	}
	m.mu.RLock()
	storage, exists := m.storages[datasetID]
	m.mu.RUnlock()
	if exists {
		return storage, nil
	}
	if _, err := os.Stat(m.DBPath(datasetID)); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checking database of %s: %w", datasetID, err)
	}
	return m.GetStorage(datasetID)
}

// Datasets lists the datasets with a database in the storage directory.
func (m *Manager) Datasets() ([]string, error) {
	entries, err := os.ReadDir(m.storageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading storage directory: %w", err)
	}
	var datasets []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".db") {
			continue
		}
		if id := strings.TrimSuffix(name, ".db"); datasetPattern.MatchString(id) {
			datasets = append(datasets, id)
		}
	}
	sort.Strings(datasets)
	return datasets, nil
}

// SavePages stores pages, grouping them by dataset.
func (m *Manager) SavePages(ctx context.Context, pages []*core.Page) error {
	byDataset := make(map[string][]*core.Page)
	var order []string
	for _, p := range pages {
		if _, ok := byDataset[p.DatasetID]; !ok {
			order = append(order, p.DatasetID)
		}
		byDataset[p.DatasetID] = append(byDataset[p.DatasetID], p)
	}
	for _, ds := range order {
		storage, err := m.GetStorage(ds)
		if err != nil {
			return err
		}
		if err := storage.SavePages(ctx, byDataset[ds]); err != nil {
			return fmt.Errorf("dataset %s: %w", ds, err)
		}
	}
	return nil
}

// Query implements search.Engine.
func (m *Manager) Query(ctx context.Context, rec core.RecordID, query string, pageSize int, debug bool) (map[string]highlight.Payload, error) {
	storage, err := m.existingStorage(rec.DatasetID)
	if err != nil {
		return nil, err
	}
	if storage == nil {
		return map[string]highlight.Payload{}, nil
	}
	return storage.Search(ctx, rec.LocalID, query, pageSize, debug)
}

// FetchPages implements search.PageStore.
func (m *Manager) FetchPages(ctx context.Context, datasetID, localID string, keys []string, types []core.Granularity) (search.PageCursor, error) {
	storage, err := m.existingStorage(datasetID)
	if err != nil {
		return nil, err
	}
	if storage == nil {
		return &PageCursor{done: true}, nil
	}
	return storage.FetchPages(ctx, localID, keys, types)
}

// PageExists implements search.PageStore.
func (m *Manager) PageExists(ctx context.Context, datasetID, localID, pageID string, types []core.Granularity) (bool, error) {
	storage, err := m.existingStorage(datasetID)
	if err != nil || storage == nil {
		return false, err
	}
	return storage.PageExists(ctx, localID, pageID, types)
}

// GetStats returns the stats of every dataset on disk, by dataset id.
func (m *Manager) GetStats(ctx context.Context) (map[string]*Stats, error) {
	datasets, err := m.Datasets()
	if err != nil {
		return nil, err
	}
	stats := make(map[string]*Stats, len(datasets))
	for _, ds := range datasets {
		storage, err := m.GetStorage(ds)
		if err != nil {
			return nil, err
		}
		dsStats, err := storage.GetStats(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting stats for %s: %w", ds, err)
		}
		stats[ds] = dsStats
	}
	return stats, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, storage := range m.storages {
		if err := storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage %s: %w", name, err))
		}
	}

	m.storages = make(map[string]*PageStorage)
	return errors.Join(errs...)
}

// OptimizeAll runs PRAGMA optimize, merges the FTS5 index and checkpoints
// the WAL of every dataset on disk.
func (m *Manager) OptimizeAll() error {
	datasets, err := m.Datasets()
	if err != nil {
		return err
	}

	var errs []error
	for _, ds := range datasets {
		storage, err := m.GetStorage(ds)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, step := range []struct {
			name string
			fn   func() error
		}{
			{"optimizing", storage.Optimize},
			{"merging index of", storage.OptimizeIndex},
			{"checkpointing", storage.WALCheckpoint},
		} {
			if err := step.fn(); err != nil {
				errs = append(errs, fmt.Errorf("%s storage %s: %w", step.name, ds, err))
			}
		}
	}
	return errors.Join(errs...)
}

// VacuumAll vacuums every dataset on disk.
func (m *Manager) VacuumAll() error {
	datasets, err := m.Datasets()
	if err != nil {
		return err
	}
	var errs []error
	for _, ds := range datasets {
		storage, err := m.GetStorage(ds)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := storage.Vacuum(); err != nil {
			errs = append(errs, fmt.Errorf("vacuuming storage %s: %w", ds, err))
		}
	}
	return errors.Join(errs...)
}

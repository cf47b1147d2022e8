package warehouse

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/storage"
)

type countingOptimizer struct {
	calls atomic.Int32
	err   error
}

func (o *countingOptimizer) OptimizeAll() error {
	o.calls.Add(1)
	return o.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for condition")
}

func TestWarehouseRunsOptimization(t *testing.T) {
	opt := &countingOptimizer{}
	w := NewWarehouse(Config{OptimizeInterval: 20 * time.Millisecond}, opt)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !w.IsRunning() {
		t.Error("Expected warehouse to be running")
	}
	if err := w.Start(context.Background()); err == nil {
		t.Error("Expected an error when starting twice")
	}

	waitFor(t, func() bool { return w.Runs() >= 2 })

	w.Stop()
	if w.IsRunning() {
		t.Error("Expected warehouse to be stopped")
	}
	calls := opt.calls.Load()
	time.Sleep(60 * time.Millisecond)
	if opt.calls.Load() != calls {
		t.Error("Optimization kept running after Stop")
	}

	// Stopping twice is a no-op.
	w.Stop()
}

func TestWarehouseOptimizationDisabled(t *testing.T) {
	opt := &countingOptimizer{}
	w := NewWarehouse(Config{}, opt)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	if opt.calls.Load() != 0 {
		t.Errorf("Expected no optimization runs, got %d", opt.calls.Load())
	}
}

func TestWarehouseContextCancel(t *testing.T) {
	opt := &countingOptimizer{}
	w := NewWarehouse(Config{OptimizeInterval: 10 * time.Millisecond}, opt)
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()
	// Stop must not hang once the context already ended the loop.
	w.Stop()
}

func TestOptimizeNowCountsFailedRuns(t *testing.T) {
	opt := &countingOptimizer{err: errors.New("disk full")}
	w := NewWarehouse(Config{}, opt)
	w.OptimizeNow()
	if w.Runs() != 1 || opt.calls.Load() != 1 {
		t.Errorf("Expected one run, got runs=%d calls=%d", w.Runs(), opt.calls.Load())
	}
}

func TestOptimizeNowWithStorage(t *testing.T) {
	manager := storage.NewManager(t.TempDir())
	defer manager.Close()

	page := &core.Page{
		DatasetID:  "ds",
		LocalID:    "lc",
		PageID:     "1",
		PageKey:    "img1",
		ResourceID: "r1",
		FullText:   "Aus der 49. Verlustliste.",
	}
	if err := manager.SavePages(context.Background(), []*core.Page{page}); err != nil {
		t.Fatalf("SavePages failed: %v", err)
	}

	w := NewWarehouse(Config{}, manager)
	w.OptimizeNow()
	if w.Runs() != 1 {
		t.Errorf("Expected one run, got %d", w.Runs())
	}
}

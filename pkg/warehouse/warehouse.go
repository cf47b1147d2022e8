// Package warehouse runs the background maintenance of the page databases
// while the server is up.
package warehouse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rubiojr/fulltext/pkg/log"
)

var logger = log.ForService("warehouse")

// Optimizer is implemented by storage.Manager.
type Optimizer interface {
	OptimizeAll() error
}

type Config struct {
	// OptimizeInterval is the time between two optimization runs. Zero
	// disables them.
	OptimizeInterval time.Duration
}

type Warehouse struct {
	config    Config
	optimizer Optimizer
	stopCh    chan struct{}
	ctxCancel context.CancelFunc
	mu        sync.Mutex
	wg        sync.WaitGroup
	running   bool
	runs      int
}

func NewWarehouse(config Config, optimizer Optimizer) *Warehouse {
	return &Warehouse{
		config:    config,
		optimizer: optimizer,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the optimization ticker. It returns immediately.
func (w *Warehouse) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("warehouse is already running")
	}

	var runCtx context.Context
	runCtx, w.ctxCancel = context.WithCancel(ctx)
	w.running = true

	if w.config.OptimizeInterval <= 0 {
		logger.Infof("Database optimization disabled")
		return nil
	}

	ticker := time.NewTicker(w.config.OptimizeInterval)
	w.wg.Add(1)
	go w.runOptimization(runCtx, ticker)

	logger.Infof("Warehouse started, optimize interval: %v", w.config.OptimizeInterval)
	return nil
}

func (w *Warehouse) runOptimization(ctx context.Context, ticker *time.Ticker) {
	defer w.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debugf("Optimization context cancelled")
			return
		case <-w.stopCh:
			logger.Debugf("Optimization stop signal received")
			return
		case <-ticker.C:
			w.OptimizeNow()
		}
	}
}

// OptimizeNow runs one optimization pass synchronously.
func (w *Warehouse) OptimizeNow() {
	start := time.Now()
	logger.Infof("Running database optimization")
	if err := w.optimizer.OptimizeAll(); err != nil {
		logger.Errorf("Database optimization failed: %v", err)
	} else {
		logger.Infof("Database optimization done in %v", time.Since(start).Round(time.Millisecond))
	}

	w.mu.Lock()
	w.runs++
	w.mu.Unlock()
}

// Runs returns how many optimization passes have completed.
func (w *Warehouse) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Stop cancels the ticker and waits for a running pass to finish.
func (w *Warehouse) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	logger.Debugf("Stopping warehouse...")
	w.ctxCancel()
	close(w.stopCh)
	w.running = false
	w.mu.Unlock()

	w.wg.Wait()
	logger.Debugf("Warehouse stopped")
}

func (w *Warehouse) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

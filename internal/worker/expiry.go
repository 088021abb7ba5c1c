package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pool-ladder/internal/config"
)

// Expirer sweeps overdue challenges. Implemented by service.LadderService.
type Expirer interface {
	ExpireDueChallenges(ctx context.Context) (int, error)
}

// ExpiryWorker periodically expires challenges whose response deadline has
// passed without an answer
type ExpiryWorker struct {
	expirer Expirer
	config  *config.ExpiryConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(expirer Expirer, cfg *config.ExpiryConfig, logger *slog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		expirer: expirer,
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background expiry sweep
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("expiry worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background expiry sweep
func (w *ExpiryWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("expiry worker stopped")
	return nil
}

// run is the main worker loop
func (w *ExpiryWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one expiry pass
func (w *ExpiryWorker) sweep(ctx context.Context) {
	startTime := time.Now()
	expired, err := w.expirer.ExpireDueChallenges(ctx)
	if err != nil {
		w.logger.Error("expiry sweep failed", "error", err)
		return
	}
	if expired > 0 {
		w.logger.Info("expiry sweep completed",
			"expired", expired,
			"duration", time.Since(startTime),
		)
	}
}

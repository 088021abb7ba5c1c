package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pool-ladder/internal/config"
)

// MirrorRefresher republishes standings to the read cache. Implemented by
// service.LadderService.
type MirrorRefresher interface {
	RefreshMirror(ctx context.Context) error
}

// SyncWorker periodically rewrites the Redis standings mirror from the
// canonical in-memory ladders, healing any drift from missed writes
type SyncWorker struct {
	refresher MirrorRefresher
	config    *config.SyncConfig
	logger    *slog.Logger
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(refresher MirrorRefresher, cfg *config.SyncConfig, logger *slog.Logger) *SyncWorker {
	return &SyncWorker{
		refresher: refresher,
		config:    cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
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

	w.logger.Info("sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *SyncWorker) run(ctx context.Context) {
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
			w.syncAll(ctx)
		}
	}
}

// syncAll rewrites every bracket's mirror
func (w *SyncWorker) syncAll(ctx context.Context) {
	startTime := time.Now()
	if err := w.refresher.RefreshMirror(ctx); err != nil {
		w.logger.Error("mirror sync failed", "error", err)
		return
	}
	w.logger.Info("mirror sync completed", "duration", time.Since(startTime))
}

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Syncer runs one remote fetch/decrypt/ingest cycle and reports how many
// rows were stored.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// SyncPoller runs a Syncer on a fixed interval. It syncs once immediately on
// start. A zero interval disables it.
type SyncPoller struct {
	syncer   Syncer
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	runs      int
	lastError error
}

// NewSyncPoller creates a new sync poller
func NewSyncPoller(syncer Syncer, interval time.Duration, logger *zap.Logger) *SyncPoller {
	return &SyncPoller{
		syncer:   syncer,
		interval: interval,
		logger:   logger.Named("sync"),
	}
}

// Name returns the worker name for identification
func (p *SyncPoller) Name() string {
	return "SyncPoller"
}

// Start begins the polling loop
func (p *SyncPoller) Start(ctx context.Context) error {
	if p.interval <= 0 {
		p.logger.Info("SyncPoller disabled")
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return fmt.Errorf("sync poller already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.isRunning = true

	p.logger.Info("SyncPoller started", zap.Duration("poll_interval", p.interval))

	go p.pollLoop(runCtx, p.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sync to finish
func (p *SyncPoller) Stop() error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
	p.logger.Info("SyncPoller stopped")
	return nil
}

// Runs returns how many sync cycles completed
func (p *SyncPoller) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

// LastError returns the error of the most recent cycle, if any
func (p *SyncPoller) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastError
}

func (p *SyncPoller) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.syncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.syncOnce(ctx)
		}
	}
}

func (p *SyncPoller) syncOnce(ctx context.Context) {
	stored, err := p.syncer.Sync(ctx)

	p.mu.Lock()
	p.runs++
	p.lastError = err
	p.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("Sync failed", zap.Error(err))
		}
		return
	}
	if stored > 0 {
		p.logger.Info("Sync stored invoices", zap.Int("stored", stored))
	}
}

package draft

import (
	"context"
	"sync"
	"time"

	"draftflow/pkg/config"
	"draftflow/pkg/logx"
)

// Default auto-checkpoint timing. The ticker fires often; a version is only
// created once the elapsed time since the last checkpoint (or session start)
// exceeds the threshold.
const (
	DefaultCheckpointInterval  = 1 * time.Minute
	DefaultCheckpointThreshold = 5 * time.Minute
)

// Checkpointer periodically snapshots an idle drafting session. It reads
// the store's live state at every fire, never a snapshot captured at start
// time, and stops firing once the draft is approved. Teardown is tied to
// session lifecycle via Stop or the parent context.
type Checkpointer struct {
	store     *Store
	interval  time.Duration
	threshold time.Duration
	logger    *logx.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewCheckpointer creates a checkpointer over the given store. Zero
// durations select the active config's timing (engine defaults when no
// config is loaded).
func NewCheckpointer(store *Store, interval, threshold time.Duration) *Checkpointer {
	cfg := config.Active()
	if interval <= 0 {
		interval = cfg.CheckpointInterval
	}
	if threshold <= 0 {
		threshold = cfg.CheckpointThreshold
	}
	return &Checkpointer{
		store:     store,
		interval:  interval,
		threshold: threshold,
		logger:    logx.NewLogger("checkpoint"),
		done:      make(chan struct{}),
	}
}

// Start launches the background loop. The loop exits when Stop is called or
// the context is cancelled.
func (c *Checkpointer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.logger.Debug("Auto-checkpoint loop started (interval %v, threshold %v)", c.interval, c.threshold)
		for {
			select {
			case <-ctx.Done():
				c.logger.Debug("Auto-checkpoint loop stopped")
				return
			case <-ticker.C:
				c.store.autoCheckpoint(c.threshold)
			}
		}
	}()
}

// Stop tears down the loop and waits for it to exit. Safe to call more than
// once and safe before Start.
func (c *Checkpointer) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			close(c.done)
			return
		}
		c.cancel()
		<-c.done
	})
}

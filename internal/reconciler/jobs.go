package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ticketing/pkg/logger"
)

// JobProcessor runs Sweep on a ticker inside the API process
type JobProcessor struct {
	reconciler *Reconciler
	interval   time.Duration
	log        *logger.Logger
	running    atomic.Bool
	done       chan struct{}
	stopOnce   sync.Once
}

func NewJobProcessor(r *Reconciler, interval time.Duration, log *logger.Logger) *JobProcessor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JobProcessor{
		reconciler: r,
		interval:   interval,
		log:        log,
		done:       make(chan struct{}),
	}
}

// Start launches the sweep loop
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.log.Info("Starting reconciler", "interval", jp.interval)
	go jp.loop(ctx)
}

// Stop ends the sweep loop. Calling it again is a no-op.
func (jp *JobProcessor) Stop() {
	jp.stopOnce.Do(func() {
		close(jp.done)
		jp.log.Info("Reconciler stopped")
	})
}

func (jp *JobProcessor) loop(ctx context.Context) {
	ticker := time.NewTicker(jp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.RunOnce(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce sweeps unless a sweep from this process is still in flight
func (jp *JobProcessor) RunOnce(ctx context.Context) {
	if !jp.running.CompareAndSwap(false, true) {
		return
	}
	defer jp.running.Store(false)

	if _, err := jp.reconciler.Sweep(ctx); err != nil {
		jp.log.ErrorContext(ctx, "Sweep Failed", "error", err)
	}
}

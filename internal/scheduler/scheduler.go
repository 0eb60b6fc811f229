// Package scheduler runs the poll loop on the coordinator's interval.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller is the loop body. The interval is re-read after every cycle so
// runtime option changes take effect on the next tick.
type Poller interface {
	Poll(ctx context.Context) error
	Interval() time.Duration
}

// Runner executes Poll immediately on Start and then on every interval
// tick until Stop is called or the context is cancelled.
type Runner struct {
	poller Poller
	stop   chan struct{}
	done   chan struct{}
}

// NewRunner creates a Runner for the given poller.
func NewRunner(poller Poller) *Runner {
	return &Runner{
		poller: poller,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the poll loop in a background goroutine.
func (r *Runner) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	// First poll happens immediately so the snapshot is available as soon
	// as possible after startup.
	if err := r.poller.Poll(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial poll failed, will retry on next tick")
	}

	timer := time.NewTimer(r.poller.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-timer.C:
			if err := r.poller.Poll(ctx); err != nil {
				log.Warn().Err(err).Msg("Poll failed, will retry on next tick")
			}
			timer.Reset(r.poller.Interval())
		}
	}
}

// Stop signals the loop to exit and waits for the in-flight poll, if
// any, to finish.
func (r *Runner) Stop() {
	close(r.stop)
	<-r.done
}

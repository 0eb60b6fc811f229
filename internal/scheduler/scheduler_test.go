package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingPoller struct {
	mu       sync.Mutex
	polls    int
	interval time.Duration
}

func (p *countingPoller) Poll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	return nil
}

func (p *countingPoller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

func (p *countingPoller) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

func TestRunner(t *testing.T) {
	t.Run("polls immediately on start", func(t *testing.T) {
		p := &countingPoller{interval: time.Hour}
		r := NewRunner(p)
		r.Start(context.Background())

		assert.Eventually(t, func() bool { return p.count() == 1 }, time.Second, 10*time.Millisecond)
		r.Stop()
		assert.Equal(t, 1, p.count())
	})

	t.Run("polls again on interval", func(t *testing.T) {
		p := &countingPoller{interval: 20 * time.Millisecond}
		r := NewRunner(p)
		r.Start(context.Background())

		assert.Eventually(t, func() bool { return p.count() >= 3 }, time.Second, 5*time.Millisecond)
		r.Stop()
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := &countingPoller{interval: 10 * time.Millisecond}
		r := NewRunner(p)
		r.Start(ctx)

		assert.Eventually(t, func() bool { return p.count() >= 1 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case <-r.done:
		case <-time.After(time.Second):
			t.Fatal("runner did not exit after context cancel")
		}
	})
}

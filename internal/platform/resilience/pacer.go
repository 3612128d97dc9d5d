package resilience

import (
	"context"
	"sync"
	"time"
)

// Pacer serializes calls against a scrape-sensitive upstream: at most
// maxRequests starts per window, enforced by blocking the caller. It is a
// policy object so the pacing can be tuned or stubbed in tests without
// touching the request loop.
type Pacer struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	starts      []time.Time
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewPacer(maxRequests int, window time.Duration) *Pacer {
	if maxRequests < 1 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Pacer{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Wait blocks until the next request may start, or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	for {
		p.mu.Lock()
		now := p.now()
		p.prune(now)
		if len(p.starts) < p.maxRequests {
			p.starts = append(p.starts, now)
			p.mu.Unlock()
			return nil
		}
		wait := p.starts[0].Add(p.window).Sub(now)
		p.mu.Unlock()

		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (p *Pacer) prune(now time.Time) {
	cutoff := now.Add(-p.window)
	kept := p.starts[:0]
	for _, t := range p.starts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	p.starts = kept
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

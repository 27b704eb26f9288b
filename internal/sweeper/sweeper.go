// Package sweeper runs the periodic expiry pass over the registry.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/dharsanguruparan/RelayDrop/internal/registry"
)

// Sweeper removes records whose provider-declared expiry has passed. It is
// the only component that mutates the registry without a client call, and it
// shares the registry's locking discipline with the request handlers.
type Sweeper struct {
	reg      *registry.Registry
	interval time.Duration
}

// New builds a Sweeper waking at the given interval.
func New(reg *registry.Registry, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{reg: reg, interval: interval}
}

// Start launches the background loop; it stops when the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now().UTC())
		}
	}
}

// Sweep performs one expiry pass. Running it twice in a row with no new
// expirations is a no-op.
func (s *Sweeper) Sweep(now time.Time) int {
	removed := s.reg.RemoveExpired(now)
	if len(removed) > 0 {
		log.Printf("sweeper removed %d expired file(s)", len(removed))
	}
	return len(removed)
}

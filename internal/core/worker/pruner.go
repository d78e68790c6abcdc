// Package worker holds background maintenance loops.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper evicts expired entries from a cache.
type Sweeper interface {
	PruneExpired() int
	MinTTL() time.Duration
}

// Pruner periodically drops stale cache entries so an idle client does not
// hold expired registry data in memory.
type Pruner struct {
	cache    Sweeper
	interval time.Duration
}

// NewPruner creates a new Pruner worker. A zero interval is derived from the
// shortest cache TTL.
func NewPruner(cache Sweeper, interval time.Duration) *Pruner {
	if interval <= 0 {
		// Half the shortest TTL, between 1s and 1 minute
		interval = min(cache.MinTTL()/2, time.Minute)
		interval = max(interval, time.Second)
	}
	return &Pruner{cache: cache, interval: interval}
}

// Interval returns the sweep period.
func (p *Pruner) Interval() time.Duration { return p.interval }

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune()
		}
	}
}

// Prune runs one sweep.
func (p *Pruner) Prune() int {
	n := p.cache.PruneExpired()
	if n > 0 {
		slog.Debug("[Pruner] evicted expired cache entries", "count", n)
	}
	return n
}

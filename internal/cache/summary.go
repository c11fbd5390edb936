package cache

import (
	"context"
	"time"

	"feetax/internal/analytics"
	"feetax/internal/core"
	"feetax/internal/store"
)

// SummaryKey identifies a summary by the state it was computed from.
type SummaryKey struct {
	Revision  uint64
	Bucketing core.TimeBucketing
}

// Summaries caches aggregates computed on demand for a bucketing other
// than the store's own. Entries are keyed by revision, so a state change
// makes old entries unreachable; the observer hook also purges them.
type Summaries struct {
	lru *LRU[SummaryKey, core.Summary]
}

var _ store.Observer = (*Summaries)(nil)

func NewSummaries(size int, ttl time.Duration) *Summaries {
	return &Summaries{lru: NewLRU[SummaryKey, core.Summary](size, ttl)}
}

// Get returns the summary of st under b, computing it on a miss.
func (c *Summaries) Get(st store.State, b core.TimeBucketing) core.Summary {
	if st.Summary != nil && st.Summary.Bucketing == b {
		return *st.Summary
	}
	key := SummaryKey{Revision: st.Revision, Bucketing: b}
	if s, ok := c.lru.Get(key); ok {
		return s
	}
	s := analytics.Aggregate(st.Records, analytics.Options{Bucketing: b})
	c.lru.Set(key, s)
	return s
}

func (c *Summaries) StateChanged(_ context.Context, ev store.Event) {
	if ev.Durable {
		c.lru.Purge()
	}
}

func (c *Summaries) CleanExpired() int { return c.lru.CleanExpired() }

func (c *Summaries) Size() int { return c.lru.Size() }

package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hamzaiqbal/crmconnect/internal/cache"
	"github.com/hamzaiqbal/crmconnect/internal/models"
)

// Deduper is an atomic insert-if-absent set over (channel, event id) with
// a bounded retention window: platforms stop redelivering eventually, so
// entries older than the window may be forgotten.
type Deduper interface {
	// Claim returns true for the first caller to present the identifier
	// within the window.
	Claim(ctx context.Context, ch models.Channel, eventID string) (bool, error)
	// Release gives a claimed identifier back so the platform's redelivery
	// of an event that was never handed off is not dropped as a duplicate.
	Release(ctx context.Context, ch models.Channel, eventID string) error
}

// RedisDeduper claims identifiers with SETNX so the window survives
// restarts and is shared across instances.
type RedisDeduper struct {
	cache  *cache.Cache
	window time.Duration
}

func NewRedisDeduper(c *cache.Cache, window time.Duration) *RedisDeduper {
	return &RedisDeduper{cache: c, window: window}
}

func (d *RedisDeduper) Claim(ctx context.Context, ch models.Channel, eventID string) (bool, error) {
	return d.cache.SetNX(ctx, dedupKey(ch, eventID), 1, d.window)
}

func (d *RedisDeduper) Release(ctx context.Context, ch models.Channel, eventID string) error {
	return d.cache.Delete(ctx, dedupKey(ch, eventID))
}

func dedupKey(ch models.Channel, eventID string) string {
	return fmt.Sprintf("dedup:%s:%s", ch, eventID)
}

// MemoryDeduper is the in-process fallback: a mutex-guarded set with a
// periodic expiry sweep. Close stops the sweep goroutine.
type MemoryDeduper struct {
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time

	done      chan struct{}
	closeOnce sync.Once

	now func() time.Time
}

func NewMemoryDeduper(window time.Duration) *MemoryDeduper {
	if window <= 0 {
		window = 24 * time.Hour
	}
	d := &MemoryDeduper{
		window: window,
		seen:   make(map[string]time.Time),
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go d.sweep()
	return d
}

func (d *MemoryDeduper) Claim(ctx context.Context, ch models.Channel, eventID string) (bool, error) {
	key := string(ch) + ":" + eventID
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if seenAt, ok := d.seen[key]; ok && now.Sub(seenAt) < d.window {
		return false, nil
	}
	d.seen[key] = now
	return true, nil
}

func (d *MemoryDeduper) Release(ctx context.Context, ch models.Channel, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, string(ch)+":"+eventID)
	return nil
}

func (d *MemoryDeduper) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}

func (d *MemoryDeduper) sweep() {
	ticker := time.NewTicker(d.window / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := d.now().Add(-d.window)
			d.mu.Lock()
			for key, seenAt := range d.seen {
				if seenAt.Before(cutoff) {
					delete(d.seen, key)
				}
			}
			d.mu.Unlock()
		case <-d.done:
			return
		}
	}
}

package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/followup-cli/internal/model"
)

// Registry keeps finished batches in memory until they expire.
type Registry struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	batches map[string]registryEntry
}

type registryEntry struct {
	batch    *model.Batch
	storedAt time.Time
}

// NewRegistry creates a Registry whose entries live for ttl. A ttl of zero
// keeps entries forever.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:     ttl,
		now:     time.Now,
		batches: make(map[string]registryEntry),
	}
}

// Put stores b under its ID.
func (r *Registry) Put(b *model.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = registryEntry{batch: b, storedAt: r.now()}
}

// Get returns the batch with id unless it is unknown or expired.
func (r *Registry) Get(id string) (*model.Batch, bool) {
	r.mu.RLock()
	e, ok := r.batches[id]
	r.mu.RUnlock()
	if !ok || r.expired(e) {
		return nil, false
	}
	return e.batch, true
}

// Len returns the number of stored batches, expired ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.batches)
}

// Sweep drops expired batches and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.batches {
		if r.expired(e) {
			delete(r.batches, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx ends.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				zap.L().Info("server: expired batches removed", zap.Int("count", n))
			}
		}
	}
}

func (r *Registry) expired(e registryEntry) bool {
	return r.ttl > 0 && r.now().Sub(e.storedAt) > r.ttl
}

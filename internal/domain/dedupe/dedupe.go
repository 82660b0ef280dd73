// Package dedupe tracks completed submission ids so that side effects keyed
// on a submission run at most once.
package dedupe

import (
	"context"
	"sync"
)

// defaultMaxSize bounds how many submission ids are remembered.
const defaultMaxSize = 1024

// Deduper records seen submission IDs to ensure at-most-once side effects.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id. Used when the guarded side effect failed and may
	// be attempted again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps ids in a map plus a FIFO ring for eviction. With
// maxSize <= 0 nothing is ever evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> slot in order
	order   []string       // ring buffer of ids, oldest at head
	head    int
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[id] = -1
		return false
	}

	if len(d.order) < d.maxSize {
		d.order = append(d.order, id)
		d.seen[id] = len(d.order) - 1
		return false
	}

	// Ring is full: overwrite the oldest slot. Unrecorded slots hold "".
	oldest := d.order[d.head]
	if oldest != "" {
		delete(d.seen, oldest)
	}
	d.order[d.head] = id
	d.seen[id] = d.head
	d.head = (d.head + 1) % d.maxSize
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if slot >= 0 {
		d.order[slot] = ""
	}
}

// Size returns the number of ids currently remembered.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

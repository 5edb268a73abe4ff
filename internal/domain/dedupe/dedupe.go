// Package dedupe tracks which external ids have already been seen.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// DefaultMaxSize bounds a Deduper built without options.
const DefaultMaxSize = 50000

// Deduper records seen ids so repeated entries can be skipped.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if
	// not. The check and the record happen atomically.
	SeenAndRecord(ctx context.Context, id string) bool
	// Unrecord forgets id so it counts as new again.
	Unrecord(ctx context.Context, id string)
	// Size returns the number of ids currently remembered.
	Size() int
}

// memoryDeduper keeps ids in insertion order. When bounded, the oldest id is
// evicted to make room.
type memoryDeduper struct {
	mu      sync.Mutex
	maxSize int // <= 0 means unbounded
	seen    map[string]*list.Element
	order   *list.List
}

// New creates an in-memory Deduper.
func New(opts ...Option) Deduper {
	d := &memoryDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *memoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[id] = d.order.PushBack(id)
	return false
}

func (d *memoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[id]; ok {
		d.order.Remove(e)
		delete(d.seen, id)
	}
}

func (d *memoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}

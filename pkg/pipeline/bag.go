package pipeline

import "sync"

// bag is an unordered append-only collection shared by parallel tasks.
type bag[T any] struct {
	mu    sync.Mutex
	items []T
}

func (b *bag[T]) add(items ...T) {
	b.mu.Lock()
	b.items = append(b.items, items...)
	b.mu.Unlock()
}

// drain returns the collected items and empties the bag.
func (b *bag[T]) drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}

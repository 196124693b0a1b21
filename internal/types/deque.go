package types

import "sync"

// Deque is a thread-safe FIFO queue backed by a slice. It hands values
// between arbitrary producer goroutines and a single consumer without
// blocking producers on the consumer's work.
type Deque[T any] struct {
	mu   sync.Mutex
	data []T
}

// Append adds the element to the end of the deque. It never blocks on the
// consumer side.
func (d *Deque[T]) Append(item T) {
	d.mu.Lock()
	d.data = append(d.data, item)
	d.mu.Unlock()
}

// PopFirst removes and returns the element from the front of the deque.
// The second return value is false when the deque is empty.
func (d *Deque[T]) PopFirst() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.data) == 0 {
		var zero T
		return zero, false
	}

	item := d.data[0]
	var zero T
	d.data[0] = zero
	d.data = d.data[1:]
	return item, true
}

// Drain returns all buffered elements in FIFO order and clears the deque.
func (d *Deque[T]) Drain() []T {
	d.mu.Lock()
	if len(d.data) == 0 {
		d.mu.Unlock()
		return nil
	}

	out := make([]T, len(d.data))
	copy(out, d.data)
	clear(d.data)
	d.data = d.data[:0]
	d.mu.Unlock()
	return out
}

// Len returns the current number of elements in the deque. It is a snapshot,
// not a transactional guarantee: producers may append concurrently.
func (d *Deque[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.data)
}

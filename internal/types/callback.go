package types

import (
	"iter"
	"sync"
)

// CallbackManager keeps an ordered registry of callbacks with individual
// removal. The zero value is ready to use.
type CallbackManager[T any] struct {
	mu     sync.RWMutex
	order  []int
	cbs    map[int]T
	nextID int
}

func (m *CallbackManager[T]) Len() int {
	if m == nil {
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cbs)
}

// Add registers the callback and returns its removal function.
// Removal is idempotent.
func (m *CallbackManager[T]) Add(cb T) (remove func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++

	if m.cbs == nil {
		m.cbs = make(map[int]T)
	}
	m.order = append(m.order, id)
	m.cbs[id] = cb
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.cbs, id)
			for i, v := range m.order {
				if v == id {
					m.order = append(m.order[:i], m.order[i+1:]...)
					break
				}
			}
			m.mu.Unlock()
		})
	}
}

// All yields the registered callbacks in registration order.
// The snapshot is taken up front, so callbacks may be added or removed
// while iterating.
func (m *CallbackManager[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if m == nil {
			return
		}

		m.mu.RLock()
		callbacks := make([]T, 0, len(m.cbs))
		for _, id := range m.order {
			if cb, ok := m.cbs[id]; ok {
				callbacks = append(callbacks, cb)
			}
		}
		m.mu.RUnlock()

		for _, cb := range callbacks {
			if !yield(cb) {
				return
			}
		}
	}
}

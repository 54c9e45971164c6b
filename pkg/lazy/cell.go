// Package lazy provides a guarded lazy-initialization cell for process-wide
// singletons: at most one initialization runs even under concurrent first
// access, a failed initialization is retried on the next call, and the cell
// can be reset to make re-initialization possible after teardown.
package lazy

import "sync"

// Cell holds a lazily-created value of type T.
// The zero value is ready to use.
type Cell[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
}

// GetOrCreate returns the held value, calling create under the cell's lock to
// produce it on first access. If create fails, nothing is stored and the next
// call tries again.
func (c *Cell[T]) GetOrCreate(create func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.set {
		return c.value, nil
	}

	value, err := create()
	if err != nil {
		var zero T
		return zero, err
	}

	c.value = value
	c.set = true
	return value, nil
}

// Peek returns the held value without initializing it.
func (c *Cell[T]) Peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

// Reset clears the cell so the next GetOrCreate initializes again. It returns
// the previously held value, if any, so the caller can tear it down.
func (c *Cell[T]) Reset() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, set := c.value, c.set
	var zero T
	c.value = zero
	c.set = false
	return value, set
}

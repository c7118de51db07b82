package mirror

import (
	"context"
	"sync"

	"github.com/edumanager/edumanager/core/logger"
)

// Cell mirrors a single value under a fixed key.
//
// The first Get attempts to read a previously stored value; if there is
// none, or it cannot be decoded, the cell falls back to its initial value
// without writing it. Every Set updates the in-memory value and re-encodes
// it to the backend. Independent cells for the same key are not
// synchronized; the last writer wins.
type Cell[T any] struct {
	acc     Accessor
	key     string
	initial T

	mu     sync.Mutex
	value  T
	loaded bool
}

// NewCell creates a cell for key with the given initial value.
func NewCell[T any](acc Accessor, key string, initial T) *Cell[T] {
	return &Cell[T]{acc: acc, key: key, initial: initial, value: initial}
}

// Get returns the current value, reading the backend on first use.
func (c *Cell[T]) Get(ctx context.Context) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)
	return c.value
}

// Set stores the value in memory and writes it through to the backend.
func (c *Cell[T]) Set(ctx context.Context, value T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acc.Write(ctx, c.key, value); err != nil {
		return err
	}
	c.value = value
	c.loaded = true
	return nil
}

// Update applies fn to the current value and stores the result.
func (c *Cell[T]) Update(ctx context.Context, fn func(T) T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)
	next := fn(c.value)
	if err := c.acc.Write(ctx, c.key, next); err != nil {
		return c.value, err
	}
	c.value = next
	return next, nil
}

// load must be called with the mutex held. Absence and corruption count
// as loaded, the cell keeps its initial value. A failing backend does
// not: the read is retried on the next call.
func (c *Cell[T]) load(ctx context.Context) {
	if c.loaded {
		return
	}
	value := c.initial
	if _, err := c.acc.Read(ctx, c.key, &value); err != nil {
		logger.FromContext(ctx).Warnf("mirror: cannot load key '%s': %s", c.key, err)
		return
	}
	c.value = value
	c.loaded = true
}

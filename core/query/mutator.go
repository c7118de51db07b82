package query

import (
	"context"
	"sync"

	"github.com/edumanager/edumanager/core/client"
)

// Mutator issues inserts, updates and deletes against one collection.
//
// Loading and error state are tracked per mutator, independently of any
// query on the same collection. Failures are recorded and returned, so a
// caller can both show the message and react to the error itself.
type Mutator[T any] struct {
	c          client.Client
	collection string

	mu         sync.Mutex
	inFlight   int
	errMessage string
}

// NewMutator creates a mutator for the collection.
func NewMutator[T any](c client.Client, collection string) *Mutator[T] {
	return &Mutator[T]{c: c, collection: collection}
}

// Insert sends the row to the store and returns the persisted row,
// including generated identity and timestamps. The row must not carry
// identity or timestamp fields; the store assigns them.
func (m *Mutator[T]) Insert(ctx context.Context, row interface{}) (T, error) {
	m.begin()
	var result T
	_, err := m.c.WithContext(ctx).Collection(m.collection).Insert(row, &result)
	m.end(err)
	return result, err
}

// Update sends a partial patch for the row with the given id and returns
// the updated row. A missing id fails with client.ErrNotFound.
func (m *Mutator[T]) Update(ctx context.Context, id string, patch interface{}) (T, error) {
	m.begin()
	var result T
	_, err := m.c.WithContext(ctx).Collection(m.collection).Update(id, patch, &result)
	m.end(err)
	return result, err
}

// Remove deletes the row with the given id. A missing id fails with
// client.ErrNotFound. The caller is responsible for refreshing any list
// afterwards.
func (m *Mutator[T]) Remove(ctx context.Context, id string) error {
	m.begin()
	_, err := m.c.WithContext(ctx).Collection(m.collection).Delete(id)
	m.end(err)
	return err
}

// Loading reports whether a mutation is in flight.
func (m *Mutator[T]) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight > 0
}

// Err returns the message of the last failed mutation, or the empty
// string after a success or while untouched.
func (m *Mutator[T]) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMessage
}

func (m *Mutator[T]) begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight++
	m.errMessage = ""
}

func (m *Mutator[T]) end(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
	if err != nil {
		m.errMessage = err.Error()
	}
}

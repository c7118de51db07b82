/*
Package query implements the data-synchronization layer between the
dashboard screens and the remote store.

A Query keeps the cached rows of one collection together with a loading
flag and a human-readable error message; Refetch replaces the cache with
a fresh select-all round trip. A Mutator issues inserts, updates and
deletes, tracking its own loading and error state independently of the
sibling query. Mutations perform no cache invalidation; refreshing the
list after a successful mutation is the caller's job.
*/
package query

import (
	"context"
	"sync"

	"github.com/edumanager/edumanager/core/client"
)

// Query is a cached view of one collection.
type Query[T any] struct {
	c          client.Client
	collection string
	filter     client.Filter

	mu         sync.Mutex
	data       []T
	errMessage string
	inFlight   int
	generation uint64
}

// New creates a query for the collection, optionally restricted by a
// disjunctive filter. The cache starts empty; call Refetch to populate it.
func New[T any](c client.Client, collection string, filter client.Filter) *Query[T] {
	return &Query[T]{c: c, collection: collection, filter: filter, data: []T{}}
}

// Refetch replaces the cached rows with a fresh select-all result.
//
// It is idempotent and safe to call repeatedly, including concurrently:
// each call records a generation token at dispatch time, and a response
// is discarded unless it still belongs to the most recently dispatched
// request. A response arriving after a newer dispatch never overwrites
// newer state.
func (q *Query[T]) Refetch(ctx context.Context) {
	generation := q.begin()

	var rows []T
	_, err := q.c.WithContext(ctx).Collection(q.collection).WithFilter(q.filter).List(&rows)

	q.apply(generation, rows, err)
}

// begin marks a new in-flight request and returns its generation token.
func (q *Query[T]) begin() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.generation++
	q.inFlight++
	q.errMessage = ""
	return q.generation
}

// apply installs a response unless a newer request was dispatched since.
func (q *Query[T]) apply(generation uint64, rows []T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inFlight--
	if generation != q.generation {
		// stale response, a newer request owns the state
		return
	}
	if err != nil {
		q.errMessage = err.Error()
		q.data = []T{}
		return
	}
	if rows == nil {
		rows = []T{}
	}
	q.data = rows
	q.errMessage = ""
}

// Data returns the cached rows. It is never nil.
func (q *Query[T]) Data() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.data
}

// Loading reports whether a refetch is in flight.
func (q *Query[T]) Loading() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight > 0
}

// Err returns the message of the last failed refetch, or the empty
// string after a success or while untouched.
func (q *Query[T]) Err() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.errMessage
}

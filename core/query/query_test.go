package query

import (
	"context"
	"errors"
	"testing"

	"github.com/gorilla/mux"

	"github.com/edumanager/edumanager/core/client"
	"github.com/edumanager/edumanager/core/client/storestub"
)

type row struct {
	ID     string `json:"id,omitempty"`
	Nome   string `json:"nome"`
	Status string `json:"status,omitempty"`
}

func newTestClient(t *testing.T) (client.Client, *storestub.Store) {
	t.Helper()
	router := mux.NewRouter()
	store := storestub.MustNewStore(router)
	return client.NewWithRouter(router), store
}

func TestQueryRefetch(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	store.Seed("professores", storestub.Row{"id": "1", "nome": "A"})
	store.Seed("professores", storestub.Row{"id": "2", "nome": "B"})

	q := New[row](c, "professores", client.Filter{})
	if len(q.Data()) != 0 {
		t.Fatal("cache must start empty")
	}

	q.Refetch(ctx)
	if q.Err() != "" {
		t.Fatal("unexpected error:", q.Err())
	}
	if q.Loading() {
		t.Fatal("loading must be false after the fetch resolved")
	}
	if got := q.Data(); len(got) != 2 || got[0].Nome != "A" {
		t.Fatal("unexpected data:", got)
	}
}

func TestQueryFilter(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	store.Seed("professores", storestub.Row{"id": "1", "nome": "A", "status": "ativo"})
	store.Seed("professores", storestub.Row{"id": "2", "nome": "B", "status": "inativo"})

	q := New[row](c, "professores", client.Or("status.eq.ativo"))
	q.Refetch(ctx)
	if got := q.Data(); len(got) != 1 || got[0].Nome != "A" {
		t.Fatal("filter not applied:", got)
	}
}

func TestQueryFailureResetsData(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	store.Seed("professores", storestub.Row{"id": "1", "nome": "A"})
	q := New[row](c, "professores", client.Filter{})
	q.Refetch(ctx)
	if len(q.Data()) != 1 {
		t.Fatal("seed fetch failed")
	}

	store.FailNext("connection reset")
	q.Refetch(ctx)
	if q.Err() == "" {
		t.Fatal("expected an error message")
	}
	if len(q.Data()) != 0 {
		t.Fatal("failed refetch must reset the cache")
	}

	// refetching again recovers and clears the error
	q.Refetch(ctx)
	if q.Err() != "" || len(q.Data()) != 1 {
		t.Fatal("refetch after failure did not recover")
	}
}

func TestQueryDiscardsStaleResponse(t *testing.T) {
	c, _ := newTestClient(t)
	q := New[row](c, "professores", client.Filter{})

	// two requests are dispatched; the older response must never win,
	// regardless of arrival order
	older := q.begin()
	newer := q.begin()
	if !q.Loading() {
		t.Fatal("loading must be true while requests are in flight")
	}

	q.apply(newer, []row{{Nome: "fresh"}}, nil)
	q.apply(older, []row{{Nome: "stale"}}, nil)

	if q.Loading() {
		t.Fatal("loading must clear once all requests resolved")
	}
	if got := q.Data(); len(got) != 1 || got[0].Nome != "fresh" {
		t.Fatal("stale response was applied:", got)
	}

	// a stale failure must not clobber fresh data either
	older = q.begin()
	newer = q.begin()
	q.apply(newer, []row{{Nome: "fresher"}}, nil)
	q.apply(older, nil, errors.New("timeout"))
	if q.Err() != "" {
		t.Fatal("stale error was applied")
	}
	if got := q.Data(); len(got) != 1 || got[0].Nome != "fresher" {
		t.Fatal("stale failure clobbered data:", got)
	}
}

func TestMutatorInsertUpdateRemove(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	m := NewMutator[row](c, "professores")

	created, err := m.Insert(ctx, row{Nome: "Prof. Teste"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("insert did not return generated identity")
	}
	if m.Err() != "" || m.Loading() {
		t.Fatal("mutator state dirty after success")
	}

	updated, err := m.Update(ctx, created.ID, map[string]string{"nome": "Prof. Novo"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Nome != "Prof. Novo" {
		t.Fatal("update result wrong:", updated)
	}

	if err := m.Remove(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
}

func TestMutatorRecordsAndReturnsFailure(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	m := NewMutator[row](c, "professores")

	// unknown ids must fail loudly, not silently succeed
	_, err := m.Update(ctx, "no-such-id", map[string]string{"nome": "X"})
	if !errors.Is(err, client.ErrNotFound) {
		t.Fatal("expected ErrNotFound, got", err)
	}
	if m.Err() == "" {
		t.Fatal("mutation failure must be recorded")
	}

	if err := m.Remove(ctx, "no-such-id"); !errors.Is(err, client.ErrNotFound) {
		t.Fatal("expected ErrNotFound, got", err)
	}

	// the next successful mutation clears the error
	if _, err := m.Insert(ctx, row{Nome: "ok"}); err != nil {
		t.Fatal(err)
	}
	if m.Err() != "" {
		t.Fatal("error must clear on the next mutation")
	}
}

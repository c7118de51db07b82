// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package storestub is an in-memory stand-in for the hosted row store.

It serves the REST subset the client speaks on a mux router: select-all
with an optional disjunctive predicate, insert with generated identity
and timestamps, patch by id and delete by id. Tests wire it to
client.NewWithRouter and exercise the real client code paths without a
network or a database.
*/
package storestub

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Row is one stored record.
type Row map[string]interface{}

// Store holds collections of rows in memory.
type Store struct {
	mu          sync.Mutex
	collections map[string][]Row
	failures    []string
}

// MustNewStore creates an empty store and registers its routes on the router.
func MustNewStore(router *mux.Router) *Store {
	s := &Store{collections: make(map[string][]Row)}
	router.HandleFunc("/rest/v1/{collection}", s.serve).
		Methods(http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete)
	return s
}

// FailNext makes the next request fail with an internal error carrying
// the given message. Queued failures are consumed in order.
func (s *Store) FailNext(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, message)
}

// Rows returns a copy of the named collection, in insertion order.
func (s *Store) Rows(collection string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row{}, s.collections[collection]...)
}

// Seed appends a row as-is, without generating identity or timestamps.
func (s *Store) Seed(collection string, row Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], row)
}

func (s *Store) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.failures) > 0 {
		message := s.failures[0]
		s.failures = s.failures[1:]
		http.Error(w, message, http.StatusInternalServerError)
		return
	}

	collection := mux.Vars(r)["collection"]
	switch r.Method {
	case http.MethodGet:
		s.list(w, r, collection)
	case http.MethodPost:
		s.insert(w, r, collection)
	case http.MethodPatch:
		s.patch(w, r, collection)
	case http.MethodDelete:
		s.delete(w, r, collection)
	}
}

func (s *Store) list(w http.ResponseWriter, r *http.Request, collection string) {
	predicate := parsePredicate(r.URL.Query().Get("or"))
	result := []Row{}
	for _, row := range s.collections[collection] {
		if predicate.matches(row) {
			result = append(result, row)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Store) insert(w http.ResponseWriter, r *http.Request, collection string) {
	body, _ := io.ReadAll(r.Body)
	var row Row
	if err := json.Unmarshal(body, &row); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	row["id"] = uuid.New().String()
	row["created_at"] = now
	row["updated_at"] = now
	s.collections[collection] = append(s.collections[collection], row)
	writeJSON(w, http.StatusCreated, row)
}

func (s *Store) patch(w http.ResponseWriter, r *http.Request, collection string) {
	id, ok := idFromQuery(r)
	if !ok {
		http.Error(w, "missing id predicate", http.StatusBadRequest)
		return
	}
	body, _ := io.ReadAll(r.Body)
	var patch Row
	if err := json.Unmarshal(body, &patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, row := range s.collections[collection] {
		if row["id"] == id {
			for k, v := range patch {
				if k == "id" || k == "created_at" {
					continue
				}
				row[k] = v
			}
			row["updated_at"] = time.Now().UTC().Format(time.RFC3339)
			writeJSON(w, http.StatusOK, row)
			return
		}
	}
	http.Error(w, "JSON object requested, multiple (or no) rows returned", http.StatusNotAcceptable)
}

func (s *Store) delete(w http.ResponseWriter, r *http.Request, collection string) {
	id, ok := idFromQuery(r)
	if !ok {
		http.Error(w, "missing id predicate", http.StatusBadRequest)
		return
	}
	rows := s.collections[collection]
	for i, row := range rows {
		if row["id"] == id {
			s.collections[collection] = append(rows[:i:i], rows[i+1:]...)
			writeJSON(w, http.StatusOK, row)
			return
		}
	}
	http.Error(w, "JSON object requested, multiple (or no) rows returned", http.StatusNotAcceptable)
}

func idFromQuery(r *http.Request) (string, bool) {
	value := r.URL.Query().Get("id")
	if !strings.HasPrefix(value, "eq.") {
		return "", false
	}
	return strings.TrimPrefix(value, "eq."), true
}

// predicate is a parsed disjunction of equality clauses.
type predicate [][2]string

func parsePredicate(encoded string) predicate {
	encoded = strings.TrimSuffix(strings.TrimPrefix(encoded, "("), ")")
	if encoded == "" {
		return nil
	}
	var p predicate
	for _, clause := range strings.Split(encoded, ",") {
		parts := strings.SplitN(clause, ".eq.", 2)
		if len(parts) == 2 {
			p = append(p, [2]string{parts[0], parts[1]})
		}
	}
	return p
}

func (p predicate) matches(row Row) bool {
	if len(p) == 0 {
		return true
	}
	for _, clause := range p {
		if value, ok := row[clause[0]]; ok && fmt.Sprint(value) == clause[1] {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	j, _ := json.Marshal(value)
	w.Write(j)
}

// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides access to the remote row store.

The store exposes one REST collection per entity type under /rest/v1.
The client can either talk HTTP to a hosted endpoint, or talk directly
to a mux router without marshalling HTTP. The router mode is the tool
of choice for unit tests: the same code paths run against an in-process
stand-in of the store.
*/
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/gorilla/mux"
)

// ErrNotFound is returned when an update or delete addresses a row id
// that does not exist in the collection.
var ErrNotFound = errors.New("row not found")

const restPrefix = "/rest/v1"

// Client provides access to the remote store's REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	apiKey     string
	token      string
	ctx        context.Context
}

// NewWithURL creates a client that makes REST requests to the hosted store.
// The api key is sent both as apikey header and as bearer token until
// WithToken installs a user token.
func NewWithURL(url string, apiKey string) Client {
	return Client{
		url:        strings.TrimSuffix(url, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// NewWithRouter creates a client that makes pseudo-REST requests directly
// through the mux router.
func NewWithRouter(router *mux.Router) Client {
	return Client{router: router}
}

// WithToken returns a new client that authenticates with the given
// user access token instead of the api key.
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithContext returns a new client with a specific request context.
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the client's base context.
func (c Client) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Collection represents one named collection of rows.
type Collection struct {
	client     *Client
	name       string
	parameters []string
}

// Collection returns a collection client for the named collection.
func (c Client) Collection(name string) Collection {
	return Collection{
		client: &c,
		name:   name,
	}
}

// WithParameter returns a new collection client with a query parameter added.
func (r Collection) WithParameter(key string, value string) Collection {
	parameter := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	return Collection{
		client: r.client,
		name:   r.name,
		// we want a true copy to avoid side effects
		parameters: append(append([]string{}, r.parameters...), parameter),
	}
}

// WithFilter returns a new collection client restricted by the given
// disjunctive predicate. A zero filter adds nothing.
func (r Collection) WithFilter(f Filter) Collection {
	if f.IsZero() {
		return r
	}
	return r.WithParameter("or", f.Encode())
}

// Path returns the request path for this collection including query strings.
// Rows are always selected in full.
func (r Collection) Path() string {
	path := restPrefix + "/" + r.name + "?select=*"
	if len(r.parameters) > 0 {
		path += "&" + strings.Join(r.parameters, "&")
	}
	return path
}

// itemPath returns the request path addressing a single row by id.
func (r Collection) itemPath(id string) string {
	return restPrefix + "/" + r.name + "?id=eq." + url.QueryEscape(id)
}

// Name returns the collection name.
func (r Collection) Name() string {
	return r.name
}

// List reads all rows of the collection, optionally filtered.
//
// Expects http.StatusOK as response, otherwise it flags an error.
// Returns the actual http status code.
//
// result can also be a raw *[]byte.
func (r Collection) List(result interface{}) (int, error) {
	return r.client.RawGet(r.Path(), result)
}

// Insert creates a new row. The store assigns identity and timestamps;
// the caller must not send them.
//
// Expects http.StatusCreated as response, otherwise it flags an error.
// Returns the actual http status code and unmarshals the persisted row,
// including the generated fields, into result.
func (r Collection) Insert(body interface{}, result interface{}) (int, error) {
	return r.client.RawPost(restPrefix+"/"+r.name, body, result)
}

// Update patches selected fields of the row with the given id.
//
// Returns ErrNotFound if no row has that id. On success the updated
// row is unmarshalled into result.
func (r Collection) Update(id string, patch interface{}, result interface{}) (int, error) {
	return r.client.RawPatch(r.itemPath(id), patch, result)
}

// Delete removes the row with the given id.
//
// Returns ErrNotFound if no row has that id.
func (r Collection) Delete(id string) (int, error) {
	return r.client.RawDelete(r.itemPath(id))
}

func (c Client) newRequest(method, path string, body []byte) *http.Request {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}
	r, _ := http.NewRequestWithContext(c.Context(), method, c.url+path, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		r.Header.Set("apikey", c.apiKey)
	}
	token := c.token
	if token == "" {
		token = c.apiKey
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func (c Client) do(r *http.Request) (status int, resBody []byte, err error) {
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		return rec.Result().StatusCode, rec.Body.Bytes(), nil
	}
	res, err := c.httpClient.Do(r)
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	defer res.Body.Close()
	resBody, _ = io.ReadAll(res.Body)
	return res.StatusCode, resBody, nil
}

func unmarshalResult(resBody []byte, result interface{}) error {
	if len(resBody) == 0 || result == nil {
		return nil
	}
	if raw, ok := result.(*[]byte); ok {
		*raw = resBody
		return nil
	}
	return json.Unmarshal(resBody, result)
}

// RawGet gets the resource from path. Expects http.StatusOK as response,
// otherwise it flags an error. Returns the actual http status code.
//
// result can also be a raw *[]byte. result can be nil.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	r := c.newRequest(http.MethodGet, path, nil)
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusOK {
		return status, fmt.Errorf("store returned wrong status code: got %v want %v. Error: %s",
			status, http.StatusOK, strings.TrimSpace(string(resBody)))
	}
	return status, unmarshalResult(resBody, result)
}

// RawPost posts a resource to path. Expects http.StatusCreated as response,
// otherwise it flags an error. Returns the actual http status code.
//
// The store is asked to return the created representation as a single object.
//
// body can also be a []byte, result can also be a raw *[]byte.
// result can be nil.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	j, err := marshalBody(body)
	if err != nil {
		return http.StatusBadRequest, fmt.Errorf("POST to %s: %w", path, err)
	}
	r := c.newRequest(http.MethodPost, path, j)
	r.Header.Set("Prefer", "return=representation")
	r.Header.Set("Accept", "application/vnd.pgrst.object+json")
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return status, fmt.Errorf("store returned wrong status code: got %v want %v. Error: %s",
			status, http.StatusCreated, strings.TrimSpace(string(resBody)))
	}
	return status, unmarshalResult(resBody, result)
}

// RawPatch puts a patch to path. Expects http.StatusOK or http.StatusNoContent
// as valid responses. A patch that matches no row returns ErrNotFound.
//
// body can also be a []byte, result can also be a raw *[]byte.
// result can be nil.
func (c Client) RawPatch(path string, body interface{}, result interface{}) (int, error) {
	j, err := marshalBody(body)
	if err != nil {
		return http.StatusBadRequest, fmt.Errorf("PATCH to %s: %w", path, err)
	}
	r := c.newRequest(http.MethodPatch, path, j)
	r.Header.Set("Prefer", "return=representation")
	r.Header.Set("Accept", "application/vnd.pgrst.object+json")
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status == http.StatusNotFound || status == http.StatusNotAcceptable {
		return status, ErrNotFound
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return status, errors.New(strings.TrimSpace(string(resBody)))
	}
	return status, unmarshalResult(resBody, result)
}

// RawDelete deletes the resource at path. Expects http.StatusOK or
// http.StatusNoContent as valid responses. A delete that matches no row
// returns ErrNotFound.
//
// Returns the actual http status code.
func (c Client) RawDelete(path string) (int, error) {
	r := c.newRequest(http.MethodDelete, path, nil)
	r.Header.Set("Prefer", "return=representation")
	r.Header.Set("Accept", "application/vnd.pgrst.object+json")
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status == http.StatusNotFound || status == http.StatusNotAcceptable {
		return status, ErrNotFound
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return status, errors.New(strings.TrimSpace(string(resBody)))
	}
	return status, nil
}

func marshalBody(body interface{}) ([]byte, error) {
	if j, ok := body.([]byte); ok {
		return j, nil
	}
	return json.Marshal(body)
}

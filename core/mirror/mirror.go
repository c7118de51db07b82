/*
Package mirror provides a durable key-value mirror of client state.

Values are serialized as JSON and written through on every change, the
way the dashboard keeps notification settings and other preferences
outside the remote store. Keys are independent cells; the last writer
wins. Two backends exist: a file store for single-node deployments and
Redis for shared ones.
*/
package mirror

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/edumanager/edumanager/core/logger"
)

// ErrNoValue is returned by backends when a key has no stored value.
var ErrNoValue = errors.New("no value")

// ErrCorrupt is returned by backends when a stored value cannot be decoded.
var ErrCorrupt = errors.New("corrupt value")

// Backend stores raw JSON values by key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, time.Time, error)
	Store(ctx context.Context, key string, value []byte, timestamp time.Time) error
	Remove(ctx context.Context, key string) error
}

// Mirror is a durable mirror of JSON objects.
type Mirror struct {
	backend Backend
}

// New creates a mirror on the given backend.
func New(backend Backend) Mirror {
	return Mirror{backend: backend}
}

// Accessor returns a mirror accessor with prefix.
func (m Mirror) Accessor(prefix string) Accessor {
	return Accessor{Prefix: prefix, Mirror: m}
}

// Accessor is an accessor with optional prefix.
type Accessor struct {
	Prefix string
	Mirror Mirror
}

func (a Accessor) fullKey(key string) string {
	if len(a.Prefix) > 0 {
		return a.Prefix + ":" + key
	}
	return key
}

// Read reads a value from the mirror. It returns the time when the value
// was written, or a zero timestamp if there is no value. A value that can
// no longer be decoded counts as absent: the condition is logged and the
// target is left untouched, so callers keep their initial value.
//
// If the accessor has a prefix, the key is prepended with "{prefix}:".
func (a Accessor) Read(ctx context.Context, key string, value interface{}) (time.Time, error) {
	fullKey := a.fullKey(key)
	raw, timestamp, err := a.Mirror.backend.Load(ctx, fullKey)
	if errors.Is(err, ErrNoValue) {
		return time.Time{}, nil
	}
	if errors.Is(err, ErrCorrupt) {
		logger.FromContext(ctx).Warnf("mirror: discarding corrupt value for key '%s'", fullKey)
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if err := json.Unmarshal(raw, value); err != nil {
		logger.FromContext(ctx).Warnf("mirror: discarding corrupt value for key '%s': %s", fullKey, err)
		return time.Time{}, nil
	}
	return timestamp, nil
}

// Write writes a value into the mirror.
//
// If the accessor has a prefix, the key is prepended with "{prefix}:".
func (a Accessor) Write(ctx context.Context, key string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return a.Mirror.backend.Store(ctx, a.fullKey(key), body, time.Now().UTC())
}

// Delete deletes a value from the mirror.
//
// If the accessor has a prefix, the key is prepended with "{prefix}:".
func (a Accessor) Delete(ctx context.Context, key string) error {
	return a.Mirror.backend.Remove(ctx, a.fullKey(key))
}

// Package docstore is the document-store port the rest of the service writes
// through: path-addressed JSON documents with merge-writes and atomic batches.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when no document exists at the path.
var ErrNotFound = errors.New("docstore: document not found")

// ServerTimestamp is a sentinel value. Any field set to it is replaced with
// the write-time timestamp by the store implementation.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

// Write is one entry of an atomic batch.
type Write struct {
	Path   string
	Data   interface{}
	Merge  bool
	Delete bool
}

// Store is the document store consumed by onboarding, habits and profiles.
type Store interface {
	// Get returns the raw JSON body of the document at path.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Set writes a document. With merge, top-level fields are merged into the
	// existing document instead of replacing it.
	Set(ctx context.Context, path string, data interface{}, merge bool) error
	// Delete removes the document at path. Deleting a missing document is not
	// an error.
	Delete(ctx context.Context, path string) error
	// List returns the direct children of prefix, keyed by document id.
	List(ctx context.Context, prefix string) (map[string]json.RawMessage, error)
	// Batch applies all writes atomically.
	Batch(ctx context.Context, writes []Write) error
}

// DocID returns the last segment of a document path.
func DocID(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// resolveTimestamps replaces ServerTimestamp sentinels recursively.
func resolveTimestamps(v interface{}, now time.Time) interface{} {
	switch t := v.(type) {
	case serverTimestamp:
		return now.UTC().Format(time.RFC3339)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = resolveTimestamps(val, now)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = resolveTimestamps(val, now)
		}
		return out
	default:
		return v
	}
}

// encodeBody marshals a write payload, resolving timestamp sentinels first.
// json.RawMessage payloads pass through untouched so key order survives.
func encodeBody(data interface{}, now time.Time) (json.RawMessage, error) {
	if raw, ok := data.(json.RawMessage); ok {
		return raw, nil
	}
	body, err := json.Marshal(resolveTimestamps(data, now))
	if err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	return body, nil
}

// mergeBodies shallow-merges the incoming document over the existing one.
func mergeBodies(existing, incoming json.RawMessage) (json.RawMessage, error) {
	var base map[string]interface{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &base); err != nil {
			return nil, fmt.Errorf("docstore: merge existing document: %w", err)
		}
	}
	if base == nil {
		base = map[string]interface{}{}
	}

	var overlay map[string]interface{}
	if err := json.Unmarshal(incoming, &overlay); err != nil {
		return nil, fmt.Errorf("docstore: merge incoming document: %w", err)
	}
	for k, v := range overlay {
		base[k] = v
	}

	return json.Marshal(base)
}

package docstore

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used in tests and local development. It keeps
// the raw JSON bodies as written, matching the Postgres implementation.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]json.RawMessage),
		now:  time.Now,
	}
}

// WithClock fixes the write-time clock; tests use it to pin server timestamps.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, path string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(json.RawMessage, len(body))
	copy(out, body)
	return out, nil
}

func (m *Memory) Set(_ context.Context, path string, data interface{}, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyWrite(Write{Path: path, Data: data, Merge: merge})
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, path)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make(map[string]json.RawMessage)
	for path, body := range m.docs {
		rest, ok := strings.CutPrefix(path, prefix+"/")
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		out := make(json.RawMessage, len(body))
		copy(out, body)
		docs[rest] = out
	}
	return docs, nil
}

func (m *Memory) Batch(_ context.Context, writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Stage on a copy so a failing write leaves the store untouched.
	staged := make(map[string]json.RawMessage, len(m.docs))
	for k, v := range m.docs {
		staged[k] = v
	}
	orig := m.docs
	m.docs = staged

	for _, w := range writes {
		if err := m.applyWrite(w); err != nil {
			m.docs = orig
			return err
		}
	}
	return nil
}

// Len reports the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *Memory) applyWrite(w Write) error {
	if w.Delete {
		delete(m.docs, w.Path)
		return nil
	}

	body, err := encodeBody(w.Data, m.now())
	if err != nil {
		return err
	}

	if w.Merge {
		if existing, ok := m.docs[w.Path]; ok {
			body, err = mergeBodies(existing, body)
			if err != nil {
				return err
			}
		}
	}

	m.docs[w.Path] = body
	return nil
}

// Package prefs is the key-value local-preference store, backed by Redis and
// namespaced per user. Values are stored as JSON.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a preference key has never been set.
var ErrNotFound = errors.New("prefs: key not found")

type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func key(userID, name string) string {
	return fmt.Sprintf("prefs:%s:%s", userID, name)
}

// Get unmarshals the stored preference into out.
func (s *Store) Get(ctx context.Context, userID, name string, out interface{}) error {
	val, err := s.rdb.Get(ctx, key(userID, name)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("prefs: get %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return fmt.Errorf("prefs: decode %s: %w", name, err)
	}
	return nil
}

// Set stores the preference. Preferences do not expire.
func (s *Store) Set(ctx context.Context, userID, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("prefs: encode %s: %w", name, err)
	}
	if err := s.rdb.Set(ctx, key(userID, name), data, 0).Err(); err != nil {
		return fmt.Errorf("prefs: set %s: %w", name, err)
	}
	return nil
}

// Delete removes the preference. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, userID, name string) error {
	if err := s.rdb.Del(ctx, key(userID, name)).Err(); err != nil {
		return fmt.Errorf("prefs: delete %s: %w", name, err)
	}
	return nil
}

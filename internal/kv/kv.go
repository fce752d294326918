// Package kv provides the keyed storage abstraction shared by roles, sessions,
// triggers and memory partitions, with in-memory and SQLite implementations.
package kv

import (
	"context"
	"strings"
)

// Entry is a key and its decoded value.
type Entry[V any] struct {
	Key   string
	Value V
}

// Store is a keyed collection of values of one type.
// Implementations are safe for concurrent use. Values are stored by copy
// semantics: callers must not mutate a value after Put or after Get returns it.
type Store[V any] interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (v V, ok bool, err error)

	// Put inserts or replaces the value for key.
	Put(ctx context.Context, key string, v V) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan returns every entry whose key has the given prefix, ordered by key.
	Scan(ctx context.Context, prefix string) ([]Entry[V], error)
}

// Keys returns the keys of s with the given prefix.
func Keys[V any](ctx context.Context, s Store[V], prefix string) ([]string, error) {
	entries, err := s.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys, nil
}

// escapeLike escapes SQL LIKE metacharacters in a prefix.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

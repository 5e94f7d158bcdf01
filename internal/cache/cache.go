// Package cache persists captured code-segment results between builds.
// Entries are keyed by block identity plus a content hash, so an edited
// block never replays a stale result.
package cache

import "context"

// Store is the segment result cache.
type Store interface {
	// Get returns the cached payload for key, with ok false on a miss.
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)
	// Put stores the payload under key, replacing any previous entry.
	Put(ctx context.Context, key string, payload []byte) error
	Close() error
}

// NopStore caches nothing. Used when no cache path is configured.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NopStore) Put(context.Context, string, []byte) error         { return nil }
func (NopStore) Close() error                                      { return nil }

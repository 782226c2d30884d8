// Package memo provides a concurrency-safe memoizing resolver: at most one
// in-flight fetch per key, resolved values retained for the run.
package memo

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/goodnatureofminers/chainaudit7000-backend/pkg/workerpool"
)

// FetchFunc resolves a single key.
type FetchFunc[K ~string, V any] func(ctx context.Context, key K) (V, error)

// Resolver memoizes fetch results by key. A second caller for a key that is
// already being fetched awaits the first caller's result instead of issuing a
// duplicate request. Values are never evicted.
type Resolver[K ~string, V any] struct {
	fetch FetchFunc[K, V]
	group singleflight.Group

	mu     sync.RWMutex
	values map[K]V
}

// NewResolver constructs a Resolver around fetch.
func NewResolver[K ~string, V any](fetch FetchFunc[K, V]) *Resolver[K, V] {
	return &Resolver[K, V]{
		fetch:  fetch,
		values: make(map[K]V),
	}
}

// Get returns the memoized value for key, fetching it on first use. A fetch
// error is returned to every waiter and nothing is cached for the key.
func (r *Resolver[K, V]) Get(ctx context.Context, key K) (V, error) {
	r.mu.RLock()
	v, ok := r.values[key]
	r.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := r.group.Do(string(key), func() (interface{}, error) {
		// a previous flight may have stored the value already
		r.mu.RLock()
		v, ok := r.values[key]
		r.mu.RUnlock()
		if ok {
			return v, nil
		}

		fetched, err := r.fetch(ctx, key)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.values[key] = fetched
		r.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Warm resolves keys through a bounded worker pool, capping simultaneous load
// on the fetch backend. The first fetch error cancels the remaining work.
func (r *Resolver[K, V]) Warm(ctx context.Context, keys []K, workers int) error {
	return workerpool.Process(ctx, workers, keys, func(ctx context.Context, key K) error {
		_, err := r.Get(ctx, key)
		return err
	}, nil)
}

// Len reports how many keys are resolved.
func (r *Resolver[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

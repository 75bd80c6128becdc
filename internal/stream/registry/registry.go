// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package registry holds keyed collections of pipeline stages that are
// shared between the parts of a pipeline, for example one statistics
// collector per analysis group. A registry is created by the composition
// root and passed to whoever needs it.
package registry

import (
	"sync"

	"github.com/juju/errors"
)

// Registry maps keys to values created on first use.
type Registry[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	order   []K
}

type entry[V any] struct {
	once  sync.Once
	value V
	err   error
}

// New returns an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]*entry[V]),
	}
}

// Get returns the value for key, if one has been created successfully.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.Lock()
	e, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		var zero V
		return zero, false
	}
	// Wait for a concurrent creation to finish.
	e.once.Do(func() {})
	if e.err != nil {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrCreate returns the value for key, calling create to make it if the
// key is new. Concurrent callers for the same key share a single call to
// create. If create fails the error is returned and the key is forgotten,
// so a later call tries again.
func (r *Registry[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry[V]{}
		r.entries[key] = e
		r.order = append(r.order, key)
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.value, e.err = create()
	})
	if e.err != nil {
		r.forget(key, e)
		var zero V
		return zero, errors.Annotatef(e.err, "creating registry entry %v", key)
	}
	return e.value, nil
}

// Keys returns the keys of the registry in the order they were first
// requested.
func (r *Registry[K, V]) Keys() []K {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]K, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of keys in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry[K, V]) forget(key K, e *entry[V]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[key] != e {
		return
	}
	delete(r.entries, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

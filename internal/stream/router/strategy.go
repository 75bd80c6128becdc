// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package router

import (
	"cmp"

	"github.com/juju/errors"

	"github.com/juju/logdemux/core/stream"
	"github.com/juju/logdemux/internal/stream/registry"
)

// Strategy supplies the business rules of a Router: how keys are derived
// from objects, what happens to objects without a key, and how the sinks
// for a key seen for the first time are created.
type Strategy[T, S any, K cmp.Ordered] interface {
	// ItemKey derives the routing key of an item. It returns false if the
	// item has no key.
	ItemKey(item T) (K, bool, error)

	// SeparatorKey derives the routing key of a separator. It returns false
	// if the separator has no key.
	SeparatorKey(sep S) (K, bool, error)

	// NoItemKey handles an item for which ItemKey returned false.
	NoItemKey(r *Router[T, S, K], item T) error

	// NoSeparatorKey handles a separator for which SeparatorKey returned
	// false.
	NoSeparatorKey(r *Router[T, S, K], sep S) error

	// Populate is called the first time key is seen. It must register the
	// sinks for key with r.AddSinks or r.AddSeparatorSinks, called with no
	// sinks if nothing should receive objects with that key.
	Populate(r *Router[T, S, K], key K) error
}

// Funcs is a Strategy built from functions. Nil functions get defaults:
// separators have no key, objects without a key are dropped, and a new key
// gets an entry with no sinks.
type Funcs[T, S any, K cmp.Ordered] struct {
	ItemKeyFunc        func(item T) (K, bool, error)
	SeparatorKeyFunc   func(sep S) (K, bool, error)
	NoItemKeyFunc      func(r *Router[T, S, K], item T) error
	NoSeparatorKeyFunc func(r *Router[T, S, K], sep S) error
	PopulateFunc       func(r *Router[T, S, K], key K) error
}

// ItemKey is part of the Strategy interface.
func (f Funcs[T, S, K]) ItemKey(item T) (K, bool, error) {
	if f.ItemKeyFunc == nil {
		var zero K
		return zero, false, nil
	}
	return f.ItemKeyFunc(item)
}

// SeparatorKey is part of the Strategy interface.
func (f Funcs[T, S, K]) SeparatorKey(sep S) (K, bool, error) {
	if f.SeparatorKeyFunc == nil {
		var zero K
		return zero, false, nil
	}
	return f.SeparatorKeyFunc(sep)
}

// NoItemKey is part of the Strategy interface.
func (f Funcs[T, S, K]) NoItemKey(r *Router[T, S, K], item T) error {
	if f.NoItemKeyFunc == nil {
		logger.Tracef("dropping item without a key")
		return nil
	}
	return f.NoItemKeyFunc(r, item)
}

// NoSeparatorKey is part of the Strategy interface.
func (f Funcs[T, S, K]) NoSeparatorKey(r *Router[T, S, K], sep S) error {
	if f.NoSeparatorKeyFunc == nil {
		logger.Tracef("dropping separator without a key")
		return nil
	}
	return f.NoSeparatorKeyFunc(r, sep)
}

// Populate is part of the Strategy interface.
func (f Funcs[T, S, K]) Populate(r *Router[T, S, K], key K) error {
	if f.PopulateFunc == nil {
		return r.AddSinks(key)
	}
	return f.PopulateFunc(r, key)
}

// BroadcastItem handles key-less items by sending them to every sink
// registered under any key. It can be used as a Funcs.NoItemKeyFunc.
func BroadcastItem[T, S any, K cmp.Ordered](r *Router[T, S, K], item T) error {
	return r.BroadcastItem(item)
}

// BroadcastSeparator handles key-less separators by sending them to every
// separator sink registered under any key. It can be used as a
// Funcs.NoSeparatorKeyFunc.
func BroadcastSeparator[T, S any, K cmp.Ordered](r *Router[T, S, K], sep S) error {
	return r.BroadcastSeparator(sep)
}

// PopulateFromRegistry returns a populate function that registers, for
// each new key, the separator sink held by reg for that key, creating it
// with create if reg has none. Sinks are thereby shared by every router
// populated from the same registry.
func PopulateFromRegistry[T, S any, K cmp.Ordered, V stream.SeparatorSink[T, S]](
	reg *registry.Registry[K, V],
	create func(key K) (V, error),
) func(r *Router[T, S, K], key K) error {
	return func(r *Router[T, S, K], key K) error {
		sink, err := reg.GetOrCreate(key, func() (V, error) {
			return create(key)
		})
		if err != nil {
			return errors.Trace(err)
		}
		return r.AddSeparatorSinks(key, sink)
	}
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package router provides a pipeline stage that splits a stream between
// sets of sinks chosen by a key derived from each object.
//
// The sinks for a key are created on demand the first time the key is
// seen, through the router's Strategy, and are then reused for the life of
// the router.
package router

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/juju/logdemux/core/stream"
)

var logger = loggo.GetLogger("logdemux.router")

// Router routes items and separators to the sinks registered for their
// key. Plain sinks registered for a key receive the items with that key;
// separator sinks receive both the items and the separators with that key.
//
// The routing table is safe for concurrent use. The stream protocol
// methods (Open, Item, Separator, Close) are expected to be driven from a
// single goroutine.
type Router[T, S any, K cmp.Ordered] struct {
	strategy Strategy[T, S, K]

	mu        sync.Mutex
	lifecycle stream.Lifecycle
	table     map[K]*entry[T, S]

	// members holds every distinct sink registered under any key, in
	// registration order, so that each is opened and closed once.
	members []stream.ObjectSink[T]
	known   map[any]struct{}
}

// entry holds the sinks for one key. A sink is in at most one of the two
// lists.
type entry[T, S any] struct {
	sinks          []stream.ObjectSink[T]
	separatorSinks []stream.SeparatorSink[T, S]
}

func (e *entry[T, S]) has(sink any) bool {
	for _, s := range e.sinks {
		if any(s) == sink {
			return true
		}
	}
	for _, s := range e.separatorSinks {
		if any(s) == sink {
			return true
		}
	}
	return false
}

// New returns a router that uses strategy to derive keys and populate the
// routing table.
func New[T, S any, K cmp.Ordered](strategy Strategy[T, S, K]) (*Router[T, S, K], error) {
	if strategy == nil {
		return nil, errors.NotValidf("nil strategy")
	}
	return &Router[T, S, K]{
		strategy: strategy,
		table:    make(map[K]*entry[T, S]),
		known:    make(map[any]struct{}),
	}, nil
}

// AddSinks adds sinks to the set of plain sinks for key, creating the
// entry for key if there isn't one. Sinks already registered for key are
// left as they are. If the router is open, sinks that are new to the
// router are opened.
func (r *Router[T, S, K]) AddSinks(key K, sinks ...stream.ObjectSink[T]) error {
	r.mu.Lock()
	e := r.entryLocked(key)
	var added []stream.ObjectSink[T]
	for _, sink := range sinks {
		if sink == nil {
			r.mu.Unlock()
			return errors.NotValidf("nil sink for key %v", key)
		}
		if e.has(sink) {
			continue
		}
		e.sinks = append(e.sinks, sink)
		if r.joinLocked(sink) {
			added = append(added, sink)
		}
	}
	open := r.lifecycle.IsOpen()
	r.mu.Unlock()

	return r.openAdded(open, added)
}

// AddSeparatorSinks adds sinks to the set of separator sinks for key,
// creating the entry for key if there isn't one. A sink previously added
// to key as a plain sink is promoted, so that it receives the separators as
// well. If the router is open, sinks that are new to the router are opened.
func (r *Router[T, S, K]) AddSeparatorSinks(key K, sinks ...stream.SeparatorSink[T, S]) error {
	r.mu.Lock()
	e := r.entryLocked(key)
	var added []stream.ObjectSink[T]
	for _, sink := range sinks {
		if sink == nil {
			r.mu.Unlock()
			return errors.NotValidf("nil sink for key %v", key)
		}
		if slices.ContainsFunc(e.separatorSinks, func(s stream.SeparatorSink[T, S]) bool {
			return any(s) == any(sink)
		}) {
			continue
		}
		e.sinks = slices.DeleteFunc(e.sinks, func(s stream.ObjectSink[T]) bool {
			return any(s) == any(sink)
		})
		e.separatorSinks = append(e.separatorSinks, sink)
		if r.joinLocked(sink) {
			added = append(added, sink)
		}
	}
	open := r.lifecycle.IsOpen()
	r.mu.Unlock()

	return r.openAdded(open, added)
}

// AddSink adds a single plain sink for key.
func (r *Router[T, S, K]) AddSink(key K, sink stream.ObjectSink[T]) error {
	return r.AddSinks(key, sink)
}

// AddSeparatorSink adds a single separator sink for key.
func (r *Router[T, S, K]) AddSeparatorSink(key K, sink stream.SeparatorSink[T, S]) error {
	return r.AddSeparatorSinks(key, sink)
}

// Keys returns the keys with an entry in the routing table, in order.
func (r *Router[T, S, K]) Keys() []K {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]K, 0, len(r.table))
	for k := range r.table {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (r *Router[T, S, K]) entryLocked(key K) *entry[T, S] {
	e, ok := r.table[key]
	if !ok {
		e = &entry[T, S]{}
		r.table[key] = e
	}
	return e
}

// joinLocked records sink as a member of the router, returning true if it
// was not one already.
func (r *Router[T, S, K]) joinLocked(sink stream.ObjectSink[T]) bool {
	if _, ok := r.known[sink]; ok {
		return false
	}
	r.known[sink] = struct{}{}
	r.members = append(r.members, sink)
	return true
}

func (r *Router[T, S, K]) openAdded(open bool, added []stream.ObjectSink[T]) error {
	if !open {
		return nil
	}
	for _, sink := range added {
		if err := sink.Open(); err != nil {
			return errors.Annotatef(err, "opening sink %T", sink)
		}
	}
	return nil
}

// Route sends item to the sinks for its key, populating the routing table
// for the key if necessary.
func (r *Router[T, S, K]) Route(item T) error {
	key, ok, err := r.strategy.ItemKey(item)
	if err != nil {
		return stream.RoutingFailure(err, "deriving item key")
	}
	if !ok {
		return errors.Trace(r.strategy.NoItemKey(r, item))
	}
	e, err := r.lookup(key)
	if err != nil {
		return errors.Trace(err)
	}
	for _, sink := range e.sinks {
		if err := sink.Item(item); err != nil {
			return errors.Annotatef(err, "routing item with key %v", key)
		}
	}
	for _, sink := range e.separatorSinks {
		if err := sink.Item(item); err != nil {
			return errors.Annotatef(err, "routing item with key %v", key)
		}
	}
	return nil
}

// RouteSeparator sends sep to the separator sinks for its key, populating
// the routing table for the key if necessary.
func (r *Router[T, S, K]) RouteSeparator(sep S) error {
	key, ok, err := r.strategy.SeparatorKey(sep)
	if err != nil {
		return stream.RoutingFailure(err, "deriving separator key")
	}
	if !ok {
		return errors.Trace(r.strategy.NoSeparatorKey(r, sep))
	}
	e, err := r.lookup(key)
	if err != nil {
		return errors.Trace(err)
	}
	for _, sink := range e.separatorSinks {
		if err := sink.Separator(sep); err != nil {
			return errors.Annotatef(err, "routing separator with key %v", key)
		}
	}
	return nil
}

// lookup returns a snapshot of the entry for key, asking the strategy to
// populate it first if there is none.
func (r *Router[T, S, K]) lookup(key K) (entry[T, S], error) {
	if e, ok := r.snapshot(key); ok {
		return e, nil
	}
	if err := r.strategy.Populate(r, key); err != nil {
		return entry[T, S]{}, errors.Annotatef(err, "populating key %v", key)
	}
	e, ok := r.snapshot(key)
	if !ok {
		return entry[T, S]{}, stream.RoutingErrorf("populate did not register key %v", key)
	}
	return e, nil
}

func (r *Router[T, S, K]) snapshot(key K) (entry[T, S], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.table[key]
	if !ok {
		return entry[T, S]{}, false
	}
	return entry[T, S]{
		sinks:          slices.Clone(e.sinks),
		separatorSinks: slices.Clone(e.separatorSinks),
	}, true
}

// BroadcastItem sends item to every sink registered under any key, once.
func (r *Router[T, S, K]) BroadcastItem(item T) error {
	for _, sink := range r.snapshotMembers() {
		if err := sink.Item(item); err != nil {
			return errors.Annotatef(err, "broadcasting item")
		}
	}
	return nil
}

// BroadcastSeparator sends sep to every separator sink registered under
// any key, once.
func (r *Router[T, S, K]) BroadcastSeparator(sep S) error {
	r.mu.Lock()
	seen := make(map[any]struct{})
	var sinks []stream.SeparatorSink[T, S]
	for _, e := range r.table {
		for _, sink := range e.separatorSinks {
			if _, ok := seen[sink]; ok {
				continue
			}
			seen[sink] = struct{}{}
			sinks = append(sinks, sink)
		}
	}
	r.mu.Unlock()

	// Map iteration order is random; deliver in registration order.
	order := r.snapshotMembers()
	slices.SortStableFunc(sinks, func(a, b stream.SeparatorSink[T, S]) int {
		return cmp.Compare(indexOf(order, a), indexOf(order, b))
	})
	for _, sink := range sinks {
		if err := sink.Separator(sep); err != nil {
			return errors.Annotatef(err, "broadcasting separator")
		}
	}
	return nil
}

func indexOf[T, S any](members []stream.ObjectSink[T], sink stream.SeparatorSink[T, S]) int {
	for i, m := range members {
		if any(m) == any(sink) {
			return i
		}
	}
	return len(members)
}

func (r *Router[T, S, K]) snapshotMembers() []stream.ObjectSink[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.members)
}

// Open is part of the stream.SeparatorSink interface. It opens every sink
// registered so far.
func (r *Router[T, S, K]) Open() error {
	r.mu.Lock()
	if err := r.lifecycle.Open(); err != nil {
		r.mu.Unlock()
		return errors.Trace(err)
	}
	members := slices.Clone(r.members)
	r.mu.Unlock()

	for i, sink := range members {
		if err := sink.Open(); err != nil {
			// Leave no sink open, so the router can be opened again.
			for _, opened := range members[:i] {
				stream.QuietClose(opened, fmt.Sprintf("sink %T", opened))
			}
			r.mu.Lock()
			_ = r.lifecycle.Close()
			r.mu.Unlock()
			return errors.Annotatef(err, "opening sink %T", sink)
		}
	}
	return nil
}

// Item is part of the stream.SeparatorSink interface.
func (r *Router[T, S, K]) Item(item T) error {
	if err := r.check("item"); err != nil {
		return errors.Trace(err)
	}
	return r.Route(item)
}

// Separator is part of the stream.SeparatorSink interface.
func (r *Router[T, S, K]) Separator(sep S) error {
	if err := r.check("separator"); err != nil {
		return errors.Trace(err)
	}
	return r.RouteSeparator(sep)
}

// Close is part of the stream.SeparatorSink interface. Every sink is
// closed once, even if an earlier one fails; the first failure is
// returned.
func (r *Router[T, S, K]) Close() error {
	r.mu.Lock()
	if err := r.lifecycle.Close(); err != nil {
		r.mu.Unlock()
		return errors.Trace(err)
	}
	members := slices.Clone(r.members)
	r.mu.Unlock()

	var first error
	for _, sink := range members {
		if err := sink.Close(); err != nil && first == nil {
			first = errors.Annotatef(err, "closing sink %T", sink)
		}
	}
	return first
}

func (r *Router[T, S, K]) check(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lifecycle.Check(op)
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hub provides a broadcast stage that forwards the stream
// protocol to a set of registered sinks.
package hub

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/juju/logdemux/core/stream"
)

// Hub forwards every call it receives to each registered sink, on the
// calling goroutine, in registration order. Plain sinks receive Open, Item
// and Close; separator sinks additionally receive Separator.
//
// A sink can be registered only once, in either role. Sinks are compared by
// interface value, so they must be comparable (typically pointers).
//
// Hub is not safe for concurrent use.
type Hub[T, S any] struct {
	lifecycle stream.Lifecycle

	sinks          []stream.ObjectSink[T]
	separatorSinks []stream.SeparatorSink[T, S]

	registered map[any]struct{}
}

// New returns an empty hub.
func New[T, S any]() *Hub[T, S] {
	return &Hub[T, S]{
		registered: make(map[any]struct{}),
	}
}

// AddSink registers a sink that receives items but not separators.
func (h *Hub[T, S]) AddSink(sink stream.ObjectSink[T]) error {
	if err := h.register(sink); err != nil {
		return errors.Trace(err)
	}
	h.sinks = append(h.sinks, sink)
	return nil
}

// AddSeparatorSink registers a sink that receives both items and
// separators.
func (h *Hub[T, S]) AddSeparatorSink(sink stream.SeparatorSink[T, S]) error {
	if err := h.register(sink); err != nil {
		return errors.Trace(err)
	}
	h.separatorSinks = append(h.separatorSinks, sink)
	return nil
}

// RemoveSink unregisters a sink added with AddSink.
func (h *Hub[T, S]) RemoveSink(sink stream.ObjectSink[T]) error {
	for i, s := range h.sinks {
		if any(s) == any(sink) {
			h.sinks = append(h.sinks[:i:i], h.sinks[i+1:]...)
			delete(h.registered, sink)
			return nil
		}
	}
	return stream.ProtocolErrorf("removing sink %T: not registered", sink)
}

// RemoveSeparatorSink unregisters a sink added with AddSeparatorSink.
func (h *Hub[T, S]) RemoveSeparatorSink(sink stream.SeparatorSink[T, S]) error {
	for i, s := range h.separatorSinks {
		if any(s) == any(sink) {
			h.separatorSinks = append(h.separatorSinks[:i:i], h.separatorSinks[i+1:]...)
			delete(h.registered, sink)
			return nil
		}
	}
	return stream.ProtocolErrorf("removing separator sink %T: not registered", sink)
}

// Len returns the number of registered sinks of both kinds.
func (h *Hub[T, S]) Len() int {
	return len(h.registered)
}

func (h *Hub[T, S]) register(sink any) error {
	if sink == nil {
		return errors.NotValidf("nil sink")
	}
	if _, ok := h.registered[sink]; ok {
		return stream.ProtocolErrorf("adding sink %T: already registered", sink)
	}
	h.registered[sink] = struct{}{}
	return nil
}

// Open is part of the stream.SeparatorSink interface.
func (h *Hub[T, S]) Open() error {
	if err := h.lifecycle.Open(); err != nil {
		return errors.Trace(err)
	}
	all := h.all()
	for i, sink := range all {
		if err := sink.Open(); err != nil {
			// Leave no sink open, so the hub can be opened again.
			for j, opened := range all[:i] {
				stream.QuietClose(opened, fmt.Sprintf("sink %d", j))
			}
			_ = h.lifecycle.Close()
			return errors.Annotatef(err, "opening sink %d", i)
		}
	}
	return nil
}

// Item is part of the stream.SeparatorSink interface.
func (h *Hub[T, S]) Item(item T) error {
	if err := h.lifecycle.Check("item"); err != nil {
		return errors.Trace(err)
	}
	return h.each("forwarding item to", func(sink stream.ObjectSink[T]) error {
		return sink.Item(item)
	})
}

// Separator is part of the stream.SeparatorSink interface.
func (h *Hub[T, S]) Separator(sep S) error {
	if err := h.lifecycle.Check("separator"); err != nil {
		return errors.Trace(err)
	}
	for i, sink := range h.separatorSinks {
		if err := sink.Separator(sep); err != nil {
			return errors.Annotatef(err, "forwarding separator to sink %d", i)
		}
	}
	return nil
}

// Close is part of the stream.SeparatorSink interface. Every sink is closed
// even if an earlier one fails; the first failure is returned.
func (h *Hub[T, S]) Close() error {
	if err := h.lifecycle.Close(); err != nil {
		return errors.Trace(err)
	}
	var first error
	for i, sink := range h.all() {
		if err := sink.Close(); err != nil && first == nil {
			first = errors.Annotatef(err, "closing sink %d", i)
		}
	}
	return first
}

// each calls f for every sink, plain sinks first, stopping at the first
// error.
func (h *Hub[T, S]) each(what string, f func(stream.ObjectSink[T]) error) error {
	for i, sink := range h.all() {
		if err := f(sink); err != nil {
			return errors.Annotatef(err, "%s sink %d", what, i)
		}
	}
	return nil
}

// all returns a snapshot of every registered sink, so that a sink may
// modify the registrations while being called.
func (h *Hub[T, S]) all() []stream.ObjectSink[T] {
	all := make([]stream.ObjectSink[T], 0, len(h.sinks)+len(h.separatorSinks))
	all = append(all, h.sinks...)
	for _, sink := range h.separatorSinks {
		all = append(all, sink)
	}
	return all
}

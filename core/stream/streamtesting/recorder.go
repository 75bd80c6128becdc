// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package streamtesting provides sinks for testing pipeline stages.
package streamtesting

import (
	"github.com/juju/testing"
)

// Recorder is a SeparatorSink that records every call made to it on an
// embedded testing.Stub. Errors queued with SetErrors are returned from the
// calls in order.
type Recorder[T, S any] struct {
	testing.Stub

	// Name identifies the recorder in test failures.
	Name string

	notify chan<- string
}

// NewRecorder returns a recorder with the given name.
func NewRecorder[T, S any](name string) *Recorder[T, S] {
	return &Recorder[T, S]{Name: name}
}

// Notify makes the recorder send the name of every method called on it to
// ch, after the call has been recorded.
func (r *Recorder[T, S]) Notify(ch chan<- string) *Recorder[T, S] {
	r.notify = ch
	return r
}

// Open is part of the stream.SeparatorSink interface.
func (r *Recorder[T, S]) Open() error {
	return r.record("Open")
}

// Item is part of the stream.SeparatorSink interface.
func (r *Recorder[T, S]) Item(item T) error {
	return r.record("Item", item)
}

// Separator is part of the stream.SeparatorSink interface.
func (r *Recorder[T, S]) Separator(sep S) error {
	return r.record("Separator", sep)
}

// Close is part of the stream.SeparatorSink interface.
func (r *Recorder[T, S]) Close() error {
	return r.record("Close")
}

// Items returns the items received so far, in order.
func (r *Recorder[T, S]) Items() []T {
	var items []T
	for _, call := range r.Calls() {
		if call.FuncName == "Item" {
			items = append(items, call.Args[0].(T))
		}
	}
	return items
}

// Separators returns the separators received so far, in order.
func (r *Recorder[T, S]) Separators() []S {
	var seps []S
	for _, call := range r.Calls() {
		if call.FuncName == "Separator" {
			seps = append(seps, call.Args[0].(S))
		}
	}
	return seps
}

// CallNames returns the names of the methods called so far, in order.
func (r *Recorder[T, S]) CallNames() []string {
	var names []string
	for _, call := range r.Calls() {
		names = append(names, call.FuncName)
	}
	return names
}

func (r *Recorder[T, S]) record(name string, args ...interface{}) error {
	r.MethodCall(r, name, args...)
	err := r.NextErr()
	if r.notify != nil {
		r.notify <- name
	}
	return err
}

// ObjectRecorder is a Recorder that only satisfies stream.ObjectSink, for
// exercising code paths that treat plain and separator aware sinks
// differently.
type ObjectRecorder[T any] struct {
	rec *Recorder[T, struct{}]
}

// NewObjectRecorder returns an object only recorder with the given name.
func NewObjectRecorder[T any](name string) *ObjectRecorder[T] {
	return &ObjectRecorder[T]{rec: NewRecorder[T, struct{}](name)}
}

// Stub returns the stub the calls are recorded on.
func (r *ObjectRecorder[T]) Stub() *testing.Stub {
	return &r.rec.Stub
}

// Open is part of the stream.ObjectSink interface.
func (r *ObjectRecorder[T]) Open() error { return r.rec.Open() }

// Item is part of the stream.ObjectSink interface.
func (r *ObjectRecorder[T]) Item(item T) error { return r.rec.Item(item) }

// Close is part of the stream.ObjectSink interface.
func (r *ObjectRecorder[T]) Close() error { return r.rec.Close() }

// Items returns the items received so far, in order.
func (r *ObjectRecorder[T]) Items() []T { return r.rec.Items() }

// CallNames returns the names of the methods called so far, in order.
func (r *ObjectRecorder[T]) CallNames() []string { return r.rec.CallNames() }

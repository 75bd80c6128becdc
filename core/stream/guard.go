// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package stream

import (
	"github.com/juju/errors"
)

// Guard wraps sink so that protocol violations are rejected before they
// reach it. A call rejected by the guard is never forwarded.
func Guard[T, S any](sink SeparatorSink[T, S]) SeparatorSink[T, S] {
	return &guarded[T, S]{sink: sink}
}

type guarded[T, S any] struct {
	lifecycle Lifecycle
	sink      SeparatorSink[T, S]
}

// Open is part of the SeparatorSink interface.
func (g *guarded[T, S]) Open() error {
	if err := g.lifecycle.Open(); err != nil {
		return errors.Trace(err)
	}
	return g.sink.Open()
}

// Item is part of the SeparatorSink interface.
func (g *guarded[T, S]) Item(item T) error {
	if err := g.lifecycle.Check("item"); err != nil {
		return errors.Trace(err)
	}
	return g.sink.Item(item)
}

// Separator is part of the SeparatorSink interface.
func (g *guarded[T, S]) Separator(sep S) error {
	if err := g.lifecycle.Check("separator"); err != nil {
		return errors.Trace(err)
	}
	return g.sink.Separator(sep)
}

// Close is part of the SeparatorSink interface.
func (g *guarded[T, S]) Close() error {
	if err := g.lifecycle.Close(); err != nil {
		return errors.Trace(err)
	}
	return g.sink.Close()
}

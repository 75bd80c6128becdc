// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package fanout provides a demultiplexer target that copies a source to
// several other targets.
package fanout

import (
	"github.com/juju/errors"

	"github.com/juju/logdemux/internal/demux"
	"github.com/juju/logdemux/internal/stream/hub"
)

// New returns a target that forwards everything it receives to each of
// targets, in order.
func New(targets ...demux.Target) (*hub.Hub[string, demux.Flush], error) {
	h := hub.New[string, demux.Flush]()
	for _, t := range targets {
		if err := h.AddSeparatorSink(t); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return h, nil
}

// Factory returns a demux.TargetFactory whose targets copy each source to
// a target from every one of factories. If one of factories fails, the
// targets already made for the source are dropped unopened.
func Factory(factories ...demux.TargetFactory) demux.TargetFactory {
	return func(name string) (demux.Target, error) {
		targets := make([]demux.Target, 0, len(factories))
		for i, factory := range factories {
			t, err := factory(name)
			if err != nil {
				return nil, errors.Annotatef(err, "creating target %d", i)
			}
			targets = append(targets, t)
		}
		h, err := New(targets...)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return h, nil
	}
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pubsubsink provides a demultiplexer target that publishes what
// it receives on a pubsub hub, so any number of local subscribers can
// follow a source.
package pubsubsink

import (
	"github.com/juju/errors"
	"github.com/juju/pubsub/v2"

	"github.com/juju/logdemux/core/stream"
	"github.com/juju/logdemux/internal/demux"
)

const (
	// LineTopic carries a Line for every line of a source.
	LineTopic = "logdemux.line"

	// FlushTopic carries the demux.Flush sent to a quiet source.
	FlushTopic = "logdemux.flush"

	// ClosedTopic carries a Closed once a source has ended.
	ClosedTopic = "logdemux.closed"
)

// Line is the data published on LineTopic.
type Line struct {
	Source string
	Text   string
}

// Closed is the data published on ClosedTopic.
type Closed struct {
	Source string
}

// Sink is a demux.Target that publishes on a hub.
type Sink struct {
	lifecycle stream.Lifecycle

	hub    *pubsub.SimpleHub
	source string
}

var _ demux.Target = (*Sink)(nil)

// New returns a sink that publishes the named source's lines on hub.
func New(hub *pubsub.SimpleHub, source string) (*Sink, error) {
	if hub == nil {
		return nil, errors.NotValidf("nil hub")
	}
	return &Sink{hub: hub, source: source}, nil
}

// Factory returns a demux.TargetFactory creating sinks on hub.
func Factory(hub *pubsub.SimpleHub) demux.TargetFactory {
	return func(name string) (demux.Target, error) {
		return New(hub, name)
	}
}

// Open is part of the demux.Target interface.
func (s *Sink) Open() error {
	return errors.Trace(s.lifecycle.Open())
}

// Item is part of the demux.Target interface.
func (s *Sink) Item(line string) error {
	if err := s.lifecycle.Check("item"); err != nil {
		return errors.Trace(err)
	}
	s.hub.Publish(LineTopic, Line{Source: s.source, Text: line})
	return nil
}

// Separator is part of the demux.Target interface. It returns once every
// subscriber has seen the lines before it.
func (s *Sink) Separator(flush demux.Flush) error {
	if err := s.lifecycle.Check("separator"); err != nil {
		return errors.Trace(err)
	}
	s.hub.Publish(FlushTopic, flush)()
	return nil
}

// Close is part of the demux.Target interface. It returns once every
// subscriber has seen everything the sink published.
func (s *Sink) Close() error {
	if err := s.lifecycle.Close(); err != nil {
		return errors.Trace(err)
	}
	s.hub.Publish(ClosedTopic, Closed{Source: s.source})()
	return nil
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package demux

import (
	"time"

	"github.com/juju/logdemux/core/stream"
)

// Target is the per-source pipeline the demultiplexer feeds: it receives
// the source's lines as items and a Flush whenever the source has been
// quiet for the flush time.
type Target = stream.SeparatorSink[string, Flush]

// Flush is the separator sent to a target that has received no line for
// at least the flush time.
type Flush struct {
	// Source is the name the target was registered under.
	Source string

	// LastItem is when the target last received a line.
	LastItem time.Time

	// Time is when the flush was sent.
	Time time.Time

	// Final is set on flushes sent during shutdown.
	Final bool
}

// Idle returns how long the source had been quiet when the flush was
// sent.
func (f Flush) Idle() time.Duration {
	return f.Time.Sub(f.LastItem)
}

// target is the demultiplexer's bookkeeping for one registered Target.
type target struct {
	name string
	sink Target

	open     bool
	lastItem time.Time

	// flushed is set once a Flush has been sent, and cleared by the next
	// item, so a quiet target is flushed once per quiet period.
	flushed bool
}

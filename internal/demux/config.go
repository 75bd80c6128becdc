// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package demux

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/juju/logdemux/core/linesource"
)

// DefaultFlushTime is the flush time used when none is configured.
const DefaultFlushTime = 30 * time.Second

// Logger is the logging interface used by the demultiplexer. A
// loggo.Logger satisfies it.
type Logger interface {
	Errorf(string, ...interface{})
	Warningf(string, ...interface{})
	Infof(string, ...interface{})
	Debugf(string, ...interface{})
	Tracef(string, ...interface{})
}

// Config holds the dependencies and settings of a Demuxer.
type Config struct {
	// Source supplies the multiplexed lines.
	Source linesource.Source

	// Clock is used for idle tracking and read timeouts.
	Clock clock.Clock

	// FlushTime is how long a target may go without an item before it is
	// sent a Flush. Zero means DefaultFlushTime.
	FlushTime time.Duration

	Logger Logger

	// Metrics, if set, is told about every routing decision.
	Metrics Metrics
}

// Validate returns an error if the config cannot be used to create a
// Demuxer.
func (c Config) Validate() error {
	if c.Source == nil {
		return errors.NotValidf("nil Source")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if c.FlushTime < 0 {
		return errors.NotValidf("negative FlushTime %v", c.FlushTime)
	}
	return nil
}

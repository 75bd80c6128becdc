// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package demux splits a multiplexed log stream, in which runs of lines
// from different sources are introduced by "==> name <==" marker lines,
// into one Target per source. A target that has been quiet for the flush
// time is sent a single Flush, and every target is closed exactly once
// when the stream ends.
package demux

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/juju/logdemux/core/linesource"
	"github.com/juju/logdemux/core/stream"
	"github.com/juju/logdemux/internal/linereader"
)

// Demuxer routes the lines of a multiplexed stream to named targets.
type Demuxer struct {
	source  linesource.Source
	clock   clock.Clock
	logger  Logger
	metrics Metrics

	stopped atomic.Bool

	mu           sync.Mutex
	running      bool
	reader       *linereader.Reader
	flushTime    time.Duration
	waitTime     time.Duration
	longWaitTime time.Duration
	nextSweep    time.Time

	targets map[string]*target
	order   []*target

	// Owned by the Run goroutine.
	single       bool
	active       *target
	pendingBlank bool
}

// NewDemuxer returns a Demuxer reading from config.Source. Targets must be
// added before Run is called.
func NewDemuxer(config Config) (*Demuxer, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	d := &Demuxer{
		source:  config.Source,
		clock:   config.Clock,
		logger:  config.Logger,
		metrics: metrics,
		targets: make(map[string]*target),
	}
	flushTime := config.FlushTime
	if flushTime == 0 {
		flushTime = DefaultFlushTime
	}
	d.setWaits(flushTime)
	return d, nil
}

// AddTarget registers t to receive the lines of the source called name.
func (d *Demuxer) AddTarget(name string, t Target) error {
	if name == "" {
		return errors.NotValidf("empty target name")
	}
	if t == nil {
		return errors.NotValidf("nil target %q", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return stream.ProtocolErrorf("adding target %q: demultiplexer already running", name)
	}
	if _, ok := d.targets[name]; ok {
		return errors.AlreadyExistsf("target %q", name)
	}
	tgt := &target{name: name, sink: t}
	d.targets[name] = tgt
	d.order = append(d.order, tgt)
	return nil
}

// TargetNames returns the registered target names in registration order.
func (d *Demuxer) TargetNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.order))
	for i, t := range d.order {
		names[i] = t.name
	}
	return names
}

// FlushTime returns the current flush time.
func (d *Demuxer) FlushTime() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushTime
}

// SetFlushTime changes the flush time, and with it the read timeouts. If
// the change means a sweep is due sooner than scheduled, the next sweep is
// brought forward.
func (d *Demuxer) SetFlushTime(flushTime time.Duration) error {
	if flushTime <= 0 {
		return errors.NotValidf("flush time %v", flushTime)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setWaits(flushTime)
	if d.nextSweep.IsZero() {
		return nil
	}
	if next := d.clock.Now().Add(flushTime); next.Before(d.nextSweep) {
		d.nextSweep = next
	}
	return nil
}

// setWaits must be called with mu held, or before the Demuxer is shared.
func (d *Demuxer) setWaits(flushTime time.Duration) {
	d.flushTime = flushTime
	d.waitTime = 2 * flushTime
	d.longWaitTime = 10 * d.waitTime
}

func (d *Demuxer) waits() (time.Duration, time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waitTime, d.longWaitTime
}

// Stop asks a running Demuxer to shut down as if the stream had ended.
// It does not wait; Run returns once shutdown is complete.
func (d *Demuxer) Stop() {
	d.stopped.Store(true)
	d.mu.Lock()
	reader := d.reader
	d.mu.Unlock()
	if reader != nil {
		reader.Kill()
	}
}

// Run opens every target, routes lines until the stream ends, Stop is
// called or ctx is done, and then flushes and closes the targets. It
// returns the first target or read error, after closing every target.
func (d *Demuxer) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.Errorf("demultiplexer already run")
	}
	if len(d.order) == 0 {
		d.mu.Unlock()
		return errors.NotValidf("demultiplexer without targets")
	}
	d.running = true
	d.mu.Unlock()

	reader, err := linereader.New(linereader.Config{
		Source: d.source,
		Clock:  d.clock,
	})
	if err != nil {
		return errors.Trace(err)
	}
	if err := d.openTargets(); err != nil {
		return errors.Trace(err)
	}
	d.prepare()

	d.mu.Lock()
	d.reader = reader
	d.mu.Unlock()
	if err := reader.Start(); err != nil {
		d.abort()
		return errors.Trace(err)
	}
	defer func() {
		reader.Kill()
		if err := reader.Wait(); err != nil {
			d.logger.Tracef("line reader finished: %v", err)
		}
	}()
	defer context.AfterFunc(ctx, d.Stop)()

	d.logger.Infof("demultiplexing into %d targets, flush time %v", len(d.order), d.FlushTime())
	if err := d.loop(reader); err != nil {
		d.abort()
		return errors.Trace(err)
	}
	return errors.Trace(d.finish())
}

func (d *Demuxer) loop(reader *linereader.Reader) error {
	wait, _ := d.waits()
	for !d.stopped.Load() {
		line, err := reader.ReadLine(wait)
		waitTime, longWaitTime := d.waits()
		switch {
		case err == nil:
			wait = waitTime
			if err := d.handleLine(line); err != nil {
				return errors.Trace(err)
			}
		case errors.Is(err, linereader.ErrNoData):
			wait = longWaitTime
		case errors.Is(err, io.EOF):
			d.logger.Debugf("end of multiplexed stream")
			return nil
		case errors.Is(err, linereader.ErrStopped):
			return nil
		default:
			return errors.Annotate(err, "reading multiplexed stream")
		}
		if err := d.sweep(false); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// openTargets opens every target in registration order. If one fails,
// those already opened are closed again.
func (d *Demuxer) openTargets() error {
	for _, t := range d.order {
		if err := t.sink.Open(); err != nil {
			d.abort()
			return errors.Annotatef(err, "opening target %q", t.name)
		}
		t.open = true
	}
	return nil
}

// prepare resets the routing state for a new run.
func (d *Demuxer) prepare() {
	now := d.clock.Now()
	for _, t := range d.order {
		t.lastItem = now
		t.flushed = true
	}
	d.single = len(d.order) == 1
	d.active = nil
	if d.single {
		d.active = d.order[0]
	}
	d.pendingBlank = false

	d.mu.Lock()
	d.nextSweep = now.Add(d.flushTime)
	d.mu.Unlock()
}

// handleLine routes one line of the multiplexed stream.
func (d *Demuxer) handleLine(line string) error {
	if name, ok := ParseMarker(line); ok {
		// A blank line before a marker is an artifact of the multiplexing.
		d.pendingBlank = false
		d.switchTo(name)
		return nil
	}
	if d.active == nil {
		d.metrics.LineDiscarded()
		return nil
	}
	if line == "" {
		if d.pendingBlank {
			if err := d.deliver(""); err != nil {
				return errors.Trace(err)
			}
		}
		d.pendingBlank = true
		return nil
	}
	if d.pendingBlank {
		d.pendingBlank = false
		if err := d.deliver(""); err != nil {
			return errors.Trace(err)
		}
	}
	return d.deliver(line)
}

func (d *Demuxer) switchTo(name string) {
	t, ok := d.targets[name]
	if d.single {
		if t != d.active {
			d.logger.Warningf("ignoring switch to unknown source %q, routing to %q", name, d.active.name)
		}
		return
	}
	if !ok {
		d.logger.Warningf("no target for source %q, discarding its lines", name)
		d.active = nil
		return
	}
	if t != d.active {
		d.logger.Tracef("switching to source %q", name)
		d.metrics.SourceSwitched(name)
	}
	d.active = t
}

func (d *Demuxer) deliver(line string) error {
	t := d.active
	if err := t.sink.Item(line); err != nil {
		return errors.Annotatef(err, "delivering line to target %q", t.name)
	}
	t.lastItem = d.clock.Now()
	t.flushed = false
	d.metrics.LineRouted(t.name)
	return nil
}

// sweep sends a Flush to every target that has been quiet for at least
// the flush time and has not been flushed since its last item. Unless
// final is set it does nothing before the next scheduled sweep.
func (d *Demuxer) sweep(final bool) error {
	now := d.clock.Now()
	d.mu.Lock()
	if !final && now.Before(d.nextSweep) {
		d.mu.Unlock()
		return nil
	}
	flushTime := d.flushTime
	d.nextSweep = now.Add(flushTime)
	d.mu.Unlock()

	for _, t := range d.order {
		if t.flushed || now.Sub(t.lastItem) < flushTime {
			continue
		}
		flush := Flush{
			Source:   t.name,
			LastItem: t.lastItem,
			Time:     now,
			Final:    final,
		}
		if err := t.sink.Separator(flush); err != nil {
			return errors.Annotatef(err, "flushing target %q", t.name)
		}
		t.flushed = true
		d.metrics.Flushed(t.name)
		d.logger.Debugf("flushed %q after %v idle", t.name, flush.Idle())
	}
	return nil
}

// finish delivers any pending blank line, runs the final sweep and closes
// every target.
func (d *Demuxer) finish() error {
	if d.pendingBlank && d.active != nil {
		d.pendingBlank = false
		if err := d.deliver(""); err != nil {
			d.abort()
			return errors.Trace(err)
		}
	}
	if err := d.sweep(true); err != nil {
		d.abort()
		return errors.Trace(err)
	}
	var firstErr error
	for _, t := range d.order {
		if !t.open {
			continue
		}
		t.open = false
		if err := t.sink.Close(); err != nil && firstErr == nil {
			firstErr = errors.Annotatef(err, "closing target %q", t.name)
		}
	}
	return firstErr
}

// abort closes every open target, ignoring errors.
func (d *Demuxer) abort() {
	for _, t := range d.order {
		if !t.open {
			continue
		}
		t.open = false
		stream.QuietClose(t.sink, "target "+t.name)
	}
}

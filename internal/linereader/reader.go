// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package linereader reads lines from a blocking source on a background
// goroutine and hands them, one at a time, to a consumer that waits for
// them with a timeout.
package linereader

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"gopkg.in/tomb.v2"

	"github.com/juju/logdemux/core/linesource"
)

var logger = loggo.GetLogger("logdemux.linereader")

const (
	// ErrNoData is returned by ReadLine when no line arrived before the
	// timeout. The source is not at its end.
	ErrNoData = errors.ConstError("no data")

	// ErrStopped is returned by ReadLine once the reader has been killed.
	ErrStopped = errors.ConstError("line reader stopped")
)

// Config holds the dependencies of a Reader.
type Config struct {
	Source linesource.Source
	Clock  clock.Clock
}

// Validate returns an error if the config cannot be used to create a
// Reader.
func (c Config) Validate() error {
	if c.Source == nil {
		return errors.NotValidf("nil Source")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	return nil
}

// Reader reads lines from a Source on a single goroutine. A line read by
// that goroutine is handed to the consumer through an unbuffered channel,
// so at most one line is ever pending: the producer blocks until ReadLine
// takes it.
type Reader struct {
	tomb   tomb.Tomb
	source linesource.Source
	clock  clock.Clock

	lines chan string

	startOnce sync.Once
	started   atomic.Bool
	closeOnce sync.Once

	// sourceEOF and err are written by the producer before it closes
	// lines, and read by the consumer only after it has observed the
	// close.
	sourceEOF bool
	err       error

	eof atomic.Bool
}

// New returns a reader for the configured source. The reader does not read
// anything until Start is called.
func New(config Config) (*Reader, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Reader{
		source: config.Source,
		clock:  config.Clock,
		lines:  make(chan string),
	}, nil
}

// Start starts the background goroutine. It fails if the reader has
// already been started.
func (r *Reader) Start() error {
	err := errors.Errorf("line reader already started")
	r.startOnce.Do(func() {
		err = nil
		r.started.Store(true)
		r.tomb.Go(r.loop)
	})
	return err
}

// ReadLine waits up to timeout for the next line.
//
// It returns ErrNoData if nothing arrived in time, io.EOF once the source
// is exhausted (after which IsEOF reports true), ErrStopped once the reader
// has been killed, and the source's error if reading from it failed.
func (r *Reader) ReadLine(timeout time.Duration) (string, error) {
	if !r.started.Load() {
		return "", errors.Errorf("line reader not started")
	}
	select {
	case line, ok := <-r.lines:
		if !ok {
			return "", r.endErr()
		}
		return line, nil
	case <-r.tomb.Dying():
		// The producer closes lines before the tomb starts dying when it
		// stops by itself, so check for that first to report the reason.
		select {
		case _, ok := <-r.lines:
			if !ok {
				return "", r.endErr()
			}
		default:
		}
		return "", ErrStopped
	case <-r.clock.After(timeout):
		return "", ErrNoData
	}
}

// endErr is called after lines has been closed by the producer.
func (r *Reader) endErr() error {
	switch {
	case r.sourceEOF:
		r.eof.Store(true)
		return io.EOF
	case r.err == nil, r.err == tomb.ErrDying:
		return ErrStopped
	default:
		return errors.Trace(r.err)
	}
}

// IsEOF reports whether ReadLine has returned io.EOF, that is, whether the
// source genuinely reached its end. Timeouts never set it.
func (r *Reader) IsEOF() bool {
	return r.eof.Load()
}

// Kill asks the background goroutine to stop and closes the source to
// interrupt a read in progress. It does not wait for the goroutine to
// finish; use Wait for that.
func (r *Reader) Kill() {
	r.tomb.Kill(nil)
	r.closeOnce.Do(func() {
		if err := r.source.Close(); err != nil {
			logger.Debugf("closing line source: %v", err)
		}
	})
}

// Wait blocks until the background goroutine has finished, returning the
// error that stopped it, if any. It returns immediately if the reader was
// never started.
func (r *Reader) Wait() error {
	if !r.started.Load() {
		return nil
	}
	return r.tomb.Wait()
}

func (r *Reader) loop() (err error) {
	defer func() {
		r.err = err
		close(r.lines)
	}()

	for {
		line, readErr := r.source.ReadLine()

		// A read interrupted by Kill can fail in any number of ways;
		// none of them matter once we've been asked to stop.
		select {
		case <-r.tomb.Dying():
			return tomb.ErrDying
		default:
		}

		if errors.Is(readErr, io.EOF) {
			logger.Debugf("line source exhausted")
			r.sourceEOF = true
			return nil
		}
		if readErr != nil {
			logger.Errorf("reading line: %v", readErr)
			return errors.Annotate(readErr, "reading line")
		}

		select {
		case <-r.tomb.Dying():
			return tomb.ErrDying
		case r.lines <- line:
		}
	}
}

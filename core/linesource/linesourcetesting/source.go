// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package linesourcetesting provides line sources for tests.
package linesourcetesting

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
)

// ErrClosed is returned by ReadLine on a closed source.
const ErrClosed = errors.ConstError("source closed")

// ChanSource is a line source fed from a channel. Sending on Lines
// delivers a line, closing Lines ends the stream with io.EOF, and sending
// on Errors makes the next ReadLine fail with that error.
type ChanSource struct {
	Lines  chan string
	Errors chan error

	reads     atomic.Int32
	closed    chan struct{}
	closeOnce sync.Once
}

// NewChanSource returns a source with unbuffered channels.
func NewChanSource() *ChanSource {
	return &ChanSource{
		Lines:  make(chan string),
		Errors: make(chan error),
		closed: make(chan struct{}),
	}
}

// ReadLine is part of the linesource.Source interface.
func (s *ChanSource) ReadLine() (string, error) {
	s.reads.Add(1)
	select {
	case line, ok := <-s.Lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case err := <-s.Errors:
		return "", err
	case <-s.closed:
		return "", ErrClosed
	}
}

// Close is part of the linesource.Source interface.
func (s *ChanSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

// Closed returns a channel that is closed when Close is called.
func (s *ChanSource) Closed() <-chan struct{} {
	return s.closed
}

// Reads returns the number of times ReadLine has been called.
func (s *ChanSource) Reads() int {
	return int(s.reads.Load())
}

// ScriptSource returns a fixed sequence of lines followed by io.EOF, or by
// Err if it is set.
type ScriptSource struct {
	mu     sync.Mutex
	lines  []string
	Err    error
	reads  int
	closed bool
}

// NewScriptSource returns a source that yields lines.
func NewScriptSource(lines ...string) *ScriptSource {
	return &ScriptSource{lines: lines}
}

// ReadLine is part of the linesource.Source interface.
func (s *ScriptSource) ReadLine() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.closed {
		return "", ErrClosed
	}
	if len(s.lines) == 0 {
		if s.Err != nil {
			return "", s.Err
		}
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

// Close is part of the linesource.Source interface.
func (s *ScriptSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Reads returns the number of times ReadLine has been called.
func (s *ScriptSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

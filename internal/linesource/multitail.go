// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package linesource

import (
	"fmt"
	"io"
	"sync"

	"github.com/hpcloud/tail"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"gopkg.in/tomb.v2"
)

// ErrClosed is returned by MultiTail.ReadLine after Close.
const ErrClosed = errors.ConstError("line source closed")

// TailConfig configures a MultiTail.
type TailConfig struct {
	// Files are the paths of the files to follow. Each path is also the
	// name used in the header lines.
	Files []string

	// Follow keeps reading as the files grow, like tail -f. Without it
	// the source ends once every file has been read to its end.
	Follow bool

	// ReOpen reopens files that are recreated, like tail -F.
	ReOpen bool

	// FromEnd starts following at the current end of each file instead
	// of at its beginning.
	FromEnd bool

	// Poll watches for changes by polling rather than with inotify.
	Poll bool
}

// Validate returns an error if the config cannot be used.
func (c TailConfig) Validate() error {
	if len(c.Files) == 0 {
		return errors.NotValidf("empty Files")
	}
	seen := set.NewStrings()
	for _, f := range c.Files {
		if f == "" {
			return errors.NotValidf("empty file name")
		}
		if seen.Contains(f) {
			return errors.NotValidf("duplicate file %q", f)
		}
		seen.Add(f)
	}
	if c.ReOpen && !c.Follow {
		return errors.NotValidf("ReOpen without Follow")
	}
	return nil
}

// Header returns the line tail(1) prints before lines from the named
// file.
func Header(name string) string {
	return fmt.Sprintf("==> %s <==", name)
}

type tailEntry struct {
	name string
	text string
	err  error
}

// MultiTail follows several files and merges their lines into a single
// stream. Whenever the next line comes from a different file than the
// previous one, a header line naming the file is emitted first and, from
// the second header on, an empty line before the header. With a single
// file no headers are emitted.
type MultiTail struct {
	tomb  tomb.Tomb
	tails []*tail.Tail

	entries chan tailEntry
	single  bool

	// Consumer state; only touched by ReadLine.
	current string
	headers int
	pending []string

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMultiTail starts following the configured files.
func NewMultiTail(config TailConfig) (*MultiTail, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	tailConfig := tail.Config{
		Follow:    config.Follow,
		ReOpen:    config.ReOpen,
		Poll:      config.Poll,
		MustExist: true,
		Logger:    tailLogger{},
	}
	if config.FromEnd {
		tailConfig.Location = &tail.SeekInfo{Whence: io.SeekEnd}
	}

	m := &MultiTail{
		entries: make(chan tailEntry),
		single:  len(config.Files) == 1,
		closed:  make(chan struct{}),
	}
	for _, name := range config.Files {
		t, err := tail.TailFile(name, tailConfig)
		if err != nil {
			m.stopTails()
			return nil, errors.Annotatef(err, "tailing %q", name)
		}
		m.tails = append(m.tails, t)
	}
	for i, t := range m.tails {
		m.tomb.Go(m.forward(config.Files[i], t))
	}
	return m, nil
}

func (m *MultiTail) forward(name string, t *tail.Tail) func() error {
	return func() error {
		for {
			var line *tail.Line
			var ok bool
			select {
			case <-m.tomb.Dying():
				return tomb.ErrDying
			case line, ok = <-t.Lines:
			}
			if !ok {
				logger.Debugf("finished tailing %q", name)
				return nil
			}

			entry := tailEntry{name: name, text: line.Text}
			if line.Err != nil {
				entry.err = errors.Annotatef(line.Err, "tailing %q", name)
			}
			select {
			case <-m.tomb.Dying():
				return tomb.ErrDying
			case m.entries <- entry:
			}
			if entry.err != nil {
				return entry.err
			}
		}
	}
}

// ReadLine is part of the linesource.Source interface.
func (m *MultiTail) ReadLine() (string, error) {
	select {
	case <-m.closed:
		return "", ErrClosed
	default:
	}
	if len(m.pending) > 0 {
		line := m.pending[0]
		m.pending = m.pending[1:]
		return line, nil
	}

	select {
	case <-m.closed:
		return "", ErrClosed
	case entry := <-m.entries:
		if entry.err != nil {
			return "", entry.err
		}
		return m.next(entry), nil
	case <-m.tomb.Dead():
		// Every forwarder has returned, so every entry they sent has
		// been received.
		select {
		case <-m.closed:
			return "", ErrClosed
		default:
		}
		if err := m.tomb.Err(); err != nil {
			return "", errors.Trace(err)
		}
		return "", io.EOF
	}
}

// next returns the line to report for entry, queueing the rest of what
// has to be reported when its file differs from the previous one.
func (m *MultiTail) next(entry tailEntry) string {
	if m.single || (m.headers > 0 && entry.name == m.current) {
		return entry.text
	}
	m.current = entry.name
	m.headers++
	if m.headers == 1 {
		m.pending = append(m.pending, entry.text)
		return Header(entry.name)
	}
	m.pending = append(m.pending, Header(entry.name), entry.text)
	return ""
}

// Close is part of the linesource.Source interface. It stops following
// every file.
func (m *MultiTail) Close() error {
	m.closeOnce.Do(func() {
		close(m.closed)
		m.tomb.Kill(nil)
		m.stopTails()
	})
	return errors.Trace(m.tomb.Wait())
}

// stopTails stops every tail. A tail blocks sending each line it reads,
// and Stop waits for it, so the lines are drained until the tail closes
// them.
func (m *MultiTail) stopTails() {
	var drained sync.WaitGroup
	for _, t := range m.tails {
		drained.Add(1)
		go func(t *tail.Tail) {
			defer drained.Done()
			for range t.Lines {
			}
		}(t)
	}
	for _, t := range m.tails {
		if err := t.Stop(); err != nil {
			logger.Debugf("stopping tail of %q: %v", t.Filename, err)
		}
		t.Cleanup()
	}
	drained.Wait()
}

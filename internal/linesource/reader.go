// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package linesource

import (
	"bufio"
	"io"
	"sync"

	"github.com/juju/errors"
)

// MaxLineLength is the longest line a ReaderSource accepts.
const MaxLineLength = 1024 * 1024

// ReaderSource reads lines from an io.ReadCloser, which it owns.
type ReaderSource struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner

	closeOnce sync.Once
	closeErr  error
}

// NewReaderSource returns a source reading lines from rc. Closing the
// source closes rc, which interrupts a blocked read for readers that
// support it (files, pipes and sockets).
func NewReaderSource(rc io.ReadCloser) *ReaderSource {
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), MaxLineLength)
	return &ReaderSource{
		rc:      rc,
		scanner: scanner,
	}
}

// ReadLine is part of the linesource.Source interface. Line endings, with
// any carriage return, are stripped; a final line without a newline is
// still returned.
func (s *ReaderSource) ReadLine() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", errors.Trace(err)
	}
	return "", io.EOF
}

// Close is part of the linesource.Source interface.
func (s *ReaderSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.rc.Close()
	})
	return s.closeErr
}

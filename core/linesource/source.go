// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package linesource defines the blocking line source consumed by the
// asynchronous line reader.
package linesource

// Source is a blocking source of text lines.
type Source interface {
	// ReadLine blocks until the next line is available and returns it
	// without its line terminator. It returns io.EOF once the source is
	// exhausted, and any other error if reading failed.
	ReadLine() (string, error)

	// Close releases the source. It must cause a ReadLine blocked in
	// another goroutine to return, and it must be safe to call more than
	// once.
	Close() error
}

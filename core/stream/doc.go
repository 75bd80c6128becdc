// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package stream defines the push based streaming protocol shared by every
// pipeline stage in logdemux.
//
// A stage is opened, receives any number of items (and, for separator aware
// stages, out of band separators interleaved with them) and is then closed:
//
//	Open() Item(x)* [Separator(s)]* Close()
//
// Calling the methods out of that order is a protocol violation. Violations
// are reported as errors satisfying errors.Is(err, ErrProtocol), so callers
// can tell programming mistakes apart from I/O or processing failures.
//
// Stages are driven from a single goroutine and are not required to be safe
// for concurrent use.
package stream

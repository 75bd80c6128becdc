// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package stream

// Lifecycle tracks whether a stage is open. The zero value is a closed
// stage. It is meant to be embedded in stage implementations, which call the
// matching method at the start of each protocol operation.
type Lifecycle struct {
	open bool
}

// Open marks the stage open. It fails if the stage is already open.
func (l *Lifecycle) Open() error {
	if l.open {
		return ProtocolErrorf("open called on an open stream")
	}
	l.open = true
	return nil
}

// Check fails if the stage is not open. The op is used in the error message.
func (l *Lifecycle) Check(op string) error {
	if !l.open {
		return ProtocolErrorf("%s called on a stream that is not open", op)
	}
	return nil
}

// Close marks the stage closed. It fails if the stage was not open.
func (l *Lifecycle) Close() error {
	if !l.open {
		return ProtocolErrorf("close called on a stream that is not open")
	}
	l.open = false
	return nil
}

// IsOpen reports whether the stage is open.
func (l *Lifecycle) IsOpen() bool {
	return l.open
}

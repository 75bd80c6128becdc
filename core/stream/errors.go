// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package stream

import (
	"fmt"

	"github.com/juju/errors"
)

const (
	// ErrProtocol is the cause of every life-cycle contract violation:
	// mismatched Open/Close, items outside of an open stream, duplicate or
	// unknown sink registrations.
	ErrProtocol = errors.ConstError("stream protocol violation")

	// ErrRouting is the cause of every routing failure: a key that could
	// not be derived, or a populate callback that did not create the entry
	// it was asked for.
	ErrRouting = errors.ConstError("routing failure")
)

// ProtocolErrorf returns an error describing a protocol violation. The
// returned error satisfies errors.Is(err, ErrProtocol).
func ProtocolErrorf(format string, args ...interface{}) error {
	return errors.Annotatef(ErrProtocol, format, args...)
}

// RoutingErrorf returns an error describing a routing failure. The returned
// error satisfies errors.Is(err, ErrRouting).
func RoutingErrorf(format string, args ...interface{}) error {
	return errors.Annotatef(ErrRouting, format, args...)
}

// RoutingFailure returns a routing failure caused by err. The returned error
// satisfies both errors.Is(err, ErrRouting) and errors.Is with any target
// that err itself matches.
func RoutingFailure(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &routingError{
		msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

type routingError struct {
	msg   string
	cause error
}

// Error implements error.
func (e *routingError) Error() string {
	return e.msg + ": " + e.cause.Error() + ": " + ErrRouting.Error()
}

// Unwrap returns both causes of the failure.
func (e *routingError) Unwrap() []error {
	return []error{ErrRouting, e.cause}
}

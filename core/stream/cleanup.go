// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package stream

import (
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("logdemux.stream")

// Closer is anything with a Close method, which includes every ObjectSink.
type Closer interface {
	Close() error
}

// QuietClose closes c and logs, rather than returns, any error. It is for
// cleanup while another error is already being returned, which must not be
// replaced by a secondary failure.
func QuietClose(c Closer, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Debugf("ignoring error closing %s: %v", what, err)
	}
}

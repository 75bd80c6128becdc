// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package linesource provides blocking line sources: one reading an
// io.Reader, and one following several files at once and multiplexing
// their lines the way tail(1) does, with a "==> name <==" header line
// whenever the file being reported changes.
package linesource

import (
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("logdemux.linesource")

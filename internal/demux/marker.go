// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package demux

import (
	"fmt"
	"strings"
)

const (
	markerPrefix = "==> "
	markerSuffix = " <=="
)

// ParseMarker reports whether line is a source switch marker of the form
// "==> name <==", and if so returns the name. A name made only of white
// space does not make a marker.
func ParseMarker(line string) (string, bool) {
	if len(line) <= len(markerPrefix)+len(markerSuffix) {
		return "", false
	}
	if !strings.HasPrefix(line, markerPrefix) || !strings.HasSuffix(line, markerSuffix) {
		return "", false
	}
	name := line[len(markerPrefix) : len(line)-len(markerSuffix)]
	if strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

// Marker returns the switch marker line for name.
func Marker(name string) string {
	return fmt.Sprintf("%s%s%s", markerPrefix, name, markerSuffix)
}

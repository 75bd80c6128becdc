// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package levelsplit provides a demultiplexer target that splits the
// lines of one source by the logging severity they name.
package levelsplit

import (
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/juju/logdemux/internal/demux"
	"github.com/juju/logdemux/internal/stream/registry"
	"github.com/juju/logdemux/internal/stream/router"
)

// levelFields is how many leading fields of a line are searched for a
// severity. Juju log lines put it after the entity and timestamp.
const levelFields = 5

// Level returns the severity named in a log line such as
// "machine-0: 2026-03-01 12:00:00 ERROR juju.worker.uniter failed".
func Level(line string) (loggo.Level, bool) {
	fields := strings.Fields(line)
	if len(fields) > levelFields {
		fields = fields[:levelFields]
	}
	for _, field := range fields {
		if field != strings.ToUpper(field) {
			continue
		}
		if level, ok := loggo.ParseLevel(field); ok && level != loggo.UNSPECIFIED {
			return level, true
		}
	}
	return loggo.UNSPECIFIED, false
}

// CreateFunc creates the target for one severity of a source.
type CreateFunc func(source string, level loggo.Level) (demux.Target, error)

// Splitter is a demux.Target that sends each line to a target for its
// severity, created the first time that severity is seen. Lines naming no
// severity, such as the continuation of a multi-line message, follow the
// line before them. Flushes go to every severity target.
type Splitter struct {
	*router.Router[string, demux.Flush, loggo.Level]

	targets *registry.Registry[loggo.Level, demux.Target]
	last    loggo.Level
}

// New returns a splitter for the named source.
func New(source string, create CreateFunc) (*Splitter, error) {
	if create == nil {
		return nil, errors.NotValidf("nil CreateFunc")
	}
	s := &Splitter{
		targets: registry.New[loggo.Level, demux.Target](),
	}
	r, err := router.New[string, demux.Flush, loggo.Level](router.Funcs[string, demux.Flush, loggo.Level]{
		ItemKeyFunc:        s.itemKey,
		NoSeparatorKeyFunc: router.BroadcastSeparator[string, demux.Flush, loggo.Level],
		PopulateFunc: router.PopulateFromRegistry[string, demux.Flush](s.targets, func(level loggo.Level) (demux.Target, error) {
			return create(source, level)
		}),
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	s.Router = r
	return s, nil
}

// Factory returns a demux.TargetFactory creating a splitter per source.
func Factory(create CreateFunc) demux.TargetFactory {
	return func(name string) (demux.Target, error) {
		return New(name, create)
	}
}

// Levels returns the severities seen so far, in ascending order.
func (s *Splitter) Levels() []loggo.Level {
	return s.Keys()
}

func (s *Splitter) itemKey(line string) (loggo.Level, bool, error) {
	if level, ok := Level(line); ok {
		s.last = level
		return level, true, nil
	}
	return s.last, s.last != loggo.UNSPECIFIED, nil
}

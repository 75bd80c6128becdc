// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package demux

import (
	"time"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/yaml.v2"
)

const (
	flushTimeKey = "flush-time"
	targetsKey   = "targets"
)

// Settings describes a demultiplexer setup.
type Settings struct {
	// FlushTime is zero if the settings do not specify one.
	FlushTime time.Duration

	// Targets holds the source names to create targets for, in order.
	Targets []string
}

var settingsChecker = schema.FieldMap(
	schema.Fields{
		flushTimeKey: schema.TimeDuration(),
		targetsKey:   schema.List(schema.String()),
	},
	schema.Defaults{
		flushTimeKey: schema.Omit,
	},
)

// ParseSettings reads YAML settings such as:
//
//	flush-time: 5s
//	targets: [machine-0.log, machine-1.log]
func ParseSettings(data []byte) (Settings, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Settings{}, errors.Annotate(err, "parsing demultiplexer settings")
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	coerced, err := settingsChecker.Coerce(raw, nil)
	if err != nil {
		return Settings{}, errors.Annotate(err, "demultiplexer settings schema check failed")
	}
	valid := coerced.(map[string]interface{})

	var settings Settings
	if flushTime, ok := valid[flushTimeKey]; ok {
		settings.FlushTime = flushTime.(time.Duration)
	}
	for _, name := range valid[targetsKey].([]interface{}) {
		settings.Targets = append(settings.Targets, name.(string))
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, errors.Trace(err)
	}
	return settings, nil
}

// Validate returns an error if the settings cannot be applied.
func (s Settings) Validate() error {
	if s.FlushTime < 0 {
		return errors.NotValidf("negative flush time %v", s.FlushTime)
	}
	if len(s.Targets) == 0 {
		return errors.NotValidf("settings without targets")
	}
	seen := set.NewStrings()
	for _, name := range s.Targets {
		if name == "" {
			return errors.NotValidf("empty target name")
		}
		if seen.Contains(name) {
			return errors.NotValidf("duplicate target %q", name)
		}
		seen.Add(name)
	}
	return nil
}

// TargetFactory creates the target for the named source. Targets it
// returns must not hold any resource until they are opened, so a target
// that is never opened can simply be dropped.
type TargetFactory func(name string) (Target, error)

// Apply sets d's flush time, if the settings have one, and adds a target
// made by factory for every named source. If any target cannot be created,
// d is left unchanged.
func (s Settings) Apply(d *Demuxer, factory TargetFactory) error {
	if err := s.Validate(); err != nil {
		return errors.Trace(err)
	}
	targets := make([]Target, len(s.Targets))
	for i, name := range s.Targets {
		t, err := factory(name)
		if err != nil {
			return errors.Annotatef(err, "creating target %q", name)
		}
		targets[i] = t
	}
	if s.FlushTime > 0 {
		if err := d.SetFlushTime(s.FlushTime); err != nil {
			return errors.Trace(err)
		}
	}
	for i, name := range s.Targets {
		if err := d.AddTarget(name, targets[i]); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

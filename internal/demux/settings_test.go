// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package demux_test

import (
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/logdemux/core/linesource/linesourcetesting"
	"github.com/juju/logdemux/internal/demux"
)

type settingsSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&settingsSuite{})

func (s *settingsSuite) TestParseSettings(c *gc.C) {
	settings, err := demux.ParseSettings([]byte(`
flush-time: 5s
targets:
  - machine-0.log
  - machine-1.log
`))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(settings, jc.DeepEquals, demux.Settings{
		FlushTime: 5 * time.Second,
		Targets:   []string{"machine-0.log", "machine-1.log"},
	})
}

func (s *settingsSuite) TestParseSettingsFlushTimeOptional(c *gc.C) {
	settings, err := demux.ParseSettings([]byte(`targets: [a]`))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(settings.FlushTime, gc.Equals, time.Duration(0))
	c.Check(settings.Targets, jc.DeepEquals, []string{"a"})
}

func (s *settingsSuite) TestParseSettingsErrors(c *gc.C) {
	for i, test := range []struct {
		yaml string
		err  string
	}{{
		yaml: ``,
		err:  `demultiplexer settings schema check failed: targets: .*`,
	}, {
		yaml: `targets: []`,
		err:  `settings without targets not valid`,
	}, {
		yaml: `targets: [a, b, a]`,
		err:  `duplicate target "a" not valid`,
	}, {
		yaml: `targets: [a, ""]`,
		err:  `empty target name not valid`,
	}, {
		yaml: "flush-time: soon\ntargets: [a]",
		err:  `demultiplexer settings schema check failed: flush-time: .*`,
	}, {
		yaml: `targets: {a: b}`,
		err:  `demultiplexer settings schema check failed: targets: expected list, got .*`,
	}, {
		yaml: `: [`,
		err:  `parsing demultiplexer settings: .*`,
	}} {
		c.Logf("test %d: %q", i, test.yaml)
		_, err := demux.ParseSettings([]byte(test.yaml))
		c.Check(err, gc.ErrorMatches, test.err)
	}
}

func (s *settingsSuite) TestApply(c *gc.C) {
	d, err := demux.NewDemuxer(demux.Config{
		Source: linesourcetesting.NewScriptSource(),
		Clock:  testclock.NewClock(t0),
		Logger: loggo.GetLogger("logdemux.demux.test"),
	})
	c.Assert(err, jc.ErrorIsNil)

	var created []string
	settings := demux.Settings{
		FlushTime: 5 * time.Second,
		Targets:   []string{"a", "b"},
	}
	err = settings.Apply(d, func(name string) (demux.Target, error) {
		created = append(created, name)
		return newRecorder(name), nil
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(created, jc.DeepEquals, []string{"a", "b"})
	c.Check(d.TargetNames(), jc.DeepEquals, []string{"a", "b"})
	c.Check(d.FlushTime(), gc.Equals, 5*time.Second)
}

func (s *settingsSuite) TestApplyFactoryError(c *gc.C) {
	d, err := demux.NewDemuxer(demux.Config{
		Source: linesourcetesting.NewScriptSource(),
		Clock:  testclock.NewClock(t0),
		Logger: loggo.GetLogger("logdemux.demux.test"),
	})
	c.Assert(err, jc.ErrorIsNil)

	settings := demux.Settings{
		FlushTime: 5 * time.Second,
		Targets:   []string{"a", "b"},
	}
	var made []*recorder
	err = settings.Apply(d, func(name string) (demux.Target, error) {
		if name == "b" {
			return nil, errors.New("no such pipeline")
		}
		rec := newRecorder(name)
		made = append(made, rec)
		return rec, nil
	})
	c.Check(err, gc.ErrorMatches, `creating target "b": no such pipeline`)

	// The demuxer is untouched and the target made for "a" was dropped.
	c.Check(d.FlushTime(), gc.Equals, demux.DefaultFlushTime)
	c.Check(d.TargetNames(), gc.HasLen, 0)
	c.Assert(made, gc.HasLen, 1)
	made[0].CheckNoCalls(c)
}

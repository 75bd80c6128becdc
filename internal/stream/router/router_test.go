// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package router_test

import (
	"fmt"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/logdemux/core/stream"
	"github.com/juju/logdemux/core/stream/streamtesting"
	"github.com/juju/logdemux/internal/stream/registry"
	"github.com/juju/logdemux/internal/stream/router"
)

type routerSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&routerSuite{})

type recorder = streamtesting.Recorder[string, string]

type testRouter = router.Router[string, string, string]

const errBadItem = errors.ConstError("bad item")

// groupKey routes "group:payload" items by group. Items without a colon
// have no key; items starting with "!" fail key derivation.
func groupKey(item string) (string, bool, error) {
	if strings.HasPrefix(item, "!") {
		return "", false, errBadItem
	}
	group, _, ok := strings.Cut(item, ":")
	return group, ok, nil
}

// populator creates one recorder per key and remembers them.
type populator struct {
	mu    sync.Mutex
	calls int
	sinks map[string]*recorder
}

func newPopulator() *populator {
	return &populator{sinks: make(map[string]*recorder)}
}

func (p *populator) populate(r *testRouter, key string) error {
	p.mu.Lock()
	p.calls++
	rec := streamtesting.NewRecorder[string, string](key)
	p.sinks[key] = rec
	p.mu.Unlock()
	return r.AddSeparatorSink(key, rec)
}

func (s *routerSuite) newRouter(c *gc.C, funcs router.Funcs[string, string, string]) *testRouter {
	r, err := router.New[string, string, string](funcs)
	c.Assert(err, jc.ErrorIsNil)
	return r
}

func (s *routerSuite) TestNilStrategy(c *gc.C) {
	_, err := router.New[string, string, string](nil)
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
}

func (s *routerSuite) TestRouteLazyPopulateAndReuse(c *gc.C) {
	p := newPopulator()
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc:  groupKey,
		PopulateFunc: p.populate,
	})
	c.Assert(r.Open(), jc.ErrorIsNil)

	for _, item := range []string{"a:1", "b:1", "a:2", "a:3", "b:2"} {
		c.Assert(r.Item(item), jc.ErrorIsNil)
	}

	c.Check(p.calls, gc.Equals, 2)
	c.Check(r.Keys(), jc.DeepEquals, []string{"a", "b"})
	c.Check(p.sinks["a"].Items(), jc.DeepEquals, []string{"a:1", "a:2", "a:3"})
	c.Check(p.sinks["b"].Items(), jc.DeepEquals, []string{"b:1", "b:2"})

	// Lazily created sinks are opened on registration.
	c.Check(p.sinks["a"].CallNames()[0], gc.Equals, "Open")

	c.Assert(r.Close(), jc.ErrorIsNil)
	p.sinks["a"].CheckCallNames(c, "Open", "Item", "Item", "Item", "Close")
	p.sinks["b"].CheckCallNames(c, "Open", "Item", "Item", "Close")
}

func (s *routerSuite) TestRoutingDeterminism(c *gc.C) {
	p := newPopulator()
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc:  groupKey,
		PopulateFunc: p.populate,
	})
	c.Assert(r.Open(), jc.ErrorIsNil)

	c.Assert(r.Route("k:first"), jc.ErrorIsNil)
	first := p.sinks["k"]
	c.Assert(r.Route("k:second"), jc.ErrorIsNil)

	c.Check(p.sinks["k"], gc.Equals, first)
	c.Check(first.Items(), jc.DeepEquals, []string{"k:first", "k:second"})
}

func (s *routerSuite) TestPopulateMustRegisterKey(c *gc.C) {
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc: groupKey,
		PopulateFunc: func(r *testRouter, key string) error {
			return nil
		},
	})
	c.Assert(r.Open(), jc.ErrorIsNil)

	err := r.Item("a:1")
	c.Assert(err, gc.ErrorMatches, `populate did not register key a: routing failure`)
	c.Check(errors.Is(err, stream.ErrRouting), jc.IsTrue)
}

func (s *routerSuite) TestPopulateError(c *gc.C) {
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc: groupKey,
		PopulateFunc: func(r *testRouter, key string) error {
			return errors.New("no collectors")
		},
	})
	c.Assert(r.Open(), jc.ErrorIsNil)

	err := r.Item("a:1")
	c.Assert(err, gc.ErrorMatches, `populating key a: no collectors`)
}

func (s *routerSuite) TestDefaultPopulateRegistersEmptyEntry(c *gc.C) {
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc: groupKey,
	})
	c.Assert(r.Open(), jc.ErrorIsNil)

	c.Assert(r.Item("a:1"), jc.ErrorIsNil)
	c.Check(r.Keys(), jc.DeepEquals, []string{"a"})
}

func (s *routerSuite) TestKeyDerivationError(c *gc.C) {
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc: groupKey,
	})
	c.Assert(r.Open(), jc.ErrorIsNil)

	err := r.Item("!broken")
	c.Assert(err, gc.ErrorMatches, `deriving item key: bad item: routing failure`)
	c.Check(errors.Is(err, stream.ErrRouting), jc.IsTrue)
	c.Check(errors.Is(err, errBadItem), jc.IsTrue)
}

func (s *routerSuite) TestNoKeyDroppedByDefault(c *gc.C) {
	p := newPopulator()
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc:  groupKey,
		PopulateFunc: p.populate,
	})
	c.Assert(r.Open(), jc.ErrorIsNil)
	c.Assert(r.Item("a:1"), jc.ErrorIsNil)
	c.Assert(r.Item("nokey"), jc.ErrorIsNil)

	c.Check(p.sinks["a"].Items(), jc.DeepEquals, []string{"a:1"})
}

func (s *routerSuite) TestNoKeyBroadcast(c *gc.C) {
	p := newPopulator()
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc:        groupKey,
		PopulateFunc:       p.populate,
		NoItemKeyFunc:      router.BroadcastItem[string, string, string],
		NoSeparatorKeyFunc: router.BroadcastSeparator[string, string, string],
	})
	c.Assert(r.Open(), jc.ErrorIsNil)
	c.Assert(r.Item("a:1"), jc.ErrorIsNil)
	c.Assert(r.Item("b:1"), jc.ErrorIsNil)
	c.Assert(r.Item("everyone"), jc.ErrorIsNil)
	c.Assert(r.Separator("flush"), jc.ErrorIsNil)

	c.Check(p.sinks["a"].Items(), jc.DeepEquals, []string{"a:1", "everyone"})
	c.Check(p.sinks["b"].Items(), jc.DeepEquals, []string{"b:1", "everyone"})
	c.Check(p.sinks["a"].Separators(), jc.DeepEquals, []string{"flush"})
	c.Check(p.sinks["b"].Separators(), jc.DeepEquals, []string{"flush"})
}

func (s *routerSuite) TestSeparatorRouting(c *gc.C) {
	p := newPopulator()
	plain := streamtesting.NewObjectRecorder[string]("plain")
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc:      groupKey,
		SeparatorKeyFunc: groupKey,
		PopulateFunc: func(r *testRouter, key string) error {
			if err := p.populate(r, key); err != nil {
				return err
			}
			return r.AddSink(key, plain)
		},
	})
	c.Assert(r.Open(), jc.ErrorIsNil)

	// The separator arrives first, so it populates the key.
	c.Assert(r.Separator("a:gap"), jc.ErrorIsNil)
	c.Assert(r.Item("a:1"), jc.ErrorIsNil)
	c.Assert(r.Separator("a:gap2"), jc.ErrorIsNil)

	p.sinks["a"].CheckCallNames(c, "Open", "Separator", "Item", "Separator")
	c.Check(plain.CallNames(), jc.DeepEquals, []string{"Open", "Item"})
}

func (s *routerSuite) TestSinkUnderSeveralKeysOpenedAndClosedOnce(c *gc.C) {
	shared := streamtesting.NewRecorder[string, string]("shared")
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc: groupKey,
	})
	c.Assert(r.AddSeparatorSink("a", shared), jc.ErrorIsNil)
	c.Assert(r.AddSeparatorSink("b", shared), jc.ErrorIsNil)
	c.Assert(r.AddSeparatorSink("a", shared), jc.ErrorIsNil)

	c.Assert(r.Open(), jc.ErrorIsNil)
	c.Assert(r.Item("a:1"), jc.ErrorIsNil)
	c.Assert(r.Item("b:1"), jc.ErrorIsNil)
	c.Assert(r.BroadcastItem("all"), jc.ErrorIsNil)
	c.Assert(r.Close(), jc.ErrorIsNil)

	shared.CheckCallNames(c, "Open", "Item", "Item", "Item", "Close")
	c.Check(shared.Items(), jc.DeepEquals, []string{"a:1", "b:1", "all"})
}

func (s *routerSuite) TestPromotePlainSinkToSeparatorSink(c *gc.C) {
	rec := streamtesting.NewRecorder[string, string]("rec")
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc:      groupKey,
		SeparatorKeyFunc: groupKey,
	})
	c.Assert(r.AddSink("a", rec), jc.ErrorIsNil)
	c.Assert(r.AddSeparatorSink("a", rec), jc.ErrorIsNil)

	c.Assert(r.Open(), jc.ErrorIsNil)
	c.Assert(r.Item("a:1"), jc.ErrorIsNil)
	c.Assert(r.Separator("a:gap"), jc.ErrorIsNil)

	// Delivered once, not once per role.
	rec.CheckCallNames(c, "Open", "Item", "Separator")
}

func (s *routerSuite) TestProtocolViolations(c *gc.C) {
	r := s.newRouter(c, router.Funcs[string, string, string]{})
	c.Check(errors.Is(r.Item("a:1"), stream.ErrProtocol), jc.IsTrue)
	c.Check(errors.Is(r.Separator("a:1"), stream.ErrProtocol), jc.IsTrue)
	c.Check(errors.Is(r.Close(), stream.ErrProtocol), jc.IsTrue)
	c.Assert(r.Open(), jc.ErrorIsNil)
	c.Check(errors.Is(r.Open(), stream.ErrProtocol), jc.IsTrue)
}

func (s *routerSuite) TestSinkErrorSurfaced(c *gc.C) {
	rec := streamtesting.NewRecorder[string, string]("rec")
	rec.SetErrors(nil, errors.New("disk full"))
	r := s.newRouter(c, router.Funcs[string, string, string]{
		ItemKeyFunc: groupKey,
	})
	c.Assert(r.AddSeparatorSink("a", rec), jc.ErrorIsNil)
	c.Assert(r.Open(), jc.ErrorIsNil)

	err := r.Item("a:1")
	c.Assert(err, gc.ErrorMatches, `routing item with key a: disk full`)
}

func (s *routerSuite) TestRegistrySharesSinksBetweenRouters(c *gc.C) {
	reg := registry.New[string, *recorder]()
	created := 0
	populate := router.PopulateFromRegistry[string, string, string, *recorder](reg,
		func(key string) (*recorder, error) {
			created++
			return streamtesting.NewRecorder[string, string](key), nil
		},
	)

	r1 := s.newRouter(c, router.Funcs[string, string, string]{ItemKeyFunc: groupKey, PopulateFunc: populate})
	r2 := s.newRouter(c, router.Funcs[string, string, string]{ItemKeyFunc: groupKey, PopulateFunc: populate})
	c.Assert(r1.Route("a:from-r1"), jc.ErrorIsNil)
	c.Assert(r2.Route("a:from-r2"), jc.ErrorIsNil)

	c.Check(created, gc.Equals, 1)
	sink, ok := reg.Get("a")
	c.Assert(ok, jc.IsTrue)
	c.Check(sink.Items(), jc.DeepEquals, []string{"a:from-r1", "a:from-r2"})
}

func (s *routerSuite) TestConcurrentAddSinks(c *gc.C) {
	r := s.newRouter(c, router.Funcs[string, string, string]{ItemKeyFunc: groupKey})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := streamtesting.NewRecorder[string, string](fmt.Sprint(i))
			c.Check(r.AddSeparatorSink(fmt.Sprintf("k%d", i%3), rec), jc.ErrorIsNil)
		}(i)
	}
	wg.Wait()
	c.Check(r.Keys(), jc.DeepEquals, []string{"k0", "k1", "k2"})
}

func (s *routerSuite) TestOpenErrorClosesOpenedSinks(c *gc.C) {
	r := s.newRouter(c, router.Funcs[string, string, string]{ItemKeyFunc: groupKey})
	a := streamtesting.NewRecorder[string, string]("a")
	b := streamtesting.NewRecorder[string, string]("b")
	c.Assert(r.AddSeparatorSink("a", a), jc.ErrorIsNil)
	c.Assert(r.AddSeparatorSink("b", b), jc.ErrorIsNil)
	b.SetErrors(errors.New("no room"))

	err := r.Open()
	c.Check(err, gc.ErrorMatches, `opening sink .*: no room`)
	a.CheckCallNames(c, "Open", "Close")
	b.CheckCallNames(c, "Open")

	// The router is closed again, so it can be reopened but not closed.
	c.Check(errors.Is(r.Close(), stream.ErrProtocol), jc.IsTrue)
	c.Assert(r.Open(), jc.ErrorIsNil)
	a.CheckCallNames(c, "Open", "Close", "Open")
	b.CheckCallNames(c, "Open", "Open")
}

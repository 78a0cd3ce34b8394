package engine

import (
	"errors"
	"runtime"
	"strconv"
	"testing"
	"time"

	"mad-engine/internal/config"
)

type testOp struct {
	index int
	delay uint64
}

func (o testOp) Index() int { return o.index }

type testRecord struct {
	Worker int
	Index  int
}

func (r testRecord) Format() []string {
	return []string{strconv.Itoa(r.Worker), strconv.Itoa(r.Index)}
}

type testNode struct {
	Data int
}

type testCarrier struct {
	size     int
	nodes    []testNode
	allocErr error
}

func (c *testCarrier) Allocate() error {
	if c.allocErr != nil {
		return c.allocErr
	}
	c.nodes = make([]testNode, c.size)
	return nil
}

func (c *testCarrier) ModelSize() int { return c.size }

// executed is one work item as seen by the worker that ran it.
type executed struct {
	tick   uint64
	worker int
	op     testOp
}

// testModel records every item it runs and optionally streams work.
type testModel struct {
	id      int
	carrier *testCarrier

	ran         []executed
	finalized   int
	initialized int
	stream      func(tick uint64, cb *Callback[testOp])
	process     func(m *testModel, tick uint64, item WorkItem[testOp], cb *Callback[testOp])
	setup       func(tick uint64, cb *Callback[testOp])
}

func (m *testModel) Process(s Sinks[testRecord], tick uint64, work []WorkItem[testOp], cb *Callback[testOp]) {
	for _, item := range work {
		m.carrier.nodes[item.Op.index].Data += m.id
		m.ran = append(m.ran, executed{tick: tick, worker: m.id, op: item.Op})
		s.Record.Record(testRecord{Worker: m.id, Index: item.Op.index})
		if m.process != nil {
			m.process(m, tick, item, cb)
		}
	}
}

func (m *testModel) Initialize(s Sinks[testRecord], tick uint64, cb *Callback[testOp]) {
	m.initialized++
	if m.setup != nil {
		m.setup(tick, cb)
	}
}

func (m *testModel) Finalize(s Sinks[testRecord], tick uint64) {
	m.finalized++
	s.Log.Info().Uint64("tick", tick).Log("finalized")
}

// streamingModel adds StreamNewInput on top of testModel.
type streamingModel struct {
	*testModel
}

func (m streamingModel) StreamNewInput(s Sinks[testRecord], tick uint64, cb *Callback[testOp]) {
	if m.stream != nil {
		m.stream(tick, cb)
	}
}

// modelSet collects the models built by a factory so tests can inspect them
// after the engine stopped.
type modelSet struct {
	models  map[int]*testModel
	stream  func(tick uint64, cb *Callback[testOp])
	process func(m *testModel, tick uint64, item WorkItem[testOp], cb *Callback[testOp])
	setup   func(tick uint64, cb *Callback[testOp])
	failID  int
}

func newModelSet() *modelSet { return &modelSet{models: map[int]*testModel{}} }

func (s *modelSet) factory(id int, carrier Carrier, _ config.Map) (Model[testOp, testRecord], error) {
	if s.failID != 0 && id == s.failID {
		return nil, errors.New("no model for you")
	}
	m := &testModel{id: id, carrier: carrier.(*testCarrier), process: s.process, setup: s.setup}
	s.models[id] = m
	if s.stream != nil {
		m.stream = s.stream
		return streamingModel{m}, nil
	}
	return m, nil
}

// ran returns everything every worker executed.
func (s *modelSet) ran() []executed {
	var all []executed
	for _, m := range s.models {
		all = append(all, m.ran...)
	}
	return all
}

// newTestContext builds a context with worker contexts but no goroutines.
func newTestContext(workers, size int) *Context[testOp, testRecord] {
	c := NewContext[testOp, testRecord](workers, time.Millisecond, nil, nil)
	c.CreateContexts(size)
	return c
}

// checkNumGoroutines fails the test if goroutines started during the test
// are still running shortly after it finished.
func checkNumGoroutines(t *testing.T) func() {
	t.Helper()
	before := runtime.NumGoroutine()
	return func() {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			n := runtime.NumGoroutine()
			if n <= before {
				return
			}
			if time.Now().After(deadline) {
				t.Errorf("goroutines leaked: %d before, %d after", before, n)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mad-engine/internal/config"
	"mad-engine/internal/diag"
)

func testConfig(workers int, ticks uint64) Config {
	c := DefaultConfig()
	c.Workers = workers
	c.TickLimit = ticks
	c.LogLevel = diag.LevelDiagnostic
	return c
}

func runToEnd(t *testing.T, e *Engine[testOp, testRecord]) {
	t.Helper()
	require.NoError(t, e.Run(context.Background()))
	select {
	case <-e.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestEngineIdleModel(t *testing.T) {
	defer checkNumGoroutines(t)()

	set := newModelSet()
	set.stream = func(tick uint64, cb *Callback[testOp]) {
		if tick == 0 {
			cb.Schedule(testOp{index: 0})
		}
	}
	carrier := &testCarrier{size: 16}
	e := New(carrier, set.factory, nil, testConfig(3, 10), Options[testOp]{})
	runToEnd(t, e)

	stats := e.Stats()
	require.NoError(t, stats.Err)
	assert.Equal(t, uint64(10), stats.Iterations)
	assert.Equal(t, uint64(1), stats.TotalWork)
	assert.Equal(t, StateStopped, e.State())
	assert.GreaterOrEqual(t, carrier.nodes[0].Data, 1)
	assert.LessOrEqual(t, carrier.nodes[0].Data, 3)
}

func TestEngineQuitBeforeFirstTick(t *testing.T) {
	defer checkNumGoroutines(t)()

	cfg := testConfig(2, 0)
	cfg.Period = time.Second
	e := New(&testCarrier{size: 4}, newModelSet().factory, nil, cfg, Options[testOp]{})
	require.NoError(t, e.Run(context.Background()))

	stats := e.WaitForQuit()
	assert.Zero(t, stats.Iterations)
	assert.Zero(t, stats.TotalWork)
	assert.NoError(t, stats.Err)
}

func TestEngineWorkerCount(t *testing.T) {
	e := New(&testCarrier{size: 4}, newModelSet().factory, nil, testConfig(0, 1), Options[testOp]{})
	assert.Equal(t, DefaultWorkerCount(), e.WorkerCount())
	assert.GreaterOrEqual(t, e.WorkerCount(), 1)

	e = New(&testCarrier{size: 4}, newModelSet().factory, nil, testConfig(5, 1), Options[testOp]{})
	assert.Equal(t, 5, e.WorkerCount())
}

func TestEngineDelayTiming(t *testing.T) {
	for _, policy := range []Policy{PolicyAdaptive, PolicyConstant} {
		for delay := uint64(1); delay <= 6; delay++ {
			t.Run(fmt.Sprintf("%s/%d", policy, delay), func(t *testing.T) {
				defer checkNumGoroutines(t)()

				set := newModelSet()
				set.process = func(m *testModel, tick uint64, item WorkItem[testOp], cb *Callback[testOp]) {
					cb.ScheduleIn(item.Op, item.Op.delay)
				}
				cfg := testConfig(3, 3*delay+1)
				cfg.Policy = policy
				e := New(&testCarrier{size: 30}, set.factory, nil, cfg, Options[testOp]{
					Inject: func(cb *Callback[testOp]) {
						cb.ScheduleIn(testOp{index: 17, delay: delay}, delay)
					},
				})
				runToEnd(t, e)
				require.NoError(t, e.Err())

				var ticks []uint64
				for _, x := range set.ran() {
					ticks = append(ticks, x.tick)
				}
				assert.ElementsMatch(t, []uint64{delay, 2 * delay, 3 * delay}, ticks, "delay %d", delay)
			})
		}
	}
}

func TestEngineNeverSplitsAnIndexWithinATick(t *testing.T) {
	defer checkNumGoroutines(t)()

	set := newModelSet()
	set.stream = func(tick uint64, cb *Callback[testOp]) {
		for i := range 40 {
			cb.ScheduleIn(testOp{index: (i * 7) % 13}, uint64(1+i%3))
		}
	}
	e := New(&testCarrier{size: 13}, set.factory, nil, testConfig(4, 30), Options[testOp]{})
	runToEnd(t, e)
	require.NoError(t, e.Err())

	owner := map[[2]uint64]int{}
	for _, x := range set.ran() {
		key := [2]uint64{x.tick, uint64(x.op.index)}
		if id, ok := owner[key]; ok {
			assert.Equal(t, id, x.worker, "tick %d index %d", x.tick, x.op.index)
		}
		owner[key] = x.worker
	}
	assert.LessOrEqual(t, uint64(len(set.ran())), e.TotalWork())
}

func TestEngineAllocateFailure(t *testing.T) {
	defer checkNumGoroutines(t)()

	set := newModelSet()
	e := New(&testCarrier{size: 4, allocErr: errors.New("out of memory")}, set.factory, nil, testConfig(2, 5), Options[testOp]{})
	err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrInitialize)
	assert.Contains(t, err.Error(), "out of memory")
	assert.Equal(t, StateStopped, e.State())
	assert.Zero(t, e.Iterations())
	assert.Empty(t, set.models)
}

func TestEngineFactoryFailure(t *testing.T) {
	defer checkNumGoroutines(t)()

	set := newModelSet()
	set.failID = 2
	e := New(&testCarrier{size: 4}, set.factory, nil, testConfig(3, 5), Options[testOp]{})
	err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrInitialize)
	assert.Zero(t, e.Iterations())
	assert.Zero(t, set.models[1].finalized)
}

func TestEngineSetupFailure(t *testing.T) {
	defer checkNumGoroutines(t)()

	e := New(&testCarrier{size: 4}, newModelSet().factory, nil, testConfig(1, 5), Options[testOp]{
		Setup: func() error { return errors.New("no initializer") },
	})
	require.ErrorIs(t, e.Run(context.Background()), ErrInitialize)
}

func TestEngineWorkerPanic(t *testing.T) {
	defer checkNumGoroutines(t)()

	set := newModelSet()
	set.process = func(m *testModel, tick uint64, item WorkItem[testOp], cb *Callback[testOp]) {
		if tick == 3 {
			panic("bad cell")
		}
		cb.Schedule(item.Op)
	}
	cfg := testConfig(2, 100)
	cfg.LogFile = filepath.Join(t.TempDir(), "logs", "run.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755))
	e := New(&testCarrier{size: 8}, set.factory, nil, cfg, Options[testOp]{
		Inject: func(cb *Callback[testOp]) { cb.Schedule(testOp{index: 6}) },
	})
	runToEnd(t, e)

	stats := e.Stats()
	require.ErrorIs(t, stats.Err, ErrWorkerPanic)
	assert.Equal(t, uint64(3), stats.Iterations)

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "engine stopped unexpectedly")
	assert.Contains(t, string(data), "bad cell")
}

func TestEngineInject(t *testing.T) {
	defer checkNumGoroutines(t)()

	set := newModelSet()
	e := New(&testCarrier{size: 8}, set.factory, nil, testConfig(2, 200), Options[testOp]{})
	assert.ErrorIs(t, e.Inject(func(*Callback[testOp]) {}), ErrNotRunning)

	require.NoError(t, e.Run(context.Background()))
	require.NoError(t, e.Inject(func(cb *Callback[testOp]) { cb.Schedule(testOp{index: 7}) }))
	<-e.Done()

	assert.ErrorIs(t, e.Inject(func(*Callback[testOp]) {}), ErrNotRunning)
	require.Len(t, set.ran(), 1)
	assert.Equal(t, 7, set.ran()[0].op.index)
}

func TestEngineRunTwice(t *testing.T) {
	defer checkNumGoroutines(t)()

	e := New(&testCarrier{size: 4}, newModelSet().factory, nil, testConfig(1, 2), Options[testOp]{})
	require.NoError(t, e.Run(context.Background()))
	assert.ErrorIs(t, e.Run(context.Background()), ErrStarted)
	e.WaitForQuit()
}

func TestEngineCancelContext(t *testing.T) {
	defer checkNumGoroutines(t)()

	ctx, cancel := context.WithCancel(context.Background())
	e := New(&testCarrier{size: 4}, newModelSet().factory, nil, testConfig(2, 0), Options[testOp]{})
	require.NoError(t, e.Run(ctx))
	cancel()
	select {
	case <-e.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not stop the engine")
	}
	assert.Equal(t, StateStopped, e.State())
}

func TestEngineFinalizeAndRecords(t *testing.T) {
	defer checkNumGoroutines(t)()

	set := newModelSet()
	set.process = func(m *testModel, tick uint64, item WorkItem[testOp], cb *Callback[testOp]) {
		cb.ScheduleIn(testOp{index: (item.Op.index + 1) % 12}, 2)
	}
	cfg := testConfig(3, 20)
	cfg.RecordFile = filepath.Join(t.TempDir(), "out", "records.csv")
	e := New(&testCarrier{size: 12}, set.factory, nil, cfg, Options[testOp]{
		Header: []string{"worker", "index"},
		Inject: func(cb *Callback[testOp]) {
			cb.Schedule(testOp{index: 0})
			cb.Schedule(testOp{index: 6})
		},
	})
	runToEnd(t, e)
	require.NoError(t, e.Err())

	assert.Equal(t, 1, set.models[1].finalized)
	for id, m := range set.models {
		if id != 1 {
			assert.Zero(t, m.finalized, "model %d", id)
		}
	}

	f, err := os.Open(cfg.RecordFile)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"tick", "time", "worker", "index"}, rows[0])
	assert.Len(t, rows[1:], len(set.ran()))
	assert.Equal(t, e.Book().Len(), len(rows)-1)
}

func TestEngineInitializeRunsOnFirstWorker(t *testing.T) {
	defer checkNumGoroutines(t)()

	set := newModelSet()
	set.setup = func(tick uint64, cb *Callback[testOp]) {
		cb.Schedule(testOp{index: 3})
		cb.ScheduleIn(testOp{index: 9}, 4)
	}
	e := New(&testCarrier{size: 12}, set.factory, nil, testConfig(3, 6), Options[testOp]{})
	runToEnd(t, e)
	require.NoError(t, e.Err())

	assert.Equal(t, 1, set.models[1].initialized)
	for id, m := range set.models {
		if id != 1 {
			assert.Zero(t, m.initialized, "model %d", id)
		}
	}
	var got []executed
	for _, x := range set.ran() {
		got = append(got, executed{tick: x.tick, op: x.op})
	}
	assert.ElementsMatch(t, []executed{
		{tick: 1, op: testOp{index: 3}},
		{tick: 4, op: testOp{index: 9}},
	}, got)
}

func TestEngineInitializePanicFailsStart(t *testing.T) {
	defer checkNumGoroutines(t)()

	set := newModelSet()
	set.setup = func(uint64, *Callback[testOp]) { panic("no setup") }
	e := New(&testCarrier{size: 4}, set.factory, nil, testConfig(2, 5), Options[testOp]{})
	err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrInitialize)
	assert.ErrorIs(t, err, ErrWorkerPanic)
	<-e.Done()
	assert.Zero(t, set.models[1].finalized)
}

func TestEngineInspect(t *testing.T) {
	defer checkNumGoroutines(t)()

	set := newModelSet()
	set.stream = func(tick uint64, cb *Callback[testOp]) { cb.Schedule(testOp{index: 1}) }
	carrier := &testCarrier{size: 4}
	e := New(carrier, set.factory, nil, testConfig(1, 0), Options[testOp]{})
	require.NoError(t, e.Run(context.Background()))

	time.Sleep(20 * time.Millisecond)
	var seen int
	e.Inspect(func() { seen = carrier.nodes[1].Data })
	stats := e.WaitForQuit()
	assert.Positive(t, seen)
	assert.LessOrEqual(t, uint64(seen), stats.TotalWork)
}

func TestConfigFromMap(t *testing.T) {
	cfg, err := ConfigFromMap(config.Map{
		config.KeyModelTicks:     "250",
		config.KeyWorkers:        "3",
		config.KeyPolicy:         "constant",
		config.KeyTickLimit:      "40",
		config.KeyRecordLocation: "out",
		config.KeyRecordFile:     "run.csv",
		config.KeyLogLevel:       diag.LevelDiagnostic,
	})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Microsecond, cfg.Period)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, PolicyConstant, cfg.Policy)
	assert.Equal(t, uint64(40), cfg.TickLimit)
	assert.Equal(t, filepath.Join("out", "run.csv"), cfg.RecordFile)

	cfg, err = ConfigFromMap(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = ConfigFromMap(config.Map{config.KeyWorkers: "-1"})
	assert.Error(t, err)
	_, err = ConfigFromMap(config.Map{config.KeyPolicy: "random"})
	assert.Error(t, err)
}

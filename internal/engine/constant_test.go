package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantRoutesByRange(t *testing.T) {
	c := newTestContext(2, 10)
	p := NewConstantWidthPartitioner(c)
	cb := c.External.Callback()
	for _, i := range []int{0, 4, 5, 9, 3} {
		cb.Schedule(testOp{index: i})
	}

	assert.Equal(t, 5, partitionTicks(p, c, 1))
	indices := func(wc *WorkerContext[testOp, testRecord]) []int {
		var out []int
		for _, item := range wc.WorkForThread {
			out = append(out, item.Op.index)
		}
		return out
	}
	assert.ElementsMatch(t, []int{0, 4, 3}, indices(c.Contexts[0]))
	assert.ElementsMatch(t, []int{5, 9}, indices(c.Contexts[1]))
}

func TestConstantKeepsFutureWork(t *testing.T) {
	c := newTestContext(2, 10)
	p := NewConstantWidthPartitioner(c)
	c.Contexts[0].Callback().ScheduleIn(testOp{index: 8}, 4)

	// scheduled at tick 0 with delay 4: dispatched at the end of tick 3
	for tick := range 3 {
		require.Zero(t, partitionTicks(p, c, 1), "tick %d", tick)
		assert.Len(t, p.Backlog(), min(tick, 1))
	}
	assert.Equal(t, 1, partitionTicks(p, c, 1))
	require.Len(t, c.Contexts[1].WorkForThread, 1)
	assert.Empty(t, p.Backlog())
}

func TestConstantDropsOutOfRange(t *testing.T) {
	c := newTestContext(2, 10)
	p := NewConstantWidthPartitioner(c)
	cb := c.External.Callback()
	cb.Schedule(testOp{index: 99})
	cb.Schedule(testOp{index: 1})

	assert.Equal(t, 1, partitionTicks(p, c, 1))
	assert.Equal(t, 1, p.Dropped())
	assert.Equal(t, uint64(1), c.TotalWork())
}

func TestConstantClearsPreviousAssignment(t *testing.T) {
	c := newTestContext(2, 10)
	p := NewConstantWidthPartitioner(c)
	c.External.Callback().Schedule(testOp{index: 1})

	require.Equal(t, 1, partitionTicks(p, c, 1))
	require.Len(t, c.Contexts[0].WorkForThread, 1)
	assert.Zero(t, partitionTicks(p, c, 1))
	assert.Empty(t, c.Contexts[0].WorkForThread)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicyAdaptive, "Adaptive": PolicyAdaptive, " constant ": PolicyConstant} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParsePolicy("greedy")
	assert.Error(t, err)

	c := newTestContext(1, 1)
	assert.IsType(t, &ConstantWidthPartitioner[testOp, testRecord]{}, NewPartitioner(PolicyConstant, c))
	assert.IsType(t, &AdaptiveWidthPartitioner[testOp, testRecord]{}, NewPartitioner(PolicyAdaptive, c))
}

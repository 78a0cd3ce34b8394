package briansbrain

import (
	"context"
	"testing"

	"mad-engine/internal/config"
)

func runBrain(t *testing.T, ticks string) *Brain {
	t.Helper()
	r, err := NewRunner(config.Map{
		config.KeyWidth:       "8",
		config.KeyHeight:      "8",
		config.KeyInitializer: "pair",
		config.KeyTickLimit:   ticks,
		config.KeyWorkers:     "2",
		config.KeyModelTicks:  "100",
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-r.Done()
	if stats := r.Wait(); stats.Err != nil {
		t.Fatalf("run failed: %v", stats.Err)
	}
	return r.Carrier().(*Brain)
}

func TestPairBirth(t *testing.T) {
	b := runBrain(t, "3")
	want := map[[2]int]uint8{
		{4, 4}: StateDying,
		{5, 4}: StateDying,
		{4, 3}: StateOn,
		{5, 3}: StateOn,
		{4, 5}: StateOn,
		{5, 5}: StateOn,
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got := b.State(x, y); got != want[[2]int{x, y}] {
				t.Fatalf("cell (%d,%d) state=%d, expected %d", x, y, got, want[[2]int{x, y}])
			}
		}
	}
}

func TestPairNotYetCommitted(t *testing.T) {
	b := runBrain(t, "2")
	if b.State(4, 4) != StateOn || b.State(5, 4) != StateOn {
		t.Fatal("pair changed before the commit tick")
	}
	if b.State(4, 3) != StateDead {
		t.Fatal("birth committed early")
	}
}

func TestNextStateRules(t *testing.T) {
	b := New(3, 3)
	if err := b.Allocate(); err != nil {
		t.Fatal(err)
	}
	cells := b.Cells()
	cells[0], cells[1] = StateOn, StateDying
	if got := b.nextState(0); got != StateDying {
		t.Fatalf("on -> %d", got)
	}
	if got := b.nextState(1); got != StateDead {
		t.Fatalf("dying -> %d", got)
	}
	// only one on neighbour
	if got := b.nextState(4); got != StateDead {
		t.Fatalf("dead with one on neighbour -> %d", got)
	}
	cells[2] = StateOn
	if got := b.nextState(4); got != StateOn {
		t.Fatalf("dead with two on neighbours -> %d", got)
	}
}

func TestSnapshotBeforeAllocate(t *testing.T) {
	if got := New(4, 4).Snapshot(nil); len(got) != 0 {
		t.Fatalf("snapshot = %v", got)
	}
}

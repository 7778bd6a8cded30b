package device

import (
	"sync"
	"testing"

	"github.com/ayusman/joythm/internal/gesture"
)

func newTestDevice(serial string, hand gesture.Handedness) (*Device, *MockSession) {
	s := NewMockSession()
	return New(Identity{Handle: "/dev/" + serial, Hand: hand, Serial: serial}, s), s
}

func TestRegistry_UpsertIsIdempotent(t *testing.T) {
	r := NewRegistry()
	d, _ := newTestDevice("aa:01", gesture.Left)

	if !r.Upsert(d) {
		t.Fatal("first Upsert should add the device")
	}
	if r.Upsert(d) {
		t.Error("second Upsert with the same serial should be a no-op")
	}

	// A different Device value with the same serial is also rejected.
	dup, _ := newTestDevice("aa:01", gesture.Left)
	if r.Upsert(dup) {
		t.Error("Upsert of a new device with a known serial should be a no-op")
	}

	if r.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", r.Len())
	}
	if r.Active()[0] != d {
		t.Error("registry should keep the first device for a serial")
	}
}

func TestRegistry_Prune(t *testing.T) {
	r := NewRegistry()
	left, _ := newTestDevice("aa:01", gesture.Left)
	right, rightSession := newTestDevice("aa:02", gesture.Right)
	r.Upsert(left)
	r.Upsert(right)

	if pruned := r.Prune(); len(pruned) != 0 {
		t.Fatalf("expected nothing pruned, got %d", len(pruned))
	}

	rightSession.SetAlive(false)

	// The dead device stays visible until the next prune.
	if r.Len() != 2 {
		t.Fatalf("expected dead device to remain until prune, got %d entries", r.Len())
	}

	pruned := r.Prune()
	if len(pruned) != 1 || pruned[0] != right {
		t.Fatalf("expected right device pruned, got %v", pruned)
	}
	if r.Has("aa:02") {
		t.Error("pruned serial should no longer be registered")
	}
	if !r.Has("aa:01") {
		t.Error("live device should stay registered")
	}

	// The same serial can be registered again after a reconnect.
	again, _ := newTestDevice("aa:02", gesture.Right)
	if !r.Upsert(again) {
		t.Error("a reconnected device should be accepted after prune")
	}
	if again.ID() == right.ID() {
		t.Error("a reconnected device should get a new session id")
	}
}

func TestRegistry_Active_SortedSnapshot(t *testing.T) {
	r := NewRegistry()
	right, _ := newTestDevice("bb", gesture.Right)
	left, _ := newTestDevice("aa", gesture.Left)
	r.Upsert(right)
	r.Upsert(left)

	active := r.Active()
	if len(active) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(active))
	}
	if active[0].Name() != "Joy-Con (L) aa" || active[1].Name() != "Joy-Con (R) bb" {
		t.Errorf("unexpected order: %q, %q", active[0].Name(), active[1].Name())
	}

	// Mutating the snapshot does not affect the registry.
	active[0] = nil
	if r.Active()[0] == nil {
		t.Error("Active should return a copy")
	}
}

func TestRegistry_Healthy(t *testing.T) {
	r := NewRegistry()
	if r.Healthy() {
		t.Error("empty registry should be unhealthy")
	}

	left, _ := newTestDevice("aa:01", gesture.Left)
	r.Upsert(left)
	if r.Healthy() {
		t.Error("registry with one device should be unhealthy")
	}

	right, rightSession := newTestDevice("aa:02", gesture.Right)
	r.Upsert(right)
	if !r.Healthy() {
		t.Error("registry with two live devices should be healthy")
	}

	rightSession.SetAlive(false)
	if r.Healthy() {
		t.Error("registry with a dead device should be unhealthy")
	}
	if right.Alive() {
		t.Error("Healthy should refresh the liveness cache")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d, s := newTestDevice(string(rune('a'+i)), gesture.Left)
				r.Upsert(d)
				if j%10 == 0 {
					s.SetAlive(false)
				}
				r.Prune()
				r.Active()
				r.Healthy()
			}
		}(i)
	}
	wg.Wait()
}

func TestDevice_State(t *testing.T) {
	d, _ := newTestDevice("aa:01", gesture.Right)

	if d.State() != gesture.PutDown {
		t.Fatalf("initial state = %v, want PutDown", d.State())
	}
	if prev := d.SetState(gesture.HoldAir); prev != gesture.PutDown {
		t.Errorf("SetState returned %v, want PutDown", prev)
	}
	if prev := d.SetState(gesture.SwingDown); prev != gesture.HoldAir {
		t.Errorf("SetState returned %v, want HoldAir", prev)
	}

	snap := d.Snapshot()
	if snap.State != gesture.SwingDown || snap.Serial != "aa:01" || snap.Hand != gesture.Right {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.ID == "" {
		t.Error("snapshot should carry the session id")
	}
}

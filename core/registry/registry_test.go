package registry

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/kilianp07/taxisim/core/model"
)

func newTestRegistry(seed int64) *Registry {
	grid := model.NewGrid(10, 10, 2)
	return New(grid, rand.New(rand.NewSource(seed)), nil)
}

func TestAddTaxi(t *testing.T) {
	r := newTestRegistry(1)
	tx := r.AddTaxi()

	if tx.Position != r.Grid().Base {
		t.Fatalf("taxi created at %v, want base %v", tx.Position, r.Grid().Base)
	}
	if tx.State != model.StateAvailable {
		t.Fatalf("taxi state = %v, want available", tx.State)
	}
	if got := r.Available(); len(got) != 1 || got[0] != tx.ID {
		t.Fatalf("available partition = %v, want [%d]", got, tx.ID)
	}
	if got := r.Grid().AvailableAt(tx.Position); len(got) != 1 || got[0] != tx.ID {
		t.Fatalf("grid index at base = %v, want [%d]", got, tx.ID)
	}
}

func TestAddRequest(t *testing.T) {
	r := newTestRegistry(2)
	req := r.AddRequest(7)

	if req.Created != 7 {
		t.Fatalf("created = %d, want 7", req.Created)
	}
	if !r.Grid().Contains(req.Origin) || !r.Grid().Contains(req.Destination) {
		t.Fatalf("request coords out of bounds: %v -> %v", req.Origin, req.Destination)
	}
	if req.Status != model.RequestPending {
		t.Fatalf("status = %v, want pending", req.Status)
	}
	if got := r.Pending(); len(got) != 1 || got[0] != req.ID {
		t.Fatalf("pending partition = %v, want [%d]", got, req.ID)
	}
	if req.PickupAt != model.None || req.DropoffAt != model.None || req.AssignedTaxi != model.None {
		t.Fatal("fresh request must have no pickup, dropoff or taxi")
	}
}

func TestAssignEffects(t *testing.T) {
	r := newTestRegistry(3)
	tx := r.AddTaxi()
	req := r.AddRequest(0)

	if err := r.Assign(req.ID, tx.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if tx.State != model.StateEnRouteToPickup {
		t.Fatalf("taxi state = %v, want to_request", tx.State)
	}
	if tx.AssignedRequest != req.ID || req.AssignedTaxi != tx.ID {
		t.Fatal("taxi and request are not paired")
	}
	if got := r.Grid().AvailableAt(tx.Position); len(got) != 0 {
		t.Fatalf("assigned taxi still in grid index: %v", got)
	}
	if len(r.Available()) != 0 || len(r.ToRequest()) != 1 {
		t.Fatal("taxi partitions not updated")
	}
	if len(r.Pending()) != 0 || len(r.InProgress()) != 1 {
		t.Fatal("request partitions not updated")
	}

	path := tx.Path.Cells()
	d1 := model.Distance(tx.Position, req.Origin)
	d2 := model.Distance(req.Origin, req.Destination)
	if want := d1 + d2 + 1; len(path) != want {
		t.Fatalf("path length = %d, want %d", len(path), want)
	}
	if path[0] != tx.Position {
		t.Fatalf("path starts at %v, want taxi position %v", path[0], tx.Position)
	}
	if path[d1] != req.Origin {
		t.Fatalf("path cell %d = %v, want origin %v", d1, path[d1], req.Origin)
	}
	if path[len(path)-1] != req.Destination {
		t.Fatalf("path ends at %v, want destination %v", path[len(path)-1], req.Destination)
	}
}

func TestAssignPreconditions(t *testing.T) {
	r := newTestRegistry(4)
	tx := r.AddTaxi()
	req := r.AddRequest(0)

	if err := r.Assign(99, tx.ID); !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest, got %v", err)
	}
	if err := r.Assign(req.ID, 99); !errors.Is(err, ErrUnknownTaxi) {
		t.Fatalf("expected ErrUnknownTaxi, got %v", err)
	}

	if err := r.Assign(req.ID, tx.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Both entities left their required states, so repeating must fail
	// without corrupting anything.
	req2 := r.AddRequest(0)
	if err := r.Assign(req2.ID, tx.ID); !errors.Is(err, ErrTaxiNotAvailable) {
		t.Fatalf("expected ErrTaxiNotAvailable, got %v", err)
	}
	tx2 := r.AddTaxi()
	if err := r.Assign(req.ID, tx2.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending, got %v", err)
	}
	if len(r.InProgress()) != 1 || len(r.Pending()) != 1 {
		t.Fatal("failed assigns must not mutate partitions")
	}
}

// driveTo pops path cells until the taxi reaches the target, failing the test
// if it takes more steps than the queue can hold.
func driveTo(t *testing.T, r *Registry, taxiID int, target model.Cell) int {
	t.Helper()
	tx, _ := r.Taxi(taxiID)
	for steps := 0; steps <= 1000; steps++ {
		if tx.Position == target && steps > 0 {
			return steps
		}
		moved, err := r.MoveTaxi(taxiID)
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		if !moved {
			t.Fatalf("taxi %d ran out of path before reaching %v", taxiID, target)
		}
	}
	t.Fatalf("taxi %d never reached %v", taxiID, target)
	return 0
}

func TestLifecyclePickupDropoff(t *testing.T) {
	r := newTestRegistry(5)
	tx := r.AddTaxi()
	// Sampling may collapse origin and destination onto the same cell; keep
	// drawing until the trip has distinct pickup and dropoff points.
	var req *model.Request
	for i := 0; i < 50; i++ {
		req = r.AddRequest(0)
		if req.Origin != req.Destination {
			break
		}
	}
	if req.Origin == req.Destination {
		t.Fatal("could not sample a request with a non-trivial trip")
	}
	if err := r.Assign(req.ID, tx.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	driveTo(t, r, tx.ID, req.Origin)
	now := 3
	if err := r.Pickup(req.ID, now); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if tx.State != model.StateCarryingPassenger {
		t.Fatalf("state after pickup = %v", tx.State)
	}
	if req.PickupAt != now || req.WaitingTime != now-req.Created {
		t.Fatalf("pickup stamps wrong: at=%d waiting=%d", req.PickupAt, req.WaitingTime)
	}
	if len(r.ToRequest()) != 0 || len(r.ToDestination()) != 1 {
		t.Fatal("taxi partitions not updated on pickup")
	}

	driveTo(t, r, tx.ID, req.Destination)
	later := 9
	if err := r.Dropoff(req.ID, later); err != nil {
		t.Fatalf("dropoff: %v", err)
	}
	if req.DropoffAt != later || req.Status != model.RequestFulfilled {
		t.Fatalf("dropoff stamps wrong: at=%d status=%v", req.DropoffAt, req.Status)
	}
	if !(req.Created <= req.PickupAt && req.PickupAt <= req.DropoffAt) {
		t.Fatal("timestamps out of order")
	}

	// The taxi is available the moment it drops off, not after reaching base.
	if tx.State != model.StateAvailable {
		t.Fatalf("state after dropoff = %v, want available", tx.State)
	}
	if got := r.Grid().AvailableAt(req.Destination); len(got) != 1 || got[0] != tx.ID {
		t.Fatalf("taxi not indexed at destination: %v", got)
	}
	if len(tx.Completed) != 1 || tx.Completed[0] != req.ID {
		t.Fatalf("completed history = %v", tx.Completed)
	}
	if len(r.Fulfilled()) != 1 || len(r.InProgress()) != 0 {
		t.Fatal("request partitions not updated on dropoff")
	}

	// Dropoff queues a fresh path back to base.
	path := tx.Path.Cells()
	if len(path) == 0 || path[len(path)-1] != r.Grid().Base {
		t.Fatalf("return path = %v, want path ending at base %v", path, r.Grid().Base)
	}
}

func TestExpire(t *testing.T) {
	r := newTestRegistry(6)
	req := r.AddRequest(0)

	if err := r.Expire(req.ID); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if req.Status != model.RequestDropped {
		t.Fatalf("status = %v, want dropped", req.Status)
	}
	if len(r.Pending()) != 0 || len(r.Dropped()) != 1 {
		t.Fatal("partitions not updated on expire")
	}
	// Dropped is terminal.
	if err := r.Expire(req.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending, got %v", err)
	}
	tx := r.AddTaxi()
	if err := r.Assign(req.ID, tx.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending, got %v", err)
	}
}

func TestMoveTaxiIdleAccumulatesWaiting(t *testing.T) {
	r := newTestRegistry(7)
	tx := r.AddTaxi()
	tx.Path.Reset(nil)

	for i := 0; i < 3; i++ {
		moved, err := r.MoveTaxi(tx.ID)
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		if moved {
			t.Fatal("idle taxi must not move")
		}
	}
	if tx.WaitingTicks != 3 {
		t.Fatalf("waiting ticks = %d, want 3", tx.WaitingTicks)
	}
	if tx.CruisingTicks+tx.ServingTicks+tx.ToRequestTicks != 0 {
		t.Fatal("idle taxi incremented a movement counter")
	}
}

func TestMoveAvailableTaxiUpdatesIndex(t *testing.T) {
	r := newTestRegistry(8)
	tx := r.AddTaxi()
	if err := r.SendToBase(tx.ID); err != nil {
		t.Fatalf("send to base: %v", err)
	}
	// Taxi already at base: the queued path is the single base cell.
	start := tx.Position
	if moved, err := r.MoveTaxi(tx.ID); err != nil || !moved {
		t.Fatalf("move: %v moved=%v", err, moved)
	}
	if tx.CruisingTicks != 1 {
		t.Fatalf("cruising ticks = %d, want 1", tx.CruisingTicks)
	}
	if got := r.Grid().AvailableAt(start); len(got) != 1 {
		t.Fatalf("index at %v = %v, want the taxi (it popped its own cell)", start, got)
	}
}

func TestRelocateTaxi(t *testing.T) {
	r := newTestRegistry(9)
	tx := r.AddTaxi()
	target := model.Cell{X: 0, Y: 0}

	if err := r.RelocateTaxi(tx.ID, target); err != nil {
		t.Fatalf("relocate: %v", err)
	}
	if tx.Position != target {
		t.Fatalf("position = %v, want %v", tx.Position, target)
	}
	if got := r.Grid().AvailableAt(target); len(got) != 1 || got[0] != tx.ID {
		t.Fatalf("index at %v = %v", target, got)
	}
	if got := r.Grid().AvailableAt(r.Grid().Base); len(got) != 0 {
		t.Fatalf("stale index entry at base: %v", got)
	}
}

package registry

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/kilianp07/taxisim/core/logger"
	"github.com/kilianp07/taxisim/core/model"
)

var (
	// ErrTaxiNotAvailable is returned when an assignment targets a taxi that
	// is not in the available partition.
	ErrTaxiNotAvailable = errors.New("taxi is not available")
	// ErrRequestNotPending is returned when a lifecycle operation targets a
	// request outside the required status.
	ErrRequestNotPending = errors.New("request is not pending")
	// ErrUnknownTaxi is returned for IDs absent from the registry.
	ErrUnknownTaxi = errors.New("unknown taxi")
	// ErrUnknownRequest is returned for IDs absent from the registry.
	ErrUnknownRequest = errors.New("unknown request")
	// ErrInvalidTransition is returned when a pickup or dropoff is attempted
	// on a taxi in the wrong operating state.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// Registry owns every taxi and request instance for its whole lifetime and
// keeps the status partitions consistent with the entity states. All mutation
// of taxi, request and grid-index state goes through the lifecycle methods
// below; no other writer exists.
type Registry struct {
	grid *model.Grid
	rng  *rand.Rand
	log  logger.Logger

	taxis      map[int]*model.Taxi
	taxiOrder  []int
	nextTaxiID int

	requests      map[int]*model.Request
	requestOrder  []int
	nextRequestID int

	taxisAvailable     []int
	taxisToRequest     []int
	taxisToDestination []int

	requestsPending    []int
	requestsInProgress []int
	requestsFulfilled  []int
	requestsDropped    []int
}

// New creates an empty registry operating on the given grid.
func New(grid *model.Grid, rng *rand.Rand, log logger.Logger) *Registry {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Registry{
		grid:     grid,
		rng:      rng,
		log:      log,
		taxis:    make(map[int]*model.Taxi),
		requests: make(map[int]*model.Request),
	}
}

// Grid returns the grid the registry operates on.
func (r *Registry) Grid() *model.Grid {
	return r.grid
}

// Taxi looks up a taxi by ID.
func (r *Registry) Taxi(id int) (*model.Taxi, bool) {
	t, ok := r.taxis[id]
	return t, ok
}

// Request looks up a request by ID.
func (r *Registry) Request(id int) (*model.Request, bool) {
	req, ok := r.requests[id]
	return req, ok
}

// TaxiIDs returns all taxi IDs in insertion order.
func (r *Registry) TaxiIDs() []int {
	return copyIDs(r.taxiOrder)
}

// RequestIDs returns all request IDs in insertion order.
func (r *Registry) RequestIDs() []int {
	return copyIDs(r.requestOrder)
}

// Available returns the IDs of available taxis.
func (r *Registry) Available() []int { return copyIDs(r.taxisAvailable) }

// ToRequest returns the IDs of taxis en route to a pickup.
func (r *Registry) ToRequest() []int { return copyIDs(r.taxisToRequest) }

// ToDestination returns the IDs of taxis carrying a passenger.
func (r *Registry) ToDestination() []int { return copyIDs(r.taxisToDestination) }

// Pending returns the IDs of pending requests.
func (r *Registry) Pending() []int { return copyIDs(r.requestsPending) }

// InProgress returns the IDs of assigned, unfinished requests.
func (r *Registry) InProgress() []int { return copyIDs(r.requestsInProgress) }

// Fulfilled returns the IDs of completed requests.
func (r *Registry) Fulfilled() []int { return copyIDs(r.requestsFulfilled) }

// Dropped returns the IDs of expired requests.
func (r *Registry) Dropped() []int { return copyIDs(r.requestsDropped) }

// AvailableCount returns the size of the available-taxi pool.
func (r *Registry) AvailableCount() int { return len(r.taxisAvailable) }

// AddTaxi creates an available taxi at the base location and registers it in
// the grid index and the available partition.
func (r *Registry) AddTaxi() *model.Taxi {
	t := model.NewTaxi(r.nextTaxiID, r.grid.Base)
	r.nextTaxiID++

	r.taxis[t.ID] = t
	r.taxiOrder = append(r.taxiOrder, t.ID)
	r.taxisAvailable = append(r.taxisAvailable, t.ID)
	r.grid.AddAvailable(t.ID, t.Position)
	return t
}

// AddRequest creates a pending request. The origin is sampled around the
// base; the destination is sampled around the origin.
func (r *Registry) AddRequest(now int) *model.Request {
	origin := r.grid.SampleLocation(r.rng, r.grid.Base)
	destination := r.grid.SampleLocation(r.rng, origin)

	req := model.NewRequest(r.nextRequestID, origin, destination, now)
	r.nextRequestID++

	r.requests[req.ID] = req
	r.requestOrder = append(r.requestOrder, req.ID)
	r.requestsPending = append(r.requestsPending, req.ID)
	return req
}

// Assign matches a pending request with an available taxi. The taxi leaves
// the grid index and the available partition, receives the concatenated path
// taxi->origin->destination and starts moving toward the pickup. Assigning
// entities outside the required states fails without mutating anything.
func (r *Registry) Assign(requestID, taxiID int) error {
	req, ok := r.requests[requestID]
	if !ok {
		return fmt.Errorf("assign request %d: %w", requestID, ErrUnknownRequest)
	}
	t, ok := r.taxis[taxiID]
	if !ok {
		return fmt.Errorf("assign taxi %d: %w", taxiID, ErrUnknownTaxi)
	}
	if t.State != model.StateAvailable {
		return fmt.Errorf("assign taxi %d in state %s: %w", taxiID, t.State, ErrTaxiNotAvailable)
	}
	if req.Status != model.RequestPending {
		return fmt.Errorf("assign request %d in status %s: %w", requestID, req.Status, ErrRequestNotPending)
	}

	r.grid.RemoveAvailable(taxiID, t.Position)
	r.taxisAvailable = removeID(r.taxisAvailable, taxiID)
	r.taxisToRequest = append(r.taxisToRequest, taxiID)

	t.State = model.StateEnRouteToPickup
	t.AssignedRequest = requestID

	// Pickup leg plus trip leg, dropping the duplicated origin cell at the
	// join.
	path := r.grid.RandomPath(r.rng, t.Position, req.Origin)
	path = append(path, r.grid.RandomPath(r.rng, req.Origin, req.Destination)[1:]...)
	t.Path.Reset(path)

	r.requestsPending = removeID(r.requestsPending, requestID)
	r.requestsInProgress = append(r.requestsInProgress, requestID)
	req.Status = model.RequestInProgress
	req.AssignedTaxi = taxiID

	r.log.Debugf("M request %d taxi %d", requestID, taxiID)
	return nil
}

// Pickup transitions an en-route taxi to carrying its passenger. It stamps
// the pickup time and fixes the request waiting time.
func (r *Registry) Pickup(requestID, now int) error {
	req, ok := r.requests[requestID]
	if !ok {
		return fmt.Errorf("pickup request %d: %w", requestID, ErrUnknownRequest)
	}
	t, ok := r.taxis[req.AssignedTaxi]
	if !ok {
		return fmt.Errorf("pickup request %d taxi %d: %w", requestID, req.AssignedTaxi, ErrUnknownTaxi)
	}
	if t.State != model.StateEnRouteToPickup || req.Status != model.RequestInProgress {
		return fmt.Errorf("pickup request %d: %w", requestID, ErrInvalidTransition)
	}

	req.PickupAt = now
	req.WaitingTime = now - req.Created

	t.State = model.StateCarryingPassenger
	r.taxisToRequest = removeID(r.taxisToRequest, t.ID)
	r.taxisToDestination = append(r.taxisToDestination, t.ID)

	r.log.Debugf("P request %d taxi %d", requestID, t.ID)
	return nil
}

// Dropoff completes a request. The taxi becomes available at the destination
// immediately, re-enters the grid index and the available partition, records
// the trip in its history, and is redirected to the base with a fresh path.
// Returning to base is not a distinct state.
func (r *Registry) Dropoff(requestID, now int) error {
	req, ok := r.requests[requestID]
	if !ok {
		return fmt.Errorf("dropoff request %d: %w", requestID, ErrUnknownRequest)
	}
	t, ok := r.taxis[req.AssignedTaxi]
	if !ok {
		return fmt.Errorf("dropoff request %d taxi %d: %w", requestID, req.AssignedTaxi, ErrUnknownTaxi)
	}
	if t.State != model.StateCarryingPassenger || req.Status != model.RequestInProgress {
		return fmt.Errorf("dropoff request %d: %w", requestID, ErrInvalidTransition)
	}

	req.DropoffAt = now
	req.Status = model.RequestFulfilled
	r.requestsInProgress = removeID(r.requestsInProgress, requestID)
	r.requestsFulfilled = append(r.requestsFulfilled, requestID)

	t.State = model.StateAvailable
	t.AssignedRequest = model.None
	t.Completed = append(t.Completed, requestID)
	r.taxisToDestination = removeID(r.taxisToDestination, t.ID)
	r.taxisAvailable = append(r.taxisAvailable, t.ID)
	r.grid.AddAvailable(t.ID, t.Position)

	r.log.Debugf("D request %d taxi %d", requestID, t.ID)
	return r.SendToBase(t.ID)
}

// SendToBase queues a fresh path from the taxi's position to the base. The
// taxi must be available; its state does not change.
func (r *Registry) SendToBase(taxiID int) error {
	t, ok := r.taxis[taxiID]
	if !ok {
		return fmt.Errorf("send taxi %d to base: %w", taxiID, ErrUnknownTaxi)
	}
	if t.State != model.StateAvailable {
		return fmt.Errorf("send taxi %d to base in state %s: %w", taxiID, t.State, ErrInvalidTransition)
	}
	t.Path.Reset(r.grid.RandomPath(r.rng, t.Position, r.grid.Base))
	return nil
}

// Expire moves a pending request that waited too long into the dropped
// partition. Dropped is terminal.
func (r *Registry) Expire(requestID int) error {
	req, ok := r.requests[requestID]
	if !ok {
		return fmt.Errorf("expire request %d: %w", requestID, ErrUnknownRequest)
	}
	if req.Status != model.RequestPending {
		return fmt.Errorf("expire request %d in status %s: %w", requestID, req.Status, ErrRequestNotPending)
	}
	req.Status = model.RequestDropped
	r.requestsPending = removeID(r.requestsPending, requestID)
	r.requestsDropped = append(r.requestsDropped, requestID)

	r.log.Debugf("X request %d expired", requestID)
	return nil
}

// MoveTaxi advances a taxi one cell along its queued path and increments the
// matching elapsed-time counter. A taxi with an empty path only accumulates
// waiting time. Available taxis also move within the grid index.
func (r *Registry) MoveTaxi(taxiID int) (bool, error) {
	t, ok := r.taxis[taxiID]
	if !ok {
		return false, fmt.Errorf("move taxi %d: %w", taxiID, ErrUnknownTaxi)
	}
	next, ok := t.Path.Pop()
	if !ok {
		t.WaitingTicks++
		return false, nil
	}

	old := t.Position
	t.Position = next
	switch t.State {
	case model.StateCarryingPassenger:
		t.ServingTicks++
	case model.StateAvailable:
		t.CruisingTicks++
		r.grid.MoveAvailable(taxiID, old, next)
	default:
		t.ToRequestTicks++
	}

	r.log.Debugf("F taxi %d moved to (%d,%d), %d cells left", taxiID, next.X, next.Y, t.Path.Len())
	return true, nil
}

// RelocateTaxi teleports an available taxi to the given cell, keeping the
// grid index in sync. Used to stage scenarios.
func (r *Registry) RelocateTaxi(taxiID int, to model.Cell) error {
	t, ok := r.taxis[taxiID]
	if !ok {
		return fmt.Errorf("relocate taxi %d: %w", taxiID, ErrUnknownTaxi)
	}
	if t.State != model.StateAvailable {
		return fmt.Errorf("relocate taxi %d in state %s: %w", taxiID, t.State, ErrTaxiNotAvailable)
	}
	r.grid.MoveAvailable(taxiID, t.Position, to)
	t.Position = to
	return nil
}

func copyIDs(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}

func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

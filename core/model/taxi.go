package model

// None marks an unset entity reference or timestamp.
const None = -1

// TaxiState is the operating state of a taxi. A taxi is always in exactly
// one state.
type TaxiState int

const (
	// StateAvailable means the taxi has no assigned request. It may still be
	// moving, e.g. returning to base.
	StateAvailable TaxiState = iota
	// StateEnRouteToPickup means the taxi is assigned and driving to the
	// request origin without a passenger.
	StateEnRouteToPickup
	// StateCarryingPassenger means the taxi is driving a passenger to the
	// request destination.
	StateCarryingPassenger
)

// String returns a human-readable representation of the state.
func (s TaxiState) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateEnRouteToPickup:
		return "to_request"
	case StateCarryingPassenger:
		return "with_passenger"
	default:
		return "unknown"
	}
}

// Path is a FIFO queue of grid cells consumed one per tick. Popping is O(1)
// via an advancing head index; the backing slice is released once drained.
type Path struct {
	cells []Cell
	head  int
}

// Reset replaces the queued cells.
func (p *Path) Reset(cells []Cell) {
	p.cells = cells
	p.head = 0
}

// Pop removes and returns the next cell. The second return value is false
// when the queue is empty.
func (p *Path) Pop() (Cell, bool) {
	if p.head >= len(p.cells) {
		return Cell{}, false
	}
	c := p.cells[p.head]
	p.head++
	if p.head == len(p.cells) {
		p.cells = nil
		p.head = 0
	}
	return c, true
}

// Len returns the number of queued cells.
func (p *Path) Len() int {
	return len(p.cells) - p.head
}

// Cells returns a copy of the remaining cells in consume order.
func (p *Path) Cells() []Cell {
	if p.Len() == 0 {
		return nil
	}
	out := make([]Cell, p.Len())
	copy(out, p.cells[p.head:])
	return out
}

// Taxi is a mobile agent moving on the grid. All state transitions happen in
// the registry lifecycle operations.
type Taxi struct {
	ID       int
	Position Cell
	State    TaxiState
	// AssignedRequest is the request currently being executed, or None when
	// the taxi is available.
	AssignedRequest int
	// Completed lists the fulfilled request IDs in completion order.
	Completed []int

	// Elapsed-tick counters. Exactly one increments per tick.
	WaitingTicks   int // idle with an empty path
	CruisingTicks  int // moving without an assignment
	ToRequestTicks int // moving to a pickup
	ServingTicks   int // moving with a passenger

	Path Path
}

// NewTaxi creates an available taxi at the given cell.
func NewTaxi(id int, at Cell) *Taxi {
	return &Taxi{
		ID:              id,
		Position:        at,
		State:           StateAvailable,
		AssignedRequest: None,
	}
}

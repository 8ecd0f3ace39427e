package model

// RequestStatus is the lifecycle stage of a request. Fulfilled and Dropped
// are terminal.
type RequestStatus int

const (
	RequestPending RequestStatus = iota
	RequestInProgress
	RequestFulfilled
	RequestDropped
)

// String returns a human-readable representation of the status.
func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestInProgress:
		return "in_progress"
	case RequestFulfilled:
		return "fulfilled"
	case RequestDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Request is a service order placed on the grid.
type Request struct {
	ID          int
	Origin      Cell
	Destination Cell
	Status      RequestStatus

	// Created is the tick the request entered the system. PickupAt and
	// DropoffAt stay None until the corresponding transition happens and are
	// set at most once.
	Created   int
	PickupAt  int
	DropoffAt int

	// AssignedTaxi is None until the request is matched.
	AssignedTaxi int
	// WaitingTime is set once, at pickup, to PickupAt-Created.
	WaitingTime int
}

// NewRequest creates a pending request with the given creation tick.
func NewRequest(id int, origin, destination Cell, now int) *Request {
	return &Request{
		ID:           id,
		Origin:       origin,
		Destination:  destination,
		Status:       RequestPending,
		Created:      now,
		PickupAt:     None,
		DropoffAt:    None,
		AssignedTaxi: None,
	}
}

// Age returns how long the request has existed.
func (r *Request) Age(now int) int {
	return now - r.Created
}

// Length returns the Manhattan trip length from origin to destination.
func (r *Request) Length() int {
	return Distance(r.Origin, r.Destination)
}

package sim

import "github.com/kilianp07/taxisim/core/model"

// TaxiView is a read-only copy of a taxi's state.
type TaxiView struct {
	ID              int              `json:"id"`
	Position        model.Cell       `json:"position"`
	State           model.TaxiState  `json:"state"`
	AssignedRequest int              `json:"assigned_request"`
	RemainingPath   []model.Cell     `json:"remaining_path"`
	Completed       []int            `json:"completed"`
	WaitingTicks    int              `json:"waiting_ticks"`
	CruisingTicks   int              `json:"cruising_ticks"`
	ToRequestTicks  int              `json:"to_request_ticks"`
	ServingTicks    int              `json:"serving_ticks"`
}

// RequestView is a read-only copy of a request's state.
type RequestView struct {
	ID           int                 `json:"id"`
	Origin       model.Cell          `json:"origin"`
	Destination  model.Cell          `json:"destination"`
	Status       model.RequestStatus `json:"status"`
	Created      int                 `json:"created"`
	PickupAt     int                 `json:"pickup_at"`
	DropoffAt    int                 `json:"dropoff_at"`
	AssignedTaxi int                 `json:"assigned_taxi"`
	WaitingTime  int                 `json:"waiting_time"`
}

// Snapshot is the read interface handed to external collaborators such as
// visualization or persistence. It is a deep copy: mutating it never touches
// simulation state. Take snapshots between ticks only.
type Snapshot struct {
	Tick int `json:"tick"`

	Taxis    []TaxiView    `json:"taxis"`
	Requests []RequestView `json:"requests"`

	TaxisAvailable     []int `json:"taxis_available"`
	TaxisToRequest     []int `json:"taxis_to_request"`
	TaxisToDestination []int `json:"taxis_to_destination"`

	RequestsPending    []int `json:"requests_pending"`
	RequestsInProgress []int `json:"requests_in_progress"`
	RequestsFulfilled  []int `json:"requests_fulfilled"`
	RequestsDropped    []int `json:"requests_dropped"`
}

// Snapshot captures the current simulation state.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:               s.tick,
		TaxisAvailable:     s.reg.Available(),
		TaxisToRequest:     s.reg.ToRequest(),
		TaxisToDestination: s.reg.ToDestination(),
		RequestsPending:    s.reg.Pending(),
		RequestsInProgress: s.reg.InProgress(),
		RequestsFulfilled:  s.reg.Fulfilled(),
		RequestsDropped:    s.reg.Dropped(),
	}

	for _, id := range s.reg.TaxiIDs() {
		t, _ := s.reg.Taxi(id)
		completed := make([]int, len(t.Completed))
		copy(completed, t.Completed)
		snap.Taxis = append(snap.Taxis, TaxiView{
			ID:              t.ID,
			Position:        t.Position,
			State:           t.State,
			AssignedRequest: t.AssignedRequest,
			RemainingPath:   t.Path.Cells(),
			Completed:       completed,
			WaitingTicks:    t.WaitingTicks,
			CruisingTicks:   t.CruisingTicks,
			ToRequestTicks:  t.ToRequestTicks,
			ServingTicks:    t.ServingTicks,
		})
	}

	for _, id := range s.reg.RequestIDs() {
		r, _ := s.reg.Request(id)
		snap.Requests = append(snap.Requests, RequestView{
			ID:           r.ID,
			Origin:       r.Origin,
			Destination:  r.Destination,
			Status:       r.Status,
			Created:      r.Created,
			PickupAt:     r.PickupAt,
			DropoffAt:    r.DropoffAt,
			AssignedTaxi: r.AssignedTaxi,
			WaitingTime:  r.WaitingTime,
		})
	}
	return snap
}

package dispatch

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/kilianp07/taxisim/core/logger"
	"github.com/kilianp07/taxisim/core/metrics"
	"github.com/kilianp07/taxisim/core/model"
	"github.com/kilianp07/taxisim/core/registry"
)

// Matching policy names, selected by configuration.
const (
	// PolicyRandomRandom assigns a uniformly random available taxi.
	PolicyRandomRandom = "random_random"
	// PolicyRandomNearest assigns a random taxi among the nearest available
	// ones, found by BFS from the request origin.
	PolicyRandomNearest = "random_nearest"
	// PolicyEarningsPriority assigns the globally least-earning available
	// taxi to each request in waiting order.
	PolicyEarningsPriority = "earnings_priority"
	// PolicyEarningsRadiusHard assigns the least-earning taxi within the hard
	// search radius, leaving the request pending when none is in range.
	PolicyEarningsRadiusHard = "earnings_radius_hard"
	// PolicyEarningsRadiusSoft behaves like the hard variant with a fixed
	// radius, but falls back to the globally least-earning taxi when the
	// radius search comes up empty.
	PolicyEarningsRadiusSoft = "earnings_radius_soft"
)

// softRadius is the fixed search radius of the earnings_radius_soft policy.
const softRadius = 8

// ErrUnknownPolicy is reported when the configured policy name matches no
// implementation; the matching step becomes a no-op for that tick.
var ErrUnknownPolicy = errors.New("unknown matching policy")

// Engine applies one matching policy per tick over the pending requests and
// the available-taxi pool.
type Engine struct {
	policy     string
	pricing    metrics.Pricing
	hardLimit  int
	maxWaiting int
	rng        *rand.Rand
	log        logger.Logger
}

// NewEngine creates a matching engine for the given policy name.
func NewEngine(policy string, pricing metrics.Pricing, hardLimit, maxWaiting int, rng *rand.Rand, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Engine{
		policy:     policy,
		pricing:    pricing,
		hardLimit:  hardLimit,
		maxWaiting: maxWaiting,
		rng:        rng,
		log:        log,
	}
}

// Match runs one matching round: expire overdue pending requests, order the
// rest longest-waiting first, then assign taxis according to the configured
// policy. Each successful assignment shrinks the available pool seen by the
// remaining requests of the same tick.
func (e *Engine) Match(reg *registry.Registry, now int) {
	pending := e.prepare(reg, now)
	if len(pending) == 0 {
		e.log.Debugf("no pending requests")
		return
	}

	switch e.policy {
	case PolicyRandomRandom:
		e.matchRandom(reg, pending)
	case PolicyRandomNearest:
		e.matchNearest(reg, pending)
	case PolicyEarningsPriority:
		e.matchEarningsPriority(reg, pending)
	case PolicyEarningsRadiusHard:
		e.matchEarningsRadius(reg, pending, e.hardLimit, false)
	case PolicyEarningsRadiusSoft:
		e.matchEarningsRadius(reg, pending, softRadius, true)
	default:
		e.log.Errorf("%v: %q", ErrUnknownPolicy, e.policy)
	}
}

// prepare drops requests that waited past the configured maximum and returns
// the surviving pending IDs ordered by creation tick, oldest first.
func (e *Engine) prepare(reg *registry.Registry, now int) []int {
	var pending []int
	for _, id := range reg.Pending() {
		req, ok := reg.Request(id)
		if !ok {
			continue
		}
		if req.Age(now) > e.maxWaiting {
			if err := reg.Expire(id); err != nil {
				e.log.Warnf("expire request %d: %v", id, err)
			}
			continue
		}
		pending = append(pending, id)
	}
	sort.Slice(pending, func(i, j int) bool {
		a, _ := reg.Request(pending[i])
		b, _ := reg.Request(pending[j])
		if a.Created != b.Created {
			return a.Created < b.Created
		}
		return a.ID < b.ID
	})
	return pending
}

func (e *Engine) matchRandom(reg *registry.Registry, pending []int) {
	for _, reqID := range pending {
		avail := reg.Available()
		if len(avail) == 0 {
			break
		}
		taxiID := avail[e.rng.Intn(len(avail))]
		if err := reg.Assign(reqID, taxiID); err != nil {
			e.log.Warnf("assign request %d: %v", reqID, err)
		}
	}
}

func (e *Engine) matchNearest(reg *registry.Registry, pending []int) {
	for _, reqID := range pending {
		if reg.AvailableCount() == 0 {
			break
		}
		req, _ := reg.Request(reqID)
		found := reg.Grid().FindAvailable(req.Origin, model.SearchNearest, 0, e.hardLimit)
		if len(found) == 0 {
			// No reachable taxi this tick; the request stays pending.
			continue
		}
		taxiID := found[e.rng.Intn(len(found))]
		if err := reg.Assign(reqID, taxiID); err != nil {
			e.log.Warnf("assign request %d: %v", reqID, err)
		}
	}
}

// matchEarningsPriority walks the earnings-ascending taxi list with an
// advancing cursor, so successive requests get distinct, successively
// richer taxis.
func (e *Engine) matchEarningsPriority(reg *registry.Registry, pending []int) {
	ranked := e.earningsAscending(reg)
	cursor := 0
	for _, reqID := range pending {
		if cursor >= len(ranked) {
			break
		}
		if err := reg.Assign(reqID, ranked[cursor]); err != nil {
			e.log.Warnf("assign request %d: %v", reqID, err)
			continue
		}
		cursor++
	}
}

func (e *Engine) matchEarningsRadius(reg *registry.Registry, pending []int, radius int, fallback bool) {
	ranked := e.earningsAscending(reg)
	assigned := make(map[int]bool, len(ranked))

	for _, reqID := range pending {
		if reg.AvailableCount() == 0 {
			break
		}
		req, _ := reg.Request(reqID)

		inRange := reg.Grid().FindAvailable(req.Origin, model.SearchCircle, radius, e.hardLimit)
		reachable := make(map[int]struct{}, len(inRange))
		for _, id := range inRange {
			reachable[id] = struct{}{}
		}

		matched := false
		for _, id := range ranked {
			if assigned[id] {
				continue
			}
			if _, ok := reachable[id]; !ok {
				continue
			}
			if err := reg.Assign(reqID, id); err != nil {
				e.log.Warnf("assign request %d: %v", reqID, err)
				break
			}
			assigned[id] = true
			matched = true
			break
		}
		if matched || !fallback {
			continue
		}
		// Soft variant: no taxi within the radius, take the globally
		// least-earning one regardless of distance.
		for _, id := range ranked {
			if assigned[id] {
				continue
			}
			if err := reg.Assign(reqID, id); err != nil {
				e.log.Warnf("assign request %d: %v", reqID, err)
			} else {
				assigned[id] = true
			}
			break
		}
	}
}

// earningsAscending returns the available taxis ordered from lowest to
// highest evaluated earnings, ties broken by ID.
func (e *Engine) earningsAscending(reg *registry.Registry) []int {
	ids := reg.Available()
	earn := make(map[int]float64, len(ids))
	for _, id := range ids {
		t, _ := reg.Taxi(id)
		earn[id] = metrics.Earnings(t, e.pricing)
	}
	sort.Slice(ids, func(i, j int) bool {
		if earn[ids[i]] != earn[ids[j]] {
			return earn[ids[i]] < earn[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

package sim

import (
	"math/rand"
	"time"

	"github.com/kilianp07/taxisim/core/dispatch"
	"github.com/kilianp07/taxisim/core/logger"
	"github.com/kilianp07/taxisim/core/metrics"
	"github.com/kilianp07/taxisim/core/model"
	"github.com/kilianp07/taxisim/core/registry"
)

// Simulation is the discrete-time driver of the taxi dispatch system. It is
// single-threaded: every tick mutates state strictly sequentially, and
// readers (snapshots, metrics) must only run between ticks.
type Simulation struct {
	cfg    Config
	grid   *model.Grid
	reg    *registry.Registry
	engine *dispatch.Engine
	agg    *metrics.Aggregator
	log    logger.Logger
	tick   int
}

// New builds a simulation from the configuration, creating the fleet at the
// base location. Configuration errors are fatal here.
func New(cfg Config, log logger.Logger) (*Simulation, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Per-event logs only when verbose; batch progress always goes to log.
	var evlog logger.Logger = logger.NopLogger{}
	if cfg.Verbose {
		evlog = log
	}

	grid := model.NewGrid(cfg.GridWidth, cfg.GridHeight, cfg.BaseSigma)
	reg := registry.New(grid, rng, evlog)
	for i := 0; i < cfg.NumTaxis; i++ {
		reg.AddTaxi()
	}
	engine := dispatch.NewEngine(cfg.Matching, cfg.Pricing, cfg.HardLimit, cfg.MaxRequestWaitingTime, rng, evlog)

	return &Simulation{
		cfg:    cfg,
		grid:   grid,
		reg:    reg,
		engine: engine,
		agg:    metrics.NewAggregator(reg, cfg.Pricing),
		log:    log,
	}, nil
}

// Tick returns the current tick number.
func (s *Simulation) Tick() int { return s.tick }

// Registry exposes the entity registry for read access between ticks.
func (s *Simulation) Registry() *registry.Registry { return s.reg }

// Aggregator exposes the metrics aggregator over the live registry.
func (s *Simulation) Aggregator() *metrics.Aggregator { return s.agg }

// Step advances the simulation one tick: every taxi moves one cell along its
// path (or accumulates waiting time), pickups and dropoffs fire when a taxi
// reaches the relevant cell, new requests arrive at the configured fixed
// rate, and the matching engine runs once over the resulting pending set.
func (s *Simulation) Step() {
	for _, id := range s.reg.TaxiIDs() {
		if _, err := s.reg.MoveTaxi(id); err != nil {
			s.log.Errorf("move taxi %d: %v", id, err)
			continue
		}
		t, _ := s.reg.Taxi(id)
		switch t.State {
		case model.StateEnRouteToPickup:
			req, ok := s.reg.Request(t.AssignedRequest)
			if ok && t.Position == req.Origin {
				if err := s.reg.Pickup(req.ID, s.tick); err != nil {
					s.log.Errorf("pickup request %d: %v", req.ID, err)
				}
			}
		case model.StateCarryingPassenger:
			req, ok := s.reg.Request(t.AssignedRequest)
			if ok && t.Position == req.Destination {
				// Dropoff also redirects the taxi to the base.
				if err := s.reg.Dropoff(req.ID, s.tick); err != nil {
					s.log.Errorf("dropoff request %d: %v", req.ID, err)
				}
			}
		}
	}

	for i := 0; i < s.cfg.RequestRate; i++ {
		s.reg.AddRequest(s.tick)
	}

	s.engine.Match(s.reg, s.tick)
	s.tick++
}

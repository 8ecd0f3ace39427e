package sim

import (
	"fmt"

	"github.com/kilianp07/taxisim/core/metrics"
)

// Config holds the simulation parameters supplied once at construction.
type Config struct {
	GridWidth  int     `json:"grid_width"`
	GridHeight int     `json:"grid_height"`
	BaseSigma  float64 `json:"base_sigma"`

	NumTaxis    int `json:"num_taxis"`
	RequestRate int `json:"request_rate"`

	Pricing metrics.Pricing `json:"pricing"`

	Matching              string `json:"matching"`
	HardLimit             int    `json:"hard_limit"`
	MaxRequestWaitingTime int    `json:"max_request_waiting_time"`

	BatchSize int `json:"batch_size"`
	MaxTime   int `json:"max_time"`

	// Seed fixes the random source; 0 selects a time-based seed.
	Seed int64 `json:"seed"`
	// Verbose enables per-event debug logging of moves, matches, pickups and
	// dropoffs.
	Verbose bool `json:"verbose"`
}

// SetDefaults fills optional parameters the way the simulation expects them.
func (c *Config) SetDefaults() {
	if c.Pricing.FarePerDistance == 0 {
		c.Pricing.FarePerDistance = 1
	}
	if c.HardLimit == 0 {
		c.HardLimit = c.GridWidth + c.GridHeight
	}
	if c.MaxRequestWaitingTime == 0 {
		c.MaxRequestWaitingTime = 10000
	}
}

// Validate reports configuration errors. These are fatal at construction.
func (c Config) Validate() error {
	if c.GridWidth <= 0 || c.GridHeight <= 0 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", c.GridWidth, c.GridHeight)
	}
	if c.BaseSigma <= 0 {
		return fmt.Errorf("base_sigma must be positive, got %v", c.BaseSigma)
	}
	if c.NumTaxis <= 0 {
		return fmt.Errorf("num_taxis must be positive, got %d", c.NumTaxis)
	}
	if c.RequestRate < 0 {
		return fmt.Errorf("request_rate must not be negative, got %d", c.RequestRate)
	}
	if c.Matching == "" {
		return fmt.Errorf("matching policy is required")
	}
	if c.HardLimit < 0 {
		return fmt.Errorf("hard_limit must not be negative, got %d", c.HardLimit)
	}
	return nil
}

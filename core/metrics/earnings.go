package metrics

import "github.com/kilianp07/taxisim/core/model"

// Pricing holds the global fare and cost parameters used to evaluate taxi
// earnings.
type Pricing struct {
	FixedFare       float64 `json:"fixed_fare"`
	FarePerDistance float64 `json:"fare_per_distance"`
	CostPerDistance float64 `json:"cost_per_distance"`
	CostPerTime     float64 `json:"cost_per_time"`
}

// Earnings evaluates the cumulative income of a taxi from its elapsed-time
// counters. It is a pure function and is recomputed on demand; leveling
// matching policies rank taxis by this value.
func Earnings(t *model.Taxi, p Pricing) float64 {
	moving := float64(t.CruisingTicks + t.ServingTicks + t.ToRequestTicks)
	active := moving + float64(t.WaitingTicks)
	return p.FixedFare +
		float64(t.ServingTicks)*p.FarePerDistance -
		moving*p.CostPerDistance -
		active*p.CostPerTime
}

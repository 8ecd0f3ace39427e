package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/taxisim/core/model"
	"github.com/kilianp07/taxisim/core/registry"
)

// recentWindow bounds how old a live request may be to still contribute its
// waiting time to the per-request metrics, so old history does not drown out
// system-level waiting-time peaks.
const recentWindow = 100

// entropyBins is the histogram resolution used for activity-ratio entropy.
const entropyBins = 100

// PerTaxiMetrics holds one entry per taxi, in registry insertion order.
type PerTaxiMetrics struct {
	Timestamp        int       `json:"timestamp"`
	TripAvgLength    []float64 `json:"trip_avg_length"`
	TripStdLength    []float64 `json:"trip_std_length"`
	TripAvgPrice     []float64 `json:"trip_avg_price"`
	TripStdPrice     []float64 `json:"trip_std_price"`
	TripNumCompleted []int     `json:"trip_num_completed"`
	RatioServing     []float64 `json:"ratio_serving"`
	RatioCruising    []float64 `json:"ratio_cruising"`
	RatioOnline      []float64 `json:"ratio_online"`
	RatioWaiting     []float64 `json:"ratio_waiting"`
	RatioToRequest   []float64 `json:"ratio_to_request"`
}

// PerRequestMetrics holds completion indicators and waiting-time samples
// across all requests ever created.
type PerRequestMetrics struct {
	Timestamp               int       `json:"timestamp"`
	RequestCompleted        []float64 `json:"request_completed"`
	RequestLastWaitingTimes []float64 `json:"request_last_waiting_times"`
	RequestLengths          []float64 `json:"request_lengths"`
}

// BatchRecord is the aggregated per-batch statistics record emitted at every
// batch boundary.
type BatchRecord struct {
	Timestamp int `json:"timestamp"`

	AvgTripLength float64 `json:"avg_trip_avg_length"`
	StdTripLength float64 `json:"std_trip_avg_length"`
	AvgTripPrice  float64 `json:"avg_trip_avg_price"`
	StdTripPrice  float64 `json:"std_trip_avg_price"`

	AvgRatioServing     float64 `json:"avg_ratio_serving"`
	StdRatioServing     float64 `json:"std_ratio_serving"`
	EntropyRatioServing float64 `json:"entropy_ratio_serving"`

	AvgRatioCruising     float64 `json:"avg_ratio_cruising"`
	StdRatioCruising     float64 `json:"std_ratio_cruising"`
	EntropyRatioCruising float64 `json:"entropy_ratio_cruising"`

	AvgRatioOnline     float64 `json:"avg_ratio_online"`
	StdRatioOnline     float64 `json:"std_ratio_online"`
	EntropyRatioOnline float64 `json:"entropy_ratio_online"`

	AvgRatioWaiting     float64 `json:"avg_ratio_waiting"`
	StdRatioWaiting     float64 `json:"std_ratio_waiting"`
	EntropyRatioWaiting float64 `json:"entropy_ratio_waiting"`

	AvgRatioToRequest     float64 `json:"avg_ratio_to_request"`
	StdRatioToRequest     float64 `json:"std_ratio_to_request"`
	EntropyRatioToRequest float64 `json:"entropy_ratio_to_request"`

	AvgRequestCompleted   float64 `json:"avg_request_completed"`
	StdRequestCompleted   float64 `json:"std_request_completed"`
	AvgRequestLastWaiting float64 `json:"avg_request_last_waiting_times"`
	StdRequestLastWaiting float64 `json:"std_request_last_waiting_times"`
	AvgRequestLength      float64 `json:"avg_request_lengths"`
	StdRequestLength      float64 `json:"std_request_lengths"`
}

// FieldOrder is the column order used by the CSV export and the metric label
// order of the report sinks.
var FieldOrder = []string{
	"avg_trip_avg_length", "std_trip_avg_length",
	"avg_trip_avg_price", "std_trip_avg_price",
	"avg_ratio_serving", "std_ratio_serving", "entropy_ratio_serving",
	"avg_ratio_cruising", "std_ratio_cruising", "entropy_ratio_cruising",
	"avg_ratio_online", "std_ratio_online", "entropy_ratio_online",
	"avg_ratio_waiting", "std_ratio_waiting", "entropy_ratio_waiting",
	"avg_ratio_to_request", "std_ratio_to_request", "entropy_ratio_to_request",
	"avg_request_completed", "std_request_completed",
	"avg_request_last_waiting_times", "std_request_last_waiting_times",
	"avg_request_lengths", "std_request_lengths",
}

// Fields returns the record's numeric fields keyed by their FieldOrder name.
func (r BatchRecord) Fields() map[string]float64 {
	return map[string]float64{
		"avg_trip_avg_length":            r.AvgTripLength,
		"std_trip_avg_length":            r.StdTripLength,
		"avg_trip_avg_price":             r.AvgTripPrice,
		"std_trip_avg_price":             r.StdTripPrice,
		"avg_ratio_serving":              r.AvgRatioServing,
		"std_ratio_serving":              r.StdRatioServing,
		"entropy_ratio_serving":          r.EntropyRatioServing,
		"avg_ratio_cruising":             r.AvgRatioCruising,
		"std_ratio_cruising":             r.StdRatioCruising,
		"entropy_ratio_cruising":         r.EntropyRatioCruising,
		"avg_ratio_online":               r.AvgRatioOnline,
		"std_ratio_online":               r.StdRatioOnline,
		"entropy_ratio_online":           r.EntropyRatioOnline,
		"avg_ratio_waiting":              r.AvgRatioWaiting,
		"std_ratio_waiting":              r.StdRatioWaiting,
		"entropy_ratio_waiting":          r.EntropyRatioWaiting,
		"avg_ratio_to_request":           r.AvgRatioToRequest,
		"std_ratio_to_request":           r.StdRatioToRequest,
		"entropy_ratio_to_request":       r.EntropyRatioToRequest,
		"avg_request_completed":          r.AvgRequestCompleted,
		"std_request_completed":          r.StdRequestCompleted,
		"avg_request_last_waiting_times": r.AvgRequestLastWaiting,
		"std_request_last_waiting_times": r.StdRequestLastWaiting,
		"avg_request_lengths":            r.AvgRequestLength,
		"std_request_lengths":            r.StdRequestLength,
	}
}

// Aggregator computes per-taxi, per-request and aggregated statistics from
// registry state. It only reads; it is safe to invoke between ticks.
type Aggregator struct {
	reg     *registry.Registry
	pricing Pricing
}

// NewAggregator creates an aggregator over the given registry.
func NewAggregator(reg *registry.Registry, pricing Pricing) *Aggregator {
	return &Aggregator{reg: reg, pricing: pricing}
}

// PerTaxi computes trip statistics and activity ratios for every taxi.
func (a *Aggregator) PerTaxi(now int) PerTaxiMetrics {
	ids := a.reg.TaxiIDs()
	m := PerTaxiMetrics{
		Timestamp:        now,
		TripAvgLength:    make([]float64, 0, len(ids)),
		TripStdLength:    make([]float64, 0, len(ids)),
		TripAvgPrice:     make([]float64, 0, len(ids)),
		TripStdPrice:     make([]float64, 0, len(ids)),
		TripNumCompleted: make([]int, 0, len(ids)),
		RatioServing:     make([]float64, 0, len(ids)),
		RatioCruising:    make([]float64, 0, len(ids)),
		RatioOnline:      make([]float64, 0, len(ids)),
		RatioWaiting:     make([]float64, 0, len(ids)),
		RatioToRequest:   make([]float64, 0, len(ids)),
	}

	for _, id := range ids {
		t, _ := a.reg.Taxi(id)

		var lengths, prices []float64
		for _, reqID := range t.Completed {
			req, ok := a.reg.Request(reqID)
			if !ok {
				continue
			}
			lengths = append(lengths, float64(req.Length()))
			prices = append(prices, Earnings(t, a.pricing))
		}
		if len(prices) > 0 {
			m.TripAvgLength = append(m.TripAvgLength, nanMean(lengths))
			m.TripStdLength = append(m.TripStdLength, nanStd(lengths))
			m.TripAvgPrice = append(m.TripAvgPrice, nanMean(prices))
			m.TripStdPrice = append(m.TripStdPrice, nanStd(prices))
		} else {
			m.TripAvgLength = append(m.TripAvgLength, 0)
			m.TripStdLength = append(m.TripStdLength, math.NaN())
			m.TripAvgPrice = append(m.TripAvgPrice, 0)
			m.TripStdPrice = append(m.TripStdPrice, math.NaN())
		}
		m.TripNumCompleted = append(m.TripNumCompleted, len(t.Completed))

		s := float64(t.ServingTicks)
		w := float64(t.WaitingTicks)
		tr := float64(t.ToRequestTicks)
		c := float64(t.CruisingTicks)
		total := s + w + tr + c
		if total == 0 {
			total = math.NaN()
		}
		m.RatioServing = append(m.RatioServing, s/total)
		m.RatioCruising = append(m.RatioCruising, c/total)
		m.RatioOnline = append(m.RatioOnline, (s+tr)/total)
		m.RatioWaiting = append(m.RatioWaiting, w/total)
		m.RatioToRequest = append(m.RatioToRequest, tr/total)
	}
	return m
}

// PerRequest computes completion indicators, completed trip lengths and the
// waiting times of live requests created within the recent window.
func (a *Aggregator) PerRequest(now int) PerRequestMetrics {
	m := PerRequestMetrics{Timestamp: now}
	for _, id := range a.reg.RequestIDs() {
		req, _ := a.reg.Request(id)
		if req.DropoffAt != model.None {
			m.RequestCompleted = append(m.RequestCompleted, 1)
			m.RequestLengths = append(m.RequestLengths, float64(req.Length()))
		} else {
			m.RequestCompleted = append(m.RequestCompleted, 0)
			if req.Age(now) < recentWindow {
				m.RequestLastWaitingTimes = append(m.RequestLastWaitingTimes, float64(req.WaitingTime))
			}
		}
	}
	return m
}

// Aggregate reduces the per-taxi and per-request metrics to a single record:
// NaN-skipping mean and standard deviation per series, plus the entropy of
// each activity-ratio distribution across taxis.
func (a *Aggregator) Aggregate(pt PerTaxiMetrics, pr PerRequestMetrics) BatchRecord {
	return BatchRecord{
		Timestamp: pt.Timestamp,

		AvgTripLength: nanMean(pt.TripAvgLength),
		StdTripLength: nanStd(pt.TripAvgLength),
		AvgTripPrice:  nanMean(pt.TripAvgPrice),
		StdTripPrice:  nanStd(pt.TripAvgPrice),

		AvgRatioServing:     nanMean(pt.RatioServing),
		StdRatioServing:     nanStd(pt.RatioServing),
		EntropyRatioServing: ratioEntropy(pt.RatioServing),

		AvgRatioCruising:     nanMean(pt.RatioCruising),
		StdRatioCruising:     nanStd(pt.RatioCruising),
		EntropyRatioCruising: ratioEntropy(pt.RatioCruising),

		AvgRatioOnline:     nanMean(pt.RatioOnline),
		StdRatioOnline:     nanStd(pt.RatioOnline),
		EntropyRatioOnline: ratioEntropy(pt.RatioOnline),

		AvgRatioWaiting:     nanMean(pt.RatioWaiting),
		StdRatioWaiting:     nanStd(pt.RatioWaiting),
		EntropyRatioWaiting: ratioEntropy(pt.RatioWaiting),

		AvgRatioToRequest:     nanMean(pt.RatioToRequest),
		StdRatioToRequest:     nanStd(pt.RatioToRequest),
		EntropyRatioToRequest: ratioEntropy(pt.RatioToRequest),

		AvgRequestCompleted:   nanMean(pr.RequestCompleted),
		StdRequestCompleted:   nanStd(pr.RequestCompleted),
		AvgRequestLastWaiting: nanMean(pr.RequestLastWaitingTimes),
		StdRequestLastWaiting: nanStd(pr.RequestLastWaitingTimes),
		AvgRequestLength:      nanMean(pr.RequestLengths),
		StdRequestLength:      nanStd(pr.RequestLengths),
	}
}

func dropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func nanMean(xs []float64) float64 {
	clean := dropNaN(xs)
	if len(clean) == 0 {
		return math.NaN()
	}
	return stat.Mean(clean, nil)
}

func nanStd(xs []float64) float64 {
	clean := dropNaN(xs)
	if len(clean) == 0 {
		return math.NaN()
	}
	if len(clean) == 1 {
		return 0
	}
	return stat.PopStdDev(clean, nil)
}

// ratioEntropy computes the Shannon entropy of the distribution of a ratio
// across taxis, from a fixed-resolution density histogram.
func ratioEntropy(xs []float64) float64 {
	clean := dropNaN(xs)
	if len(clean) == 0 {
		return math.NaN()
	}
	lo, hi := floats.Min(clean), floats.Max(clean)
	if lo == hi {
		return 0
	}
	p := make([]float64, entropyBins)
	width := (hi - lo) / entropyBins
	for _, v := range clean {
		i := int((v - lo) / width)
		if i >= entropyBins {
			i = entropyBins - 1
		}
		p[i]++
	}
	total := float64(len(clean))
	for i := range p {
		p[i] /= total
	}
	return stat.Entropy(p)
}

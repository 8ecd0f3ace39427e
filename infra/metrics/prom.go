package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	corem "github.com/kilianp07/taxisim/core/metrics"
)

// PromSink exposes the latest batch record as Prometheus gauges.
type PromSink struct {
	tick   prometheus.Gauge
	values *prometheus.GaugeVec
}

// NewPromSink registers the simulation gauges on the provided Prometheus
// registerer. If reg is nil, the default registerer is used. If the
// collectors are already registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	tick := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "taxisim_tick",
		Help: "Simulation tick of the latest batch record",
	})
	values := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taxisim_batch_metric",
		Help: "Aggregated per-batch simulation metrics",
	}, []string{"name"})

	if err := reg.Register(tick); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			tick = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(values); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			values = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{tick: tick, values: values}, nil
}

// RecordBatch sets every gauge from the record.
func (s *PromSink) RecordBatch(rec corem.BatchRecord) error {
	s.tick.Set(float64(rec.Timestamp))
	for name, v := range rec.Fields() {
		s.values.WithLabelValues(name).Set(v)
	}
	return nil
}

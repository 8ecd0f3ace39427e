package metrics

import corem "github.com/kilianp07/taxisim/core/metrics"

// MultiSink fans batch records out to multiple sinks.
type MultiSink struct {
	Sinks []corem.ReportSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...corem.ReportSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordBatch forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordBatch(rec corem.BatchRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordBatch(rec); err != nil {
			return err
		}
	}
	return nil
}

package metrics

// ReportSink consumes one aggregated record per batch boundary. Sinks run
// between ticks only; they never observe mid-tick state.
type ReportSink interface {
	RecordBatch(rec BatchRecord) error
}

// NopSink discards all records.
type NopSink struct{}

// RecordBatch implements ReportSink.
func (NopSink) RecordBatch(BatchRecord) error { return nil }

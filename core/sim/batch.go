package sim

import (
	"context"
	"fmt"

	"github.com/kilianp07/taxisim/core/metrics"
)

// RunBatches executes ceil(max_time/batch_size) batches of ticks, emitting
// one aggregated record per batch boundary to the sink and returning all
// records. Cancellation is honored between ticks; a sink failure is logged
// and never aborts the run.
func (s *Simulation) RunBatches(ctx context.Context, sink metrics.ReportSink) ([]metrics.BatchRecord, error) {
	if s.cfg.BatchSize <= 0 || s.cfg.MaxTime <= 0 {
		return nil, fmt.Errorf("batch_size and max_time must be positive, got %d and %d", s.cfg.BatchSize, s.cfg.MaxTime)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}

	numIter := (s.cfg.MaxTime + s.cfg.BatchSize - 1) / s.cfg.BatchSize
	s.log.Infof("running %d batches of %d ticks, %d ticks total", numIter, s.cfg.BatchSize, numIter*s.cfg.BatchSize)

	records := make([]metrics.BatchRecord, 0, numIter)
	for i := 0; i < numIter; i++ {
		for k := 0; k < s.cfg.BatchSize; k++ {
			select {
			case <-ctx.Done():
				return records, ctx.Err()
			default:
			}
			s.Step()
		}

		rec := s.agg.Aggregate(s.agg.PerTaxi(s.tick), s.agg.PerRequest(s.tick))
		if err := sink.RecordBatch(rec); err != nil {
			s.log.Errorf("record batch %d: %v", i+1, err)
		}
		records = append(records, rec)
		s.log.Infof("batch %d/%d done, tick %d", i+1, numIter, s.tick)
	}
	return records, nil
}

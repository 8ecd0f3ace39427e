package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kilianp07/taxisim/config"
	corem "github.com/kilianp07/taxisim/core/metrics"
	"github.com/kilianp07/taxisim/core/sim"
	"github.com/kilianp07/taxisim/infra/logger"
	"github.com/kilianp07/taxisim/infra/metrics"
	"github.com/kilianp07/taxisim/pkg/export"
)

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New("taxisim")
	simulation, err := sim.New(cfg.Simulation, logg)
	if err != nil {
		return fmt.Errorf("build simulation: %w", err)
	}

	var sinks []corem.ReportSink
	if cfg.Metrics.PrometheusEnabled {
		promSink, err := metrics.NewPromSink(nil)
		if err != nil {
			return fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, promSink)
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.PrometheusAddr); err != nil {
				logg.Errorf("prom server: %v", err)
			}
		}()
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink corem.ReportSink = corem.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	runID := uuid.NewString()[:8]
	logg.Infof("starting run %s, policy %s", runID, cfg.Simulation.Matching)

	records, err := simulation.RunBatches(ctx, sink)
	if err != nil {
		return fmt.Errorf("run batches: %w", err)
	}

	if err := writeResults(simulation, records, runID); err != nil {
		return err
	}
	logg.Infof("run %s done, %d batches, final tick %d", runID, len(records), simulation.Tick())
	return nil
}

func writeResults(simulation *sim.Simulation, records []corem.BatchRecord, runID string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	agg := simulation.Aggregator()
	now := simulation.Tick()

	csvPath := filepath.Join(outDir, "run_"+runID+"_aggregates.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", csvPath, err)
	}
	defer f.Close()
	if err := export.WriteAggregatesCSV(f, records); err != nil {
		return fmt.Errorf("write aggregates: %w", err)
	}

	for name, payload := range map[string]any{
		"per_taxi_metrics":    agg.PerTaxi(now),
		"per_request_metrics": agg.PerRequest(now),
	} {
		path := filepath.Join(outDir, "run_"+runID+"_"+name+".json")
		jf, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := export.WriteJSON(jf, payload); err != nil {
			jf.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := jf.Close(); err != nil {
			return err
		}
	}
	return nil
}

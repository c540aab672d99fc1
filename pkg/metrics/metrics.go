// Package metrics is the simulator's in-process metrics registry (§6
// Metrics/observability). There is no HTTP surface (out of scope per §1),
// so the Registry is populated during a run and can be written to a
// Prometheus text-exposition file with DumpText, rather than served from a
// /metrics endpoint the way the engine codebase's PrometheusProvider does.
// The batchsim CLI does not call DumpText.
package metrics

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Registry holds the fixed set of counters/gauges the Orchestrator and
// Event Engine report against over the lifetime of one run.
type Registry struct {
	reg *prometheus.Registry

	EventsEmitted        prometheus.Counter
	TransfersExecuted    prometheus.Counter
	MortalityTotal       prometheus.Counter
	FeedConsumedKg       prometheus.Counter
	BatchesCompleted     prometheus.Counter
	BatchesFailed        prometheus.Counter
	WallTimeSeconds      prometheus.Gauge
	PeakWorkerOccupancy  prometheus.Gauge
}

// New builds a Registry with every metric registered against a fresh
// prometheus.Registry (never the global DefaultRegisterer, so multiple
// runs in the same process — e.g. in tests — never collide).
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		EventsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchsim_events_emitted_total", Help: "Total domain events emitted across all batches.",
		}),
		TransfersExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchsim_transfers_executed_total", Help: "Total completed TransferActions.",
		}),
		MortalityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchsim_mortality_total", Help: "Total fish mortality recorded across all batches.",
		}),
		FeedConsumedKg: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchsim_feed_consumed_kg_total", Help: "Total feed consumed in kilograms.",
		}),
		BatchesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchsim_batches_completed_total", Help: "Batches that reached COMPLETED status.",
		}),
		BatchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchsim_batches_failed_total", Help: "Batches that reached TERMINATED status.",
		}),
		WallTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "batchsim_run_wall_time_seconds", Help: "Wall-clock duration of the most recent orchestrator run.",
		}),
		PeakWorkerOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "batchsim_peak_worker_occupancy", Help: "Highest observed count of simultaneously busy workers.",
		}),
	}
	reg.MustRegister(
		r.EventsEmitted, r.TransfersExecuted, r.MortalityTotal, r.FeedConsumedKg,
		r.BatchesCompleted, r.BatchesFailed, r.WallTimeSeconds, r.PeakWorkerOccupancy,
	)
	return r
}

// DumpText writes the current registry state to path in Prometheus text
// exposition format, the file-based analogue of the engine codebase's
// promhttp.HandlerFor(reg, ...) /metrics endpoint.
func (r *Registry) DumpText(path string) error {
	families, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics dump %s: %w", path, err)
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Package orchestrator is the Orchestrator (C7): plans a cohort of batches
// across a run's geographies and stations, executes it with a bounded
// worker pool, and bulk-persists the resulting daily state and projection
// runs. It generalizes the reference codebase's DB-polling WorkerPool/
// Worker pair (pkg/queue) into an in-process, fixed-size batch scheduler:
// there is no external queue to poll, so a []engine.BatchPlan slice takes
// the place of claimed database sessions, and golang.org/x/sync/errgroup
// plus semaphore.Weighted take the place of the fixed worker goroutines
// the reference spawns against MaxConcurrentSessions.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/aquamind/batchsim/pkg/config"
	"github.com/aquamind/batchsim/pkg/directory"
	"github.com/aquamind/batchsim/pkg/engine"
	"github.com/aquamind/batchsim/pkg/events"
	"github.com/aquamind/batchsim/pkg/feedstock"
	"github.com/aquamind/batchsim/pkg/ledger"
	"github.com/aquamind/batchsim/pkg/metrics"
	"github.com/aquamind/batchsim/pkg/projection"
	"github.com/aquamind/batchsim/pkg/store"
)

// Deps wires the Orchestrator to the subsystems every worker dispatches
// its Engine.Run calls against. Ledger, Feed, ProjectionCounter, and the
// Publisher built internally from Store (or an in-memory sink) are shared
// across every concurrently-running batch, the same way the reference
// codebase shares one *ent.Client across its whole worker pool.
type Deps struct {
	Config            *config.Config
	Ledger            *ledger.Ledger
	Feed              *feedstock.Store
	ProjectionCounter *projection.Counter
	Metrics           *metrics.Registry
	Store             *store.Store // optional; nil runs without durable persistence
	Log               *slog.Logger
}

func (d Deps) directory() *directory.Directory { return d.Config.Directory }

func (d Deps) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

// Orchestrator runs the Plan -> Execute -> Post pipeline for one cohort of
// batches.
type Orchestrator struct {
	deps Deps
}

// New builds an Orchestrator against a fixed set of dependencies.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// BatchOutcome pairs a batch's plan with its Engine.Result, or the error
// that terminated it (TerminationReason on Result carries the same detail
// for a human-readable log line).
type BatchOutcome struct {
	Plan   engine.BatchPlan
	Result *engine.Result
	Err    error
}

// Report summarizes one end-to-end Run.
type Report struct {
	Plans        []engine.BatchPlan
	Outcomes     []BatchOutcome
	DailyStates  int
	WallTime     time.Duration
	FailureCount int
}

// Run executes the full Plan -> Execute -> Post pipeline against opts,
// persisting results to Deps.Store when one is configured.
func (o *Orchestrator) Run(ctx context.Context, opts PlanOptions) (*Report, error) {
	plans, err := o.Plan(opts)
	if err != nil {
		return nil, err
	}
	return o.RunPlans(ctx, plans)
}

// RunPlans runs Execute -> Post against an already-computed cohort,
// letting a caller review (or hand-edit) a schedule written by a prior
// --dry-run before committing to it.
func (o *Orchestrator) RunPlans(ctx context.Context, plans []engine.BatchPlan) (*Report, error) {
	start := time.Now()

	outcomes, sink := o.Execute(ctx, plans)

	report := &Report{Plans: plans, Outcomes: outcomes}
	for _, oc := range outcomes {
		if oc.Err != nil {
			report.FailureCount++
		}
	}

	if n, err := o.Post(ctx, outcomes, sink); err != nil {
		o.deps.logger().Error("post-phase failed", "error", err)
	} else {
		report.DailyStates = n
	}

	report.WallTime = time.Since(start)
	if o.deps.Metrics != nil {
		o.deps.Metrics.WallTimeSeconds.Set(report.WallTime.Seconds())
	}
	return report, nil
}

// SetStore wires a durable store in after construction, for callers (like
// the CLI) that only know whether persistence is needed once flags are
// parsed.
func (o *Orchestrator) SetStore(s *store.Store) { o.deps.Store = s }

// buildSink assembles the Sink every worker's shared BulkPublisher flushes
// to: the durable Store when configured, always tee'd through a
// MemorySink so the Post phase can replay the full stream for bulk
// assimilation (§4.7) without a round-trip read from the store.
func (o *Orchestrator) buildSink() (events.Sink, *events.MemorySink) {
	replay := events.NewMemorySink()
	if o.deps.Store == nil {
		return replay, replay
	}
	return teeSink{primary: o.deps.Store, replay: replay}, replay
}

// teeSink durably persists every batch and also buffers it in memory for
// the Post phase's event replay.
type teeSink struct {
	primary events.Sink
	replay  *events.MemorySink
}

func (t teeSink) WriteBatch(es []events.Envelope) error {
	if err := t.replay.WriteBatch(es); err != nil {
		return err
	}
	return t.primary.WriteBatch(es)
}

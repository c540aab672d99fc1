package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aquamind/batchsim/pkg/events"
	"github.com/aquamind/batchsim/pkg/ledger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Post bulk-persists every batch's outcome (§4.7 Post phase): the full
// per-container assignment history, the transfer workflows it ran, the
// projection scenario/run the Engine created, and the assimilated
// actual_daily_assignment_state rows derived from the replayed event
// stream. Work is embarrassingly parallel by batch, so it reuses the same
// bounded worker pool shape as Execute.
func (o *Orchestrator) Post(ctx context.Context, outcomes []BatchOutcome, replay *events.MemorySink) (int, error) {
	if o.deps.Store == nil {
		o.deps.logger().Info("post phase skipped: no store configured")
		return 0, nil
	}

	grouped := groupEnvelopesByBatch(replay.Snapshot())

	workerCount := o.deps.Config.Orchestrator.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}
	sem := semaphore.NewWeighted(int64(workerCount))
	var g errgroup.Group
	var totalDailyStates int64

	for _, oc := range outcomes {
		oc := oc
		if oc.Result == nil {
			continue // never placed; nothing to persist
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return int(totalDailyStates), err
		}
		g.Go(func() error {
			defer sem.Release(1)
			n, err := o.persistBatch(ctx, oc, grouped[oc.Plan.BatchNumber])
			if err != nil {
				// One batch's persistence failure shouldn't block the rest
				// from landing; surface it in the log rather than aborting.
				o.deps.logger().Error("post-phase persistence failed", "batch_number", oc.Plan.BatchNumber, "error", err)
				return nil
			}
			atomic.AddInt64(&totalDailyStates, int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(totalDailyStates), err
	}
	return int(totalDailyStates), nil
}

// persistBatch writes one batch's full CUD history, its finalized transfer
// workflows, its projection artifacts (if the Engine created one), and its
// assimilated daily state.
func (o *Orchestrator) persistBatch(ctx context.Context, oc BatchOutcome, envs []events.Envelope) (int, error) {
	batchNumber := oc.Plan.BatchNumber

	assignments := o.deps.Ledger.AllForBatch(batchNumber)
	flat := make([]ledger.Assignment, len(assignments))
	for i, a := range assignments {
		flat[i] = *a
	}
	if err := o.deps.Store.InsertAssignments(ctx, flat); err != nil {
		return 0, fmt.Errorf("insert assignments: %w", err)
	}

	for _, w := range oc.Result.Workflows {
		if err := o.deps.Store.InsertWorkflow(ctx, w); err != nil {
			return 0, fmt.Errorf("insert workflow %s: %w", w.ID, err)
		}
	}

	if oc.Result.CreatedScenario != nil {
		if err := o.deps.Store.InsertScenario(ctx, oc.Result.CreatedScenario); err != nil {
			return 0, fmt.Errorf("insert scenario: %w", err)
		}
	}
	if oc.Result.ProjectionRun != nil {
		if err := o.deps.Store.InsertRun(ctx, oc.Result.ProjectionRun); err != nil {
			return 0, fmt.Errorf("insert projection run: %w", err)
		}
	}

	states := assimilate(oc.Result.InitialAssignments, envs, o.deps.Ledger)
	if err := o.deps.Store.UpsertDailyStates(ctx, states); err != nil {
		return 0, fmt.Errorf("upsert daily states: %w", err)
	}
	return len(states), nil
}

package orchestrator_test

import (
	"context"
	"testing"

	"github.com/aquamind/batchsim/pkg/config"
	"github.com/aquamind/batchsim/pkg/engine"
	"github.com/aquamind/batchsim/pkg/feedstock"
	"github.com/aquamind/batchsim/pkg/ledger"
	"github.com/aquamind/batchsim/pkg/metrics"
	"github.com/aquamind/batchsim/pkg/orchestrator"
	"github.com/aquamind/batchsim/pkg/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestratorFromConfig(t *testing.T, cfg *config.Config) *orchestrator.Orchestrator {
	t.Helper()
	feed, err := feedstock.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { feed.Close() })

	return orchestrator.New(orchestrator.Deps{
		Config:            cfg,
		Ledger:            ledger.New(cfg.Directory.CapacityOf),
		Feed:              feed,
		ProjectionCounter: projection.NewCounter(),
		Metrics:           metrics.New(),
	})
}

func TestExecute_RunsEveryPlanAndReturnsOneOutcomeEach(t *testing.T) {
	cfg := singleStationConfig(t)
	o := newTestOrchestratorFromConfig(t, cfg)

	plans, err := o.Plan(orchestrator.PlanOptions{
		Geographies:  []string{"Testland"},
		BatchCount:   3,
		DurationDays: 5,
	})
	require.NoError(t, err)

	outcomes, sink := o.Execute(context.Background(), plans)
	require.Len(t, outcomes, 3)
	for _, oc := range outcomes {
		assert.NoError(t, oc.Err)
		require.NotNil(t, oc.Result)
		assert.Equal(t, 5, oc.Result.DaysCompleted)
	}
	assert.NotEmpty(t, sink.Snapshot())
}

func TestExecute_OneBatchFailureDoesNotAbortOthers(t *testing.T) {
	cfg := singleStationConfig(t)
	o := newTestOrchestratorFromConfig(t, cfg)

	good, err := o.Plan(orchestrator.PlanOptions{
		Geographies:  []string{"Testland"},
		BatchCount:   1,
		DurationDays: 5,
	})
	require.NoError(t, err)

	bad := engine.BatchPlan{
		BatchNumber:       "BAD-0001",
		Geography:         "Nowhere",
		Species:           "Atlantic Salmon",
		StartDate:         good[0].StartDate,
		InitialPopulation: 1000,
		DurationDays:      5,
	}

	plans := append([]engine.BatchPlan{bad}, good...)
	outcomes, _ := o.Execute(context.Background(), plans)
	require.Len(t, outcomes, 2)

	var sawFailure, sawSuccess bool
	for _, oc := range outcomes {
		if oc.Err != nil {
			sawFailure = true
		} else {
			sawSuccess = true
		}
	}
	assert.True(t, sawFailure, "the bad-geography batch should have failed")
	assert.True(t, sawSuccess, "the other batch should still have completed")
}

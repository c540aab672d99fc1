package orchestrator_test

import (
	"testing"
	"time"

	"github.com/aquamind/batchsim/pkg/engine"
	"github.com/aquamind/batchsim/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalSchedule_RoundTrips(t *testing.T) {
	plans := []engine.BatchPlan{
		{
			BatchNumber:       "FI-0001",
			Geography:         "Faroe Islands",
			Species:           "Atlantic Salmon",
			StartDate:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			InitialPopulation: 3_500_000,
			DurationDays:      900,
			StationIndex:      2,
		},
		{
			BatchNumber:       "SCT-0001",
			Geography:         "Scotland",
			Species:           "Atlantic Salmon",
			StartDate:         time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			InitialPopulation: 3_200_000,
			DurationDays:      900,
			StationIndex:      0,
		},
	}

	data, err := orchestrator.MarshalSchedule(plans)
	require.NoError(t, err)
	assert.Contains(t, string(data), "batch_number: FI-0001")

	out, err := orchestrator.UnmarshalSchedule(data)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range plans {
		assert.Equal(t, plans[i].BatchNumber, out[i].BatchNumber)
		assert.Equal(t, plans[i].Geography, out[i].Geography)
		assert.Equal(t, plans[i].InitialPopulation, out[i].InitialPopulation)
		assert.True(t, plans[i].StartDate.Equal(out[i].StartDate))
	}
}

package orchestrator

import (
	"testing"
	"time"

	"github.com/aquamind/batchsim/pkg/directory"
	"github.com/aquamind/batchsim/pkg/events"
	"github.com/aquamind/batchsim/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assimilate has no external seam (Post only calls it once a Store is
// configured), so it's exercised directly here rather than through Post.
func TestAssimilate_TracksMortalityAndTransferAcrossContainers(t *testing.T) {
	l := ledger.New(func(string) (float64, error) { return 1_000_000, nil })
	day0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	day1 := day0.AddDate(0, 0, 1)

	src, err := l.Open(ledger.OpenParams{
		BatchNumber: "FI-0001", ContainerID: "tank-1", Stage: directory.StageEggAlevin,
		Date: day0, PopulationCount: 100_000, AvgWeightG: 0.1,
	})
	require.NoError(t, err)

	initial := []ledger.Assignment{*src}

	dst, err := l.Open(ledger.OpenParams{
		BatchNumber: "FI-0001", ContainerID: "tank-2", Stage: directory.StageFry,
		Date: day1, PopulationCount: 0, AvgWeightG: 0, AllowMixed: true,
	})
	require.NoError(t, err)

	envs := []events.Envelope{
		{Topic: events.TopicEnvironmentalReading, BatchNumber: "FI-0001", DayNumber: 1, Date: day0,
			Payload: events.EnvironmentalReadingPayload{ContainerID: "tank-1"}},
		{Topic: events.TopicMortality, BatchNumber: "FI-0001", DayNumber: 1, Date: day0,
			Payload: events.MortalityPayload{ContainerID: "tank-1", Count: 500}},
		{Topic: events.TopicEnvironmentalReading, BatchNumber: "FI-0001", DayNumber: 2, Date: day1,
			Payload: events.EnvironmentalReadingPayload{ContainerID: "tank-1"}},
		{Topic: events.TopicTransferActionCompleted, BatchNumber: "FI-0001", DayNumber: 2, Date: day1,
			Payload: events.TransferActionCompletedPayload{
				SourceAssignmentID: src.ID, DestAssignmentID: dst.ID,
				TransferredCount: 99_000, MortalityDuring: 500, TransferredBiomassKg: 990,
			}},
	}

	states := assimilate(initial, envs, l)
	require.Len(t, states, 3) // (tank-1, day1), (tank-1, day2), (tank-2, day2)

	byKey := make(map[[2]any]struct {
		population int64
		in, out, mort int64
	})
	for _, s := range states {
		byKey[[2]any{s.ContainerID, s.DayNumber}] = struct {
			population    int64
			in, out, mort int64
		}{s.Population, s.TransfersIn, s.TransfersOut, s.Mortality}
	}

	day1Row := byKey[[2]any{"tank-1", 1}]
	assert.Equal(t, int64(99_500), day1Row.population) // 100k - 500 mortality
	assert.Equal(t, int64(500), day1Row.mort)

	day2SrcRow := byKey[[2]any{"tank-1", 2}]
	assert.Equal(t, int64(0), day2SrcRow.population) // fully transferred out
	assert.Equal(t, int64(99_000), day2SrcRow.out)
	assert.Equal(t, int64(500), day2SrcRow.mort) // mortality during transfer

	day2DstRow := byKey[[2]any{"tank-2", 2}]
	assert.Equal(t, int64(99_000), day2DstRow.population)
	assert.Equal(t, int64(99_000), day2DstRow.in)
}

func TestAssimilate_EmptyStreamReturnsNoRows(t *testing.T) {
	l := ledger.New(func(string) (float64, error) { return 1000, nil })
	assert.Nil(t, assimilate(nil, nil, l))
}

package ledger_test

import (
	"testing"
	"time"

	"github.com/aquamind/batchsim/pkg/directory"
	"github.com/aquamind/batchsim/pkg/ledger"
	"github.com/aquamind/batchsim/pkg/simerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capacityOf(max float64) func(string) (float64, error) {
	return func(string) (float64, error) { return max, nil }
}

func TestLedger_OpenAndCapacity(t *testing.T) {
	l := ledger.New(capacityOf(1000)) // 1000 kg cap
	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	a, err := l.Open(ledger.OpenParams{
		BatchNumber:     "FI-2025-001",
		ContainerID:     "tank-1",
		Stage:           directory.StageEggAlevin,
		Date:            today,
		PopulationCount: 350000,
		AvgWeightG:      0.1,
	})
	require.NoError(t, err)
	assert.InDelta(t, 35.0, a.BiomassKg, 0.001)

	_, err = l.Open(ledger.OpenParams{
		BatchNumber:     "FI-2025-001",
		ContainerID:     "tank-1",
		Stage:           directory.StageEggAlevin,
		Date:            today,
		PopulationCount: 10_000_000,
		AvgWeightG:      1000,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, simerr.ErrCapacityExceeded)
}

func TestLedger_ContainerBusy(t *testing.T) {
	l := ledger.New(capacityOf(100000))
	today := time.Now()

	_, err := l.Open(ledger.OpenParams{BatchNumber: "A", ContainerID: "c1", Date: today, PopulationCount: 10, AvgWeightG: 1})
	require.NoError(t, err)

	_, err = l.Open(ledger.OpenParams{BatchNumber: "B", ContainerID: "c1", Date: today, PopulationCount: 10, AvgWeightG: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, simerr.ErrContainerBusy)

	// allow_mixed bypasses the single-batch rule
	_, err = l.Open(ledger.OpenParams{BatchNumber: "B", ContainerID: "c1", Date: today, PopulationCount: 10, AvgWeightG: 1, AllowMixed: true})
	require.NoError(t, err)
}

func TestLedger_TransferZeroInit(t *testing.T) {
	l := ledger.New(capacityOf(100000))
	_, err := l.Open(ledger.OpenParams{
		BatchNumber: "A", ContainerID: "c1", PopulationCount: 5, AvgWeightG: 1, ForTransfer: true,
	})
	require.Error(t, err, "transfer destination with nonzero population must be rejected")

	dest, err := l.Open(ledger.OpenParams{
		BatchNumber: "A", ContainerID: "c2", PopulationCount: 0, AvgWeightG: 0, ForTransfer: true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, dest.PopulationCount)

	require.NoError(t, l.Credit(dest.ID, 100, 10.0))
	got, err := l.Get(dest.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 100, got.PopulationCount)
	assert.InDelta(t, 100.0, got.AvgWeightG, 0.001) // 10kg / 100 fish = 0.1kg = 100g
}

func TestLedger_DebitClosesOnZero(t *testing.T) {
	l := ledger.New(capacityOf(100000))
	today := time.Now()
	a, err := l.Open(ledger.OpenParams{BatchNumber: "A", ContainerID: "c1", Date: today, PopulationCount: 10, AvgWeightG: 1})
	require.NoError(t, err)

	require.NoError(t, l.Debit(a.ID, 10, today.AddDate(0, 0, 1)))
	got, err := l.Get(a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.DepartureDate)
	assert.Empty(t, l.ActiveInterval("c1"), "no overlap: closed assignment must not appear in active interval")
}

func TestLedger_NoOverlap(t *testing.T) {
	l := ledger.New(capacityOf(100000))
	today := time.Now()
	a, err := l.Open(ledger.OpenParams{BatchNumber: "A", ContainerID: "c1", Date: today, PopulationCount: 10, AvgWeightG: 1})
	require.NoError(t, err)
	require.NoError(t, l.Close(a.ID, today))

	// A new batch can now open the same container without contention.
	_, err = l.Open(ledger.OpenParams{BatchNumber: "B", ContainerID: "c1", Date: today, PopulationCount: 5, AvgWeightG: 1})
	require.NoError(t, err)
	assert.Len(t, l.ActiveInterval("c1"), 1)
}

func TestLedger_BiomassInvariant(t *testing.T) {
	l := ledger.New(capacityOf(100000))
	a, err := l.Open(ledger.OpenParams{BatchNumber: "A", ContainerID: "c1", PopulationCount: 1000, AvgWeightG: 50})
	require.NoError(t, err)
	assert.NoError(t, ledger.CheckInvariants(a))
}

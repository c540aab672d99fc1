package feedstock_test

import (
	"testing"

	"github.com/aquamind/batchsim/pkg/feedstock"
	"github.com/aquamind/batchsim/pkg/simerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PurchaseAndReserveFIFO(t *testing.T) {
	s, err := feedstock.Open("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Purchase("Starter Feed 1.0mm", "c1", 100))
	require.NoError(t, s.Purchase("Starter Feed 1.0mm", "c1", 100))

	result, err := s.Reserve("Starter Feed 1.0mm", "c1", 150, 0)
	require.NoError(t, err)
	assert.True(t, result.Fulfilled)

	total, err := s.TotalStockKg("Starter Feed 1.0mm", "c1")
	require.NoError(t, err)
	assert.InDelta(t, 50, total, 0.001)
}

func TestStore_AutoReplenishment(t *testing.T) {
	s, err := feedstock.Open("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Purchase("Starter Feed 1.0mm", "c1", 10)) // below 20% of 1000kg capacity
	result, err := s.Reserve("Starter Feed 1.0mm", "c1", 5, 1000)
	require.NoError(t, err)
	assert.Greater(t, result.ReplenishedKg, 0.0)
}

func TestStore_InsufficientStock(t *testing.T) {
	s, err := feedstock.Open("")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Reserve("Unknown Feed", "c1", 5, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, simerr.ErrFeedStockLow)
}

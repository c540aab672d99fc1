package metrics_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aquamind/batchsim/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DumpTextContainsRecordedValues(t *testing.T) {
	r := metrics.New()
	r.EventsEmitted.Add(42)
	r.TransfersExecuted.Inc()
	r.BatchesCompleted.Inc()
	r.PeakWorkerOccupancy.Set(6)

	path := filepath.Join(t.TempDir(), "metrics.txt")
	require.NoError(t, r.DumpText(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)

	assert.Contains(t, body, "batchsim_events_emitted_total 42")
	assert.Contains(t, body, "batchsim_transfers_executed_total 1")
	assert.Contains(t, body, "batchsim_batches_completed_total 1")
	assert.Contains(t, body, "batchsim_peak_worker_occupancy 6")
}

func TestNew_PanicsOnDoubleRegistrationAvoided(t *testing.T) {
	// Two independent registries must not collide, since each run gets its
	// own prometheus.Registry rather than sharing the global DefaultRegisterer.
	assert.NotPanics(t, func() {
		metrics.New()
		metrics.New()
	})
}

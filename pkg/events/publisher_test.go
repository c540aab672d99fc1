package events_test

import (
	"testing"
	"time"

	"github.com/aquamind/batchsim/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkPublisher_AutoFlush(t *testing.T) {
	sink := events.NewMemorySink()
	pub := events.NewBulkPublisher(sink, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, pub.Publish(events.Envelope{Topic: events.TopicMortality, BatchNumber: "FI-2025-001", DayNumber: i, Date: time.Now()}))
	}
	assert.Equal(t, 0, pub.Buffered(), "buffer should auto-flush at threshold")
	assert.Len(t, sink.Snapshot(), 3)
}

func TestBulkPublisher_ExplicitFlush(t *testing.T) {
	sink := events.NewMemorySink()
	pub := events.NewBulkPublisher(sink, 0) // disabled auto-flush
	require.NoError(t, pub.Publish(events.Envelope{Topic: events.TopicFeeding}))
	assert.Equal(t, 1, pub.Buffered())
	require.NoError(t, pub.Flush())
	assert.Equal(t, 0, pub.Buffered())
	assert.Len(t, sink.Snapshot(), 1)
}

func TestMarshal_RoundTrip(t *testing.T) {
	env := events.Envelope{
		Topic:       events.TopicGrowthSample,
		BatchNumber: "FI-2025-001",
		DayNumber:   7,
		Date:        time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		Payload:     events.GrowthSamplePayload{ContainerID: "c1", SampleSize: 30, MeanWeightG: 1.2},
	}
	raw, err := events.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"topic":"growth_sample"`)
}

package orchestrator

import (
	"github.com/aquamind/batchsim/pkg/events"
	"github.com/aquamind/batchsim/pkg/metrics"
)

// newCountingPublisher builds a BulkPublisher whose flushes also update
// the shared metrics.Registry, without the Event Engine itself needing to
// know metrics exist.
func newCountingPublisher(sink events.Sink, reg *metrics.Registry, flushAt int) *events.BulkPublisher {
	return events.NewBulkPublisher(countingSink{sink: sink, metrics: reg}, flushAt)
}

// countingSink is the Sink the BulkPublisher actually flushes to: it
// tallies per-topic metrics from each envelope before delegating the
// write to the real sink.
type countingSink struct {
	sink    events.Sink
	metrics *metrics.Registry
}

func (c countingSink) WriteBatch(es []events.Envelope) error {
	if c.metrics != nil {
		for _, e := range es {
			c.metrics.EventsEmitted.Inc()
			switch e.Topic {
			case events.TopicMortality:
				if p, ok := e.Payload.(events.MortalityPayload); ok {
					c.metrics.MortalityTotal.Add(float64(p.Count))
				}
			case events.TopicTransferActionCompleted:
				c.metrics.TransfersExecuted.Inc()
			case events.TopicFeeding:
				if p, ok := e.Payload.(events.FeedingPayload); ok {
					c.metrics.FeedConsumedKg.Add(p.AmountKg)
				}
			}
		}
	}
	return c.sink.WriteBatch(es)
}

// Package events is the outbound event-emission interface (§6): a
// push-style publisher that topics feeding, mortality, growth-sample,
// transfer, and projection activity out of the core. Envelopes are
// marshaled with json-iterator for low-overhead bulk flushes — a single
// 900-day batch emits roughly 400k of them.
package events

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Topic enumerates the outbound event topics named in spec §6.
type Topic string

const (
	TopicFeeding                  Topic = "feeding"
	TopicMortality                Topic = "mortality"
	TopicGrowthSample             Topic = "growth_sample"
	TopicLiceCount                Topic = "lice_count"
	TopicEnvironmentalReading     Topic = "environmental_reading"
	TopicTransferActionCompleted  Topic = "transfer_action_completed"
	TopicWorkflowCompleted        Topic = "workflow_completed"
	TopicProjectionRunCreated     Topic = "projection_run_created"
)

// Envelope wraps every published event with the addressing fields a
// downstream consumer needs regardless of topic.
type Envelope struct {
	Topic       Topic     `json:"topic"`
	BatchNumber string    `json:"batch_number"`
	DayNumber   int       `json:"day_number"`
	Date        time.Time `json:"date"`
	Payload     any       `json:"payload"`
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes an envelope using json-iterator, matching the
// encoding/json wire format exactly (ConfigCompatibleWithStandardLibrary)
// while avoiding its reflection overhead on the hot per-event path.
func Marshal(e Envelope) ([]byte, error) {
	return jsonAPI.Marshal(e)
}

// Publisher is the narrow interface the core depends on for outbound
// events. Implementations may buffer/bulk-flush; PublishBulk is the
// preferred path on the per-day hot loop.
type Publisher interface {
	Publish(e Envelope) error
	PublishBulk(es []Envelope) error
}

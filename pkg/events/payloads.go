package events

import "time"

// FeedingPayload backs a FeedingEvent.
type FeedingPayload struct {
	ContainerID        string  `json:"container_id"`
	FeedName            string  `json:"feed_name"`
	Time                 string  `json:"time"`
	AmountKg             float64 `json:"amount_kg"`
	BatchBiomassKg       float64 `json:"batch_biomass_kg,omitempty"`
	FeedingPercentage    float64 `json:"feeding_percentage,omitempty"`
	Method               string  `json:"method"`
	RecordedBy           string  `json:"recorded_by"`
}

// MortalityPayload backs a MortalityEvent.
type MortalityPayload struct {
	ContainerID  string `json:"container_id"`
	AssignmentID string `json:"assignment_id"`
	Count        int64  `json:"count"`
	Cause        string `json:"cause,omitempty"`
}

// GrowthSamplePayload backs a GrowthSample.
type GrowthSamplePayload struct {
	ContainerID   string  `json:"container_id"`
	AssignmentID  string  `json:"assignment_id"`
	SampleSize    int     `json:"sample_size"`
	MeanWeightG   float64 `json:"mean_weight_g"`
}

// LiceCountPayload backs a LiceCount (Adult stage only).
type LiceCountPayload struct {
	ContainerID     string  `json:"container_id"`
	AdultFemaleAvg  float64 `json:"adult_female_avg"`
	MobileAvg       float64 `json:"mobile_avg"`
}

// EnvironmentalReadingPayload backs one of the 6x7 daily readings.
type EnvironmentalReadingPayload struct {
	ContainerID string  `json:"container_id"`
	SensorType  string  `json:"sensor_type"`
	Time        string  `json:"time"`
	Value       float64 `json:"value"`
}

// TransferActionCompletedPayload announces a completed TransferAction.
type TransferActionCompletedPayload struct {
	WorkflowID          string  `json:"workflow_id"`
	ActionID            string  `json:"action_id"`
	SourceAssignmentID  string  `json:"source_assignment_id"`
	DestAssignmentID    string  `json:"dest_assignment_id"`
	TransferredCount    int64   `json:"transferred_count"`
	MortalityDuring     int64   `json:"mortality_during_transfer"`
	TransferredBiomassKg float64 `json:"transferred_biomass_kg"`
}

// WorkflowCompletedPayload announces a completed TransferWorkflow; an
// external finance hook subscribes to this topic (out of core scope).
type WorkflowCompletedPayload struct {
	WorkflowID string    `json:"workflow_id"`
	ActionCount int      `json:"action_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// ProjectionRunCreatedPayload announces a new ProjectionRun.
type ProjectionRunCreatedPayload struct {
	ScenarioID    string `json:"scenario_id"`
	RunID         string `json:"run_id"`
	RunNumber     int    `json:"run_number"`
	DurationDays  int    `json:"duration_days"`
}

package directory

import "fmt"

// LifecycleStage is one of the six ordered biological stages a batch moves
// through, from egg to harvest-ready adult.
type LifecycleStage int

const (
	StageEggAlevin LifecycleStage = iota + 1
	StageFry
	StageParr
	StageSmolt
	StagePostSmolt
	StageAdult
)

// String renders the stage the way it is referenced throughout events and
// logs ("Egg&Alevin", "Fry", ...).
func (s LifecycleStage) String() string {
	switch s {
	case StageEggAlevin:
		return "Egg&Alevin"
	case StageFry:
		return "Fry"
	case StageParr:
		return "Parr"
	case StageSmolt:
		return "Smolt"
	case StagePostSmolt:
		return "Post-Smolt"
	case StageAdult:
		return "Adult"
	default:
		return fmt.Sprintf("LifecycleStage(%d)", int(s))
	}
}

// Next returns the stage that follows s, and false if s is the terminal
// Adult stage.
func (s LifecycleStage) Next() (LifecycleStage, bool) {
	if s >= StageAdult {
		return s, false
	}
	return s + 1, true
}

// IsFreshwater reports whether the stage is reared in freshwater halls
// (Egg&Alevin through Smolt) as opposed to seawater sea-rings.
func (s LifecycleStage) IsFreshwater() bool {
	return s >= StageEggAlevin && s <= StageSmolt
}

// HallRole is the hall designation a hall-reared stage is reared in:
// Egg&Alevin -> A, Fry -> B, Parr -> C, Smolt -> D, Post-Smolt -> E.
func (s LifecycleStage) HallRole() (string, bool) {
	switch s {
	case StageEggAlevin:
		return "A", true
	case StageFry:
		return "B", true
	case StageParr:
		return "C", true
	case StageSmolt:
		return "D", true
	case StagePostSmolt:
		return "E", true
	default:
		return "", false
	}
}

// AllStages lists the six lifecycle stages in order, for callers (config
// loading, reporting) that need to range over every stage.
var AllStages = []LifecycleStage{
	StageEggAlevin, StageFry, StageParr, StageSmolt, StagePostSmolt, StageAdult,
}

// DefaultStageDurationDays are the canonical per-stage day counts; they sum
// to the full 900-day lifecycle.
var DefaultStageDurationDays = map[LifecycleStage]int{
	StageEggAlevin: 90,
	StageFry:       90,
	StageParr:      90,
	StageSmolt:     90,
	StagePostSmolt: 90,
	StageAdult:     450,
}

// StageSafetyWeightCapG is a permissive upper bound on average weight used
// only as a safety limit on growth, never as a transition trigger.
var StageSafetyWeightCapG = map[LifecycleStage]float64{
	StageFry:       10,
	StageParr:      100,
	StageSmolt:     250,
	StagePostSmolt: 700,
	StageAdult:     8000,
}

// CumulativeStageEndDay returns the day number (1-indexed from batch start)
// on which stage completes, given a duration table (normally
// DefaultStageDurationDays).
func CumulativeStageEndDay(stage LifecycleStage, durations map[LifecycleStage]int) int {
	total := 0
	for s := StageEggAlevin; s <= stage; s++ {
		total += durations[s]
	}
	return total
}

// TotalDurationDays sums a stage duration table across the full lifecycle
// (900 days for DefaultStageDurationDays), used by the Orchestrator's Plan
// phase to size batch runs when no explicit duration is given.
func TotalDurationDays(durations map[LifecycleStage]int) int {
	total := 0
	for _, s := range AllStages {
		total += durations[s]
	}
	return total
}

// StageForDay returns which stage is active on the given cumulative day
// number (1-indexed), used by both the Event Engine and the Projection
// Engine for time-based transitions.
func StageForDay(day int, durations map[LifecycleStage]int) LifecycleStage {
	cursor := 0
	for s := StageEggAlevin; s <= StageAdult; s++ {
		cursor += durations[s]
		if day <= cursor {
			return s
		}
	}
	return StageAdult
}

// Package ledger is the Assignment Ledger (C2): the authoritative store of
// batch-in-container records. Every mutation is serialized per container,
// mirroring the way the teacher codebase's worker pool serializes session
// state per session ID behind a single map + mutex.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aquamind/batchsim/pkg/directory"
	"github.com/aquamind/batchsim/pkg/simerr"
	"github.com/google/uuid"
)

// Assignment is a BatchContainerAssignment: the record linking a batch to a
// container for a period, carrying population and biomass.
type Assignment struct {
	ID             string
	BatchNumber    string
	ContainerID    string
	Stage          directory.LifecycleStage
	AssignmentDate time.Time
	DepartureDate  *time.Time
	PopulationCount int64
	AvgWeightG     float64
	BiomassKg      float64
	IsActive       bool
}

// biomassToleranceFraction is the fp-tolerant slack permitted between
// biomass_kg and population*avg_weight_g/1000 (spec §3 biomass invariant).
const biomassToleranceFraction = 0.01

func computeBiomass(population int64, avgWeightG float64) float64 {
	return float64(population) * avgWeightG / 1000.0
}

func biomassConsistent(population int64, avgWeightG, biomassKg float64) bool {
	expected := computeBiomass(population, avgWeightG)
	if expected == 0 {
		return biomassKg == 0
	}
	diff := biomassKg - expected
	if diff < 0 {
		diff = -diff
	}
	return diff < biomassToleranceFraction*expected
}

// containerState tracks the single open assignment for a container, since
// the single-batch rule admits at most one active assignment per container
// unless allow_mixed is set.
type containerState struct {
	mu     sync.Mutex
	active map[string]*Assignment // assignment ID -> assignment, only active ones
}

// Ledger is the in-process Assignment Ledger. Mutations are serialized per
// container key; reads of distinct containers never block each other.
type Ledger struct {
	capacity func(containerID string) (float64, error)

	mu       sync.RWMutex // protects the containers map and byID index
	containers map[string]*containerState
	byID     map[string]*Assignment
}

// New builds a Ledger backed by a capacity lookup (normally
// directory.Directory.CapacityOf).
func New(capacity func(containerID string) (float64, error)) *Ledger {
	return &Ledger{
		capacity:   capacity,
		containers: make(map[string]*containerState),
		byID:       make(map[string]*Assignment),
	}
}

func (l *Ledger) stateFor(containerID string) *containerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	cs, ok := l.containers[containerID]
	if !ok {
		cs = &containerState{active: make(map[string]*Assignment)}
		l.containers[containerID] = cs
	}
	return cs
}

// OpenParams carries the arguments to Open.
type OpenParams struct {
	BatchNumber     string
	ContainerID     string
	Stage           directory.LifecycleStage
	Date            time.Time
	PopulationCount int64
	AvgWeightG      float64
	// ForTransfer marks this assignment as a transfer destination; the
	// spec's zero-init rule (§9) requires PopulationCount == 0 in this
	// case, with population credited only via TransferAction records.
	ForTransfer bool
	// AllowMixed permits opening against a container already holding an
	// active assignment for a different batch (§4.2).
	AllowMixed bool
}

// Open creates a new assignment, enforcing the capacity and container-busy
// invariants atomically against the container's serialization key.
func (l *Ledger) Open(p OpenParams) (*Assignment, error) {
	if p.ForTransfer && p.PopulationCount != 0 {
		return nil, simerr.Wrap(simerr.KindInvariant, p.BatchNumber, 0, p.ContainerID, "",
			fmt.Errorf("%w: transfer destinations must zero-init population", simerr.ErrOverlappingAssignment))
	}
	if p.PopulationCount < 0 {
		return nil, simerr.Wrap(simerr.KindInvariant, p.BatchNumber, 0, p.ContainerID, "", simerr.ErrNegativePopulation)
	}

	cs := l.stateFor(p.ContainerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !p.AllowMixed {
		for _, existing := range cs.active {
			if existing.BatchNumber != p.BatchNumber {
				return nil, simerr.Wrap(simerr.KindContention, p.BatchNumber, 0, p.ContainerID, "", simerr.ErrContainerBusy)
			}
		}
	}

	biomass := computeBiomass(p.PopulationCount, p.AvgWeightG)
	cap, err := l.capacity(p.ContainerID)
	if err != nil {
		return nil, err
	}
	if biomass > cap {
		return nil, simerr.Wrap(simerr.KindInvariant, p.BatchNumber, 0, p.ContainerID, "", simerr.ErrCapacityExceeded)
	}

	a := &Assignment{
		ID:              uuid.New().String(),
		BatchNumber:     p.BatchNumber,
		ContainerID:     p.ContainerID,
		Stage:           p.Stage,
		AssignmentDate:  p.Date,
		PopulationCount: p.PopulationCount,
		AvgWeightG:      p.AvgWeightG,
		BiomassKg:       biomass,
		IsActive:        true,
	}
	cs.active[a.ID] = a

	l.mu.Lock()
	l.byID[a.ID] = a
	l.mu.Unlock()

	return a, nil
}

// Credit increases population via a completed TransferAction, recomputing
// avg_weight_g from the caller-supplied biomass (§4.2).
func (l *Ledger) Credit(assignmentID string, count int64, biomassKg float64) error {
	a, err := l.get(assignmentID)
	if err != nil {
		return err
	}
	cs := l.stateFor(a.ContainerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if count < 0 {
		return simerr.Wrap(simerr.KindInvariant, a.BatchNumber, 0, a.ContainerID, a.ID, simerr.ErrNegativePopulation)
	}
	newPopulation := a.PopulationCount + count
	newBiomass := a.BiomassKg + biomassKg
	a.PopulationCount = newPopulation
	a.BiomassKg = newBiomass
	if newPopulation > 0 {
		a.AvgWeightG = (newBiomass * 1000.0) / float64(newPopulation)
	}
	return nil
}

// Debit decreases population (used directly, e.g. by mortality or by a
// transfer source). If population reaches 0 the assignment closes.
func (l *Ledger) Debit(assignmentID string, count int64, today time.Time) error {
	a, err := l.get(assignmentID)
	if err != nil {
		return err
	}
	cs := l.stateFor(a.ContainerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if count < 0 || count > a.PopulationCount {
		return simerr.Wrap(simerr.KindInvariant, a.BatchNumber, 0, a.ContainerID, a.ID, simerr.ErrNegativePopulation)
	}
	a.PopulationCount -= count
	a.BiomassKg = computeBiomass(a.PopulationCount, a.AvgWeightG)
	if a.PopulationCount == 0 {
		l.closeLocked(cs, a, today)
	}
	return nil
}

// RecordMortality decrements population for a mortality event (wraps Debit
// with intent-specific naming for callers/tests).
func (l *Ledger) RecordMortality(assignmentID string, count int64, today time.Time) error {
	return l.Debit(assignmentID, count, today)
}

// UpdateGrowth sets a new average weight (and recomputed biomass) on an
// active assignment, called once per day by the Event Engine's growth step.
func (l *Ledger) UpdateGrowth(assignmentID string, newAvgWeightG float64) error {
	a, err := l.get(assignmentID)
	if err != nil {
		return err
	}
	cs := l.stateFor(a.ContainerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	a.AvgWeightG = newAvgWeightG
	a.BiomassKg = computeBiomass(a.PopulationCount, a.AvgWeightG)
	return nil
}

// Close hard-closes an assignment even with non-zero population (used when
// a stage completes without a full transfer, e.g. cancellation).
func (l *Ledger) Close(assignmentID string, date time.Time) error {
	a, err := l.get(assignmentID)
	if err != nil {
		return err
	}
	cs := l.stateFor(a.ContainerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	l.closeLocked(cs, a, date)
	return nil
}

func (l *Ledger) closeLocked(cs *containerState, a *Assignment, date time.Time) {
	a.IsActive = false
	d := date
	a.DepartureDate = &d
	delete(cs.active, a.ID)
}

// ActiveInterval returns the open assignments for a container (size <= 1
// under the single-batch rule, more only when allow_mixed was used).
func (l *Ledger) ActiveInterval(containerID string) []*Assignment {
	cs := l.stateFor(containerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]*Assignment, 0, len(cs.active))
	for _, a := range cs.active {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// Get returns a copy of the assignment by ID.
func (l *Ledger) Get(assignmentID string) (*Assignment, error) {
	a, err := l.get(assignmentID)
	if err != nil {
		return nil, err
	}
	cp := *a
	return &cp, nil
}

func (l *Ledger) get(assignmentID string) (*Assignment, error) {
	l.mu.RLock()
	a, ok := l.byID[assignmentID]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: assignment %q", simerr.ErrNotFound, assignmentID)
	}
	return a, nil
}

// ActiveForBatch returns all currently active assignments for a batch, in
// deterministic container-ID order.
func (l *Ledger) ActiveForBatch(batchNumber string) []*Assignment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Assignment
	for _, a := range l.byID {
		if a.BatchNumber == batchNumber && a.IsActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContainerID < out[j].ContainerID })
	return out
}

// AllForBatch returns every assignment ever opened for a batch, active or
// closed, in deterministic container-ID order — the full per-container
// history a bulk persistence pass needs (unlike ActiveForBatch, which only
// reports the currently-open interval).
func (l *Ledger) AllForBatch(batchNumber string) []*Assignment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Assignment
	for _, a := range l.byID {
		if a.BatchNumber == batchNumber {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContainerID != out[j].ContainerID {
			return out[i].ContainerID < out[j].ContainerID
		}
		return out[i].AssignmentDate.Before(out[j].AssignmentDate)
	})
	return out
}

// CheckInvariants verifies the biomass-consistency invariant for an
// assignment snapshot; used by tests exercising P3.
func CheckInvariants(a *Assignment) error {
	if !biomassConsistent(a.PopulationCount, a.AvgWeightG, a.BiomassKg) {
		return simerr.Wrap(simerr.KindInvariant, a.BatchNumber, 0, a.ContainerID, a.ID, simerr.ErrBiomassMismatch)
	}
	if a.PopulationCount < 0 {
		return simerr.Wrap(simerr.KindInvariant, a.BatchNumber, 0, a.ContainerID, a.ID, simerr.ErrNegativePopulation)
	}
	return nil
}

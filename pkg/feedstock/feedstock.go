// Package feedstock is the feed-inventory subsystem (§4.4, §5): a
// per-(feed,container) FIFO stock with atomic reserve/replenish, backed by
// an embedded transactional KV store (buntdb) rather than a network round
// trip on the per-event hot path.
package feedstock

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aquamind/batchsim/pkg/simerr"
	"github.com/tidwall/buntdb"
)

// Lot is one FIFO-ordered purchase of feed stock.
type Lot struct {
	Sequence  int64   `json:"sequence"`
	RemainingKg float64 `json:"remaining_kg"`
}

// replenishmentThreshold triggers an automatic FIFO purchase once stock
// falls below this fraction of container capacity (§4.4).
const replenishmentThreshold = 0.20

// ReplenishAmountKg is the size of an automatic replenishment purchase.
const ReplenishAmountKg = 5000.0

// Store manages feed inventory keyed by "feedName|containerID".
type Store struct {
	db       *buntdb.DB
	mu       sync.Mutex
	sequence int64
}

// Open creates a Store backed by an in-process buntdb database. Passing
// "" opens an ephemeral in-memory database (the normal mode for a
// simulation run — durability is handled by the bulk event/assimilation
// writers, not the feed ledger itself).
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feedstock store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func key(feedName, containerID string) string {
	return feedName + "|" + containerID
}

func (s *Store) lots(tx *buntdb.Tx, k string) ([]Lot, error) {
	raw, err := tx.Get(k)
	if err != nil {
		if err == buntdb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var lots []Lot
	if err := json.Unmarshal([]byte(raw), &lots); err != nil {
		return nil, err
	}
	return lots, nil
}

func (s *Store) setLots(tx *buntdb.Tx, k string, lots []Lot) error {
	raw, err := json.Marshal(lots)
	if err != nil {
		return err
	}
	_, _, err = tx.Set(k, string(raw), nil)
	return err
}

// Purchase adds a new FIFO lot of feed stock for (feedName, containerID).
func (s *Store) Purchase(feedName, containerID string, amountKg float64) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		k := key(feedName, containerID)
		lots, err := s.lots(tx, k)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.sequence++
		seq := s.sequence
		s.mu.Unlock()
		lots = append(lots, Lot{Sequence: seq, RemainingKg: amountKg})
		return s.setLots(tx, k, lots)
	})
}

// ReservationResult reports the outcome of a Reserve call.
type ReservationResult struct {
	Fulfilled       bool
	ReplenishedKg   float64
}

// Reserve consumes amountKg from the FIFO queue for (feedName, containerID).
// If available stock (including an automatic replenishment when the
// container's capacity fraction is supplied) is insufficient, it returns
// simerr.ErrFeedStockLow wrapped with KindContention.
func (s *Store) Reserve(feedName, containerID string, amountKg, containerCapacityKg float64) (ReservationResult, error) {
	var result ReservationResult
	err := s.db.Update(func(tx *buntdb.Tx) error {
		k := key(feedName, containerID)
		lots, err := s.lots(tx, k)
		if err != nil {
			return err
		}

		total := totalRemaining(lots)
		if containerCapacityKg > 0 && total < replenishmentThreshold*containerCapacityKg {
			s.mu.Lock()
			s.sequence++
			seq := s.sequence
			s.mu.Unlock()
			lots = append(lots, Lot{Sequence: seq, RemainingKg: ReplenishAmountKg})
			result.ReplenishedKg = ReplenishAmountKg
			total += ReplenishAmountKg
		}

		if total < amountKg {
			return simerr.Wrap(simerr.KindContention, "", 0, containerID, "", simerr.ErrFeedStockLow)
		}

		sort.Slice(lots, func(i, j int) bool { return lots[i].Sequence < lots[j].Sequence })
		remaining := amountKg
		kept := lots[:0]
		for _, lot := range lots {
			if remaining <= 0 {
				kept = append(kept, lot)
				continue
			}
			if lot.RemainingKg <= remaining {
				remaining -= lot.RemainingKg
				continue
			}
			lot.RemainingKg -= remaining
			remaining = 0
			kept = append(kept, lot)
		}
		result.Fulfilled = true
		return s.setLots(tx, k, kept)
	})
	return result, err
}

// TotalStockKg returns the current total stock for (feedName, containerID).
func (s *Store) TotalStockKg(feedName, containerID string) (float64, error) {
	var total float64
	err := s.db.View(func(tx *buntdb.Tx) error {
		lots, err := s.lots(tx, key(feedName, containerID))
		if err != nil {
			return err
		}
		total = totalRemaining(lots)
		return nil
	})
	return total, err
}

func totalRemaining(lots []Lot) float64 {
	var total float64
	for _, l := range lots {
		total += l.RemainingKg
	}
	return total
}

package store

import (
	"context"
	"fmt"

	"github.com/aquamind/batchsim/pkg/events"
	"github.com/jackc/pgx/v5"
)

// WriteBatch implements events.Sink, letting a Store be plugged directly
// into events.NewBulkPublisher as the durable event archive (§6).
func (s *Store) WriteBatch(es []events.Envelope) error {
	if len(es) == 0 {
		return nil
	}
	ctx := context.Background()
	b := &pgx.Batch{}
	for _, e := range es {
		payload, err := events.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		b.Queue(`
			INSERT INTO events (topic, batch_number, day_number, event_date, payload)
			VALUES ($1, $2, $3, $4, $5)`,
			string(e.Topic), e.BatchNumber, e.DayNumber, e.Date, payload,
		)
	}
	results := s.pool.SendBatch(ctx, b)
	defer results.Close()
	for range es {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}

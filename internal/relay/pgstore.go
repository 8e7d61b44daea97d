package relay

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const errPGStoreNotConfigured = "relay pg store not configured"

// PGStore persists queued events in Postgres. NextDue claims inside one
// transaction: a CTE with FOR UPDATE SKIP LOCKED selects the oldest due row
// and the same statement leases it by pushing next_attempt_at forward, so the
// claim survives commit and several dispatchers can share one table without
// double delivery.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps an existing pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Append(ctx context.Context, ev Event) error {
	if s == nil || s.pool == nil {
		return errors.New(errPGStoreNotConfigured)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO relay_outbox (id, event, payload, created_at, attempts, next_attempt_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.Name, ev.Payload, ev.CreatedAt, ev.Attempts, ev.NextAttemptAt,
	)
	return err
}

func (s *PGStore) NextDue(ctx context.Context, now time.Time) (*Event, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New(errPGStoreNotConfigured)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ev Event
	err = tx.QueryRow(ctx,
		`WITH due AS (
			SELECT id
			FROM relay_outbox
			WHERE next_attempt_at <= $1
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE relay_outbox o
		SET next_attempt_at = $2, updated_at = now()
		FROM due
		WHERE o.id = due.id
		RETURNING o.id, o.event, o.payload, o.created_at, o.attempts, o.next_attempt_at`,
		now, now.Add(claimLease),
	).Scan(&ev.ID, &ev.Name, &ev.Payload, &ev.CreatedAt, &ev.Attempts, &ev.NextAttemptAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *PGStore) Reschedule(ctx context.Context, id string, attempts int, next time.Time) error {
	if s == nil || s.pool == nil {
		return errors.New(errPGStoreNotConfigured)
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE relay_outbox
		 SET attempts = $2, next_attempt_at = $3, updated_at = now()
		 WHERE id = $1`,
		id, attempts, next,
	)
	return err
}

func (s *PGStore) Remove(ctx context.Context, id string) error {
	if s == nil || s.pool == nil {
		return errors.New(errPGStoreNotConfigured)
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM relay_outbox WHERE id = $1`, id)
	return err
}

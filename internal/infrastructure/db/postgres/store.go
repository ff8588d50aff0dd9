package postgres

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx so one set of queries
// serves plain reads and transactional work.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool       *pgxpool.Pool
	maxRetries int
	log        zerolog.Logger
}

var _ domain.Store = (*Store)(nil)

func New(pool *pgxpool.Pool, maxRetries int, log zerolog.Logger) *Store {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Store{
		pool:       pool,
		maxRetries: maxRetries,
		log:        log.With().Str("component", "postgres_store").Logger(),
	}
}

func (s *Store) Events() domain.EventStore     { return &repo{db: s.pool} }
func (s *Store) Requests() domain.RequestStore { return &repo{db: s.pool} }
func (s *Store) Directory() domain.Directory   { return &repo{db: s.pool} }

func (s *Store) WithTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	return s.retry(ctx, 0, func() error {
		return s.inTx(ctx, func(tx pgx.Tx) error {
			return fn(&repo{db: tx})
		})
	})
}

// WithEventLock locks the event row FOR UPDATE before running fn. Lock order
// is always event row first, then request rows, for every caller.
func (s *Store) WithEventLock(ctx context.Context, eventID int64, fn func(tx domain.Tx, e *domain.Event) error) error {
	return s.retry(ctx, eventID, func() error {
		return s.inTx(ctx, func(tx pgx.Tx) error {
			r := &repo{db: tx}
			ev, err := r.getEvent(ctx, `WHERE e.id = $1 FOR UPDATE OF e`, eventID)
			if err != nil {
				return err
			}
			return fn(r, ev)
		})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// retry reruns op after serialization failures and deadlocks. When the
// attempts run out the caller gets a conflict it can retry itself.
func (s *Store) retry(ctx context.Context, eventID int64, op func() error) error {
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil || !retryable(err) {
			return mapErr(err)
		}
		if attempt >= s.maxRetries {
			metrics.RecordLockExhausted()
			s.log.Warn().Err(err).Int64("event_id", eventID).Int("attempts", attempt+1).Msg("event lock retries exhausted")
			return domain.ErrConflict("capacity changed, retry")
		}

		metrics.RecordLockRetry()
		s.log.Debug().Err(err).Int64("event_id", eventID).Int("attempt", attempt+1).Msg("retrying transaction")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
}

// backoff grows linearly from 10ms with up to 50% jitter.
func backoff(attempt int) time.Duration {
	d := time.Duration(attempt+1) * 10 * time.Millisecond
	return d + time.Duration(rand.Int63n(int64(d/2)+1))
}

const (
	sqlStateSerialization = "40001"
	sqlStateDeadlock      = "40P01"
	sqlStateUnique        = "23505"
	sqlStateForeignKey    = "23503"
	sqlStateCheck         = "23514"
)

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerialization || pgErr.Code == sqlStateDeadlock
	}
	return false
}

// mapErr turns constraint violations into domain errors. Anything else
// passes through unchanged.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case sqlStateUnique:
		return domain.ErrConflictMeta("integrity constraint violated", map[string]string{"constraint": pgErr.ConstraintName})
	case sqlStateForeignKey:
		return domain.ErrNotFound("referenced entity not found")
	case sqlStateCheck:
		return domain.ErrConflictMeta("integrity constraint violated", map[string]string{"constraint": pgErr.ConstraintName})
	}
	return err
}

// repo implements the domain stores and domain.Tx over a dbtx.
type repo struct {
	db dbtx
}

func (r *repo) Events() domain.EventStore     { return r }
func (r *repo) Requests() domain.RequestStore { return r }
func (r *repo) Directory() domain.Directory   { return r }

package postgres

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
)

// Enqueue stores msg in the outbox as part of the current transaction.
func (r *repo) Enqueue(ctx context.Context, msg domain.OutboxMessage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO outbox (message_id, routing_key, payload, occurred_at, status)
		VALUES ($1, $2, $3, $4, 'pending')
	`, msg.MessageID, msg.RoutingKey, msg.Body, msg.CreatedAt)
	return err
}

// Publisher delivers one outbox message to the broker. It must return only
// after the broker acknowledged the message.
type Publisher interface {
	PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error
}

const (
	outboxBatchSize   = 20
	outboxMaxAttempts = 12 // ~ up to hours with exponential backoff
	outboxInFlight    = 15 * time.Second
)

// backoff: exponential with jitter, bounded
func computeNextRetry(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	// base: 2^attempt seconds, cap at 30 minutes
	sec := math.Pow(2, float64(attempt))
	if sec < 5 {
		sec = 5
	}
	if sec > 1800 {
		sec = 1800
	}

	d := time.Duration(sec) * time.Second

	// jitter +/-10%
	j := time.Duration(rand.Int63n(int64(d/5))) - d/10
	return d + j
}

type outboxRow struct {
	ID         int64
	MessageID  string
	RoutingKey string
	Payload    []byte
	Attempt    int
}

// OutboxWorker relays pending outbox rows to the broker. Several workers may
// run against one database; rows are claimed with SKIP LOCKED.
type OutboxWorker struct {
	pool     *pgxpool.Pool
	pub      Publisher
	audit    *audit.Logger
	log      zerolog.Logger
	interval time.Duration
}

func NewOutboxWorker(pool *pgxpool.Pool, pub Publisher, aud *audit.Logger, log zerolog.Logger) *OutboxWorker {
	return &OutboxWorker{
		pool:     pool,
		pub:      pub,
		audit:    aud,
		log:      log.With().Str("component", "outbox_worker").Logger(),
		interval: 500 * time.Millisecond,
	}
}

// Run polls until ctx is canceled.
func (w *OutboxWorker) Run(ctx context.Context) {
	// Polling interval can be longer because next_retry_at gates load.
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastErr string
	var lastAt time.Time

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopped")
			return
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				if err.Error() != lastErr || time.Since(lastAt) > 10*time.Second {
					w.log.Warn().Err(err).Msg("outbox batch failed")
					lastErr = err.Error()
					lastAt = time.Now()
				}
			} else {
				lastErr = ""
			}
		}
	}
}

// ProcessBatch claims up to one batch of due messages and publishes them.
// It returns how many were sent.
func (w *OutboxWorker) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := w.claim(ctx)
	if err != nil || len(messages) == 0 {
		return 0, err
	}

	sent := 0
	for _, m := range messages {
		if err := w.pub.PublishEvent(ctx, m.RoutingKey, m.MessageID, m.Payload); err != nil {
			w.fail(ctx, m, fmt.Sprintf("publish error: %v", err))
			continue
		}

		if _, err := w.pool.Exec(ctx, `
			UPDATE outbox
			SET status = 'sent',
			    last_error = NULL
			WHERE id = $1
		`, m.ID); err != nil {
			// row stays in flight and is published again later; consumers dedupe on message_id
			w.log.Error().Err(err).Str("message_id", m.MessageID).Msg("mark sent failed")
			continue
		}

		sent++
		metrics.RecordOutboxMessage("sent")
		if w.audit != nil {
			w.audit.OutboxMessageSent(m.MessageID, m.RoutingKey)
		}
	}
	return sent, nil
}

// claim selects due rows and pushes next_retry_at forward so that other
// workers skip them while they are in flight. The claim tx commits before
// any network publish to keep locks short.
func (w *OutboxWorker) claim(ctx context.Context) ([]outboxRow, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, message_id::text, routing_key, payload, attempt
		FROM outbox
		WHERE status = 'pending'
		  AND next_retry_at <= NOW()
		ORDER BY next_retry_at ASC, occurred_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, outboxBatchSize)
	if err != nil {
		return nil, err
	}

	var messages []outboxRow
	for rows.Next() {
		var m outboxRow
		if err := rows.Scan(&m.ID, &m.MessageID, &m.RoutingKey, &m.Payload, &m.Attempt); err != nil {
			rows.Close()
			return nil, err
		}
		messages = append(messages, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	if _, err := tx.Exec(ctx, `
		UPDATE outbox
		SET next_retry_at = NOW() + $2::interval
		WHERE id = ANY($1)
	`, ids, fmt.Sprintf("%f seconds", outboxInFlight.Seconds())); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return messages, nil
}

func (w *OutboxWorker) fail(ctx context.Context, m outboxRow, errMsg string) {
	nextAttempt := m.Attempt + 1
	if nextAttempt >= outboxMaxAttempts {
		_, _ = w.pool.Exec(ctx, `
			UPDATE outbox
			SET status = 'dead',
			    attempt = $2,
			    last_error = $3
			WHERE id = $1
		`, m.ID, nextAttempt, errMsg)

		metrics.RecordOutboxMessage("dead")
		if w.audit != nil {
			w.audit.OutboxMessageDead(m.MessageID, m.RoutingKey, nextAttempt, errMsg)
		}
		return
	}

	delay := computeNextRetry(nextAttempt)
	_, _ = w.pool.Exec(ctx, `
		UPDATE outbox
		SET attempt = $2,
		    next_retry_at = NOW() + $3::interval,
		    last_error = $4
		WHERE id = $1
	`, m.ID, nextAttempt, fmt.Sprintf("%f seconds", delay.Seconds()), errMsg)

	metrics.RecordOutboxMessage("retry")
	w.log.Warn().
		Int64("outbox_id", m.ID).
		Str("message_id", m.MessageID).
		Str("routing_key", m.RoutingKey).
		Int("attempt", nextAttempt).
		Dur("retry_in", delay).
		Msg("outbox publish failed; scheduled retry")
}

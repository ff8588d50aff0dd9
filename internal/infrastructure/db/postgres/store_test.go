package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

func TestComputeNextRetry_Bounds(t *testing.T) {
	d0 := computeNextRetry(-1)
	require.GreaterOrEqual(t, d0, 4*time.Second)
	require.LessOrEqual(t, d0, 6*time.Second)

	d10 := computeNextRetry(10)
	require.GreaterOrEqual(t, d10, 850*time.Second)
	require.LessOrEqual(t, d10, 1250*time.Second)

	d20 := computeNextRetry(20)
	require.GreaterOrEqual(t, d20, 1500*time.Second)
	require.LessOrEqual(t, d20, 2100*time.Second)
}

func TestBackoff_Grows(t *testing.T) {
	for attempt := 0; attempt < 5; attempt++ {
		base := time.Duration(attempt+1) * 10 * time.Millisecond
		d := backoff(attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2+time.Nanosecond)
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&pgconn.PgError{Code: sqlStateSerialization}))
	assert.True(t, retryable(&pgconn.PgError{Code: sqlStateDeadlock}))
	assert.False(t, retryable(&pgconn.PgError{Code: sqlStateUnique}))
	assert.False(t, retryable(errors.New("boom")))
}

func TestMapErr(t *testing.T) {
	err := mapErr(&pgconn.PgError{Code: sqlStateUnique, ConstraintName: "uq_requests_live"})
	require.True(t, domain.IsCode(err, domain.CodeConflict))

	var ae *domain.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "uq_requests_live", ae.Meta["constraint"])

	assert.True(t, domain.IsCode(mapErr(&pgconn.PgError{Code: sqlStateForeignKey}), domain.CodeNotFound))
	assert.True(t, domain.IsCode(mapErr(&pgconn.PgError{Code: sqlStateCheck}), domain.CodeConflict))

	plain := errors.New("boom")
	assert.Same(t, plain, mapErr(plain))
	assert.NoError(t, mapErr(nil))
}

func TestStore_Retry(t *testing.T) {
	ctx := context.Background()
	s := &Store{maxRetries: 2, log: zerolog.Nop()}

	t.Run("exhausted_retries_surface_as_conflict", func(t *testing.T) {
		calls := 0
		err := s.retry(ctx, 1, func() error {
			calls++
			return &pgconn.PgError{Code: sqlStateSerialization}
		})

		var ae *domain.AppError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, domain.CodeConflict, ae.Code)
		assert.Equal(t, "capacity changed, retry", ae.Message)
		assert.Equal(t, 3, calls)
	})

	t.Run("deadlock_then_success_is_hidden", func(t *testing.T) {
		calls := 0
		err := s.retry(ctx, 1, func() error {
			calls++
			if calls == 1 {
				return &pgconn.PgError{Code: sqlStateDeadlock}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("non_retryable_error_is_not_retried", func(t *testing.T) {
		calls := 0
		err := s.retry(ctx, 1, func() error {
			calls++
			return &pgconn.PgError{Code: sqlStateUnique, ConstraintName: "uq_requests_live"}
		})
		assert.True(t, domain.IsCode(err, domain.CodeConflict))
		assert.Equal(t, 1, calls)
	})

	t.Run("canceled_context_stops_retrying", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		err := s.retry(cctx, 1, func() error {
			calls++
			return &pgconn.PgError{Code: sqlStateSerialization}
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

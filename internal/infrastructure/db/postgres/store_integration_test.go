//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/participation"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/db/postgres"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:17",
		tcpostgres.WithDatabase("ewm"),
		tcpostgres.WithUsername("ewm"),
		tcpostgres.WithPassword("ewm"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	// second run is a no-op
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func seed(t *testing.T, st *postgres.Store, users int, limit int, moderation bool) (owner int64, requesters []int64, eventID int64) {
	t.Helper()
	ctx := context.Background()
	dir := st.Directory()

	o := &domain.User{Name: "Owner", Email: fmt.Sprintf("owner-%d@example.com", time.Now().UnixNano())}
	require.NoError(t, dir.CreateUser(ctx, o))
	for i := 0; i < users; i++ {
		u := &domain.User{Name: "User", Email: fmt.Sprintf("u%d-%d@example.com", i, time.Now().UnixNano())}
		require.NoError(t, dir.CreateUser(ctx, u))
		requesters = append(requesters, u.ID)
	}
	cat := &domain.Category{Name: fmt.Sprintf("cat-%d", time.Now().UnixNano())}
	require.NoError(t, dir.CreateCategory(ctx, cat))

	now := time.Now().UTC().Truncate(time.Microsecond)
	ev := &domain.Event{
		InitiatorID:       o.ID,
		CategoryID:        cat.ID,
		Title:             "Rooftop concert",
		Annotation:        "An evening concert on the roof",
		Description:       "Bring your own chair, the band starts at eight.",
		EventDate:         now.Add(72 * time.Hour),
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		State:             domain.StatePublished,
		CreatedOn:         now,
		PublishedOn:       &now,
	}
	require.NoError(t, st.WithTx(ctx, func(tx domain.Tx) error {
		loc, err := tx.Directory().FindOrCreateLocation(ctx, 55.75, 37.61)
		if err != nil {
			return err
		}
		ev.Location = loc
		return tx.Events().Save(ctx, ev)
	}))
	return o.ID, requesters, ev.ID
}

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := startPostgres(t)
	ctx := context.Background()
	st := postgres.New(pool, 5, zerolog.Nop())
	svc := participation.New(st, fixedClock{time.Now()}, nil, audit.New(zerolog.Nop()), participation.Options{})

	t.Run("event_roundtrip_and_views", func(t *testing.T) {
		owner, _, id := seed(t, st, 0, 0, false)

		ev, err := st.Events().GetByIDAndOwner(ctx, id, owner)
		require.NoError(t, err)
		assert.Equal(t, domain.StatePublished, ev.State)
		assert.InDelta(t, 55.75, ev.Location.Lat, 1e-9)

		v, err := st.Events().IncrementViews(ctx, id)
		require.NoError(t, err)
		assert.EqualValues(t, 1, v.Views)
		assert.Equal(t, ev.ConfirmedRequests, v.ConfirmedRequests)

		ev.Title = "Renamed"
		require.NoError(t, st.WithTx(ctx, func(tx domain.Tx) error { return tx.Events().Save(ctx, ev) }))
		got, err := st.Events().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.EqualValues(t, 1, got.Views)

		_, err = st.Events().GetByIDAndOwner(ctx, id, owner+1000)
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))

		page, err := st.Events().ListByOwner(ctx, owner, 0, 10)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("location_find_or_create", func(t *testing.T) {
		a, err := st.Directory().FindOrCreateLocation(ctx, 1.5, 2.5)
		require.NoError(t, err)
		b, err := st.Directory().FindOrCreateLocation(ctx, 1.5, 2.5)
		require.NoError(t, err)
		assert.Equal(t, a.ID, b.ID)
	})

	t.Run("duplicate_live_request_is_conflict", func(t *testing.T) {
		_, users, id := seed(t, st, 1, 0, true)
		err := st.WithTx(ctx, func(tx domain.Tx) error {
			return tx.Requests().SaveAll(ctx, []*domain.ParticipationRequest{
				{EventID: id, RequesterID: users[0], Status: domain.RequestPending, Created: time.Now()},
				{EventID: id, RequesterID: users[0], Status: domain.RequestPending, Created: time.Now()},
			})
		})
		assert.True(t, domain.IsCode(err, domain.CodeConflict))

		rs, err := st.Requests().FindByEvent(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, rs, "failed transaction must not leave rows behind")
	})

	t.Run("rollback_on_error", func(t *testing.T) {
		_, _, id := seed(t, st, 0, 5, true)
		boom := errors.New("boom")
		err := st.WithEventLock(ctx, id, func(tx domain.Tx, ev *domain.Event) error {
			ev.ConfirmedRequests = 2
			if err := tx.Events().Save(ctx, ev); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		ev, err := st.Events().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, ev.ConfirmedRequests)
	})

	t.Run("concurrent_submit_never_overfills", func(t *testing.T) {
		const limit = 3
		_, users, id := seed(t, st, 20, limit, false)

		var wg sync.WaitGroup
		for _, u := range users {
			wg.Add(1)
			go func(u int64) {
				defer wg.Done()
				_, _ = svc.Submit(ctx, u, id)
			}(u)
		}
		wg.Wait()

		n, err := st.Requests().CountByEventAndStatus(ctx, id, domain.RequestConfirmed)
		require.NoError(t, err)
		assert.Equal(t, limit, n)

		ev, err := st.Events().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, limit, ev.ConfirmedRequests)
	})

	t.Run("concurrent_decide_never_overfills", func(t *testing.T) {
		const limit = 4
		owner, users, id := seed(t, st, 16, limit, true)
		var ids []int64
		for _, u := range users {
			r, err := svc.Submit(ctx, u, id)
			require.NoError(t, err)
			ids = append(ids, r.ID)
		}

		var wg sync.WaitGroup
		for i := 0; i < len(ids); i += 2 {
			wg.Add(1)
			go func(batch []int64) {
				defer wg.Done()
				_, _ = svc.Decide(ctx, owner, id, batch, domain.RequestConfirmed)
			}(ids[i : i+2])
		}
		wg.Wait()

		n, err := st.Requests().CountByEventAndStatus(ctx, id, domain.RequestConfirmed)
		require.NoError(t, err)
		assert.Equal(t, limit, n)
		pending, err := st.Requests().CountByEventAndStatus(ctx, id, domain.RequestPending)
		require.NoError(t, err)
		assert.Zero(t, pending)
	})
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	fail bool
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.keys = append(p.keys, routingKey)
	return nil
}

func TestOutboxWorker_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := startPostgres(t)
	ctx := context.Background()
	st := postgres.New(pool, 5, zerolog.Nop())
	svc := participation.New(st, fixedClock{time.Now()}, nil, audit.New(zerolog.Nop()), participation.Options{})

	_, users, id := seed(t, st, 2, 0, false)
	for _, u := range users {
		_, err := svc.Submit(ctx, u, id)
		require.NoError(t, err)
	}

	t.Run("failure_schedules_retry", func(t *testing.T) {
		pub := &recordingPublisher{fail: true}
		w := postgres.NewOutboxWorker(pool, pub, nil, zerolog.Nop())
		sent, err := w.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Zero(t, sent)

		var attempts int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COALESCE(MAX(attempt), 0) FROM outbox`).Scan(&attempts))
		assert.Equal(t, 1, attempts)

		// reset the schedule so the next run picks them up
		_, err = pool.Exec(ctx, `UPDATE outbox SET next_retry_at = NOW()`)
		require.NoError(t, err)
	})

	t.Run("publishes_and_marks_sent", func(t *testing.T) {
		pub := &recordingPublisher{}
		w := postgres.NewOutboxWorker(pool, pub, audit.New(zerolog.Nop()), zerolog.Nop())
		sent, err := w.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, sent)
		assert.Equal(t, []string{"request.confirmed", "request.confirmed"}, pub.keys)

		var pending int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE status = 'pending'`).Scan(&pending))
		assert.Zero(t, pending)
	})
}

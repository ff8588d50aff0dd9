package event_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/db/memory"
	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
)

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

// mapCache is a JSON round-tripping stand-in for the redis client.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	dels int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.dels++
	return nil
}

type hitSink struct {
	mu   sync.Mutex
	hits []domain.Hit
}

func (h *hitSink) Record(hit domain.Hit) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits = append(h.hits, hit)
}

type fixedViews struct {
	n   int64
	err error
}

func (f fixedViews) ViewCount(ctx context.Context, uri string, since time.Time) (int64, error) {
	return f.n, f.err
}

type fixture struct {
	store    *memory.Store
	svc      *event.Service
	cache    *mapCache
	hits     *hitSink
	now      time.Time
	owner    int64
	category int64
}

func newFixture(t *testing.T, views event.ViewCounter, viewsFromStats bool) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC)
	st := memory.New()

	u := &domain.User{Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, st.Directory().CreateUser(ctx, u))
	c := &domain.Category{Name: "Concerts"}
	require.NoError(t, st.Directory().CreateCategory(ctx, c))

	f := &fixture{store: st, cache: newMapCache(), hits: &hitSink{}, now: now, owner: u.ID, category: c.ID}
	f.svc = event.New(st, fakeClock{now}, f.cache, f.hits, views, audit.New(zerolog.Nop()), event.Options{
		OwnerLead:      2 * time.Hour,
		AdminLead:      time.Hour,
		ViewsFromStats: viewsFromStats,
	})
	return f
}

func (f *fixture) draft() domain.Draft {
	return domain.Draft{
		Title:             "Jazz in the park",
		Annotation:        "An open air jazz evening in the city park",
		Description:       "Three bands, food trucks and a lot of good music until late.",
		CategoryID:        f.category,
		Lat:               55.75,
		Lon:               37.61,
		EventDate:         f.now.Add(48 * time.Hour),
		ParticipantLimit:  2,
		RequestModeration: true,
	}
}

func (f *fixture) create(t *testing.T) *domain.Event {
	t.Helper()
	ev, err := f.svc.Create(context.Background(), f.owner, f.draft())
	require.NoError(t, err)
	return ev
}

func action(a domain.StateAction) *domain.StateAction { return &a }

func codeOf(err error) domain.ErrCode {
	var ae *domain.AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_pending_event_and_reuses_location", func(t *testing.T) {
		f := newFixture(t, nil, false)
		a := f.create(t)
		b := f.create(t)

		assert.Equal(t, domain.StatePending, a.State)
		assert.NotZero(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.NotZero(t, a.Location.ID)
		assert.Equal(t, a.Location.ID, b.Location.ID)
		assert.Equal(t, f.now, a.CreatedOn)
	})

	t.Run("date_too_close_is_validation", func(t *testing.T) {
		f := newFixture(t, nil, false)
		d := f.draft()
		d.EventDate = f.now.Add(119 * time.Minute)
		_, err := f.svc.Create(ctx, f.owner, d)
		assert.Equal(t, domain.CodeValidation, codeOf(err))
	})

	t.Run("missing_category_is_not_found", func(t *testing.T) {
		f := newFixture(t, nil, false)
		d := f.draft()
		d.CategoryID = 999
		_, err := f.svc.Create(ctx, f.owner, d)
		assert.Equal(t, domain.CodeNotFound, codeOf(err))
	})

	t.Run("missing_user_is_not_found", func(t *testing.T) {
		f := newFixture(t, nil, false)
		_, err := f.svc.Create(ctx, 999, f.draft())
		assert.Equal(t, domain.CodeNotFound, codeOf(err))
	})
}

func TestUpdateByOwner(t *testing.T) {
	ctx := context.Background()

	t.Run("stranger_gets_not_found", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		_, err := f.svc.UpdateByOwner(ctx, ev.ID, f.owner+1, domain.Patch{})
		assert.Equal(t, domain.CodeNotFound, codeOf(err))
	})

	t.Run("applies_fields_and_checks_owner_lead", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		title := "Jazz at night"
		tooSoon := f.now.Add(90 * time.Minute)

		_, err := f.svc.UpdateByOwner(ctx, ev.ID, f.owner, domain.Patch{EventDate: &tooSoon})
		assert.Equal(t, domain.CodeValidation, codeOf(err))

		got, err := f.svc.UpdateByOwner(ctx, ev.ID, f.owner, domain.Patch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, got.Title)
		assert.Equal(t, ev.Annotation, got.Annotation)
	})

	t.Run("new_location_is_resolved", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		got, err := f.svc.UpdateByOwner(ctx, ev.ID, f.owner, domain.Patch{Location: &domain.Location{Lat: 1, Lon: 2}})
		require.NoError(t, err)
		assert.NotZero(t, got.Location.ID)
		assert.NotEqual(t, ev.Location.ID, got.Location.ID)
	})

	t.Run("cancel_review_withdraws_and_enqueues", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		got, err := f.svc.UpdateByOwner(ctx, ev.ID, f.owner, domain.Patch{StateAction: action(domain.ActionCancelReview)})
		require.NoError(t, err)
		assert.Equal(t, domain.StateCanceled, got.State)

		out := f.store.Outbox()
		require.Len(t, out, 1)
		assert.Equal(t, contracts.RKEventCanceled, out[0].RoutingKey)

		_, err = f.svc.UpdateByOwner(ctx, ev.ID, f.owner, domain.Patch{StateAction: action(domain.ActionSendToReview)})
		assert.Equal(t, domain.CodeConflict, codeOf(err))
	})

	t.Run("published_is_immutable", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		_, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionPublish)})
		require.NoError(t, err)

		title := "Changed after publish"
		_, err = f.svc.UpdateByOwner(ctx, ev.ID, f.owner, domain.Patch{Title: &title})
		assert.Equal(t, domain.CodeConflict, codeOf(err))
	})

	t.Run("admin_action_is_validation", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		_, err := f.svc.UpdateByOwner(ctx, ev.ID, f.owner, domain.Patch{StateAction: action(domain.ActionPublish)})
		assert.Equal(t, domain.CodeValidation, codeOf(err))
	})
}

func TestUpdateByAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("publish_twice_conflicts", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)

		got, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionPublish)})
		require.NoError(t, err)
		assert.Equal(t, domain.StatePublished, got.State)
		require.NotNil(t, got.PublishedOn)
		assert.Equal(t, f.now, *got.PublishedOn)

		_, err = f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionPublish)})
		assert.Equal(t, domain.CodeConflict, codeOf(err))

		out := f.store.Outbox()
		require.Len(t, out, 1)
		assert.Equal(t, contracts.RKEventPublished, out[0].RoutingKey)
	})

	t.Run("reject_published_conflicts", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		_, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionPublish)})
		require.NoError(t, err)
		_, err = f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionReject)})
		assert.Equal(t, domain.CodeConflict, codeOf(err))
	})

	t.Run("reject_then_publish_conflicts", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		got, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionReject)})
		require.NoError(t, err)
		assert.Equal(t, domain.StateCanceled, got.State)

		_, err = f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionPublish)})
		assert.Equal(t, domain.CodeConflict, codeOf(err))
	})

	t.Run("admin_lead_is_one_hour", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		date := f.now.Add(90 * time.Minute)
		got, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{EventDate: &date})
		require.NoError(t, err)
		assert.Equal(t, date, got.EventDate)
	})

	t.Run("failed_update_leaves_event_untouched", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		title := "Would be applied"
		bad := int64(999)
		_, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{Title: &title, CategoryID: &bad})
		assert.Equal(t, domain.CodeNotFound, codeOf(err))

		got, err := f.svc.GetByOwner(ctx, ev.ID, f.owner)
		require.NoError(t, err)
		assert.Equal(t, ev.Title, got.Title)
	})

	t.Run("missing_event_is_not_found", func(t *testing.T) {
		f := newFixture(t, nil, false)
		_, err := f.svc.UpdateByAdmin(ctx, 12345, domain.Patch{StateAction: action(domain.ActionPublish)})
		assert.Equal(t, domain.CodeNotFound, codeOf(err))
	})
}

func TestGetPublished(t *testing.T) {
	ctx := context.Background()

	t.Run("pending_event_is_not_found", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		_, err := f.svc.GetPublished(ctx, ev.ID, "10.0.0.1")
		assert.Equal(t, domain.CodeNotFound, codeOf(err))
		assert.Empty(t, f.hits.hits)
	})

	t.Run("counts_views_and_records_hits", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		_, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionPublish)})
		require.NoError(t, err)

		first, err := f.svc.GetPublished(ctx, ev.ID, "10.0.0.1")
		require.NoError(t, err)
		second, err := f.svc.GetPublished(ctx, ev.ID, "10.0.0.2")
		require.NoError(t, err)

		assert.Equal(t, int64(1), first.Views)
		assert.Equal(t, int64(2), second.Views)
		require.Len(t, f.hits.hits, 2)
		assert.Equal(t, "/events/1", f.hits.hits[0].URI)
		assert.Equal(t, "10.0.0.2", f.hits.hits[1].IP)
		assert.Len(t, f.cache.data, 1)
	})

	t.Run("cached_copy_reports_live_confirmed_counter", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		_, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionPublish)})
		require.NoError(t, err)

		_, err = f.svc.GetPublished(ctx, ev.ID, "10.0.0.1")
		require.NoError(t, err)
		require.Len(t, f.cache.data, 1)

		// an admission commit that lands after the cache fill
		require.NoError(t, f.store.WithEventLock(ctx, ev.ID, func(tx domain.Tx, e *domain.Event) error {
			e.ConfirmedRequests = 2
			return tx.Events().Save(ctx, e)
		}))

		got, err := f.svc.GetPublished(ctx, ev.ID, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, 2, got.ConfirmedRequests)
		assert.Equal(t, int64(2), got.Views)
	})

	t.Run("hit_carries_request_id", func(t *testing.T) {
		f := newFixture(t, nil, false)
		ev := f.create(t)
		_, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionPublish)})
		require.NoError(t, err)

		_, err = f.svc.GetPublished(appCtx.WithRequestID(ctx, "req-7"), ev.ID, "10.0.0.1")
		require.NoError(t, err)
		require.Len(t, f.hits.hits, 1)
		assert.Equal(t, "req-7", f.hits.hits[0].RequestID)
	})

	t.Run("views_from_stats", func(t *testing.T) {
		f := newFixture(t, fixedViews{n: 42}, true)
		ev := f.create(t)
		_, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionPublish)})
		require.NoError(t, err)

		got, err := f.svc.GetPublished(ctx, ev.ID, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, int64(42), got.Views)
	})

	t.Run("stats_failure_falls_back_to_local_counter", func(t *testing.T) {
		f := newFixture(t, fixedViews{err: errors.New("stats down")}, true)
		ev := f.create(t)
		_, err := f.svc.UpdateByAdmin(ctx, ev.ID, domain.Patch{StateAction: action(domain.ActionPublish)})
		require.NoError(t, err)

		got, err := f.svc.GetPublished(ctx, ev.ID, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Views)
	})
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, false)
	for i := 0; i < 3; i++ {
		f.create(t)
	}

	page, err := f.svc.ListByOwner(ctx, f.owner, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].ID)

	_, err = f.svc.ListByOwner(ctx, 999, 0, 10)
	assert.Equal(t, domain.CodeNotFound, codeOf(err))

	_, err = f.svc.ListByOwner(ctx, f.owner, -1, 10)
	assert.Equal(t, domain.CodeValidation, codeOf(err))
}

package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/directory"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/participation"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/db/memory"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/handlers"
	authmw "github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/middleware"
)

const secret = "router-secret"

type apiClient struct {
	t *testing.T
	h http.Handler
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	store := memory.New()
	aud := audit.New(zerolog.Nop())

	events := event.New(store, event.SystemClock{}, nil, nil, nil, aud, event.Options{})
	reqs := participation.New(store, event.SystemClock{}, events, aud, participation.Options{})
	dir := directory.New(store)

	h := New(Handlers{
		Events:    handlers.NewEventsHandler(events, dir),
		Requests:  handlers.NewRequestsHandler(reqs),
		Directory: handlers.NewDirectoryHandler(dir),
		Health:    handlers.NewHealthHandler(nil),
	}, authmw.NewAuth(secret, ""), &config.Config{RLEnabled: false})

	return &apiClient{t: t, h: h}
}

func bearer(t *testing.T, uid int64, role string) string {
	t.Helper()
	claims := authmw.Claims{
		UserID: strconv.FormatInt(uid, 10),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

// do sends body as JSON and decodes the "data" member of the reply into out.
func (c *apiClient) do(method, path, auth string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)

	if out != nil && rr.Code < 300 {
		env := struct {
			Data json.RawMessage `json:"data"`
		}{}
		require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &env))
		require.NoError(c.t, json.Unmarshal(env.Data, out))
	}
	return rr.Code
}

func newEventBody(category int64, limit int, moderation bool) map[string]any {
	return map[string]any{
		"title":             "Go meetup",
		"annotation":        "An evening of talks about Go concurrency",
		"description":       "Three talks, pizza and a long discussion about channels.",
		"category":          category,
		"eventDate":         time.Now().UTC().Add(48 * time.Hour).Format(dto.DateTimeLayout),
		"location":          map[string]float64{"lat": 55.75, "lon": 37.61},
		"participantLimit":  limit,
		"requestModeration": moderation,
	}
}

func TestRouter_Routing(t *testing.T) {
	api := newAPI(t)

	t.Run("healthz_returns_200", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "", nil, nil))
	})

	t.Run("metrics_exposed", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/metrics", "", nil, nil))
	})

	t.Run("private_route_returns_401_without_token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/users/1/events", "", nil, nil))
	})

	t.Run("private_route_returns_403_for_other_user", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/users/1/events", bearer(t, 2, "user"), nil, nil))
	})

	t.Run("admin_route_requires_admin_role", func(t *testing.T) {
		body := map[string]string{"name": "x"}
		assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/v1/admin/categories", bearer(t, 1, "user"), body, nil))
	})

	t.Run("public_event_bad_id_returns_400", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/events/abc", "", nil, nil))
	})

	t.Run("public_event_missing_returns_404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/events/999", "", nil, nil))
	})
}

func TestRouter_AdmissionFlow(t *testing.T) {
	api := newAPI(t)
	admin := bearer(t, 1000, authmw.RoleAdmin)

	var owner, alice, bob dto.UserResp
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/admin/users", admin,
		map[string]string{"name": "Owner", "email": "owner@example.com"}, &owner))
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/admin/users", admin,
		map[string]string{"name": "Alice", "email": "alice@example.com"}, &alice))
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/admin/users", admin,
		map[string]string{"name": "Bob", "email": "bob@example.com"}, &bob))
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/v1/admin/users", admin,
		map[string]string{"name": "Dup", "email": "OWNER@example.com"}, nil))

	var cat dto.CategoryResp
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/admin/categories", admin,
		map[string]string{"name": "Tech"}, &cat))

	ownerAuth := bearer(t, owner.ID, "user")
	aliceAuth := bearer(t, alice.ID, "user")
	bobAuth := bearer(t, bob.ID, "user")
	ownerBase := fmt.Sprintf("/api/v1/users/%d", owner.ID)

	var ev dto.EventFullResp
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, ownerBase+"/events", ownerAuth,
		newEventBody(cat.ID, 1, true), &ev))
	assert.Equal(t, "PENDING", ev.State)
	assert.Equal(t, "Tech", ev.Category.Name)
	assert.Equal(t, "Owner", ev.Initiator.Name)
	assert.Nil(t, ev.PublishedOn)

	t.Run("create_validates_body", func(t *testing.T) {
		body := newEventBody(cat.ID, 1, true)
		body["title"] = "x"
		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, ownerBase+"/events", ownerAuth, body, nil))
	})

	t.Run("submit_before_publish_conflicts", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/users/%d/requests?eventId=%d", alice.ID, ev.ID)
		assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, path, aliceAuth, nil, nil))
	})

	t.Run("owner_cannot_publish", func(t *testing.T) {
		path := fmt.Sprintf("%s/events/%d", ownerBase, ev.ID)
		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch, path, ownerAuth,
			map[string]string{"stateAction": "PUBLISH_EVENT"}, nil))
	})

	adminPath := fmt.Sprintf("/api/v1/admin/events/%d", ev.ID)
	var published dto.EventFullResp
	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, adminPath, admin,
		map[string]string{"stateAction": "PUBLISH_EVENT"}, &published))
	assert.Equal(t, "PUBLISHED", published.State)
	assert.NotNil(t, published.PublishedOn)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPatch, adminPath, admin,
		map[string]string{"stateAction": "PUBLISH_EVENT"}, nil))
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPatch, fmt.Sprintf("%s/events/%d", ownerBase, ev.ID), ownerAuth,
		map[string]string{"title": "New title"}, nil))

	var pub dto.EventFullResp
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/v1/events/%d", ev.ID), "", nil, &pub))
	assert.EqualValues(t, 1, pub.Views)

	var ra, rb dto.ParticipationRequestResp
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost,
		fmt.Sprintf("/api/v1/users/%d/requests?eventId=%d", alice.ID, ev.ID), aliceAuth, nil, &ra))
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost,
		fmt.Sprintf("/api/v1/users/%d/requests?eventId=%d", bob.ID, ev.ID), bobAuth, nil, &rb))
	assert.Equal(t, "PENDING", ra.Status)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost,
		fmt.Sprintf("/api/v1/users/%d/requests?eventId=%d", alice.ID, ev.ID), aliceAuth, nil, nil))
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost,
		fmt.Sprintf("%s/requests?eventId=%d", ownerBase, ev.ID), ownerAuth, nil, nil))

	var list []dto.ParticipationRequestResp
	require.Equal(t, http.StatusOK, api.do(http.MethodGet,
		fmt.Sprintf("%s/events/%d/requests", ownerBase, ev.ID), ownerAuth, nil, &list))
	assert.Len(t, list, 2)

	var res dto.StatusUpdateResp
	require.Equal(t, http.StatusOK, api.do(http.MethodPatch,
		fmt.Sprintf("%s/events/%d/requests", ownerBase, ev.ID), ownerAuth,
		map[string]any{"requestIds": []int64{ra.ID}, "status": "CONFIRMED"}, &res))
	require.Len(t, res.ConfirmedRequests, 1)
	assert.Equal(t, ra.ID, res.ConfirmedRequests[0].ID)
	require.Len(t, res.RejectedRequests, 1)
	assert.Equal(t, rb.ID, res.RejectedRequests[0].ID)
	assert.Equal(t, "REJECTED", res.RejectedRequests[0].Status)

	// bob was auto-rejected once the single slot was taken
	var mine []dto.ParticipationRequestResp
	require.Equal(t, http.StatusOK, api.do(http.MethodGet,
		fmt.Sprintf("/api/v1/users/%d/requests?eventId=%d", bob.ID, ev.ID), bobAuth, nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "REJECTED", mine[0].Status)

	assert.Equal(t, http.StatusConflict, api.do(http.MethodPatch,
		fmt.Sprintf("%s/events/%d/requests", ownerBase, ev.ID), ownerAuth,
		map[string]any{"requestIds": []int64{rb.ID}, "status": "CONFIRMED"}, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch,
		fmt.Sprintf("%s/events/%d/requests", ownerBase, ev.ID), ownerAuth,
		map[string]any{"requestIds": []int64{rb.ID}, "status": "PENDING"}, nil))

	// confirmed requests cannot be withdrawn by default
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPatch,
		fmt.Sprintf("/api/v1/users/%d/requests/%d/cancel", alice.ID, ra.ID), aliceAuth, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPatch,
		fmt.Sprintf("/api/v1/users/%d/requests/%d/cancel", bob.ID, ra.ID), bobAuth, nil, nil))

	var full dto.EventFullResp
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("%s/events/%d", ownerBase, ev.ID), ownerAuth, nil, &full))
	assert.Equal(t, 1, full.ConfirmedRequests)

	var short []dto.EventShortResp
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, ownerBase+"/events?from=0&size=10", ownerAuth, nil, &short))
	require.Len(t, short, 1)
	assert.Equal(t, ev.ID, short[0].ID)

	var gotCat dto.CategoryResp
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/categories/%d", cat.ID), admin, nil, &gotCat))
	require.NotNil(t, gotCat.InUse)
	assert.True(t, *gotCat.InUse)
}

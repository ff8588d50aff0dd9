package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestRequestSubmitted_CarriesAuditFlagAndTrace(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))
	ctx := appCtx.WithRequestID(context.Background(), "req-1")

	l.RequestSubmitted(ctx, domain.ParticipationRequest{ID: 3, EventID: 1, RequesterID: 9, Status: domain.RequestConfirmed})

	m := decodeLine(t, &buf)
	assert.Equal(t, true, m["audit"])
	assert.Equal(t, "request_submitted", m["action"])
	assert.Equal(t, "req-1", m["trace_id"])
	assert.Equal(t, "CONFIRMED", m["status"])
	assert.EqualValues(t, 3, m["request_id"])
}

func TestRequestsDecided_ListsIDs(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	l.RequestsDecided(context.Background(), 1, 10, domain.RequestConfirmed, []int64{4, 5}, []int64{6}, 2, 3)

	m := decodeLine(t, &buf)
	assert.Equal(t, []any{4.0, 5.0}, m["confirmed"])
	assert.Equal(t, []any{6.0}, m["rejected"])
	assert.EqualValues(t, 2, m["auto_rejected"])
}

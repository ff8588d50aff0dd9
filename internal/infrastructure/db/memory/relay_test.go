package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type flakyPublisher struct {
	failOn string
	sent   []string
}

func (p *flakyPublisher) PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error {
	if messageID == p.failOn {
		return errors.New("broker down")
	}
	p.sent = append(p.sent, messageID)
	return nil
}

func TestRelayOnce_RequeuesFromFailure(t *testing.T) {
	ctx := context.Background()
	s := New()
	v := &view{s: s}
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, v.Enqueue(ctx, domain.OutboxMessage{MessageID: id, RoutingKey: "request.confirmed"}))
	}

	pub := &flakyPublisher{failOn: "b"}
	n, err := s.relayOnce(ctx, pub)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a"}, pub.sent)

	left := s.Outbox()
	require.Len(t, left, 2)
	assert.Equal(t, "b", left[0].MessageID)

	pub.failOn = ""
	n, err = s.relayOnce(ctx, pub)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b", "c"}, pub.sent)
	assert.Empty(t, s.Outbox())
}

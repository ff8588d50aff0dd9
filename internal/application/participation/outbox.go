package participation

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
)

// enqueueStatus writes one outbox message per request whose status has a routing key.
func enqueueStatus(ctx context.Context, tx domain.Tx, rs []domain.ParticipationRequest, now time.Time) error {
	traceID := appCtx.GetRequestID(ctx)
	for _, r := range rs {
		rk, ok := contracts.RequestRoutingKey(r.Status)
		if !ok {
			continue
		}
		msg, err := contracts.NewOutboxMessage(rk, traceID, contracts.Request(r), now)
		if err != nil {
			return err
		}
		if err := tx.Enqueue(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func pointers(rs []domain.ParticipationRequest) []*domain.ParticipationRequest {
	out := make([]*domain.ParticipationRequest, len(rs))
	for i := range rs {
		out[i] = &rs[i]
	}
	return out
}

func idsOf(rs []domain.ParticipationRequest) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

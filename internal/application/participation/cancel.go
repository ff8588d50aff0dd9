package participation

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
)

// Cancel withdraws the requester's own request. It takes the owning event's
// lock so it serializes against in-flight decisions on the same request.
func (s *Service) Cancel(ctx context.Context, requesterID, requestID int64) (*domain.ParticipationRequest, error) {
	r, err := s.store.Requests().FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.RequesterID != requesterID {
		return nil, domain.ErrNotFound("request not found")
	}

	now := s.clock.Now().UTC()
	var (
		out      domain.ParticipationRequest
		previous domain.RequestStatus
	)
	err = s.store.WithEventLock(ctx, r.EventID, func(tx domain.Tx, ev *domain.Event) error {
		cur, err := tx.Requests().FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		previous = cur.Status
		next, err := domain.CancelStatus(cur.Status, s.opts.AllowCancelConfirmed)
		if err != nil {
			return err
		}
		out = *cur
		if previous == next {
			return nil
		}

		out.Status = next
		if err := tx.Requests().SaveAll(ctx, []*domain.ParticipationRequest{&out}); err != nil {
			return err
		}
		if previous == domain.RequestConfirmed {
			ev.ConfirmedRequests--
			if err := tx.Events().Save(ctx, ev); err != nil {
				return err
			}
		}
		return enqueueStatus(ctx, tx, []domain.ParticipationRequest{out}, now)
	})
	if err != nil {
		return nil, err
	}

	if previous != domain.RequestCanceled {
		metrics.RecordRequestCanceled()
		if s.audit != nil {
			s.audit.RequestCanceled(ctx, out, previous)
		}
		if previous == domain.RequestConfirmed {
			s.invalidate(ctx, out.EventID)
		}
	}
	return &out, nil
}

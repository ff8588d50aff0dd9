package participation

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
)

// Submit creates a participation request. Admission checks and the counter
// increment for auto-confirmed requests happen under the event lock.
func (s *Service) Submit(ctx context.Context, requesterID, eventID int64) (*domain.ParticipationRequest, error) {
	if eventID <= 0 {
		return nil, domain.ErrValidationMeta("invalid query param", map[string]string{"eventId": "must be a positive integer"})
	}
	if err := s.requireUser(ctx, requesterID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	var out domain.ParticipationRequest

	err := s.store.WithEventLock(ctx, eventID, func(tx domain.Tx, ev *domain.Event) error {
		active, err := tx.Requests().ExistsByEventAndRequester(ctx, eventID, requesterID)
		if err != nil {
			return err
		}
		if err := domain.CheckSubmit(ev, requesterID, active); err != nil {
			return err
		}

		r := &domain.ParticipationRequest{
			EventID:     eventID,
			RequesterID: requesterID,
			Status:      domain.InitialStatus(ev),
			Created:     now,
		}
		if err := tx.Requests().SaveAll(ctx, []*domain.ParticipationRequest{r}); err != nil {
			return err
		}

		if r.Status == domain.RequestConfirmed {
			ev.ConfirmedRequests++
			if err := tx.Events().Save(ctx, ev); err != nil {
				return err
			}
			if err := enqueueStatus(ctx, tx, []domain.ParticipationRequest{*r}, now); err != nil {
				return err
			}
		}
		out = *r
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRequestSubmitted(string(out.Status))
	if s.audit != nil {
		s.audit.RequestSubmitted(ctx, out)
	}
	if out.Status == domain.RequestConfirmed {
		s.invalidate(ctx, eventID)
	}
	return &out, nil
}

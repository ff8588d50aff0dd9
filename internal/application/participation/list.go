package participation

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

// ListForOwner returns every request of an event to its initiator.
func (s *Service) ListForOwner(ctx context.Context, ownerID, eventID int64) ([]domain.ParticipationRequest, error) {
	ev, err := s.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.InitiatorID != ownerID {
		return nil, domain.ErrForbidden("only the event initiator can list its requests")
	}
	return s.store.Requests().FindByEvent(ctx, eventID)
}

// ListForRequester returns the user's own requests, optionally for one event.
func (s *Service) ListForRequester(ctx context.Context, userID int64, eventID *int64) ([]domain.ParticipationRequest, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if eventID != nil {
		return s.store.Requests().FindByEventAndRequester(ctx, *eventID, userID)
	}
	return s.store.Requests().FindByRequester(ctx, userID)
}

package participation

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type Clock interface {
	Now() time.Time
}

// EventCache drops the cached public view of an event after its counter moved.
type EventCache interface {
	Invalidate(ctx context.Context, eventID int64)
}

type Options struct {
	// AllowCancelConfirmed lets a requester withdraw an already confirmed request.
	AllowCancelConfirmed bool
}

type Service struct {
	store  domain.Store
	clock  Clock
	events EventCache
	audit  *audit.Logger
	opts   Options
}

func New(store domain.Store, clock Clock, events EventCache, aud *audit.Logger, opts Options) *Service {
	return &Service{
		store:  store,
		clock:  clock,
		events: events,
		audit:  aud,
		opts:   opts,
	}
}

func (s *Service) invalidate(ctx context.Context, eventID int64) {
	if s.events != nil {
		s.events.Invalidate(ctx, eventID)
	}
}

func (s *Service) requireUser(ctx context.Context, userID int64) error {
	ok, err := s.store.Directory().UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound("user not found")
	}
	return nil
}

package event

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

func (s *Service) Create(ctx context.Context, ownerID int64, d domain.Draft) (*domain.Event, error) {
	now := s.clock.Now().UTC()
	// cheap checks before touching the store
	if err := domain.CheckLeadTime(d.EventDate, now, s.opts.OwnerLead); err != nil {
		return nil, err
	}

	var out *domain.Event
	err := s.store.WithTx(ctx, func(tx domain.Tx) error {
		ok, err := tx.Directory().UserExists(ctx, ownerID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound("user not found")
		}
		if _, err := tx.Directory().GetCategory(ctx, d.CategoryID); err != nil {
			return err
		}
		loc, err := tx.Directory().FindOrCreateLocation(ctx, d.Lat, d.Lon)
		if err != nil {
			return err
		}

		ev, err := domain.NewEvent(ownerID, d, loc, now, s.opts.OwnerLead)
		if err != nil {
			return err
		}
		if err := tx.Events().Save(ctx, ev); err != nil {
			return err
		}
		out = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.EventCreated(ctx, out.ID, ownerID)
	}
	return out, nil
}

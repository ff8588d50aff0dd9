package event

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
)

// UpdateByOwner applies the initiator's patch. Only PENDING events can be changed.
func (s *Service) UpdateByOwner(ctx context.Context, eventID, ownerID int64, p domain.Patch) (*domain.Event, error) {
	if p.StateAction != nil && !p.StateAction.OwnerAction() {
		return nil, domain.ErrValidationMeta("invalid state action", map[string]string{
			"state_action": "must be one of: SEND_TO_REVIEW, CANCEL_REVIEW",
		})
	}
	// ownership is checked before taking the lock so strangers get NotFound cheaply
	if _, err := s.store.Events().GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		return nil, err
	}

	return s.update(ctx, eventID, "owner", func(tx domain.Tx, ev *domain.Event, now time.Time) error {
		if ev.InitiatorID != ownerID {
			return domain.ErrNotFound("event not found")
		}
		if ev.State == domain.StatePublished {
			return domain.ErrConflict("published events cannot be changed")
		}
		if ev.State == domain.StateCanceled {
			return domain.ErrConflict("canceled events cannot be changed")
		}
		if err := s.resolveRefs(ctx, tx, &p); err != nil {
			return err
		}
		if err := ev.ApplyPatch(p, now, s.opts.OwnerLead); err != nil {
			return err
		}
		if p.StateAction != nil {
			return ev.ApplyOwnerAction(*p.StateAction)
		}
		return nil
	}, p.StateAction)
}

// UpdateByAdmin applies an administrator's patch and publication decision.
func (s *Service) UpdateByAdmin(ctx context.Context, eventID int64, p domain.Patch) (*domain.Event, error) {
	if p.StateAction != nil && !p.StateAction.AdminAction() {
		return nil, domain.ErrValidationMeta("invalid state action", map[string]string{
			"state_action": "must be one of: PUBLISH_EVENT, REJECT_EVENT",
		})
	}

	return s.update(ctx, eventID, "admin", func(tx domain.Tx, ev *domain.Event, now time.Time) error {
		if err := s.resolveRefs(ctx, tx, &p); err != nil {
			return err
		}
		if err := ev.ApplyPatch(p, now, s.opts.AdminLead); err != nil {
			return err
		}
		if p.StateAction != nil {
			return ev.ApplyAdminAction(*p.StateAction, now)
		}
		return nil
	}, p.StateAction)
}

// update runs mutate under the event lock, persists the result and enqueues
// a lifecycle message when the state changed.
func (s *Service) update(
	ctx context.Context,
	eventID int64,
	actor string,
	mutate func(tx domain.Tx, ev *domain.Event, now time.Time) error,
	action *domain.StateAction,
) (*domain.Event, error) {
	now := s.clock.Now().UTC()

	var (
		out  *domain.Event
		from domain.EventState
	)
	err := s.store.WithEventLock(ctx, eventID, func(tx domain.Tx, ev *domain.Event) error {
		from = ev.State
		if err := mutate(tx, ev, now); err != nil {
			return err
		}
		if err := tx.Events().Save(ctx, ev); err != nil {
			return err
		}

		if ev.State != from {
			rk := contracts.RKEventCanceled
			if ev.State == domain.StatePublished {
				rk = contracts.RKEventPublished
			}
			msg, err := contracts.NewOutboxMessage(rk, appCtx.GetRequestID(ctx), contracts.EventState(ev), now)
			if err != nil {
				return err
			}
			if err := tx.Enqueue(ctx, msg); err != nil {
				return err
			}
		}
		out = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	if action != nil && out.State != from {
		metrics.RecordEventTransition(string(*action))
		if s.audit != nil {
			s.audit.EventStateChanged(ctx, out.ID, actor, *action, from, out.State)
		}
	}
	s.Invalidate(ctx, out.ID)
	return out, nil
}

// resolveRefs checks the category and turns a coordinate pair into a stored location.
func (s *Service) resolveRefs(ctx context.Context, tx domain.Tx, p *domain.Patch) error {
	if !p.HasChanges() {
		return nil
	}
	if p.CategoryID != nil {
		if _, err := tx.Directory().GetCategory(ctx, *p.CategoryID); err != nil {
			return err
		}
	}
	if p.Location != nil {
		loc, err := tx.Directory().FindOrCreateLocation(ctx, p.Location.Lat, p.Location.Lon)
		if err != nil {
			return err
		}
		p.Location = &loc
	}
	return nil
}

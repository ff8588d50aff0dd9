package memory

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

func (v *view) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	e, ok := v.event(id)
	if !ok {
		return nil, domain.ErrNotFound("event not found")
	}
	return &e, nil
}

func (v *view) GetByIDAndOwner(ctx context.Context, id, ownerID int64) (*domain.Event, error) {
	e, ok := v.event(id)
	if !ok || e.InitiatorID != ownerID {
		return nil, domain.ErrNotFound("event not found")
	}
	return &e, nil
}

func (v *view) GetByIDAndState(ctx context.Context, id int64, state domain.EventState) (*domain.Event, error) {
	e, ok := v.event(id)
	if !ok || e.State != state {
		return nil, domain.ErrNotFound("event not found")
	}
	return &e, nil
}

func (v *view) Save(ctx context.Context, e *domain.Event) error {
	if e.ID == 0 {
		e.ID = v.nextID(&v.s.lastEvent)
	} else if _, ok := v.event(e.ID); !ok {
		return domain.ErrNotFound("event not found")
	}
	v.putEvent(*e)
	return nil
}

func (v *view) ExistsByCategory(ctx context.Context, categoryID int64) (bool, error) {
	for _, e := range v.allEvents() {
		if e.CategoryID == categoryID {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) ListByOwner(ctx context.Context, ownerID int64, from, size int) ([]*domain.Event, error) {
	out := []*domain.Event{}
	skipped := 0
	for _, e := range v.allEvents() {
		if e.InitiatorID != ownerID {
			continue
		}
		if skipped < from {
			skipped++
			continue
		}
		if len(out) == size {
			break
		}
		ev := e
		out = append(out, &ev)
	}
	return out, nil
}

func (v *view) IncrementViews(ctx context.Context, id int64) (domain.ViewStamp, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.events[id]
	if !ok || e.State != domain.StatePublished {
		return domain.ViewStamp{}, domain.ErrNotFound("event not found")
	}
	e.Views++
	v.s.events[id] = e
	return domain.ViewStamp{Views: e.Views, ConfirmedRequests: e.ConfirmedRequests}, nil
}

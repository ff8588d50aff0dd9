package memory

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

func (v *view) FindByID(ctx context.Context, id int64) (*domain.ParticipationRequest, error) {
	r, ok := v.request(id)
	if !ok {
		return nil, domain.ErrNotFound("request not found")
	}
	return &r, nil
}

func (v *view) FindByEventAndRequester(ctx context.Context, eventID, requesterID int64) ([]domain.ParticipationRequest, error) {
	return v.filterRequests(func(r domain.ParticipationRequest) bool {
		return r.EventID == eventID && r.RequesterID == requesterID
	}), nil
}

func (v *view) ExistsByEventAndRequester(ctx context.Context, eventID, requesterID int64) (bool, error) {
	rs := v.filterRequests(func(r domain.ParticipationRequest) bool {
		return r.EventID == eventID && r.RequesterID == requesterID && r.Status != domain.RequestCanceled
	})
	return len(rs) > 0, nil
}

func (v *view) CountByEventAndStatus(ctx context.Context, eventID int64, status domain.RequestStatus) (int, error) {
	rs, _ := v.FindByEventAndStatus(ctx, eventID, status)
	return len(rs), nil
}

func (v *view) FindByIDs(ctx context.Context, ids []int64) ([]domain.ParticipationRequest, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return v.filterRequests(func(r domain.ParticipationRequest) bool {
		_, ok := want[r.ID]
		return ok
	}), nil
}

func (v *view) FindByEvent(ctx context.Context, eventID int64) ([]domain.ParticipationRequest, error) {
	return v.filterRequests(func(r domain.ParticipationRequest) bool {
		return r.EventID == eventID
	}), nil
}

func (v *view) FindByEventAndStatus(ctx context.Context, eventID int64, status domain.RequestStatus) ([]domain.ParticipationRequest, error) {
	return v.filterRequests(func(r domain.ParticipationRequest) bool {
		return r.EventID == eventID && r.Status == status
	}), nil
}

func (v *view) FindByRequester(ctx context.Context, requesterID int64) ([]domain.ParticipationRequest, error) {
	return v.filterRequests(func(r domain.ParticipationRequest) bool {
		return r.RequesterID == requesterID
	}), nil
}

func (v *view) SaveAll(ctx context.Context, rs []*domain.ParticipationRequest) error {
	for _, r := range rs {
		if r.ID == 0 {
			r.ID = v.nextID(&v.s.lastRequest)
		}
		v.putRequest(*r)
	}
	return nil
}

package participation

import (
	"context"
	"strconv"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
)

type DecideResult struct {
	Confirmed []domain.ParticipationRequest
	Rejected  []domain.ParticipationRequest
	// AutoRejected counts the other pending requests rejected because the event
	// filled up. They are listed at the end of Rejected.
	AutoRejected int
}

// Decide applies the initiator's decision to a batch of pending requests.
// The batch, the counter and any auto-rejections commit together or not at all.
func (s *Service) Decide(ctx context.Context, ownerID, eventID int64, requestIDs []int64, target domain.RequestStatus) (DecideResult, error) {
	var res DecideResult
	if target != domain.RequestConfirmed && target != domain.RequestRejected {
		return res, domain.ErrValidationMeta("invalid target status", map[string]string{
			"status": "must be one of: CONFIRMED, REJECTED",
		})
	}
	ids := dedupe(requestIDs)
	if len(ids) == 0 {
		return res, domain.ErrValidationMeta("invalid body", map[string]string{"requestIds": "must not be empty"})
	}

	now := s.clock.Now().UTC()
	var confirmedCount int

	err := s.store.WithEventLock(ctx, eventID, func(tx domain.Tx, ev *domain.Event) error {
		res = DecideResult{}
		if ev.InitiatorID != ownerID {
			return domain.ErrConflict("only the event initiator can decide requests")
		}
		if !ev.NeedsModeration() {
			return nil
		}

		batch, err := loadBatch(ctx, tx, eventID, ids)
		if err != nil {
			return err
		}
		d, err := domain.Decide(batch, target, ev.ParticipantLimit, ev.ConfirmedRequests)
		if err != nil {
			return err
		}

		changed := append(append([]domain.ParticipationRequest{}, d.Confirmed...), d.Rejected...)
		var auto []domain.ParticipationRequest
		if d.LimitReached(ev.ParticipantLimit) {
			pending, err := tx.Requests().FindByEventAndStatus(ctx, eventID, domain.RequestPending)
			if err != nil {
				return err
			}
			auto = domain.RejectPending(excluding(pending, ids))
			changed = append(changed, auto...)
		}

		if err := tx.Requests().SaveAll(ctx, pointers(changed)); err != nil {
			return err
		}
		if d.ConfirmedCount != ev.ConfirmedRequests {
			ev.ConfirmedRequests = d.ConfirmedCount
			if err := tx.Events().Save(ctx, ev); err != nil {
				return err
			}
		}
		if err := enqueueStatus(ctx, tx, changed, now); err != nil {
			return err
		}

		res.Confirmed = d.Confirmed
		res.Rejected = append(append([]domain.ParticipationRequest{}, d.Rejected...), auto...)
		res.AutoRejected = len(auto)
		confirmedCount = d.ConfirmedCount
		return nil
	})
	if err != nil {
		return DecideResult{}, err
	}
	if len(res.Confirmed)+len(res.Rejected) == 0 {
		return res, nil
	}

	metrics.RecordRequestsDecided("confirmed", len(res.Confirmed))
	metrics.RecordRequestsDecided("rejected", len(res.Rejected)-res.AutoRejected)
	metrics.RecordRequestsDecided("auto_rejected", res.AutoRejected)
	if s.audit != nil {
		s.audit.RequestsDecided(ctx, eventID, ownerID, target, idsOf(res.Confirmed), idsOf(res.Rejected), res.AutoRejected, confirmedCount)
	}
	if len(res.Confirmed) > 0 {
		s.invalidate(ctx, eventID)
	}
	return res, nil
}

// loadBatch returns the requests in the order of ids, failing if any is
// missing or belongs to another event.
func loadBatch(ctx context.Context, tx domain.Tx, eventID int64, ids []int64) ([]domain.ParticipationRequest, error) {
	found, err := tx.Requests().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.ParticipationRequest, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}

	out := make([]domain.ParticipationRequest, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, domain.ErrConflictMeta("request not found", map[string]string{"request_id": strconv.FormatInt(id, 10)})
		}
		if r.EventID != eventID {
			return nil, domain.ErrConflictMeta("request belongs to another event", map[string]string{"request_id": strconv.FormatInt(id, 10)})
		}
		out = append(out, r)
	}
	return out, nil
}

func excluding(rs []domain.ParticipationRequest, ids []int64) []domain.ParticipationRequest {
	skip := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := rs[:0:0]
	for _, r := range rs {
		if _, ok := skip[r.ID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

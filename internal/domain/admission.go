package domain

import "strconv"

// Decision is the outcome of an owner's batch decision over pending requests.
type Decision struct {
	Confirmed      []ParticipationRequest
	Rejected       []ParticipationRequest
	ConfirmedCount int
}

// LimitReached reports whether the decision filled the event.
func (d Decision) LimitReached(limit int) bool {
	return limit > 0 && d.ConfirmedCount >= limit
}

// Decide applies target to pending in input order. With target CONFIRMED
// at most limit-confirmed requests are confirmed and the excess is rejected.
// A limit of 0 means unlimited. Inputs are never modified.
func Decide(pending []ParticipationRequest, target RequestStatus, limit, confirmed int) (Decision, error) {
	d := Decision{ConfirmedCount: confirmed}
	if target != RequestConfirmed && target != RequestRejected {
		return d, ErrValidationMeta("invalid target status", map[string]string{"status": string(target)})
	}
	for _, r := range pending {
		if _, err := DecideStatus(r.Status, target); err != nil {
			return d, ErrConflictMeta("request must have status PENDING", map[string]string{
				"request_id": strconv.FormatInt(r.ID, 10),
				"status":     string(r.Status),
			})
		}
	}

	if target == RequestRejected {
		d.Rejected = withStatus(pending, RequestRejected)
		return d, nil
	}

	if limit == 0 {
		d.Confirmed = withStatus(pending, RequestConfirmed)
		d.ConfirmedCount += len(d.Confirmed)
		return d, nil
	}

	remaining := limit - confirmed
	if remaining <= 0 {
		return d, ErrConflict("participant limit reached")
	}
	n := min(remaining, len(pending))
	d.Confirmed = withStatus(pending[:n], RequestConfirmed)
	d.Rejected = withStatus(pending[n:], RequestRejected)
	d.ConfirmedCount += n
	return d, nil
}

// RejectPending returns rejected copies of every PENDING request in rs.
func RejectPending(rs []ParticipationRequest) []ParticipationRequest {
	out := make([]ParticipationRequest, 0, len(rs))
	for _, r := range rs {
		if r.Status == RequestPending {
			r.Status = RequestRejected
			out = append(out, r)
		}
	}
	return out
}

func withStatus(rs []ParticipationRequest, s RequestStatus) []ParticipationRequest {
	out := make([]ParticipationRequest, len(rs))
	for i, r := range rs {
		r.Status = s
		out[i] = r
	}
	return out
}

package domain

import (
	"strconv"
	"time"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestConfirmed, RequestRejected, RequestCanceled:
		return true
	}
	return false
}

type ParticipationRequest struct {
	ID          int64
	EventID     int64
	RequesterID int64
	Status      RequestStatus
	Created     time.Time
}

// CheckSubmit validates a new request against the target event.
// hasActive reports whether the requester already holds a non-canceled request.
func CheckSubmit(e *Event, requesterID int64, hasActive bool) error {
	if e.State != StatePublished {
		return ErrConflict("event is not published")
	}
	if e.InitiatorID == requesterID {
		return ErrConflict("initiator cannot request participation in own event")
	}
	if hasActive {
		return ErrConflict("participation request already exists")
	}
	if e.Full() {
		return ErrConflictMeta("participant limit reached", map[string]string{
			"participant_limit": strconv.Itoa(e.ParticipantLimit),
		})
	}
	return nil
}

// InitialStatus is CONFIRMED when the event admits without moderation.
func InitialStatus(e *Event) RequestStatus {
	if e.NeedsModeration() {
		return RequestPending
	}
	return RequestConfirmed
}

// DecideStatus returns the status an owner decision moves cur to.
func DecideStatus(cur, target RequestStatus) (RequestStatus, error) {
	if target != RequestConfirmed && target != RequestRejected {
		return cur, ErrValidationMeta("invalid target status", map[string]string{"status": string(target)})
	}
	if cur != RequestPending {
		return cur, ErrConflictMeta("request must have status PENDING", map[string]string{"status": string(cur)})
	}
	return target, nil
}

// CancelStatus returns the status a requester cancellation moves cur to.
// Canceling twice is a no-op. CONFIRMED may be canceled only when allowConfirmed is set.
func CancelStatus(cur RequestStatus, allowConfirmed bool) (RequestStatus, error) {
	switch cur {
	case RequestPending, RequestCanceled:
		return RequestCanceled, nil
	case RequestConfirmed:
		if allowConfirmed {
			return RequestCanceled, nil
		}
		return cur, ErrConflict("confirmed request cannot be canceled")
	default:
		return cur, ErrConflictMeta("request cannot be canceled", map[string]string{"status": string(cur)})
	}
}

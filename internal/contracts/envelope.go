package contracts

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

const (
	Producer        = "ewm-service"
	EnvelopeVersion = 1

	RKEventPublished   = "event.published"
	RKEventCanceled    = "event.canceled"
	RKRequestConfirmed = "request.confirmed"
	RKRequestRejected  = "request.rejected"
	RKRequestCanceled  = "request.canceled"
)

// DomainEventEnvelope is the canonical envelope written to the outbox.
type DomainEventEnvelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	TraceID    string    `json:"trace_id,omitempty"`
	MessageID  string    `json:"message_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

type EventStatePayload struct {
	EventID          int64      `json:"event_id"`
	InitiatorID      int64      `json:"initiator_id"`
	State            string     `json:"state"`
	ParticipantLimit int        `json:"participant_limit"`
	PublishedOn      *time.Time `json:"published_on,omitempty"`
}

type RequestPayload struct {
	RequestID   int64  `json:"request_id"`
	EventID     int64  `json:"event_id"`
	RequesterID int64  `json:"requester_id"`
	Status      string `json:"status"`
}

// NewOutboxMessage wraps payload in an envelope ready for the outbox table.
func NewOutboxMessage[T any](routingKey, traceID string, payload T, now time.Time) (domain.OutboxMessage, error) {
	env := DomainEventEnvelope[T]{
		Version:    EnvelopeVersion,
		Producer:   Producer,
		TraceID:    traceID,
		MessageID:  uuid.NewString(),
		OccurredAt: now.UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return domain.OutboxMessage{}, err
	}
	return domain.OutboxMessage{
		MessageID:  env.MessageID,
		RoutingKey: routingKey,
		Body:       body,
		CreatedAt:  env.OccurredAt,
	}, nil
}

func EventState(e *domain.Event) EventStatePayload {
	return EventStatePayload{
		EventID:          e.ID,
		InitiatorID:      e.InitiatorID,
		State:            string(e.State),
		ParticipantLimit: e.ParticipantLimit,
		PublishedOn:      e.PublishedOn,
	}
}

func Request(r domain.ParticipationRequest) RequestPayload {
	return RequestPayload{
		RequestID:   r.ID,
		EventID:     r.EventID,
		RequesterID: r.RequesterID,
		Status:      string(r.Status),
	}
}

// RequestRoutingKey maps a decided or canceled status to its routing key.
func RequestRoutingKey(s domain.RequestStatus) (string, bool) {
	switch s {
	case domain.RequestConfirmed:
		return RKRequestConfirmed, true
	case domain.RequestRejected:
		return RKRequestRejected, true
	case domain.RequestCanceled:
		return RKRequestCanceled, true
	}
	return "", false
}

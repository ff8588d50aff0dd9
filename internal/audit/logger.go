package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
)

// Logger provides structured audit logging for business events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// EventCreated logs a new event proposal
func (l *Logger) EventCreated(ctx context.Context, eventID, initiatorID int64) {
	l.log.Info().
		Str("action", "event_created").
		Int64("event_id", eventID).
		Int64("initiator_id", initiatorID).
		Str("trace_id", traceID(ctx)).
		Msg("Event created")
}

// EventStateChanged logs a lifecycle transition driven by the owner or an admin
func (l *Logger) EventStateChanged(ctx context.Context, eventID int64, actor string, action domain.StateAction, from, to domain.EventState) {
	l.log.Info().
		Str("action", "event_state_changed").
		Int64("event_id", eventID).
		Str("actor", actor).
		Str("state_action", string(action)).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("trace_id", traceID(ctx)).
		Msg("Event state changed")
}

// RequestSubmitted logs a new participation request
func (l *Logger) RequestSubmitted(ctx context.Context, r domain.ParticipationRequest) {
	l.log.Info().
		Str("action", "request_submitted").
		Int64("event_id", r.EventID).
		Int64("request_id", r.ID).
		Int64("requester_id", r.RequesterID).
		Str("status", string(r.Status)).
		Str("trace_id", traceID(ctx)).
		Msg("Participation requested")
}

// RequestsDecided logs an owner's batch decision, including auto-rejections
func (l *Logger) RequestsDecided(ctx context.Context, eventID, ownerID int64, target domain.RequestStatus, confirmed, rejected []int64, autoRejected int, confirmedCount int) {
	l.log.Info().
		Str("action", "requests_decided").
		Int64("event_id", eventID).
		Int64("owner_id", ownerID).
		Str("target", string(target)).
		Ints64("confirmed", confirmed).
		Ints64("rejected", rejected).
		Int("auto_rejected", autoRejected).
		Int("confirmed_requests", confirmedCount).
		Str("trace_id", traceID(ctx)).
		Msg("Participation requests decided")
}

// RequestCanceled logs a requester withdrawing
func (l *Logger) RequestCanceled(ctx context.Context, r domain.ParticipationRequest, previous domain.RequestStatus) {
	l.log.Info().
		Str("action", "request_canceled").
		Int64("event_id", r.EventID).
		Int64("request_id", r.ID).
		Int64("requester_id", r.RequesterID).
		Str("previous_status", string(previous)).
		Str("trace_id", traceID(ctx)).
		Msg("Participation request canceled")
}

// OutboxMessageSent logs when an outbox message is successfully published
func (l *Logger) OutboxMessageSent(messageID, routingKey string) {
	l.log.Debug().
		Str("action", "outbox_sent").
		Str("message_id", messageID).
		Str("routing_key", routingKey).
		Msg("Outbox message sent")
}

// OutboxMessageDead logs when an outbox message is moved to dead status
func (l *Logger) OutboxMessageDead(messageID, routingKey string, attempts int, lastErr string) {
	l.log.Error().
		Str("action", "outbox_dead").
		Str("message_id", messageID).
		Str("routing_key", routingKey).
		Int("attempts", attempts).
		Str("last_error", lastErr).
		Msg("Outbox message moved to dead status")
}

func traceID(ctx context.Context) string {
	return appCtx.GetRequestID(ctx)
}

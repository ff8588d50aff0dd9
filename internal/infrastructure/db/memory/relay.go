package memory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type Publisher interface {
	PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error
}

// RelayOutbox publishes enqueued messages every interval until ctx is done.
// Messages that fail go back to the front of the queue for the next tick.
func (s *Store) RelayOutbox(ctx context.Context, pub Publisher, interval time.Duration, log zerolog.Logger) {
	log = log.With().Str("component", "outbox_relay").Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopped")
			return
		case <-ticker.C:
			if n, err := s.relayOnce(ctx, pub); err != nil {
				log.Warn().Err(err).Int("sent", n).Msg("outbox relay failed; will retry")
			}
		}
	}
}

func (s *Store) relayOnce(ctx context.Context, pub Publisher) (int, error) {
	batch := s.DrainOutbox()
	for i, m := range batch {
		if err := pub.PublishEvent(ctx, m.RoutingKey, m.MessageID, m.Body); err != nil {
			s.requeue(batch[i:])
			return i, err
		}
	}
	return len(batch), nil
}

func (s *Store) requeue(msgs []domain.OutboxMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(append([]domain.OutboxMessage(nil), msgs...), s.outbox...)
}

package event

import (
	"context"
	"fmt"

	zlog "github.com/rs/zerolog/log"
)

func cacheKeyEventDetails(id int64) string {
	return fmt.Sprintf("event:%d", id)
}

func publicURI(id int64) string {
	return fmt.Sprintf("/events/%d", id)
}

// Invalidate drops the cached public view of an event. Best effort.
func (s *Service) Invalidate(ctx context.Context, eventID int64) {
	if s.cache == nil {
		return
	}
	key := cacheKeyEventDetails(eventID)
	if err := s.cache.Delete(ctx, key); err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("cache invalidate failed")
	}
}

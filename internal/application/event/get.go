package event

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
)

// GetPublished returns a published event and counts the access.
// remoteIP feeds the stats collector only.
func (s *Service) GetPublished(ctx context.Context, id int64, remoteIP string) (*domain.Event, error) {
	key := cacheKeyEventDetails(id)
	var ev *domain.Event

	if s.cache != nil {
		var cached domain.Event
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			zlog.Warn().Err(err).Str("key", key).Msg("cache get failed")
		} else if found {
			ev = &cached
		}
	}

	if ev == nil {
		e, err := s.store.Events().GetByIDAndState(ctx, id, domain.StatePublished)
		if err != nil {
			return nil, err
		}
		ev = e
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, ev, s.opts.CacheTTL); err != nil {
				zlog.Warn().Err(err).Str("key", key).Msg("cache set failed")
			}
		}
	}

	// the cached copy may predate an admission commit; the counters are read back live
	st, err := s.store.Events().IncrementViews(ctx, id)
	if err != nil {
		if domain.IsCode(err, domain.CodeNotFound) {
			s.Invalidate(ctx, id)
		}
		return nil, err
	}
	ev.Views = st.Views
	ev.ConfirmedRequests = st.ConfirmedRequests

	uri := publicURI(id)
	now := s.clock.Now().UTC()
	if s.hits != nil {
		s.hits.Record(domain.Hit{URI: uri, IP: remoteIP, Timestamp: now, RequestID: appCtx.GetRequestID(ctx)})
	}
	if s.opts.ViewsFromStats {
		n, err := s.views.ViewCount(ctx, uri, ev.CreatedOn)
		if err != nil {
			zlog.Warn().Err(err).Int64("event_id", id).Msg("stats view count failed, using local counter")
		} else {
			ev.Views = n
		}
	}
	return ev, nil
}

// GetByOwner returns any event of the initiator regardless of state.
func (s *Service) GetByOwner(ctx context.Context, id, ownerID int64) (*domain.Event, error) {
	return s.store.Events().GetByIDAndOwner(ctx, id, ownerID)
}

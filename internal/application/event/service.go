package event

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type Options struct {
	OwnerLead time.Duration
	AdminLead time.Duration
	CacheTTL  time.Duration
	// ViewsFromStats reports views from the stats collector instead of the local counter.
	ViewsFromStats bool
}

type Service struct {
	store domain.Store
	clock Clock
	cache Cache
	hits  HitRecorder
	views ViewCounter
	audit *audit.Logger

	opts Options
}

// New wires the lifecycle manager. cache, hits and views may be nil.
func New(
	store domain.Store,
	clock Clock,
	cache Cache,
	hits HitRecorder,
	views ViewCounter,
	aud *audit.Logger,
	opts Options,
) *Service {
	if opts.OwnerLead == 0 {
		opts.OwnerLead = 2 * time.Hour
	}
	if opts.AdminLead == 0 {
		opts.AdminLead = time.Hour
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if views == nil {
		opts.ViewsFromStats = false
	}

	return &Service{
		store: store,
		clock: clock,
		cache: cache,
		hits:  hits,
		views: views,
		audit: aud,
		opts:  opts,
	}
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

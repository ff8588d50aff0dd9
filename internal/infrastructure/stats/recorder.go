// Package stats reports public endpoint hits to the statistics collector
// without putting it on the request path.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
)

// TimeLayout is the timestamp format the stats collector expects.
const TimeLayout = "2006-01-02 15:04:05"

type Sink interface {
	SaveHit(ctx context.Context, hit domain.Hit) error
}

// AsyncRecorder queues hits in a bounded buffer and forwards them to a Sink
// from a single goroutine. A full buffer drops the hit.
type AsyncRecorder struct {
	sink    Sink
	queue   chan domain.Hit
	timeout time.Duration
	log     zerolog.Logger

	once sync.Once
	done chan struct{}
}

func NewAsyncRecorder(sink Sink, size int, timeout time.Duration, log zerolog.Logger) *AsyncRecorder {
	if size <= 0 {
		size = 1
	}
	return &AsyncRecorder{
		sink:    sink,
		queue:   make(chan domain.Hit, size),
		timeout: timeout,
		log:     log.With().Str("component", "stats_recorder").Logger(),
		done:    make(chan struct{}),
	}
}

// Record never blocks.
func (r *AsyncRecorder) Record(hit domain.Hit) {
	select {
	case r.queue <- hit:
	default:
		metrics.RecordStatsHit("dropped")
		r.log.Debug().Str("uri", hit.URI).Msg("stats queue full; hit dropped")
	}
}

// Start runs the forwarding loop until ctx is canceled, then flushes what is
// already queued and returns.
func (r *AsyncRecorder) Start(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case hit := <-r.queue:
			r.send(hit)
		case <-ctx.Done():
			for {
				select {
				case hit := <-r.queue:
					r.send(hit)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Start has returned.
func (r *AsyncRecorder) Wait() {
	<-r.done
}

func (r *AsyncRecorder) send(hit domain.Hit) {
	ctx, cancel := context.WithTimeout(appCtx.WithRequestID(context.Background(), hit.RequestID), r.timeout)
	defer cancel()

	if err := r.sink.SaveHit(ctx, hit); err != nil {
		metrics.RecordStatsHit("failed")
		r.log.Warn().Err(err).Str("uri", hit.URI).Str("ip", hit.IP).Msg("stats hit not recorded")
		return
	}
	metrics.RecordStatsHit("sent")
}

package event

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// HitRecorder must not block the caller.
type HitRecorder interface {
	Record(hit domain.Hit)
}

type ViewCounter interface {
	ViewCount(ctx context.Context, uri string, since time.Time) (int64, error)
}

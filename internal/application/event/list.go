package event

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func (s *Service) ListByOwner(ctx context.Context, ownerID int64, from, size int) ([]*domain.Event, error) {
	if from < 0 {
		return nil, domain.ErrValidationMeta("invalid query param", map[string]string{"from": "must be >= 0"})
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	ok, err := s.store.Directory().UserExists(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound("user not found")
	}
	return s.store.Events().ListByOwner(ctx, ownerID, from, size)
}

package handlers

import (
	"context"
	"errors"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/directory"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/dto"
)

// resolveNames looks up category and initiator names for evs. Missing
// entries are left blank.
func resolveNames(ctx context.Context, dir *directory.Service, evs ...*domain.Event) (dto.Names, error) {
	n := dto.Names{
		Categories: make(map[int64]string),
		Users:      make(map[int64]string),
	}
	if dir == nil {
		return n, nil
	}
	for _, e := range evs {
		if _, ok := n.Categories[e.CategoryID]; !ok {
			c, err := dir.GetCategory(ctx, e.CategoryID)
			if err != nil && !isNotFound(err) {
				return n, err
			}
			if c != nil {
				n.Categories[e.CategoryID] = c.Name
			}
		}
		if _, ok := n.Users[e.InitiatorID]; !ok {
			u, err := dir.GetUser(ctx, e.InitiatorID)
			if err != nil && !isNotFound(err) {
				return n, err
			}
			if u != nil {
				n.Users[e.InitiatorID] = u.Name
			}
		}
	}
	return n, nil
}

func isNotFound(err error) bool {
	var ae *domain.AppError
	return errors.As(err, &ae) && ae.Code == domain.CodeNotFound
}

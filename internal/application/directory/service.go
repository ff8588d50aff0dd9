package directory

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

// Service registers the users and categories events refer to.
type Service struct {
	store domain.Store
}

func New(store domain.Store) *Service {
	return &Service{store: store}
}

func (s *Service) CreateUser(ctx context.Context, name, email string) (*domain.User, error) {
	u := &domain.User{Name: strings.TrimSpace(name), Email: strings.ToLower(strings.TrimSpace(email))}
	if u.Name == "" || u.Email == "" {
		return nil, domain.ErrValidation("name and email are required")
	}
	if err := s.store.Directory().CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.store.Directory().GetUser(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	c := &domain.Category{Name: strings.TrimSpace(name)}
	if c.Name == "" {
		return nil, domain.ErrValidation("name is required")
	}
	if err := s.store.Directory().CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.store.Directory().GetCategory(ctx, id)
}

// CategoryInUse reports whether any event references the category.
func (s *Service) CategoryInUse(ctx context.Context, id int64) (bool, error) {
	if _, err := s.store.Directory().GetCategory(ctx, id); err != nil {
		return false, err
	}
	return s.store.Events().ExistsByCategory(ctx, id)
}

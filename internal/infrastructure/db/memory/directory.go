package memory

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

// Directory writes bypass transaction staging; they are idempotent or
// harmless to keep after a rollback.

func (v *view) UserExists(ctx context.Context, id int64) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	_, ok := v.s.users[id]
	return ok, nil
}

func (v *view) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	u, ok := v.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound("user not found")
	}
	return &u, nil
}

func (v *view) CreateUser(ctx context.Context, u *domain.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.users {
		if existing.Email == u.Email {
			return domain.ErrConflict("email already registered")
		}
	}
	v.s.lastUser++
	u.ID = v.s.lastUser
	v.s.users[u.ID] = *u
	return nil
}

func (v *view) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	c, ok := v.s.categories[id]
	if !ok {
		return nil, domain.ErrNotFound("category not found")
	}
	return &c, nil
}

func (v *view) CreateCategory(ctx context.Context, c *domain.Category) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.categories {
		if existing.Name == c.Name {
			return domain.ErrConflict("category name already exists")
		}
	}
	v.s.lastCategory++
	c.ID = v.s.lastCategory
	v.s.categories[c.ID] = *c
	return nil
}

func (v *view) FindOrCreateLocation(ctx context.Context, lat, lon float64) (domain.Location, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, l := range v.s.locations {
		if l.Lat == lat && l.Lon == lon {
			return l, nil
		}
	}
	v.s.lastLocation++
	l := domain.Location{ID: v.s.lastLocation, Lat: lat, Lon: lon}
	v.s.locations[l.ID] = l
	return l, nil
}

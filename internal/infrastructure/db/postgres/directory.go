package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

func (r *repo) UserExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *repo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `SELECT id, name, email FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) CreateUser(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx, `INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id`, u.Name, u.Email).Scan(&u.ID)
	if err != nil {
		if domain.IsCode(mapErr(err), domain.CodeConflict) {
			return domain.ErrConflict("email already registered")
		}
		return err
	}
	return nil
}

func (r *repo) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("category not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) CreateCategory(ctx context.Context, c *domain.Category) error {
	err := r.db.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, c.Name).Scan(&c.ID)
	if err != nil {
		if domain.IsCode(mapErr(err), domain.CodeConflict) {
			return domain.ErrConflict("category name already exists")
		}
		return err
	}
	return nil
}

// FindOrCreateLocation upserts on (lat, lon); the no-op update makes
// RETURNING yield the existing row as well.
func (r *repo) FindOrCreateLocation(ctx context.Context, lat, lon float64) (domain.Location, error) {
	l := domain.Location{Lat: lat, Lon: lon}
	err := r.db.QueryRow(ctx, `
		INSERT INTO locations (lat, lon) VALUES ($1, $2)
		ON CONFLICT (lat, lon) DO UPDATE SET lat = EXCLUDED.lat
		RETURNING id
	`, lat, lon).Scan(&l.ID)
	return l, err
}

// Package postgres keeps stats hits in a local table, for deployments
// without a separate statistics server.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS hits (
    id          BIGSERIAL PRIMARY KEY,
    app         VARCHAR(64) NOT NULL,
    uri         VARCHAR(512) NOT NULL,
    ip          VARCHAR(64) NOT NULL,
    created     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hits_uri_created ON hits (uri, created);
`

type hitRow struct {
	App     string    `db:"app"`
	URI     string    `db:"uri"`
	IP      string    `db:"ip"`
	Created time.Time `db:"created"`
}

type Store struct {
	db     *sqlx.DB
	app    string
	unique bool
}

// Open connects with lib/pq and ensures the hits table exists.
func Open(ctx context.Context, dsn, app string, unique bool) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect stats db: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create hits table: %w", err)
	}
	return NewStore(db, app, unique), nil
}

func NewStore(db *sqlx.DB, app string, unique bool) *Store {
	return &Store{db: db, app: app, unique: unique}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveHit(ctx context.Context, hit domain.Hit) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO hits (app, uri, ip, created) VALUES (:app, :uri, :ip, :created)`,
		hitRow{App: s.app, URI: hit.URI, IP: hit.IP, Created: hit.Timestamp.UTC()},
	)
	return err
}

// ViewCount counts hits of uri since the given time, by distinct ip when the
// store is configured for unique views.
func (s *Store) ViewCount(ctx context.Context, uri string, since time.Time) (int64, error) {
	q := `SELECT COUNT(*) FROM hits WHERE uri = $1 AND created >= $2`
	if s.unique {
		q = `SELECT COUNT(DISTINCT ip) FROM hits WHERE uri = $1 AND created >= $2`
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, q, uri, since.UTC()); err != nil {
		return 0, err
	}
	return n, nil
}

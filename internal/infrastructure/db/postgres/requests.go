package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

const requestColumns = `id, event_id, requester_id, status, created`

func scanRequest(row pgx.Row) (domain.ParticipationRequest, error) {
	var (
		r      domain.ParticipationRequest
		status string
	)
	if err := row.Scan(&r.ID, &r.EventID, &r.RequesterID, &status, &r.Created); err != nil {
		return r, err
	}
	r.Status = domain.RequestStatus(status)
	return r, nil
}

func (r *repo) listRequests(ctx context.Context, where string, args ...any) ([]domain.ParticipationRequest, error) {
	return r.queryRequests(ctx, `SELECT `+requestColumns+` FROM requests `+where+` ORDER BY id ASC`, args...)
}

func (r *repo) queryRequests(ctx context.Context, sql string, args ...any) ([]domain.ParticipationRequest, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ParticipationRequest{}
	for rows.Next() {
		pr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (r *repo) FindByID(ctx context.Context, id int64) (*domain.ParticipationRequest, error) {
	pr, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("request not found")
	}
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *repo) FindByEventAndRequester(ctx context.Context, eventID, requesterID int64) ([]domain.ParticipationRequest, error) {
	return r.listRequests(ctx, `WHERE event_id = $1 AND requester_id = $2`, eventID, requesterID)
}

func (r *repo) ExistsByEventAndRequester(ctx context.Context, eventID, requesterID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM requests
			WHERE event_id = $1 AND requester_id = $2 AND status <> 'CANCELED'
		)
	`, eventID, requesterID).Scan(&ok)
	return ok, err
}

func (r *repo) CountByEventAndStatus(ctx context.Context, eventID int64, status domain.RequestStatus) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM requests WHERE event_id = $1 AND status = $2`, eventID, string(status)).Scan(&n)
	return n, err
}

// FindByIDs locks the returned rows when called inside a transaction.
func (r *repo) FindByIDs(ctx context.Context, ids []int64) ([]domain.ParticipationRequest, error) {
	if len(ids) == 0 {
		return []domain.ParticipationRequest{}, nil
	}
	if _, ok := r.db.(pgx.Tx); ok {
		return r.queryRequests(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ANY($1) ORDER BY id ASC FOR UPDATE`, ids)
	}
	return r.listRequests(ctx, `WHERE id = ANY($1)`, ids)
}

func (r *repo) FindByEvent(ctx context.Context, eventID int64) ([]domain.ParticipationRequest, error) {
	return r.listRequests(ctx, `WHERE event_id = $1`, eventID)
}

func (r *repo) FindByEventAndStatus(ctx context.Context, eventID int64, status domain.RequestStatus) ([]domain.ParticipationRequest, error) {
	return r.listRequests(ctx, `WHERE event_id = $1 AND status = $2`, eventID, string(status))
}

func (r *repo) FindByRequester(ctx context.Context, requesterID int64) ([]domain.ParticipationRequest, error) {
	return r.listRequests(ctx, `WHERE requester_id = $1`, requesterID)
}

func (r *repo) SaveAll(ctx context.Context, rs []*domain.ParticipationRequest) error {
	for _, pr := range rs {
		if pr.ID == 0 {
			err := r.db.QueryRow(ctx, `
				INSERT INTO requests (event_id, requester_id, status, created)
				VALUES ($1, $2, $3, $4)
				RETURNING id
			`, pr.EventID, pr.RequesterID, string(pr.Status), pr.Created).Scan(&pr.ID)
			if err != nil {
				return mapErr(err)
			}
			continue
		}

		tag, err := r.db.Exec(ctx, `UPDATE requests SET status = $2 WHERE id = $1`, pr.ID, string(pr.Status))
		if err != nil {
			return mapErr(err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound("request not found")
		}
	}
	return nil
}

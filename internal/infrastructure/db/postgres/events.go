package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

const eventColumns = `
	e.id, e.initiator_id, e.category_id,
	e.title, e.annotation, e.description,
	l.id, l.lat, l.lon,
	e.event_date, e.paid,
	e.participant_limit, e.request_moderation, e.confirmed_requests,
	e.state, e.created_on, e.published_on, e.views
`

const eventFrom = `FROM events e JOIN locations l ON l.id = e.location_id `

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var (
		e     domain.Event
		state string
	)
	err := row.Scan(
		&e.ID, &e.InitiatorID, &e.CategoryID,
		&e.Title, &e.Annotation, &e.Description,
		&e.Location.ID, &e.Location.Lat, &e.Location.Lon,
		&e.EventDate, &e.Paid,
		&e.ParticipantLimit, &e.RequestModeration, &e.ConfirmedRequests,
		&state, &e.CreatedOn, &e.PublishedOn, &e.Views,
	)
	if err != nil {
		return nil, err
	}
	e.State = domain.EventState(state)
	return &e, nil
}

func (r *repo) getEvent(ctx context.Context, where string, args ...any) (*domain.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+eventFrom+where, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("event not found")
	}
	return e, err
}

func (r *repo) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	return r.getEvent(ctx, `WHERE e.id = $1`, id)
}

func (r *repo) GetByIDAndOwner(ctx context.Context, id, ownerID int64) (*domain.Event, error) {
	return r.getEvent(ctx, `WHERE e.id = $1 AND e.initiator_id = $2`, id, ownerID)
}

func (r *repo) GetByIDAndState(ctx context.Context, id int64, state domain.EventState) (*domain.Event, error) {
	return r.getEvent(ctx, `WHERE e.id = $1 AND e.state = $2`, id, string(state))
}

// Save never writes views; those move only through IncrementViews.
func (r *repo) Save(ctx context.Context, e *domain.Event) error {
	if e.ID == 0 {
		err := r.db.QueryRow(ctx, `
			INSERT INTO events (
				initiator_id, category_id, location_id,
				title, annotation, description,
				event_date, paid, participant_limit, request_moderation,
				confirmed_requests, state, created_on, published_on
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id
		`,
			e.InitiatorID, e.CategoryID, e.Location.ID,
			e.Title, e.Annotation, e.Description,
			e.EventDate, e.Paid, e.ParticipantLimit, e.RequestModeration,
			e.ConfirmedRequests, string(e.State), e.CreatedOn, e.PublishedOn,
		).Scan(&e.ID)
		return mapErr(err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE events
		SET category_id = $2,
		    location_id = $3,
		    title = $4,
		    annotation = $5,
		    description = $6,
		    event_date = $7,
		    paid = $8,
		    participant_limit = $9,
		    request_moderation = $10,
		    confirmed_requests = $11,
		    state = $12,
		    published_on = $13
		WHERE id = $1
	`,
		e.ID, e.CategoryID, e.Location.ID,
		e.Title, e.Annotation, e.Description,
		e.EventDate, e.Paid, e.ParticipantLimit, e.RequestModeration,
		e.ConfirmedRequests, string(e.State), e.PublishedOn,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("event not found")
	}
	return nil
}

func (r *repo) ExistsByCategory(ctx context.Context, categoryID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE category_id = $1)`, categoryID).Scan(&ok)
	return ok, err
}

func (r *repo) ListByOwner(ctx context.Context, ownerID int64, from, size int) ([]*domain.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+eventFrom+`
		WHERE e.initiator_id = $1
		ORDER BY e.id ASC
		OFFSET $2 LIMIT $3
	`, ownerID, from, size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// IncrementViews is a single-statement increment and does not take the event lock.
func (r *repo) IncrementViews(ctx context.Context, id int64) (domain.ViewStamp, error) {
	var st domain.ViewStamp
	err := r.db.QueryRow(ctx, `
		UPDATE events SET views = views + 1
		WHERE id = $1 AND state = 'PUBLISHED'
		RETURNING views, confirmed_requests
	`, id).Scan(&st.Views, &st.ConfirmedRequests)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ViewStamp{}, domain.ErrNotFound("event not found")
	}
	return st, err
}

package domain

import (
	"context"
	"time"
)

type EventStore interface {
	GetByID(ctx context.Context, id int64) (*Event, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID int64) (*Event, error)
	GetByIDAndState(ctx context.Context, id int64, state EventState) (*Event, error)
	// Save inserts e when e.ID is zero and assigns the new id, otherwise updates it.
	Save(ctx context.Context, e *Event) error
	ExistsByCategory(ctx context.Context, categoryID int64) (bool, error)
	ListByOwner(ctx context.Context, ownerID int64, from, size int) ([]*Event, error)
	// IncrementViews bumps the local view counter of a published event and
	// reports it together with the current confirmed counter.
	IncrementViews(ctx context.Context, id int64) (ViewStamp, error)
}

type RequestStore interface {
	FindByID(ctx context.Context, id int64) (*ParticipationRequest, error)
	FindByEventAndRequester(ctx context.Context, eventID, requesterID int64) ([]ParticipationRequest, error)
	// ExistsByEventAndRequester only considers non-canceled requests.
	ExistsByEventAndRequester(ctx context.Context, eventID, requesterID int64) (bool, error)
	CountByEventAndStatus(ctx context.Context, eventID int64, status RequestStatus) (int, error)
	FindByIDs(ctx context.Context, ids []int64) ([]ParticipationRequest, error)
	FindByEvent(ctx context.Context, eventID int64) ([]ParticipationRequest, error)
	FindByEventAndStatus(ctx context.Context, eventID int64, status RequestStatus) ([]ParticipationRequest, error)
	FindByRequester(ctx context.Context, requesterID int64) ([]ParticipationRequest, error)
	// SaveAll inserts requests with a zero id (assigning it) and updates the rest.
	SaveAll(ctx context.Context, rs []*ParticipationRequest) error
}

type Directory interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, u *User) error
	GetCategory(ctx context.Context, id int64) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	FindOrCreateLocation(ctx context.Context, lat, lon float64) (Location, error)
}

// OutboxMessage is a domain event persisted in the same transaction as the
// change it describes and relayed to the broker later.
type OutboxMessage struct {
	MessageID  string
	RoutingKey string
	Body       []byte
	CreatedAt  time.Time
}

// Tx exposes the stores bound to one open transaction.
type Tx interface {
	Events() EventStore
	Requests() RequestStore
	Directory() Directory
	Enqueue(ctx context.Context, msg OutboxMessage) error
}

type Store interface {
	Events() EventStore
	Requests() RequestStore
	Directory() Directory

	WithTx(ctx context.Context, fn func(tx Tx) error) error
	// WithEventLock runs fn in a transaction holding the exclusive lock of
	// one event. fn receives the event as read under the lock. All writes to
	// the event's state, limit and confirmed counter go through here.
	WithEventLock(ctx context.Context, eventID int64, fn func(tx Tx, e *Event) error) error
}

// Package memory is an in-process domain.Store for local development and tests.
//
// Transactions stage event and request writes and apply them on commit, so
// an error inside WithTx or WithEventLock leaves no partial state. Each event
// id has its own mutex; operations on different events run concurrently.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type Store struct {
	mu         sync.RWMutex
	events     map[int64]domain.Event
	requests   map[int64]domain.ParticipationRequest
	users      map[int64]domain.User
	categories map[int64]domain.Category
	locations  map[int64]domain.Location
	outbox     []domain.OutboxMessage

	lastEvent, lastRequest, lastUser, lastCategory, lastLocation int64

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func New() *Store {
	return &Store{
		events:     map[int64]domain.Event{},
		requests:   map[int64]domain.ParticipationRequest{},
		users:      map[int64]domain.User{},
		categories: map[int64]domain.Category{},
		locations:  map[int64]domain.Location{},
		locks:      map[int64]*sync.Mutex{},
	}
}

var _ domain.Store = (*Store)(nil)

func (s *Store) Events() domain.EventStore     { return &view{s: s} }
func (s *Store) Requests() domain.RequestStore { return &view{s: s} }
func (s *Store) Directory() domain.Directory   { return &view{s: s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := newTxView(s)
	if err := fn(v); err != nil {
		return err
	}
	v.commit()
	return nil
}

func (s *Store) WithEventLock(ctx context.Context, eventID int64, fn func(tx domain.Tx, e *domain.Event) error) error {
	l := s.lockFor(eventID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	v := newTxView(s)
	ev, ok := v.event(eventID)
	if !ok {
		return domain.ErrNotFound("event not found")
	}
	if err := fn(v, &ev); err != nil {
		return err
	}
	v.commit()
	return nil
}

// Outbox returns a copy of every message enqueued so far.
func (s *Store) Outbox() []domain.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.OutboxMessage(nil), s.outbox...)
}

// DrainOutbox removes and returns the enqueued messages.
func (s *Store) DrainOutbox() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.outbox
	s.outbox = nil
	return out
}

func (s *Store) lockFor(eventID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[eventID] = l
	}
	return l
}

// view reads through staged writes when it belongs to a transaction and
// writes straight to the maps otherwise.
type view struct {
	s  *Store
	st *staged
}

type staged struct {
	events   map[int64]domain.Event
	requests map[int64]domain.ParticipationRequest
	outbox   []domain.OutboxMessage
}

func newTxView(s *Store) *view {
	return &view{s: s, st: &staged{
		events:   map[int64]domain.Event{},
		requests: map[int64]domain.ParticipationRequest{},
	}}
}

func (v *view) Events() domain.EventStore     { return v }
func (v *view) Requests() domain.RequestStore { return v }
func (v *view) Directory() domain.Directory   { return v }

func (v *view) Enqueue(ctx context.Context, msg domain.OutboxMessage) error {
	if v.st != nil {
		v.st.outbox = append(v.st.outbox, msg)
		return nil
	}
	v.s.mu.Lock()
	v.s.outbox = append(v.s.outbox, msg)
	v.s.mu.Unlock()
	return nil
}

func (v *view) commit() {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for id, e := range v.st.events {
		// views only move through IncrementViews
		if base, ok := v.s.events[id]; ok {
			e.Views = base.Views
		}
		v.s.events[id] = e
	}
	for id, r := range v.st.requests {
		v.s.requests[id] = r
	}
	v.s.outbox = append(v.s.outbox, v.st.outbox...)
}

func (v *view) event(id int64) (domain.Event, bool) {
	if v.st != nil {
		if e, ok := v.st.events[id]; ok {
			return e, true
		}
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	e, ok := v.s.events[id]
	return e, ok
}

func (v *view) allEvents() []domain.Event {
	v.s.mu.RLock()
	merged := make(map[int64]domain.Event, len(v.s.events))
	for id, e := range v.s.events {
		merged[id] = e
	}
	v.s.mu.RUnlock()
	if v.st != nil {
		for id, e := range v.st.events {
			merged[id] = e
		}
	}
	out := make([]domain.Event, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *view) putEvent(e domain.Event) {
	if v.st != nil {
		v.st.events[e.ID] = e
		return
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if base, ok := v.s.events[e.ID]; ok {
		e.Views = base.Views
	}
	v.s.events[e.ID] = e
}

func (v *view) request(id int64) (domain.ParticipationRequest, bool) {
	if v.st != nil {
		if r, ok := v.st.requests[id]; ok {
			return r, true
		}
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	r, ok := v.s.requests[id]
	return r, ok
}

// filterRequests returns the requests matching keep, ordered by id.
func (v *view) filterRequests(keep func(domain.ParticipationRequest) bool) []domain.ParticipationRequest {
	v.s.mu.RLock()
	merged := make(map[int64]domain.ParticipationRequest, len(v.s.requests))
	for id, r := range v.s.requests {
		merged[id] = r
	}
	v.s.mu.RUnlock()
	if v.st != nil {
		for id, r := range v.st.requests {
			merged[id] = r
		}
	}
	out := []domain.ParticipationRequest{}
	for _, r := range merged {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *view) putRequest(r domain.ParticipationRequest) {
	if v.st != nil {
		v.st.requests[r.ID] = r
		return
	}
	v.s.mu.Lock()
	v.s.requests[r.ID] = r
	v.s.mu.Unlock()
}

func (v *view) nextID(counter *int64) int64 {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	*counter++
	return *counter
}

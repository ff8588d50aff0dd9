package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	TitleMin       = 3
	TitleMax       = 120
	AnnotationMin  = 20
	AnnotationMax  = 2000
	DescriptionMin = 20
	DescriptionMax = 7000
)

type Event struct {
	ID          int64
	InitiatorID int64
	CategoryID  int64

	Title       string
	Annotation  string
	Description string
	Location    Location
	EventDate   time.Time
	Paid        bool

	ParticipantLimit  int // 0 = unlimited
	RequestModeration bool
	ConfirmedRequests int

	State       EventState
	CreatedOn   time.Time
	PublishedOn *time.Time
	Views       int64
}

// ViewStamp is the live part of a published event read back on every access.
type ViewStamp struct {
	Views             int64
	ConfirmedRequests int
}

// Draft carries the fields of a new event as submitted by its initiator.
type Draft struct {
	Title             string
	Annotation        string
	Description       string
	CategoryID        int64
	Lat               float64
	Lon               float64
	EventDate         time.Time
	Paid              bool
	ParticipantLimit  int
	RequestModeration bool
}

// Patch holds optional field updates. Nil fields are left untouched.
type Patch struct {
	Title             *string
	Annotation        *string
	Description       *string
	CategoryID        *int64
	Location          *Location
	EventDate         *time.Time
	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
	StateAction       *StateAction
}

// HasChanges reports whether the patch touches any field besides the state action.
func (p Patch) HasChanges() bool {
	return p.Title != nil || p.Annotation != nil || p.Description != nil ||
		p.CategoryID != nil || p.Location != nil || p.EventDate != nil ||
		p.Paid != nil || p.ParticipantLimit != nil || p.RequestModeration != nil
}

// CheckLeadTime fails when date is earlier than now+lead.
func CheckLeadTime(date, now time.Time, lead time.Duration) error {
	if date.Before(now.Add(lead)) {
		return ErrValidationMeta("event date too close", map[string]string{
			"event_date": fmt.Sprintf("must be at least %s from now", lead),
		})
	}
	return nil
}

func NewEvent(initiatorID int64, d Draft, loc Location, now time.Time, lead time.Duration) (*Event, error) {
	if initiatorID <= 0 {
		return nil, ErrValidation("initiator_id is required")
	}
	if d.CategoryID <= 0 {
		return nil, ErrValidation("category is required")
	}
	title, err := checkText("title", d.Title, TitleMin, TitleMax)
	if err != nil {
		return nil, err
	}
	annotation, err := checkText("annotation", d.Annotation, AnnotationMin, AnnotationMax)
	if err != nil {
		return nil, err
	}
	description, err := checkText("description", d.Description, DescriptionMin, DescriptionMax)
	if err != nil {
		return nil, err
	}
	if d.ParticipantLimit < 0 {
		return nil, ErrValidation("participant_limit must be >= 0 (0 means unlimited)")
	}
	if err := CheckLeadTime(d.EventDate, now, lead); err != nil {
		return nil, err
	}

	return &Event{
		InitiatorID:       initiatorID,
		CategoryID:        d.CategoryID,
		Title:             title,
		Annotation:        annotation,
		Description:       description,
		Location:          loc,
		EventDate:         d.EventDate.UTC(),
		Paid:              d.Paid,
		ParticipantLimit:  d.ParticipantLimit,
		RequestModeration: d.RequestModeration,
		State:             StatePending,
		CreatedOn:         now.UTC(),
	}, nil
}

// ApplyPatch copies the non-nil fields of p onto e. The state action is
// not applied here; see ApplyOwnerAction and ApplyAdminAction.
func (e *Event) ApplyPatch(p Patch, now time.Time, lead time.Duration) error {
	if !p.HasChanges() {
		return nil
	}
	if e.State.Terminal() {
		return ErrConflictMeta("event cannot be modified", map[string]string{"state": string(e.State)})
	}

	if p.Title != nil {
		v, err := checkText("title", *p.Title, TitleMin, TitleMax)
		if err != nil {
			return err
		}
		e.Title = v
	}
	if p.Annotation != nil {
		v, err := checkText("annotation", *p.Annotation, AnnotationMin, AnnotationMax)
		if err != nil {
			return err
		}
		e.Annotation = v
	}
	if p.Description != nil {
		v, err := checkText("description", *p.Description, DescriptionMin, DescriptionMax)
		if err != nil {
			return err
		}
		e.Description = v
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.EventDate != nil {
		if err := CheckLeadTime(*p.EventDate, now, lead); err != nil {
			return err
		}
		e.EventDate = p.EventDate.UTC()
	}
	if p.Paid != nil {
		e.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		v := *p.ParticipantLimit
		if v < 0 {
			return ErrValidation("participant_limit must be >= 0 (0 means unlimited)")
		}
		if v > 0 && v < e.ConfirmedRequests {
			return ErrConflictMeta("participant limit below confirmed requests", map[string]string{
				"confirmed_requests": strconv.Itoa(e.ConfirmedRequests),
			})
		}
		e.ParticipantLimit = v
	}
	if p.RequestModeration != nil {
		e.RequestModeration = *p.RequestModeration
	}
	return nil
}

// ApplyOwnerAction moves a PENDING event back to review or withdraws it.
func (e *Event) ApplyOwnerAction(a StateAction) error {
	if e.State != StatePending {
		return ErrConflictMeta("only pending events can be changed by the initiator", map[string]string{"state": string(e.State)})
	}
	switch a {
	case ActionSendToReview:
		e.State = StatePending
	case ActionCancelReview:
		e.State = StateCanceled
	default:
		return ErrValidationMeta("invalid state action", map[string]string{"state_action": string(a)})
	}
	return nil
}

// ApplyAdminAction publishes or rejects the event.
func (e *Event) ApplyAdminAction(a StateAction, now time.Time) error {
	switch a {
	case ActionPublish:
		return e.Publish(now)
	case ActionReject:
		return e.Reject()
	default:
		return ErrValidationMeta("invalid state action", map[string]string{"state_action": string(a)})
	}
}

func (e *Event) Publish(now time.Time) error {
	if e.State != StatePending {
		return ErrConflictMeta("only pending events can be published", map[string]string{"state": string(e.State)})
	}
	t := now.UTC()
	e.State = StatePublished
	e.PublishedOn = &t
	return nil
}

// Reject cancels a not yet published event. Rejecting a canceled event is a no-op.
func (e *Event) Reject() error {
	if e.State == StatePublished {
		return ErrConflict("published events cannot be rejected")
	}
	e.State = StateCanceled
	return nil
}

// Full reports whether the participant limit has been reached.
func (e *Event) Full() bool {
	return e.ParticipantLimit > 0 && e.ConfirmedRequests >= e.ParticipantLimit
}

// NeedsModeration reports whether new requests wait for an owner decision.
func (e *Event) NeedsModeration() bool {
	return e.RequestModeration && e.ParticipantLimit > 0
}

func checkText(field, v string, min, max int) (string, error) {
	v = strings.TrimSpace(v)
	n := utf8.RuneCountInString(v)
	if n < min || n > max {
		return "", ErrValidationMeta("invalid field", map[string]string{
			field: fmt.Sprintf("must be between %d and %d chars", min, max),
		})
	}
	return v, nil
}

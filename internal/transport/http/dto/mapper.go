package dto

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

// Names resolves display names for ids referenced by events. Unknown ids map
// to the empty string.
type Names struct {
	Categories map[int64]string
	Users      map[int64]string
}

func formatTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}

// ParseDateTime parses an API timestamp as UTC.
func ParseDateTime(field, s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, domain.ErrValidationMeta("invalid body", map[string]string{
			field: "must match " + DateTimeLayout,
		})
	}
	return t, nil
}

func (r NewEventReq) ToDraft() (domain.Draft, error) {
	date, err := ParseDateTime("eventDate", r.EventDate)
	if err != nil {
		return domain.Draft{}, err
	}
	d := domain.Draft{
		Title:             r.Title,
		Annotation:        r.Annotation,
		Description:       r.Description,
		CategoryID:        r.Category,
		Lat:               *r.Location.Lat,
		Lon:               *r.Location.Lon,
		EventDate:         date,
		RequestModeration: true,
	}
	if r.Paid != nil {
		d.Paid = *r.Paid
	}
	if r.ParticipantLimit != nil {
		d.ParticipantLimit = *r.ParticipantLimit
	}
	if r.RequestModeration != nil {
		d.RequestModeration = *r.RequestModeration
	}
	return d, nil
}

func (r UpdateEventReq) ToPatch() (domain.Patch, error) {
	p := domain.Patch{
		Title:             r.Title,
		Annotation:        r.Annotation,
		Description:       r.Description,
		CategoryID:        r.Category,
		Paid:              r.Paid,
		ParticipantLimit:  r.ParticipantLimit,
		RequestModeration: r.RequestModeration,
	}
	if r.EventDate != nil {
		t, err := ParseDateTime("eventDate", *r.EventDate)
		if err != nil {
			return domain.Patch{}, err
		}
		p.EventDate = &t
	}
	if r.Location != nil {
		if r.Location.Lat == nil || r.Location.Lon == nil {
			return domain.Patch{}, domain.ErrValidationMeta("invalid body", map[string]string{
				"location": "lat and lon are required",
			})
		}
		p.Location = &domain.Location{Lat: *r.Location.Lat, Lon: *r.Location.Lon}
	}
	if r.StateAction != nil {
		a := domain.StateAction(*r.StateAction)
		p.StateAction = &a
	}
	return p, nil
}

func ToEventFull(e *domain.Event, n Names) EventFullResp {
	out := EventFullResp{
		ID:                e.ID,
		Title:             e.Title,
		Annotation:        e.Annotation,
		Description:       e.Description,
		Category:          CategoryRef{ID: e.CategoryID, Name: n.Categories[e.CategoryID]},
		Initiator:         UserShort{ID: e.InitiatorID, Name: n.Users[e.InitiatorID]},
		Location:          LocationResp{Lat: e.Location.Lat, Lon: e.Location.Lon},
		EventDate:         formatTime(e.EventDate),
		CreatedOn:         formatTime(e.CreatedOn),
		Paid:              e.Paid,
		ParticipantLimit:  e.ParticipantLimit,
		RequestModeration: e.RequestModeration,
		ConfirmedRequests: e.ConfirmedRequests,
		State:             string(e.State),
		Views:             e.Views,
	}
	if e.PublishedOn != nil {
		s := formatTime(*e.PublishedOn)
		out.PublishedOn = &s
	}
	return out
}

func ToEventShort(e *domain.Event, n Names) EventShortResp {
	return EventShortResp{
		ID:                e.ID,
		Title:             e.Title,
		Annotation:        e.Annotation,
		Category:          CategoryRef{ID: e.CategoryID, Name: n.Categories[e.CategoryID]},
		Initiator:         UserShort{ID: e.InitiatorID, Name: n.Users[e.InitiatorID]},
		EventDate:         formatTime(e.EventDate),
		Paid:              e.Paid,
		ConfirmedRequests: e.ConfirmedRequests,
		Views:             e.Views,
	}
}

func ToRequest(r domain.ParticipationRequest) ParticipationRequestResp {
	return ParticipationRequestResp{
		ID:        r.ID,
		Event:     r.EventID,
		Requester: r.RequesterID,
		Status:    string(r.Status),
		Created:   formatTime(r.Created),
	}
}

func ToRequests(rs []domain.ParticipationRequest) []ParticipationRequestResp {
	out := make([]ParticipationRequestResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToRequest(r))
	}
	return out
}

func ToUser(u *domain.User) UserResp {
	return UserResp{ID: u.ID, Name: u.Name, Email: u.Email}
}

func ToCategory(c *domain.Category) CategoryResp {
	return CategoryResp{ID: c.ID, Name: c.Name}
}

package dto

// DateTimeLayout is the wire format of every timestamp in the API.
const DateTimeLayout = "2006-01-02 15:04:05"

type LocationDTO struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type NewEventReq struct {
	Title             string       `json:"title" validate:"notblank,min=3,max=120"`
	Annotation        string       `json:"annotation" validate:"notblank,min=20,max=2000"`
	Description       string       `json:"description" validate:"notblank,min=20,max=7000"`
	Category          int64        `json:"category" validate:"required,gt=0"`
	EventDate         string       `json:"eventDate" validate:"required,datetime=2006-01-02 15:04:05"`
	Location          *LocationDTO `json:"location" validate:"required"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool        `json:"requestModeration"`
}

// UpdateEventReq serves both the owner and the admin patch. Which state
// actions each may use is checked by event.Service.
type UpdateEventReq struct {
	Title             *string      `json:"title" validate:"omitempty,notblank,min=3,max=120"`
	Annotation        *string      `json:"annotation" validate:"omitempty,notblank,min=20,max=2000"`
	Description       *string      `json:"description" validate:"omitempty,notblank,min=20,max=7000"`
	Category          *int64       `json:"category" validate:"omitempty,gt=0"`
	EventDate         *string      `json:"eventDate" validate:"omitempty,datetime=2006-01-02 15:04:05"`
	Location          *LocationDTO `json:"location"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool        `json:"requestModeration"`
	StateAction       *string      `json:"stateAction" validate:"omitempty,oneof=SEND_TO_REVIEW CANCEL_REVIEW PUBLISH_EVENT REJECT_EVENT"`
}

type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

type UserShort struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

type LocationResp struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type EventFullResp struct {
	ID                int64        `json:"id"`
	Title             string       `json:"title"`
	Annotation        string       `json:"annotation"`
	Description       string       `json:"description"`
	Category          CategoryRef  `json:"category"`
	Initiator         UserShort    `json:"initiator"`
	Location          LocationResp `json:"location"`
	EventDate         string       `json:"eventDate"`
	CreatedOn         string       `json:"createdOn"`
	PublishedOn       *string      `json:"publishedOn"`
	Paid              bool         `json:"paid"`
	ParticipantLimit  int          `json:"participantLimit"`
	RequestModeration bool         `json:"requestModeration"`
	ConfirmedRequests int          `json:"confirmedRequests"`
	State             string       `json:"state"`
	Views             int64        `json:"views"`
}

type EventShortResp struct {
	ID                int64       `json:"id"`
	Title             string      `json:"title"`
	Annotation        string      `json:"annotation"`
	Category          CategoryRef `json:"category"`
	Initiator         UserShort   `json:"initiator"`
	EventDate         string      `json:"eventDate"`
	Paid              bool        `json:"paid"`
	ConfirmedRequests int         `json:"confirmedRequests"`
	Views             int64       `json:"views"`
}

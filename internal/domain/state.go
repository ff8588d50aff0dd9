package domain

type EventState string

const (
	StatePending   EventState = "PENDING"
	StatePublished EventState = "PUBLISHED"
	StateCanceled  EventState = "CANCELED"
)

func (s EventState) Valid() bool {
	return s == StatePending || s == StatePublished || s == StateCanceled
}

// Terminal states accept no further field or state mutation.
func (s EventState) Terminal() bool {
	return s == StatePublished || s == StateCanceled
}

type StateAction string

const (
	ActionSendToReview StateAction = "SEND_TO_REVIEW"
	ActionCancelReview StateAction = "CANCEL_REVIEW"
	ActionPublish      StateAction = "PUBLISH_EVENT"
	ActionReject       StateAction = "REJECT_EVENT"
)

func (a StateAction) OwnerAction() bool {
	return a == ActionSendToReview || a == ActionCancelReview
}

func (a StateAction) AdminAction() bool {
	return a == ActionPublish || a == ActionReject
}

package dto

type ParticipationRequestResp struct {
	ID        int64  `json:"id"`
	Event     int64  `json:"event"`
	Requester int64  `json:"requester"`
	Status    string `json:"status"`
	Created   string `json:"created"`
}

type StatusUpdateReq struct {
	RequestIDs []int64 `json:"requestIds" validate:"required,min=1,dive,gt=0"`
	Status     string  `json:"status" validate:"required,oneof=CONFIRMED REJECTED"`
}

type StatusUpdateResp struct {
	ConfirmedRequests []ParticipationRequestResp `json:"confirmedRequests"`
	RejectedRequests  []ParticipationRequestResp `json:"rejectedRequests"`
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/participation"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/validate"
)

type RequestsHandler struct {
	svc *participation.Service
}

func NewRequestsHandler(svc *participation.Service) *RequestsHandler {
	return &RequestsHandler{svc: svc}
}

// ListForEvent returns every request on one of the caller's events.
func (h *RequestsHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := validate.PathID("eventId", chi.URLParam(r, "eventId"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	rs, err := h.svc.ListForOwner(r.Context(), middleware.UserID(r), eventID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToRequests(rs))
}

func (h *RequestsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	eventID, err := validate.PathID("eventId", chi.URLParam(r, "eventId"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	var req dto.StatusUpdateReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	res, err := h.svc.Decide(r.Context(), middleware.UserID(r), eventID, req.RequestIDs, domain.RequestStatus(req.Status))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.StatusUpdateResp{
		ConfirmedRequests: dto.ToRequests(res.Confirmed),
		RejectedRequests:  dto.ToRequests(res.Rejected),
	})
}

// ListMine lists the caller's own requests, optionally for one event.
func (h *RequestsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	var eventID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("eventId")); raw != "" {
		id, err := validate.PathID("eventId", raw)
		if err != nil {
			response.Err(w, r, err)
			return
		}
		eventID = &id
	}
	rs, err := h.svc.ListForRequester(r.Context(), middleware.UserID(r), eventID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToRequests(rs))
}

func (h *RequestsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	eventID, err := validate.PathID("eventId", r.URL.Query().Get("eventId"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	pr, err := h.svc.Submit(r.Context(), middleware.UserID(r), eventID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, dto.ToRequest(*pr))
}

func (h *RequestsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	requestID, err := validate.PathID("requestId", chi.URLParam(r, "requestId"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	pr, err := h.svc.Cancel(r.Context(), middleware.UserID(r), requestID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToRequest(*pr))
}

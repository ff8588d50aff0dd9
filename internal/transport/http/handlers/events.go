package handlers

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/directory"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/validate"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type EventsHandler struct {
	svc *event.Service
	dir *directory.Service
}

func NewEventsHandler(svc *event.Service, dir *directory.Service) *EventsHandler {
	return &EventsHandler{svc: svc, dir: dir}
}

// Public

func (h *EventsHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	id, err := validate.PathID("id", chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	ev, err := h.svc.GetPublished(r.Context(), id, clientIP(r))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	h.writeFull(w, r, http.StatusOK, ev)
}

// Owner

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.NewEventReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	draft, err := req.ToDraft()
	if err != nil {
		response.Err(w, r, err)
		return
	}
	ev, err := h.svc.Create(r.Context(), middleware.UserID(r), draft)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	h.writeFull(w, r, http.StatusCreated, ev)
}

func (h *EventsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	from, err := validate.QueryInt(r, "from", 0)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	size, err := validate.QueryInt(r, "size", defaultPageSize)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if size == 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	items, err := h.svc.ListByOwner(r.Context(), middleware.UserID(r), from, size)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	names, err := resolveNames(r.Context(), h.dir, items...)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	out := make([]dto.EventShortResp, 0, len(items))
	for _, it := range items {
		out = append(out, dto.ToEventShort(it, names))
	}
	response.Data(w, http.StatusOK, out)
}

func (h *EventsHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	id, err := validate.PathID("eventId", chi.URLParam(r, "eventId"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	ev, err := h.svc.GetByOwner(r.Context(), id, middleware.UserID(r))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	h.writeFull(w, r, http.StatusOK, ev)
}

func (h *EventsHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	id, patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	ev, err := h.svc.UpdateByOwner(r.Context(), id, middleware.UserID(r), patch)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	h.writeFull(w, r, http.StatusOK, ev)
}

// Admin

func (h *EventsHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	ev, err := h.svc.UpdateByAdmin(r.Context(), id, patch)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	h.writeFull(w, r, http.StatusOK, ev)
}

func decodePatch(w http.ResponseWriter, r *http.Request) (int64, domain.Patch, bool) {
	id, err := validate.PathID("eventId", chi.URLParam(r, "eventId"))
	if err != nil {
		response.Err(w, r, err)
		return 0, domain.Patch{}, false
	}
	var req dto.UpdateEventReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return 0, domain.Patch{}, false
	}
	patch, err := req.ToPatch()
	if err != nil {
		response.Err(w, r, err)
		return 0, domain.Patch{}, false
	}
	return id, patch, true
}

func (h *EventsHandler) writeFull(w http.ResponseWriter, r *http.Request, status int, ev *domain.Event) {
	names, err := resolveNames(r.Context(), h.dir, ev)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, status, dto.ToEventFull(ev, names))
}

// clientIP expects chi's RealIP to have run, so RemoteAddr may or may not
// carry a port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/directory"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/validate"
)

// DirectoryHandler serves the admin user and category endpoints.
type DirectoryHandler struct {
	svc *directory.Service
}

func NewDirectoryHandler(svc *directory.Service) *DirectoryHandler {
	return &DirectoryHandler{svc: svc}
}

func (h *DirectoryHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.NewUserReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	u, err := h.svc.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, dto.ToUser(u))
}

func (h *DirectoryHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := validate.PathID("userId", chi.URLParam(r, "userId"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	u, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToUser(u))
}

func (h *DirectoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req dto.NewCategoryReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), req.Name)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, dto.ToCategory(c))
}

func (h *DirectoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := validate.PathID("catId", chi.URLParam(r, "catId"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	c, err := h.svc.GetCategory(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	inUse, err := h.svc.CategoryInUse(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	out := dto.ToCategory(c)
	out.InUse = &inUse
	response.Data(w, http.StatusOK, out)
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"telehealth/internal/availability/service"
	"telehealth/pkg/auth"
	apperrors "telehealth/pkg/errors"
	httputil "telehealth/pkg/http"
	"telehealth/pkg/logger"
	"telehealth/pkg/middleware"
	"telehealth/pkg/model"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) Upsert(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := auth.ActorFrom(r.Context())

	var in model.AvailabilityInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, "Upsert", apperrors.InvalidInput("Invalid request body"))
		return
	}

	window, err := h.service.UpsertWindow(httputil.ClientContext(r), actor.ID, &in)
	if err != nil {
		h.writeError(w, "Upsert", err)
		return
	}

	if err := httputil.WriteSuccess(w, window); err != nil {
		h.log.Error("failed to write success response", "handler", "Upsert", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Delete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := auth.ActorFrom(r.Context())

	var in model.AvailabilityDelete
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, "Delete", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.DeleteWindow(httputil.ClientContext(r), actor.ID, &in); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]bool{"success": true}); err != nil {
		h.log.Error("failed to write success response", "handler", "Delete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := auth.ActorFrom(r.Context())
	h.list(w, r, "ListMine", actor.ID)
}

func (h *AvailabilityHandler) ListForTherapist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, "ListForTherapist", apperrors.InvalidInput("Invalid therapist ID"))
		return
	}
	h.list(w, r, "ListForTherapist", id)
}

func (h *AvailabilityHandler) list(w http.ResponseWriter, r *http.Request, name string, therapistID int64) {
	windows, err := h.service.ListWindows(r.Context(), therapistID)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, windows); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/availability", middleware.RequireActor(h.Upsert, auth.RoleTherapist))
	router.DELETE("/availability", middleware.RequireActor(h.Delete, auth.RoleTherapist))
	router.GET("/availability", middleware.RequireActor(h.ListMine, auth.RoleTherapist))
	router.GET("/therapists/:id/availability", h.ListForTherapist)
}

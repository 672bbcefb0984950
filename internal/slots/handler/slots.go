package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"telehealth/internal/slots/service"
	apperrors "telehealth/pkg/errors"
	httputil "telehealth/pkg/http"
	"telehealth/pkg/logger"
	"telehealth/pkg/model"
)

type SlotsHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotsHandler(service service.SlotService, log *logger.Logger) *SlotsHandler {
	return &SlotsHandler{
		service: service,
		log:     log,
	}
}

type groupedResponse struct {
	Slots   []model.Slot    `json:"slots"`
	Grouped service.Grouped `json:"grouped"`
}

// Available answers POST /available-slots with the free slots in ascending
// order. With ?grouped=true the slots are also bucketed by part of day.
func (h *SlotsHandler) Available(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Available", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	slots, err := h.service.Available(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Available", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var body any = slots
	if grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped")); grouped {
		body = groupedResponse{Slots: slots, Grouped: service.Bucket(slots)}
	}

	if err := httputil.WriteSuccess(w, body); err != nil {
		h.log.Error("failed to write success response", "handler", "Available", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotsHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/available-slots", h.Available)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"telehealth/internal/sessions/service"
	"telehealth/pkg/auth"
	apperrors "telehealth/pkg/errors"
	httputil "telehealth/pkg/http"
	"telehealth/pkg/logger"
	"telehealth/pkg/middleware"
	"telehealth/pkg/model"
)

type SessionHandler struct {
	service service.SessionService
	log     *logger.Logger
}

func NewSessionHandler(service service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		log:     log,
	}
}

type actionResponse struct {
	Success bool           `json:"success"`
	Session *model.Session `json:"session"`
}

func (h *SessionHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := auth.ActorFrom(r.Context())

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Book", apperrors.InvalidInput("Invalid request body"))
		return
	}

	session, err := h.service.Book(httputil.ClientContext(r), actor, &req)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, session); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

func (h *SessionHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.ActorFrom(r.Context())

	session, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, session); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := auth.ActorFrom(r.Context())

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	sessions, total, err := h.service.ListMine(r.Context(), actor, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, sessions, total, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *SessionHandler) Accept(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.action(w, r, "Accept", h.service.Accept)
}

func (h *SessionHandler) Decline(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.action(w, r, "Decline", h.service.Decline)
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.action(w, r, "Cancel", h.service.Cancel)
}

// Complete takes the session id from the path and answers with the bare
// session, unlike the body-addressed actions.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := auth.ActorFrom(r.Context())

	session, err := h.service.Complete(httputil.ClientContext(r), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	if err := httputil.WriteSuccess(w, session); err != nil {
		h.log.Error("failed to write success response", "handler", "Complete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) AutoComplete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	completed, err := h.service.AutoComplete(r.Context(), time.Now())
	if err != nil {
		h.writeError(w, "AutoComplete", err)
		return
	}

	h.log.Info("Manual auto-complete sweep finished", "completed", completed)
	if err := httputil.WriteSuccess(w, map[string]any{"success": true, "completed": completed}); err != nil {
		h.log.Error("failed to write success response", "handler", "AutoComplete", "operation", "WriteSuccess", "error", err)
	}
}

type actionFunc func(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error)

func (h *SessionHandler) action(w http.ResponseWriter, r *http.Request, name string, fn actionFunc) {
	actor, _ := auth.ActorFrom(r.Context())

	var req model.SessionAction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, name, apperrors.InvalidInput("Invalid request body"))
		return
	}

	session, err := fn(httputil.ClientContext(r), actor, req.SessionID)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, actionResponse{Success: true, Session: session}); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SessionHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/sessions/book", middleware.RequireActor(h.Book, auth.RolePatient, auth.RoleAdmin))
	router.GET("/sessions", middleware.RequireActor(h.List))
	router.GET("/sessions/:id", middleware.RequireActor(h.GetByID))
	router.PATCH("/sessions/:id/complete", middleware.RequireActor(h.Complete, auth.RoleTherapist, auth.RoleAdmin))
	router.POST("/sessions/accept", middleware.RequireActor(h.Accept, auth.RoleTherapist, auth.RoleAdmin))
	router.POST("/sessions/decline", middleware.RequireActor(h.Decline, auth.RoleTherapist, auth.RoleAdmin))
	router.PUT("/sessions/cancel", middleware.RequireActor(h.Cancel))
	router.POST("/sessions/auto-complete", middleware.RequireActor(h.AutoComplete, auth.RoleAdmin))
}

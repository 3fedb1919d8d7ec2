package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opinio/market/internal/domain"
	"github.com/opinio/market/internal/service"
)

// EventHandler serves event query and lifecycle endpoints.
type EventHandler struct {
	eventSvc *service.EventService
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(eventSvc *service.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

// ListEvents godoc
// GET /api/events?status=live&page=1&limit=20
func (h *EventHandler) ListEvents(c *gin.Context) {
	status := c.Query("status")
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	events, total, err := h.eventSvc.ListEvents(c.Request.Context(), limit, offset, status)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not list events")
		return
	}
	respondList(c, events, total, page, limit)
}

// GetByID godoc
// GET /api/events/:id
func (h *EventHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid event id")
		return
	}

	event, err := h.eventSvc.GetEvent(c.Request.Context(), id)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrEventNotFound.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch event")
		return
	}
	respondSuccess(c, http.StatusOK, event)
}

// CreateEvent godoc
// POST /api/admin/events [JWT + admin]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	event, err := h.eventSvc.CreateEvent(c.Request.Context(), req)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not create event")
		return
	}
	respondSuccess(c, http.StatusCreated, event)
}

// OpenEvent godoc
// POST /api/admin/events/:id/open [JWT + admin]
func (h *EventHandler) OpenEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid event id")
		return
	}

	event, err := h.eventSvc.OpenEvent(c.Request.Context(), id)
	if err != nil {
		switch {
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrEventNotFound.Error())
		case errors.Is(err, domain.ErrAlreadyResolved):
			respondError(c, http.StatusConflict, "ERR_ALREADY_RESOLVED", domain.ErrAlreadyResolved.Error())
		case errors.Is(err, domain.ErrInvalidTransition):
			respondError(c, http.StatusConflict, "ERR_INVALID_TRANSITION", domain.ErrInvalidTransition.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not open event")
		}
		return
	}
	respondSuccess(c, http.StatusOK, event)
}

// ResolveEvent godoc
// POST /api/admin/events/:id/resolve [JWT + admin]
// Body: {"winning_outcome":"yes"}
func (h *EventHandler) ResolveEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid event id")
		return
	}

	var body struct {
		WinningOutcome string `json:"winning_outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	report, err := h.eventSvc.ResolveEvent(c.Request.Context(), id, domain.Side(body.WinningOutcome))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOutcome):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_OUTCOME", domain.ErrInvalidOutcome.Error())
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrEventNotFound.Error())
		case errors.Is(err, domain.ErrAlreadyResolved):
			respondError(c, http.StatusConflict, "ERR_ALREADY_RESOLVED", domain.ErrAlreadyResolved.Error())
		case errors.Is(err, domain.ErrInvalidTransition):
			respondError(c, http.StatusConflict, "ERR_INVALID_TRANSITION", domain.ErrInvalidTransition.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not resolve event")
		}
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

// DeleteEvent godoc
// DELETE /api/admin/events/:id [JWT + admin]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid event id")
		return
	}

	if err := h.eventSvc.DeleteEvent(c.Request.Context(), id); err != nil {
		switch {
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrEventNotFound.Error())
		case errors.Is(err, domain.ErrEventResolved):
			respondError(c, http.StatusConflict, "ERR_EVENT_RESOLVED", domain.ErrEventResolved.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not delete event")
		}
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"deleted": id})
}

// GetEventTrades godoc
// GET /api/admin/events/:id/trades [JWT + admin]
func (h *EventHandler) GetEventTrades(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid event id")
		return
	}

	trades, err := h.eventSvc.GetEventTrades(c.Request.Context(), id)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrEventNotFound.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch trades")
		return
	}
	respondSuccess(c, http.StatusOK, trades)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}

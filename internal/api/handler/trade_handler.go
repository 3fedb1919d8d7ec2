package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opinio/market/internal/api/middleware"
	"github.com/opinio/market/internal/domain"
	"github.com/opinio/market/internal/service"
	"github.com/shopspring/decimal"
)

// TradeHandler serves trade placement and query endpoints.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// PlaceTrade godoc
// POST /api/trades [JWT]
// Body: {"event_id":"uuid","selection":"yes","amount":"50.00"}
func (h *TradeHandler) PlaceTrade(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var body struct {
		EventID   string `json:"event_id"  binding:"required"`
		Selection string `json:"selection" binding:"required"`
		Amount    string `json:"amount"    binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	eventID, err := uuid.Parse(body.EventID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_EVENT_ID", "invalid event_id format")
		return
	}

	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a positive decimal string")
		return
	}

	req := domain.PlaceTradeRequest{
		UserID:    userID,
		EventID:   eventID,
		Selection: domain.Side(body.Selection),
		Amount:    amount,
	}

	trade, err := h.tradeSvc.PlaceTrade(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSelection):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_SELECTION", domain.ErrInvalidSelection.Error())
		case errors.Is(err, domain.ErrInvalidAmount):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", domain.ErrInvalidAmount.Error())
		case errors.Is(err, domain.ErrInsufficientBalance):
			respondError(c, http.StatusPaymentRequired, "ERR_INSUFFICIENT_BALANCE", domain.ErrInsufficientBalance.Error())
		case errors.Is(err, domain.ErrTradingClosed):
			respondError(c, http.StatusConflict, "ERR_TRADING_CLOSED", domain.ErrTradingClosed.Error())
		case errors.Is(err, domain.ErrInvalidMarketState):
			respondError(c, http.StatusConflict, "ERR_INVALID_MARKET_STATE", domain.ErrInvalidMarketState.Error())
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrEventNotFound.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not place trade")
		}
		return
	}
	respondSuccess(c, http.StatusCreated, trade.ToResponse())
}

// GetMyTrades godoc
// GET /api/trades/my?page=1&limit=20 [JWT]
func (h *TradeHandler) GetMyTrades(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	trades, err := h.tradeSvc.GetMyTrades(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch trades")
		return
	}

	resp := make([]domain.TradeResponse, 0, len(trades))
	for _, t := range trades {
		resp = append(resp, t.ToResponse())
	}
	respondList(c, resp, len(resp), page, limit)
}

// GetTradeByID godoc
// GET /api/trades/:id [JWT]
func (h *TradeHandler) GetTradeByID(c *gin.Context) {
	userID := middleware.GetUserID(c)

	tradeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TRADE_ID", "invalid trade id")
		return
	}

	trade, err := h.tradeSvc.GetTradeByID(c.Request.Context(), tradeID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "this trade does not belong to you")
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrTradeNotFound.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch trade")
		}
		return
	}
	respondSuccess(c, http.StatusOK, trade.ToResponse())
}

// ListTrades godoc
// GET /api/admin/trades?user_id=uuid&status=won&page=1&limit=20 [JWT + admin]
func (h *TradeHandler) ListTrades(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit
	status := c.Query("status")

	var userID *uuid.UUID
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_USER_ID", "invalid user_id format")
			return
		}
		userID = &id
	}

	trades, err := h.tradeSvc.ListTrades(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not list trades")
		return
	}
	respondList(c, trades, len(trades), page, limit)
}

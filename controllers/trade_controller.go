package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trading_journal/core"
	"trading_journal/models"
	"trading_journal/pkg/database"
	"trading_journal/pkg/middleware"
	dbmodels "trading_journal/pkg/models"
	"trading_journal/pkg/utils"
)

type TradeStore interface {
	CreateTrade(ctx context.Context, trade *dbmodels.Trade) error
	GetTrade(ctx context.Context, userID string, id uint) (*dbmodels.Trade, error)
	UpdateTrade(ctx context.Context, trade *dbmodels.Trade) error
	DeleteTrade(ctx context.Context, userID string, id uint) error
	ListTrades(ctx context.Context, userID string, filter database.TradeFilter) ([]dbmodels.Trade, int64, error)
}

// TradeRequest body of trade create/update.
type TradeRequest struct {
	Ticker     string  `json:"ticker" binding:"required"`
	Direction  string  `json:"direction" binding:"omitempty,oneof=long short"`
	EntryTime  string  `json:"entryTime" binding:"required"`
	ExitTime   string  `json:"exitTime"`
	EntryPrice float64 `json:"entryPrice" binding:"gte=0"`
	ExitPrice  float64 `json:"exitPrice" binding:"gte=0"`
	Volume     float64 `json:"volume" binding:"gte=0"`
	Profit     float64 `json:"profit"`
	Notes      string  `json:"notes" binding:"max=4000"`
}

type TradeController struct {
	store  TradeStore
	prefix string
}

func NewTradeController(store TradeStore, prefix string) *TradeController {
	return &TradeController{store: store, prefix: prefix}
}

// apply copies the request onto trade; false when a timestamp is unparseable.
func (r TradeRequest) apply(trade *dbmodels.Trade, prefix string) bool {
	entry, ok := core.ParseTime(r.EntryTime)
	if !ok {
		return false
	}
	trade.ExitTime = nil
	if r.ExitTime != "" {
		exit, ok := core.ParseTime(r.ExitTime)
		if !ok {
			return false
		}
		trade.ExitTime = &exit
	}
	trade.Ticker = utils.NormalizeTicker(r.Ticker, prefix)
	trade.Direction = strings.ToLower(r.Direction)
	trade.EntryTime = entry
	trade.EntryPrice = r.EntryPrice
	trade.ExitPrice = r.ExitPrice
	trade.Volume = r.Volume
	trade.Profit = r.Profit
	trade.Notes = r.Notes
	return true
}

// ToPayload converts a stored trade into the analysis payload shape.
func ToPayload(t dbmodels.Trade) models.Trade {
	id := t.ID
	out := models.Trade{
		ID:         &id,
		Ticker:     t.Ticker,
		Direction:  t.Direction,
		EntryTime:  t.EntryTime.UTC().Format(time.RFC3339),
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Profit:     t.Profit,
		Volume:     t.Volume,
		Notes:      t.Notes,
	}
	if t.ExitTime != nil {
		out.ExitTime = t.ExitTime.UTC().Format(time.RFC3339)
	}
	return out
}

// filter reads ticker/from/to query parameters.
func (tc *TradeController) filter(c *gin.Context) (database.TradeFilter, bool) {
	var f database.TradeFilter
	if ticker := c.Query("ticker"); ticker != "" {
		f.Ticker = utils.NormalizeTicker(ticker, tc.prefix)
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		ts, ok := core.ParseTime(raw)
		if !ok {
			return f, false
		}
		*p.dst = &ts
	}
	return f, true
}

// ListTrades GET /api/v1/trades
func (tc *TradeController) ListTrades(c *gin.Context) {
	f, ok := tc.filter(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "invalid from/to", core.CodeInvalidDate)
		return
	}
	page, pageSize := pagination(c)
	f.Limit = pageSize
	f.Offset = (page - 1) * pageSize

	trades, total, err := tc.store.ListTrades(c.Request.Context(), middleware.GetCurrentUser(c), f)
	if err != nil {
		logrus.WithError(err).Error("list trades")
		respondError(c, http.StatusInternalServerError, "failed to fetch trades", "DB_ERROR")
		return
	}
	c.JSON(http.StatusOK, paged(trades, total, page, pageSize))
}

// CreateTrade POST /api/v1/trades
func (tc *TradeController) CreateTrade(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), "INVALID_PARAMS")
		return
	}
	trade := dbmodels.Trade{UserID: middleware.GetCurrentUser(c)}
	if !req.apply(&trade, tc.prefix) {
		respondError(c, http.StatusBadRequest, "invalid entryTime/exitTime", core.CodeInvalidDate)
		return
	}

	if err := tc.store.CreateTrade(c.Request.Context(), &trade); err != nil {
		logrus.WithError(err).WithField("ticker", trade.Ticker).Error("create trade")
		respondError(c, http.StatusInternalServerError, "failed to create trade", "DB_ERROR")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": trade})
}

// GetTrade GET /api/v1/trades/:id
func (tc *TradeController) GetTrade(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "invalid id", "INVALID_PARAMS")
		return
	}
	trade, err := tc.store.GetTrade(c.Request.Context(), middleware.GetCurrentUser(c), id)
	if err != nil {
		tc.storeError(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trade})
}

// UpdateTrade PUT /api/v1/trades/:id
func (tc *TradeController) UpdateTrade(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "invalid id", "INVALID_PARAMS")
		return
	}
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), "INVALID_PARAMS")
		return
	}

	user := middleware.GetCurrentUser(c)
	trade, err := tc.store.GetTrade(c.Request.Context(), user, id)
	if err != nil {
		tc.storeError(c, err, id)
		return
	}
	if !req.apply(trade, tc.prefix) {
		respondError(c, http.StatusBadRequest, "invalid entryTime/exitTime", core.CodeInvalidDate)
		return
	}
	if err := tc.store.UpdateTrade(c.Request.Context(), trade); err != nil {
		tc.storeError(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trade})
}

// DeleteTrade DELETE /api/v1/trades/:id
func (tc *TradeController) DeleteTrade(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "invalid id", "INVALID_PARAMS")
		return
	}
	if err := tc.store.DeleteTrade(c.Request.Context(), middleware.GetCurrentUser(c), id); err != nil {
		tc.storeError(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted", "id": id})
}

// GetTradeMetrics GET /api/v1/metrics/trades
func (tc *TradeController) GetTradeMetrics(c *gin.Context) {
	f, ok := tc.filter(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "invalid from/to", core.CodeInvalidDate)
		return
	}
	stored, _, err := tc.store.ListTrades(c.Request.Context(), middleware.GetCurrentUser(c), f)
	if err != nil {
		logrus.WithError(err).Error("list trades for metrics")
		respondError(c, http.StatusInternalServerError, "failed to fetch trades", "DB_ERROR")
		return
	}

	trades := make([]models.Trade, 0, len(stored))
	for _, t := range stored {
		trades = append(trades, ToPayload(t))
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"overall":  core.ComputeTradeMetrics(trades),
			"bySymbol": core.MetricsBySymbol(trades, tc.prefix),
		},
	})
}

func (tc *TradeController) storeError(c *gin.Context, err error, id uint) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(c, http.StatusNotFound, "trade not found", "NOT_FOUND")
		return
	}
	logrus.WithError(err).WithField("id", strconv.FormatUint(uint64(id), 10)).Error("trade store")
	respondError(c, http.StatusInternalServerError, "trade store error", "DB_ERROR")
}

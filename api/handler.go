// Package api exposes a small read-only HTTP surface over the collected
// data: recent collection logs, per-entity summaries and price queries.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/viktsys/stockcollect/collect"
	"github.com/viktsys/stockcollect/models"
)

type Handler struct {
	conn collect.ConnProvider
	log  *logrus.Logger
}

func NewHandler(conn collect.ConnProvider, log *logrus.Logger) *Handler {
	return &Handler{conn: conn, log: log}
}

type statusParams struct {
	Limit int `form:"limit"`
}

// GetStatus returns the most recent collection log entries.
func (h *Handler) GetStatus(c *gin.Context) {
	var params statusParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db, err := h.conn.Acquire(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	logs, err := collect.RecentLogs(c.Request.Context(), db, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// GetSummary returns row counts and watermarks per entity type.
func (h *Handler) GetSummary(c *gin.Context) {
	db, err := h.conn.Acquire(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	summaries, err := collect.Summarize(c.Request.Context(), db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": summaries})
}

type priceParams struct {
	Symbol string `form:"symbol" binding:"required"`
	Start  string `form:"start"`
	End    string `form:"end"`
}

// GetPrices returns daily bars for one symbol, most recent last.
func (h *Handler) GetPrices(c *gin.Context) {
	var params priceParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := parseDateParam(params.Start, time.Now().AddDate(0, 0, -30))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date, use YYYY-MM-DD"})
		return
	}
	end, err := parseDateParam(params.End, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date, use YYYY-MM-DD"})
		return
	}

	db, err := h.conn.Acquire(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	var bars []models.DailyPrice
	err = db.WithContext(c.Request.Context()).
		Where("symbol = ? AND trade_date >= ? AND trade_date <= ?", params.Symbol, start, end).
		Order("trade_date").
		Find(&bars).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": params.Symbol, "bars": bars})
}

func parseDateParam(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", s)
}

// SetupRoutes builds the gin engine with all read endpoints registered.
func (h *Handler) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/api/status", h.GetStatus)
	r.GET("/api/summary", h.GetSummary)
	r.GET("/api/prices", h.GetPrices)

	return r
}

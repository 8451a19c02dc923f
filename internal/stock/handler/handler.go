package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/farehub/card-service/internal/pkg/httpres"
	"github.com/farehub/card-service/internal/pkg/logger"
	"github.com/farehub/card-service/internal/stock"
	"github.com/farehub/card-service/internal/stock/dto"
	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	uc     stock.UseCase
	logger logger.ZapLogger
}

func NewStockHandler(uc stock.UseCase, log logger.ZapLogger) *StockHandler {
	return &StockHandler{uc: uc, logger: log}
}

type stockOutRequest struct {
	Date                 time.Time `json:"date"`
	CategoryID           string    `json:"category_id" binding:"required"`
	TypeID               string    `json:"type_id" binding:"required"`
	DestinationStationID string    `json:"destination_station_id" binding:"required"`
	Serials              []string  `json:"serials" binding:"required"`
	Actor                string    `json:"actor" binding:"required"`
	Note                 string    `json:"note"`
}

func (h *StockHandler) CreateStockOut(c *gin.Context) {
	var req stockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.uc.CreateStockOut(c.Request.Context(), &dto.CreateStockOutInput{
		Date:                 req.Date,
		CategoryID:           req.CategoryID,
		TypeID:               req.TypeID,
		DestinationStationID: req.DestinationStationID,
		Serials:              req.Serials,
		Actor:                req.Actor,
		Note:                 req.Note,
	})
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

type validateReceiptRequest struct {
	Actor           string   `json:"actor" binding:"required"`
	StationID       string   `json:"station_id" binding:"required"`
	ReceivedSerials []string `json:"received_serials"`
	LostSerials     []string `json:"lost_serials"`
	Note            string   `json:"note"`
}

func (h *StockHandler) ValidateReceipt(c *gin.Context) {
	var req validateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.uc.ValidateReceipt(c.Request.Context(), &dto.ValidateReceiptInput{
		MovementID:      c.Param("movementID"),
		Actor:           req.Actor,
		ActorStationID:  req.StationID,
		ReceivedSerials: req.ReceivedSerials,
		LostSerials:     req.LostSerials,
		Note:            req.Note,
	})
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *StockHandler) GetMovement(c *gin.Context) {
	m, err := h.uc.GetMovement(c.Request.Context(), c.Param("movementID"))
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

func (h *StockHandler) ListMovements(c *gin.Context) {
	filters := &dto.MovementFilters{
		Direction: c.Query("direction"),
		Status:    c.Query("status"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	}
	if station, ok := c.GetQuery("station_id"); ok {
		filters.StationID = &station
	}

	items, total, err := h.uc.ListMovements(c.Request.Context(), filters)
	if err != nil {
		httpres.Error(c, err)
		return
	}

	httpres.List(c, http.StatusOK, items, total, filters.Page)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

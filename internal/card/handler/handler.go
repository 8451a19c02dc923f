package handler

import (
	"net/http"
	"time"

	"github.com/farehub/card-service/internal/card"
	"github.com/farehub/card-service/internal/card/dto"
	"github.com/farehub/card-service/internal/pkg/httpres"
	"github.com/farehub/card-service/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

type CardHandler struct {
	uc     card.UseCase
	logger logger.ZapLogger
}

func NewCardHandler(uc card.UseCase, log logger.ZapLogger) *CardHandler {
	return &CardHandler{uc: uc, logger: log}
}

type stockInRequest struct {
	Date       time.Time `json:"date"`
	CategoryID string    `json:"category_id" binding:"required"`
	TypeID     string    `json:"type_id" binding:"required"`
	Serials    []string  `json:"serials" binding:"required"`
	Actor      string    `json:"actor" binding:"required"`
	Note       string    `json:"note"`
}

func (h *CardHandler) StockIn(c *gin.Context) {
	var req stockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.uc.StockIn(c.Request.Context(), &dto.StockInInput{
		Date:       req.Date,
		CategoryID: req.CategoryID,
		TypeID:     req.TypeID,
		Serials:    req.Serials,
		Actor:      req.Actor,
		Note:       req.Note,
	})
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *CardHandler) GetBySerial(c *gin.Context) {
	crd, err := h.uc.GetBySerial(c.Request.Context(), c.Param("serial"))
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, crd)
}

func (h *CardHandler) ExpireDue(c *gin.Context) {
	count, err := h.uc.ExpireDue(c.Request.Context())
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired_count": count})
}

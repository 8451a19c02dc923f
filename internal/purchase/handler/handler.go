package handler

import (
	"net/http"

	"github.com/farehub/card-service/internal/pkg/httpres"
	"github.com/farehub/card-service/internal/pkg/logger"
	"github.com/farehub/card-service/internal/purchase"
	"github.com/farehub/card-service/internal/purchase/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PurchaseHandler struct {
	uc     purchase.UseCase
	logger logger.ZapLogger
}

func NewPurchaseHandler(uc purchase.UseCase, log logger.ZapLogger) *PurchaseHandler {
	return &PurchaseHandler{uc: uc, logger: log}
}

type createPurchaseRequest struct {
	CardID          string           `json:"card_id" binding:"required"`
	MemberID        string           `json:"member_id" binding:"required"`
	ReferenceNumber string           `json:"reference_number" binding:"required"`
	Price           *decimal.Decimal `json:"price"`
	Notes           string           `json:"notes"`
	Actor           string           `json:"actor" binding:"required"`
	StationID       string           `json:"station_id" binding:"required"`
}

func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	var req createPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.uc.CreatePurchase(c.Request.Context(), &dto.CreatePurchaseInput{
		CardID:          req.CardID,
		MemberID:        req.MemberID,
		ReferenceNumber: req.ReferenceNumber,
		Price:           req.Price,
		Notes:           req.Notes,
		Actor:           req.Actor,
		StationID:       req.StationID,
	})
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

type activateCardRequest struct {
	PhysicalSerial string `json:"physical_serial" binding:"required"`
	Actor          string `json:"actor" binding:"required"`
}

func (h *PurchaseHandler) ActivateCard(c *gin.Context) {
	var req activateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.uc.ActivateCard(c.Request.Context(), &dto.ActivateCardInput{
		PurchaseID:     c.Param("purchaseID"),
		PhysicalSerial: req.PhysicalSerial,
		Actor:          req.Actor,
	})
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type swapCardRequest struct {
	CorrectSerial string `json:"correct_serial" binding:"required"`
	Actor         string `json:"actor" binding:"required"`
	Reason        string `json:"reason"`
}

func (h *PurchaseHandler) SwapCard(c *gin.Context) {
	var req swapCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.uc.SwapCard(c.Request.Context(), &dto.SwapCardInput{
		PurchaseID:    c.Param("purchaseID"),
		CorrectSerial: req.CorrectSerial,
		Actor:         req.Actor,
		Reason:        req.Reason,
	})
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type cancelPurchaseRequest struct {
	Actor  string `json:"actor" binding:"required"`
	Reason string `json:"reason"`
}

func (h *PurchaseHandler) CancelPurchase(c *gin.Context) {
	var req cancelPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.uc.CancelPurchase(c.Request.Context(), &dto.CancelPurchaseInput{
		PurchaseID: c.Param("purchaseID"),
		Actor:      req.Actor,
		Reason:     req.Reason,
	})
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type correctMismatchRequest struct {
	WrongCardID   string `json:"wrong_card_id" binding:"required"`
	CorrectCardID string `json:"correct_card_id" binding:"required"`
	Actor         string `json:"actor" binding:"required"`
	Notes         string `json:"notes"`
}

func (h *PurchaseHandler) CorrectCardMismatch(c *gin.Context) {
	var req correctMismatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.uc.CorrectCardMismatch(c.Request.Context(), &dto.CorrectMismatchInput{
		PurchaseID:    c.Param("purchaseID"),
		WrongCardID:   req.WrongCardID,
		CorrectCardID: req.CorrectCardID,
		Actor:         req.Actor,
		Notes:         req.Notes,
	})
	if err != nil {
		httpres.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

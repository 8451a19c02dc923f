package handler

import (
	"net/http"
	"strconv"

	"github.com/farehub/card-service/internal/ledger"
	"github.com/farehub/card-service/internal/ledger/dto"
	"github.com/farehub/card-service/internal/pkg/httpres"
	"github.com/farehub/card-service/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	uc     ledger.UseCase
	logger logger.ZapLogger
}

func NewLedgerHandler(uc ledger.UseCase, log logger.ZapLogger) *LedgerHandler {
	return &LedgerHandler{uc: uc, logger: log}
}

func (h *LedgerHandler) ListCounters(c *gin.Context) {
	filters := &dto.CounterFilters{
		CategoryID: c.Query("category_id"),
		TypeID:     c.Query("type_id"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
	}
	// station_id= (empty) selects the head-office rows.
	if station, ok := c.GetQuery("station_id"); ok {
		filters.StationID = &station
	}

	items, total, err := h.uc.ListCounters(c.Request.Context(), filters)
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

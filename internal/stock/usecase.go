package stock

import (
	"context"

	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/stock/dto"
)

type UseCase interface {
	CreateStockOut(ctx context.Context, input *dto.CreateStockOutInput) (*dto.StockOutResult, error)
	ValidateReceipt(ctx context.Context, input *dto.ValidateReceiptInput) (*dto.ReceiptResult, error)
	GetMovement(ctx context.Context, id string) (*model.Movement, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error)
}

package card

import (
	"context"

	"github.com/farehub/card-service/internal/card/dto"
	"github.com/farehub/card-service/internal/model"
)

type UseCase interface {
	StockIn(ctx context.Context, input *dto.StockInInput) (*dto.StockInResult, error)
	GetBySerial(ctx context.Context, serial string) (*model.Card, error)
	ExpireDue(ctx context.Context) (int, error)
}

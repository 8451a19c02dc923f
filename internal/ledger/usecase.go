package ledger

import (
	"context"

	"github.com/farehub/card-service/internal/ledger/dto"
	"github.com/farehub/card-service/internal/model"
)

type UseCase interface {
	ListCounters(ctx context.Context, filters *dto.CounterFilters) ([]model.StockCounter, int, error)
}

package ledger

import (
	"context"

	"github.com/farehub/card-service/internal/ledger/dto"
	"github.com/farehub/card-service/internal/model"
)

type Repository interface {
	// GetOffice reads the head-office pool row for a category/type.
	// Returns nil, nil when the counter has never been touched.
	GetOffice(ctx context.Context, categoryID, typeID string) (*model.StockCounter, error)
	GetStation(ctx context.Context, categoryID, typeID, stationID string) (*model.StockCounter, error)
	FindAll(ctx context.Context, filters *dto.CounterFilters) ([]model.StockCounter, int, error)
}

package stock

import (
	"context"

	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/stock/dto"
)

type Repository interface {
	// GetMovement returns nil, nil when no movement exists with that id.
	GetMovement(ctx context.Context, id string) (*model.Movement, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error)

	// CreateStockOut records the pending OUT movement, ships its cards
	// (IN_OFFICE -> IN_TRANSIT) and moves the office/in-transit counters,
	// all in one transaction.
	CreateStockOut(ctx context.Context, movement *model.Movement) error

	// ApproveReceipt finalizes a pending movement exactly once: received
	// cards land IN_STATION, lost cards become LOST, the destination
	// counters move, and the receipt audit is stamped on the movement.
	ApproveReceipt(ctx context.Context, movement *model.Movement, audit *model.ReceiptAudit) error
}

package card

import (
	"context"
	"time"

	"github.com/farehub/card-service/internal/model"
)

type Repository interface {
	// GetByID returns nil, nil when no card exists with that id.
	GetByID(ctx context.Context, id string) (*model.Card, error)
	GetBySerial(ctx context.Context, serial string) (*model.Card, error)
	FindBySerials(ctx context.Context, serials []string) ([]model.Card, error)

	// FindShippable returns the cards among serials that match category/type
	// and sit in the office pool, ready for stock-out.
	FindShippable(ctx context.Context, serials []string, categoryID, typeID string) ([]model.Card, error)

	// ExistingSerials returns the subset of serials already registered.
	ExistingSerials(ctx context.Context, serials []string) ([]string, error)

	// StockIn inserts a manufactured batch as one statement, records the IN
	// movement and bumps the office counter, all in one transaction.
	StockIn(ctx context.Context, cards []model.Card, movement *model.Movement) error

	// ExpireDue moves sold cards past their expiry date to SOLD_INACTIVE and
	// shifts the active/inactive counters of their sale stations.
	ExpireDue(ctx context.Context, asOf time.Time) (int, error)
}

package catalog

import (
	"context"

	"github.com/farehub/card-service/internal/model"
)

// Repository is the read-only view of the product catalog and the
// member/operator/station directories. Lookups fail closed: a missing or
// soft-deleted row is a NotFound error, never an implicit creation.
type Repository interface {
	GetProduct(ctx context.Context, categoryID, typeID string) (*model.CardProduct, error)
	GetMember(ctx context.Context, id string) (*model.Member, error)
	GetOperator(ctx context.Context, id string) (*model.Operator, error)
	GetStation(ctx context.Context, id string) (*model.Station, error)
}

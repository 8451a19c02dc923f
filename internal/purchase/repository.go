package purchase

import (
	"context"
	"time"

	"github.com/farehub/card-service/internal/model"
)

type Repository interface {
	// GetByID returns nil, nil when no purchase exists with that id.
	GetByID(ctx context.Context, id string) (*model.Purchase, error)

	// ActivePurchaseExists reports whether a non-deleted purchase already
	// references the card.
	ActivePurchaseExists(ctx context.Context, cardID string) (bool, error)
	ReferenceExists(ctx context.Context, referenceNumber string) (bool, error)

	// CreatePurchase persists the purchase, sells its card and moves the
	// station counters, all in one transaction.
	CreatePurchase(ctx context.Context, p *model.Purchase, card *model.Card, expiry time.Time, quota int) error

	// Activate completes physical activation: card ASSIGNED -> SOLD_ACTIVE,
	// purchase PENDING -> ACTIVATED with the verified physical serial.
	Activate(ctx context.Context, p *model.Purchase, card *model.Card, physicalSerial string) error

	// Swap repoints a pending purchase to the correct card before
	// activation; the previously assigned card returns to the pool.
	Swap(ctx context.Context, p *model.Purchase, oldCard, newCard *model.Card, notes string) error

	// Cancel releases a pending purchase: card back to the pool,
	// purchase PENDING -> CANCELLED.
	Cancel(ctx context.Context, p *model.Purchase, card *model.Card, notes string) error

	// CorrectMismatch is the post-sale three-card rewrite: the recorded card
	// returns to the pool, the mis-issued card is retired permanently and
	// the correct card inherits the sale.
	CorrectMismatch(ctx context.Context, p *model.Purchase, original, wrong, correct *model.Card, notes string) error
}

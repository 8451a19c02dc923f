package purchase

import (
	"context"

	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/purchase/dto"
)

type UseCase interface {
	CreatePurchase(ctx context.Context, input *dto.CreatePurchaseInput) (*model.Purchase, error)
	ActivateCard(ctx context.Context, input *dto.ActivateCardInput) (*dto.ActivationResult, error)
	SwapCard(ctx context.Context, input *dto.SwapCardInput) (*model.Purchase, error)
	CancelPurchase(ctx context.Context, input *dto.CancelPurchaseInput) (*model.Purchase, error)
	CorrectCardMismatch(ctx context.Context, input *dto.CorrectMismatchInput) (*model.Purchase, error)
}

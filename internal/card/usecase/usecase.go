package usecase

import (
	"context"
	"time"

	"github.com/farehub/card-service/internal/card"
	"github.com/farehub/card-service/internal/card/dto"
	"github.com/farehub/card-service/internal/catalog"
	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/pkg/apperr"
	"github.com/farehub/card-service/internal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type cardUseCase struct {
	repo    card.Repository
	catalog catalog.Repository
	logger  logger.ZapLogger
}

func NewCardUseCase(repo card.Repository, cat catalog.Repository, log logger.ZapLogger) card.UseCase {
	return &cardUseCase{
		repo:    repo,
		catalog: cat,
		logger:  log,
	}
}

func (uc *cardUseCase) StockIn(ctx context.Context, input *dto.StockInInput) (*dto.StockInResult, error) {
	serials := model.NormalizeSerials(input.Serials)
	if len(serials) == 0 {
		return nil, apperr.Validation("stock-in requires at least one serial")
	}

	// Fail closed on the catalog: the (category, type) product must already
	// be provisioned before stock can be registered against it.
	if _, err := uc.catalog.GetProduct(ctx, input.CategoryID, input.TypeID); err != nil {
		return nil, err
	}

	operator, err := uc.catalog.GetOperator(ctx, input.Actor)
	if err != nil {
		return nil, err
	}

	existing, err := uc.repo.ExistingSerials(ctx, serials)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperr.Validation("%d serials are already registered", len(existing)).WithSerials(existing...)
	}

	now := time.Now()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	cards := make([]model.Card, 0, len(serials))
	for _, serial := range serials {
		cards = append(cards, model.Card{
			BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			SerialNumber: serial,
			CategoryID:   input.CategoryID,
			TypeID:       input.TypeID,
			Status:       model.CardInOffice,
		})
	}

	movement := &model.Movement{
		BaseModel:      model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Direction:      model.MovementIn,
		Status:         model.MovementApproved,
		CategoryID:     input.CategoryID,
		TypeID:         input.TypeID,
		Quantity:       len(serials),
		ShippedSerials: serials,
		Note:           input.Note,
		MovementDate:   date,
		CreatedBy:      operator.ID,
		CreatedByName:  operator.FullName,
	}

	if err := uc.repo.StockIn(ctx, cards, movement); err != nil {
		return nil, err
	}

	uc.logger.Info("stock-in batch registered",
		zap.String("movement_id", movement.ID),
		zap.String("category_id", input.CategoryID),
		zap.String("type_id", input.TypeID),
		zap.Int("count", len(cards)),
	)

	return &dto.StockInResult{
		MovementID:   movement.ID,
		CreatedCount: len(cards),
	}, nil
}

func (uc *cardUseCase) GetBySerial(ctx context.Context, serial string) (*model.Card, error) {
	c, err := uc.repo.GetBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("card %s not found", serial)
	}
	return c, nil
}

func (uc *cardUseCase) ExpireDue(ctx context.Context) (int, error) {
	n, err := uc.repo.ExpireDue(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		uc.logger.Info("expired sold cards", zap.Int("count", n))
	}
	return n, nil
}

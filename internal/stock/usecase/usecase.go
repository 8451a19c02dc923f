package usecase

import (
	"context"
	"time"

	"github.com/farehub/card-service/internal/card"
	"github.com/farehub/card-service/internal/catalog"
	"github.com/farehub/card-service/internal/ledger"
	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/pkg/apperr"
	"github.com/farehub/card-service/internal/pkg/logger"
	"github.com/farehub/card-service/internal/stock"
	"github.com/farehub/card-service/internal/stock/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type stockUseCase struct {
	repo    stock.Repository
	cards   card.Repository
	ledger  ledger.Repository
	catalog catalog.Repository
	logger  logger.ZapLogger
}

func NewStockUseCase(repo stock.Repository, cards card.Repository, ledgerRepo ledger.Repository, cat catalog.Repository, log logger.ZapLogger) stock.UseCase {
	return &stockUseCase{
		repo:    repo,
		cards:   cards,
		ledger:  ledgerRepo,
		catalog: cat,
		logger:  log,
	}
}

func (uc *stockUseCase) CreateStockOut(ctx context.Context, input *dto.CreateStockOutInput) (*dto.StockOutResult, error) {
	serials := model.NormalizeSerials(input.Serials)
	if len(serials) == 0 {
		return nil, apperr.Validation("stock-out requires at least one serial")
	}

	if _, err := uc.catalog.GetStation(ctx, input.DestinationStationID); err != nil {
		return nil, err
	}
	operator, err := uc.catalog.GetOperator(ctx, input.Actor)
	if err != nil {
		return nil, err
	}

	shippable, err := uc.cards.FindShippable(ctx, serials, input.CategoryID, input.TypeID)
	if err != nil {
		return nil, err
	}
	if len(shippable) != len(serials) {
		matched := make([]string, 0, len(shippable))
		for _, c := range shippable {
			matched = append(matched, c.SerialNumber)
		}
		missing := model.SerialDiff(serials, matched)
		return nil, apperr.Validation("%d serials are not in office stock for this category/type", len(missing)).WithSerials(missing...)
	}

	office, err := uc.ledger.GetOffice(ctx, input.CategoryID, input.TypeID)
	if err != nil {
		return nil, err
	}
	if office == nil || office.OfficeStock < len(serials) {
		have := 0
		if office != nil {
			have = office.OfficeStock
		}
		return nil, apperr.Validation("insufficient office stock: have %d, need %d", have, len(serials))
	}

	now := time.Now()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	movement := &model.Movement{
		BaseModel:            model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Direction:            model.MovementOut,
		Status:               model.MovementPending,
		CategoryID:           input.CategoryID,
		TypeID:               input.TypeID,
		DestinationStationID: &input.DestinationStationID,
		Quantity:             len(serials),
		ShippedSerials:       serials,
		Note:                 input.Note,
		MovementDate:         date,
		CreatedBy:            operator.ID,
		CreatedByName:        operator.FullName,
	}

	if err := uc.repo.CreateStockOut(ctx, movement); err != nil {
		return nil, err
	}

	uc.logger.Info("stock-out created",
		zap.String("movement_id", movement.ID),
		zap.String("destination_station_id", input.DestinationStationID),
		zap.Int("sent_count", movement.Quantity),
	)

	return &dto.StockOutResult{
		MovementID: movement.ID,
		Status:     string(movement.Status),
		SentCount:  movement.Quantity,
	}, nil
}

func (uc *stockUseCase) ValidateReceipt(ctx context.Context, input *dto.ValidateReceiptInput) (*dto.ReceiptResult, error) {
	movement, err := uc.repo.GetMovement(ctx, input.MovementID)
	if err != nil {
		return nil, err
	}
	if movement == nil {
		return nil, apperr.NotFound("movement %s not found", input.MovementID)
	}

	if movement.Direction != model.MovementOut {
		return nil, apperr.Conflict("movement %s is not a stock-out", movement.ID)
	}
	if movement.Status != model.MovementPending {
		return nil, apperr.Conflict("movement %s is already %s", movement.ID, movement.Status)
	}
	if movement.DestinationStationID == nil || *movement.DestinationStationID != input.ActorStationID {
		return nil, apperr.Conflict("movement %s is not destined for station %s", movement.ID, input.ActorStationID)
	}

	operator, err := uc.catalog.GetOperator(ctx, input.Actor)
	if err != nil {
		return nil, err
	}

	received := model.NormalizeSerials(input.ReceivedSerials)
	lost := model.NormalizeSerials(input.LostSerials)

	if dup := model.SerialIntersect(received, lost); len(dup) > 0 {
		return nil, apperr.Validation("%d serials are marked both received and lost", len(dup)).WithSerials(dup...)
	}

	shipped := []string(movement.ShippedSerials)
	if extra := model.SerialDiff(received, shipped); len(extra) > 0 {
		return nil, apperr.Validation("%d received serials were never shipped on this movement", len(extra)).WithSerials(extra...)
	}
	if extra := model.SerialDiff(lost, shipped); len(extra) > 0 {
		return nil, apperr.Validation("%d lost serials were never shipped on this movement", len(extra)).WithSerials(extra...)
	}
	if len(received)+len(lost) != len(shipped) {
		unaccounted := model.SerialDiff(shipped, append(append([]string{}, received...), lost...))
		return nil, apperr.Validation("every shipped serial must be accounted for exactly once: %d received + %d lost != %d shipped",
			len(received), len(lost), len(shipped)).WithSerials(unaccounted...)
	}

	// All shipped cards must still be in transit with matching product.
	// Anything else means the movement was already validated or tampered with.
	cards, err := uc.cards.FindBySerials(ctx, shipped)
	if err != nil {
		return nil, err
	}
	if len(cards) != len(shipped) {
		return nil, apperr.Conflict("movement %s ships %d cards but only %d are registered", movement.ID, len(shipped), len(cards))
	}
	for _, c := range cards {
		if c.Status != model.CardInTransit || c.CategoryID != movement.CategoryID || c.TypeID != movement.TypeID {
			return nil, apperr.Conflict("card %s is not in transit for this movement, was it validated already?", c.SerialNumber)
		}
	}

	audit := &model.ReceiptAudit{
		Valid:           true,
		Version:         model.ReceiptAuditVersion,
		ReceivedSerials: received,
		LostSerials:     lost,
		ValidatorID:     operator.ID,
		ValidatorName:   operator.FullName,
		Note:            input.Note,
		ValidatedAt:     time.Now(),
	}

	if err := uc.repo.ApproveReceipt(ctx, movement, audit); err != nil {
		return nil, err
	}

	uc.logger.Info("receipt validated",
		zap.String("movement_id", movement.ID),
		zap.String("station_id", input.ActorStationID),
		zap.Int("received", len(received)),
		zap.Int("lost", len(lost)),
	)

	return &dto.ReceiptResult{
		MovementID:    movement.ID,
		Status:        string(model.MovementApproved),
		ReceivedCount: len(received),
		LostCount:     len(lost),
	}, nil
}

func (uc *stockUseCase) GetMovement(ctx context.Context, id string) (*model.Movement, error) {
	m, err := uc.repo.GetMovement(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.NotFound("movement %s not found", id)
	}
	return m, nil
}

func (uc *stockUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}

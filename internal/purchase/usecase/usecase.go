package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/farehub/card-service/internal/card"
	"github.com/farehub/card-service/internal/catalog"
	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/notify"
	"github.com/farehub/card-service/internal/pkg/apperr"
	"github.com/farehub/card-service/internal/pkg/cache"
	"github.com/farehub/card-service/internal/pkg/logger"
	"github.com/farehub/card-service/internal/purchase"
	"github.com/farehub/card-service/internal/purchase/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockTTL        = 5 * time.Second
	lockRetries    = 3
	lockRetryDelay = 100 * time.Millisecond
)

type purchaseUseCase struct {
	repo     purchase.Repository
	cards    card.Repository
	catalog  catalog.Repository
	locker   cache.Locker
	notifier notify.Notifier
	logger   logger.ZapLogger
}

func NewPurchaseUseCase(
	repo purchase.Repository,
	cards card.Repository,
	cat catalog.Repository,
	locker cache.Locker,
	notifier notify.Notifier,
	log logger.ZapLogger,
) purchase.UseCase {
	return &purchaseUseCase{
		repo:     repo,
		cards:    cards,
		catalog:  cat,
		locker:   locker,
		notifier: notifier,
		logger:   log,
	}
}

// lockCard serializes writers of the same card across instances. The store's
// row guards are the real fence; the lock just avoids burning transactions
// on contended cards.
func (uc *purchaseUseCase) lockCard(ctx context.Context, cardID string) (release func(), err error) {
	key := "lock:card:" + cardID
	value := uuid.New().String()

	for i := 0; i < lockRetries; i++ {
		ok, err := uc.locker.AcquireLock(ctx, key, value, lockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire card lock", zap.String("card_id", cardID), zap.Error(err))
		}
		if ok {
			return func() {
				if err := uc.locker.ReleaseLock(ctx, key, value); err != nil {
					uc.logger.Warn("failed to release card lock", zap.String("card_id", cardID), zap.Error(err))
				}
			}, nil
		}
		time.Sleep(lockRetryDelay)
	}
	return nil, apperr.Conflict("card %s is being processed by another operation, retry", cardID)
}

func (uc *purchaseUseCase) CreatePurchase(ctx context.Context, input *dto.CreatePurchaseInput) (*model.Purchase, error) {
	if strings.TrimSpace(input.ReferenceNumber) == "" {
		return nil, apperr.Validation("reference number is required")
	}

	release, err := uc.lockCard(ctx, input.CardID)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := uc.cards.GetByID(ctx, input.CardID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.DeletedAt != nil {
		return nil, apperr.NotFound("card %s not found", input.CardID)
	}
	// A card that already carries a live purchase reports that before the
	// generic status complaint; a sold card trips both conditions.
	sold, err := uc.repo.ActivePurchaseExists(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if sold {
		return nil, apperr.Validation("card %s is already purchased", c.SerialNumber)
	}
	if c.Status != model.CardInStation {
		return nil, apperr.Validation("card %s cannot be sold: status is %s, want %s", c.SerialNumber, c.Status, model.CardInStation)
	}

	product, err := uc.catalog.GetProduct(ctx, c.CategoryID, c.TypeID)
	if err != nil {
		return nil, err
	}
	member, err := uc.catalog.GetMember(ctx, input.MemberID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return nil, apperr.Validation("member %s is not active", member.ID)
	}
	operator, err := uc.catalog.GetOperator(ctx, input.Actor)
	if err != nil {
		return nil, err
	}
	if !operator.IsActive {
		return nil, apperr.Validation("operator %s is not active", operator.ID)
	}
	station, err := uc.catalog.GetStation(ctx, input.StationID)
	if err != nil {
		return nil, err
	}
	if !station.IsActive {
		return nil, apperr.Validation("station %s is not active", station.ID)
	}

	taken, err := uc.repo.ReferenceExists(ctx, input.ReferenceNumber)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Validation("reference number %s is already used", input.ReferenceNumber)
	}

	price := product.Price
	if input.Price != nil {
		price = *input.Price
	}

	now := time.Now()
	expiry := now.AddDate(0, 0, product.ValidityDays)

	p := &model.Purchase{
		BaseModel:        model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		CardID:           c.ID,
		MemberID:         member.ID,
		OperatorID:       operator.ID,
		StationID:        station.ID,
		ReferenceNumber:  input.ReferenceNumber,
		Price:            price,
		Notes:            input.Notes,
		ActivationStatus: model.ActivationPending,
		CreatedByName:    operator.FullName,
	}

	if err := uc.repo.CreatePurchase(ctx, p, c, expiry, product.TotalQuota); err != nil {
		return nil, err
	}

	uc.logger.Info("purchase created",
		zap.String("purchase_id", p.ID),
		zap.String("card_serial", c.SerialNumber),
		zap.String("member_id", member.ID),
		zap.String("reference_number", p.ReferenceNumber),
	)

	// Fire-and-forget: the purchase is committed, a notification failure
	// must never surface to the caller.
	go uc.sendConfirmation(p, c.SerialNumber, expiry)

	return p, nil
}

func (uc *purchaseUseCase) sendConfirmation(p *model.Purchase, cardSerial string, expiry time.Time) {
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("purchase notification panicked", zap.Any("recover", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := uc.notifier.PurchaseConfirmed(ctx, &notify.PurchaseConfirmation{
		PurchaseID:      p.ID,
		MemberID:        p.MemberID,
		CardSerial:      cardSerial,
		ReferenceNumber: p.ReferenceNumber,
		Price:           p.Price,
		ExpiryDate:      expiry,
	})
	if err != nil {
		uc.logger.Warn("purchase notification failed",
			zap.String("purchase_id", p.ID),
			zap.Error(err),
		)
	}
}

func (uc *purchaseUseCase) ActivateCard(ctx context.Context, input *dto.ActivateCardInput) (*dto.ActivationResult, error) {
	p, err := uc.pendingPurchase(ctx, input.PurchaseID)
	if err != nil {
		return nil, err
	}

	c, err := uc.cards.GetByID(ctx, p.CardID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("card %s not found", p.CardID)
	}

	expected := c.EffectiveSerial()
	if input.PhysicalSerial != expected {
		return nil, apperr.Validation("physical serial %q does not match the reserved card serial %q", input.PhysicalSerial, expected)
	}
	if c.Status != model.CardAssigned {
		return nil, apperr.Validation("card %s cannot be activated: status is %s, want %s", c.SerialNumber, c.Status, model.CardAssigned)
	}

	if err := uc.repo.Activate(ctx, p, c, input.PhysicalSerial); err != nil {
		return nil, err
	}

	now := time.Now()
	c.Status = model.CardSoldActive
	c.AssignedSerial = nil
	c.UpdatedAt = now
	p.ActivationStatus = model.ActivationActivated
	p.PhysicalSerial = &input.PhysicalSerial
	p.UpdatedAt = now

	uc.logger.Info("card activated",
		zap.String("purchase_id", p.ID),
		zap.String("card_serial", c.SerialNumber),
	)

	return &dto.ActivationResult{Card: c, Purchase: p}, nil
}

func (uc *purchaseUseCase) SwapCard(ctx context.Context, input *dto.SwapCardInput) (*model.Purchase, error) {
	p, err := uc.pendingPurchase(ctx, input.PurchaseID)
	if err != nil {
		return nil, err
	}

	oldCard, err := uc.cards.GetByID(ctx, p.CardID)
	if err != nil {
		return nil, err
	}
	if oldCard == nil {
		return nil, apperr.NotFound("card %s not found", p.CardID)
	}
	if oldCard.Status != model.CardAssigned {
		return nil, apperr.Validation("card %s cannot be swapped out: status is %s, want %s", oldCard.SerialNumber, oldCard.Status, model.CardAssigned)
	}

	newCard, err := uc.cards.GetBySerial(ctx, input.CorrectSerial)
	if err != nil {
		return nil, err
	}
	if newCard == nil {
		return nil, apperr.NotFound("card %s not found", input.CorrectSerial)
	}
	if newCard.Status != model.CardInStation {
		return nil, apperr.Validation("card %s cannot be assigned: status is %s, want %s", newCard.SerialNumber, newCard.Status, model.CardInStation)
	}
	if newCard.CategoryID != oldCard.CategoryID || newCard.TypeID != oldCard.TypeID {
		return nil, apperr.Validation("card %s is product %s/%s, the purchase requires %s/%s",
			newCard.SerialNumber, newCard.CategoryID, newCard.TypeID, oldCard.CategoryID, oldCard.TypeID)
	}

	notes := p.Notes
	if input.Reason != "" {
		notes = appendNote(notes, fmt.Sprintf("swapped %s -> %s: %s", oldCard.SerialNumber, newCard.SerialNumber, input.Reason))
	}

	if err := uc.repo.Swap(ctx, p, oldCard, newCard, notes); err != nil {
		return nil, err
	}

	p.CardID = newCard.ID
	p.Notes = notes
	p.UpdatedAt = time.Now()

	uc.logger.Info("purchase card swapped",
		zap.String("purchase_id", p.ID),
		zap.String("old_serial", oldCard.SerialNumber),
		zap.String("new_serial", newCard.SerialNumber),
	)

	return p, nil
}

func (uc *purchaseUseCase) CancelPurchase(ctx context.Context, input *dto.CancelPurchaseInput) (*model.Purchase, error) {
	p, err := uc.pendingPurchase(ctx, input.PurchaseID)
	if err != nil {
		return nil, err
	}

	c, err := uc.cards.GetByID(ctx, p.CardID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("card %s not found", p.CardID)
	}
	if c.Status != model.CardAssigned {
		return nil, apperr.Validation("card %s cannot be released: status is %s, want %s", c.SerialNumber, c.Status, model.CardAssigned)
	}

	notes := p.Notes
	if input.Reason != "" {
		notes = appendNote(notes, "cancelled: "+input.Reason)
	}

	if err := uc.repo.Cancel(ctx, p, c, notes); err != nil {
		return nil, err
	}

	p.ActivationStatus = model.ActivationCancelled
	p.Notes = notes
	p.UpdatedAt = time.Now()

	uc.logger.Info("purchase cancelled", zap.String("purchase_id", p.ID), zap.String("card_serial", c.SerialNumber))

	return p, nil
}

func (uc *purchaseUseCase) CorrectCardMismatch(ctx context.Context, input *dto.CorrectMismatchInput) (*model.Purchase, error) {
	p, err := uc.repo.GetByID(ctx, input.PurchaseID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("purchase %s not found", input.PurchaseID)
	}
	if p.ActivationStatus == model.ActivationCancelled {
		return nil, apperr.Validation("purchase %s is cancelled", p.ID)
	}

	if input.WrongCardID == input.CorrectCardID {
		return nil, apperr.Validation("wrong and correct card must differ")
	}
	if input.WrongCardID == p.CardID || input.CorrectCardID == p.CardID {
		return nil, apperr.Validation("the purchase's recorded card cannot be the wrong or correct card")
	}

	original, err := uc.cards.GetByID(ctx, p.CardID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, apperr.NotFound("card %s not found", p.CardID)
	}
	if original.Status != model.CardSoldActive {
		return nil, apperr.Validation("recorded card %s is not sold: status is %s", original.SerialNumber, original.Status)
	}

	wrong, err := uc.mismatchCandidate(ctx, input.WrongCardID)
	if err != nil {
		return nil, err
	}
	correct, err := uc.mismatchCandidate(ctx, input.CorrectCardID)
	if err != nil {
		return nil, err
	}
	if correct.CategoryID != original.CategoryID || correct.TypeID != original.TypeID {
		return nil, apperr.Validation("card %s is product %s/%s, the purchase requires %s/%s",
			correct.SerialNumber, correct.CategoryID, correct.TypeID, original.CategoryID, original.TypeID)
	}

	notes := appendNote(p.Notes, fmt.Sprintf("card mismatch corrected: %s retired, %s issued", wrong.SerialNumber, correct.SerialNumber))
	if input.Notes != "" {
		notes = appendNote(notes, input.Notes)
	}

	if err := uc.repo.CorrectMismatch(ctx, p, original, wrong, correct, notes); err != nil {
		return nil, err
	}

	p.CardID = correct.ID
	p.Notes = notes
	p.UpdatedAt = time.Now()

	uc.logger.Info("card mismatch corrected",
		zap.String("purchase_id", p.ID),
		zap.String("original_serial", original.SerialNumber),
		zap.String("retired_serial", wrong.SerialNumber),
		zap.String("issued_serial", correct.SerialNumber),
	)

	return p, nil
}

// pendingPurchase loads a purchase that has not been activated or cancelled yet.
func (uc *purchaseUseCase) pendingPurchase(ctx context.Context, id string) (*model.Purchase, error) {
	p, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("purchase %s not found", id)
	}
	if p.ActivationStatus != model.ActivationPending {
		return nil, apperr.Validation("purchase %s is already %s", p.ID, p.ActivationStatus)
	}
	return p, nil
}

// mismatchCandidate loads a card that must currently sit in the station pool.
func (uc *purchaseUseCase) mismatchCandidate(ctx context.Context, id string) (*model.Card, error) {
	c, err := uc.cards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.DeletedAt != nil {
		return nil, apperr.NotFound("card %s not found", id)
	}
	if c.Status != model.CardInStation {
		return nil, apperr.Validation("card %s is not in a station pool: status is %s", c.SerialNumber, c.Status)
	}
	return c, nil
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "\n" + note
}

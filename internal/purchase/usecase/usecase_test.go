package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/notify"
	"github.com/farehub/card-service/internal/pkg/apperr"
	"github.com/farehub/card-service/internal/pkg/logger"
	"github.com/farehub/card-service/internal/purchase/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurchaseRepo struct {
	purchases  map[string]*model.Purchase
	references map[string]bool
	soldCards  map[string]bool // card ids with a live purchase
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{
		purchases:  map[string]*model.Purchase{},
		references: map[string]bool{},
		soldCards:  map[string]bool{},
	}
}

func (f *fakePurchaseRepo) GetByID(_ context.Context, id string) (*model.Purchase, error) {
	p, ok := f.purchases[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePurchaseRepo) ActivePurchaseExists(_ context.Context, cardID string) (bool, error) {
	return f.soldCards[cardID], nil
}

func (f *fakePurchaseRepo) ReferenceExists(_ context.Context, ref string) (bool, error) {
	return f.references[ref], nil
}

func (f *fakePurchaseRepo) CreatePurchase(_ context.Context, p *model.Purchase, card *model.Card, expiry time.Time, quota int) error {
	cp := *p
	f.purchases[p.ID] = &cp
	f.references[p.ReferenceNumber] = true
	f.soldCards[card.ID] = true
	return nil
}

func (f *fakePurchaseRepo) Activate(_ context.Context, p *model.Purchase, _ *model.Card, physicalSerial string) error {
	stored, ok := f.purchases[p.ID]
	if !ok || stored.ActivationStatus != model.ActivationPending {
		return apperr.Conflict("purchase %s is no longer pending", p.ID)
	}
	stored.ActivationStatus = model.ActivationActivated
	stored.PhysicalSerial = &physicalSerial
	return nil
}

func (f *fakePurchaseRepo) Swap(_ context.Context, p *model.Purchase, _, newCard *model.Card, notes string) error {
	stored, ok := f.purchases[p.ID]
	if !ok || stored.ActivationStatus != model.ActivationPending {
		return apperr.Conflict("purchase %s is no longer pending", p.ID)
	}
	stored.CardID = newCard.ID
	stored.Notes = notes
	return nil
}

func (f *fakePurchaseRepo) Cancel(_ context.Context, p *model.Purchase, card *model.Card, notes string) error {
	stored, ok := f.purchases[p.ID]
	if !ok || stored.ActivationStatus != model.ActivationPending {
		return apperr.Conflict("purchase %s is no longer pending", p.ID)
	}
	stored.ActivationStatus = model.ActivationCancelled
	stored.Notes = notes
	delete(f.soldCards, card.ID)
	return nil
}

func (f *fakePurchaseRepo) CorrectMismatch(_ context.Context, p *model.Purchase, original, wrong, correct *model.Card, notes string) error {
	stored, ok := f.purchases[p.ID]
	if !ok {
		return apperr.Conflict("purchase %s vanished", p.ID)
	}
	stored.CardID = correct.ID
	stored.Notes = notes
	delete(f.soldCards, original.ID)
	f.soldCards[correct.ID] = true
	return nil
}

type fakeCardRepo struct {
	byID map[string]*model.Card
}

func newFakeCardRepo(cards ...*model.Card) *fakeCardRepo {
	f := &fakeCardRepo{byID: map[string]*model.Card{}}
	for _, c := range cards {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCardRepo) GetByID(_ context.Context, id string) (*model.Card, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCardRepo) GetBySerial(_ context.Context, serial string) (*model.Card, error) {
	for _, c := range f.byID {
		if c.SerialNumber == serial {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCardRepo) FindBySerials(_ context.Context, serials []string) ([]model.Card, error) {
	var out []model.Card
	for _, s := range serials {
		if c, err := f.GetBySerial(context.Background(), s); err == nil && c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCardRepo) FindShippable(_ context.Context, _ []string, _, _ string) ([]model.Card, error) {
	return nil, nil
}

func (f *fakeCardRepo) ExistingSerials(_ context.Context, _ []string) ([]string, error) {
	return nil, nil
}

func (f *fakeCardRepo) StockIn(_ context.Context, _ []model.Card, _ *model.Movement) error {
	return nil
}

func (f *fakeCardRepo) ExpireDue(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

type fakeCatalog struct {
	products  map[string]*model.CardProduct
	members   map[string]*model.Member
	operators map[string]*model.Operator
	stations  map[string]*model.Station
}

func (f *fakeCatalog) GetProduct(_ context.Context, categoryID, typeID string) (*model.CardProduct, error) {
	if p, ok := f.products[categoryID+"|"+typeID]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("no product for category %s type %s", categoryID, typeID)
}

func (f *fakeCatalog) GetMember(_ context.Context, id string) (*model.Member, error) {
	if m, ok := f.members[id]; ok {
		return m, nil
	}
	return nil, apperr.NotFound("member %s not found", id)
}

func (f *fakeCatalog) GetOperator(_ context.Context, id string) (*model.Operator, error) {
	if o, ok := f.operators[id]; ok {
		return o, nil
	}
	return nil, apperr.NotFound("operator %s not found", id)
}

func (f *fakeCatalog) GetStation(_ context.Context, id string) (*model.Station, error) {
	if s, ok := f.stations[id]; ok {
		return s, nil
	}
	return nil, apperr.NotFound("station %s not found", id)
}

// fakeLocker hands out every lock immediately and records releases.
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) AcquireLock(_ context.Context, key, _ string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) ReleaseLock(_ context.Context, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	f.released++
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []*notify.PurchaseConfirmation
	done     chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{done: make(chan struct{}, 8)}
}

func (f *fakeNotifier) PurchaseConfirmed(_ context.Context, msg *notify.PurchaseConfirmation) error {
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeNotifier) wait(t *testing.T) *notify.PurchaseConfirmation {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no notification published")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[len(f.messages)-1]
}

const (
	catA     = "cat-regular"
	typeA    = "type-adult"
	stationA = "station-north"
	opA      = "op-1"
	memberA  = "member-1"
)

type fixture struct {
	repo     *fakePurchaseRepo
	cards    *fakeCardRepo
	catalog  *fakeCatalog
	locker   *fakeLocker
	notifier *fakeNotifier
}

func newFixture(cards ...*model.Card) *fixture {
	return &fixture{
		repo:  newFakePurchaseRepo(),
		cards: newFakeCardRepo(cards...),
		catalog: &fakeCatalog{
			products: map[string]*model.CardProduct{
				catA + "|" + typeA: {
					CategoryID:   catA,
					TypeID:       typeA,
					Price:        decimal.NewFromInt(250),
					TotalQuota:   60,
					ValidityDays: 365,
					IsActive:     true,
				},
			},
			members:   map[string]*model.Member{memberA: {ID: memberA, FullName: "Rani", IsActive: true}},
			operators: map[string]*model.Operator{opA: {ID: opA, FullName: "Alya", IsActive: true}},
			stations:  map[string]*model.Station{stationA: {ID: stationA, Name: "North", IsActive: true}},
		},
		locker:   newFakeLocker(),
		notifier: newFakeNotifier(),
	}
}

func (f *fixture) usecase() *purchaseUseCase {
	return NewPurchaseUseCase(f.repo, f.cards, f.catalog, f.locker, f.notifier, logger.NewNop()).(*purchaseUseCase)
}

func stationCard(serial string) *model.Card {
	return &model.Card{
		BaseModel:    model.BaseModel{ID: uuid.New().String()},
		SerialNumber: serial,
		CategoryID:   catA,
		TypeID:       typeA,
		Status:       model.CardInStation,
	}
}

func assignedCard(serial string) *model.Card {
	c := stationCard(serial)
	c.Status = model.CardAssigned
	return c
}

func createInput(cardID, ref string) *dto.CreatePurchaseInput {
	return &dto.CreatePurchaseInput{
		CardID:          cardID,
		MemberID:        memberA,
		ReferenceNumber: ref,
		Actor:           opA,
		StationID:       stationA,
	}
}

func TestCreatePurchase(t *testing.T) {
	c := stationCard("SN-1")
	fx := newFixture(c)
	uc := fx.usecase()

	p, err := uc.CreatePurchase(context.Background(), createInput(c.ID, "REF-001"))
	require.NoError(t, err)
	assert.Equal(t, c.ID, p.CardID)
	assert.Equal(t, model.ActivationPending, p.ActivationStatus)
	assert.True(t, decimal.NewFromInt(250).Equal(p.Price))
	assert.Equal(t, "Alya", p.CreatedByName)
	assert.Equal(t, 1, fx.locker.released)

	msg := fx.notifier.wait(t)
	assert.Equal(t, p.ID, msg.PurchaseID)
	assert.Equal(t, "SN-1", msg.CardSerial)
	assert.Equal(t, memberA, msg.MemberID)
}

func TestCreatePurchaseOverridePrice(t *testing.T) {
	c := stationCard("SN-1")
	fx := newFixture(c)
	uc := fx.usecase()

	price := decimal.NewFromInt(199)
	input := createInput(c.ID, "REF-001")
	input.Price = &price

	p, err := uc.CreatePurchase(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, price.Equal(p.Price))
	fx.notifier.wait(t)
}

func TestCreatePurchaseCardNotSellable(t *testing.T) {
	c := assignedCard("SN-1")
	fx := newFixture(c)
	uc := fx.usecase()

	_, err := uc.CreatePurchase(context.Background(), createInput(c.ID, "REF-001"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 1, fx.locker.released)
}

func TestCreatePurchaseCardAlreadySold(t *testing.T) {
	c := stationCard("SN-1")
	fx := newFixture(c)
	fx.repo.soldCards[c.ID] = true
	uc := fx.usecase()

	_, err := uc.CreatePurchase(context.Background(), createInput(c.ID, "REF-001"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "already purchased")
}

func TestCreatePurchaseSoldCardReportsAlreadyPurchased(t *testing.T) {
	c := stationCard("SN-1")
	c.Status = model.CardSoldActive
	fx := newFixture(c)
	fx.repo.soldCards[c.ID] = true
	uc := fx.usecase()

	// A sold card fails both the live-purchase and the status check; the
	// operator sees the duplicate-purchase answer, not the generic one.
	_, err := uc.CreatePurchase(context.Background(), createInput(c.ID, "REF-001"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "already purchased")
}

func TestCreatePurchaseDuplicateReference(t *testing.T) {
	c1, c2 := stationCard("SN-1"), stationCard("SN-2")
	fx := newFixture(c1, c2)
	uc := fx.usecase()

	_, err := uc.CreatePurchase(context.Background(), createInput(c1.ID, "REF-001"))
	require.NoError(t, err)
	fx.notifier.wait(t)

	_, err = uc.CreatePurchase(context.Background(), createInput(c2.ID, "REF-001"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "reference number")
}

func TestCreatePurchaseInactiveMember(t *testing.T) {
	c := stationCard("SN-1")
	fx := newFixture(c)
	fx.catalog.members[memberA].IsActive = false
	uc := fx.usecase()

	_, err := uc.CreatePurchase(context.Background(), createInput(c.ID, "REF-001"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreatePurchaseUnknownCard(t *testing.T) {
	fx := newFixture()
	uc := fx.usecase()

	_, err := uc.CreatePurchase(context.Background(), createInput("ghost", "REF-001"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreatePurchaseLockContention(t *testing.T) {
	c := stationCard("SN-1")
	fx := newFixture(c)
	fx.locker.held["lock:card:"+c.ID] = true
	uc := fx.usecase()

	_, err := uc.CreatePurchase(context.Background(), createInput(c.ID, "REF-001"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func pendingPurchaseFor(fx *fixture, cardID string) *model.Purchase {
	p := &model.Purchase{
		BaseModel:        model.BaseModel{ID: uuid.New().String()},
		CardID:           cardID,
		MemberID:         memberA,
		OperatorID:       opA,
		StationID:        stationA,
		ReferenceNumber:  "REF-" + uuid.NewString()[:8],
		Price:            decimal.NewFromInt(250),
		ActivationStatus: model.ActivationPending,
	}
	fx.repo.purchases[p.ID] = p
	fx.repo.soldCards[cardID] = true
	return p
}

func TestActivateCard(t *testing.T) {
	c := assignedCard("SN-1")
	fx := newFixture(c)
	p := pendingPurchaseFor(fx, c.ID)
	uc := fx.usecase()

	result, err := uc.ActivateCard(context.Background(), &dto.ActivateCardInput{
		PurchaseID:     p.ID,
		PhysicalSerial: "SN-1",
		Actor:          opA,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CardSoldActive, result.Card.Status)
	assert.Equal(t, model.ActivationActivated, result.Purchase.ActivationStatus)
	require.NotNil(t, result.Purchase.PhysicalSerial)
	assert.Equal(t, "SN-1", *result.Purchase.PhysicalSerial)
}

func TestActivateCardUsesAssignedSerial(t *testing.T) {
	c := assignedCard("SN-1")
	assigned := "SN-ENGRAVED"
	c.AssignedSerial = &assigned
	fx := newFixture(c)
	p := pendingPurchaseFor(fx, c.ID)
	uc := fx.usecase()

	_, err := uc.ActivateCard(context.Background(), &dto.ActivateCardInput{
		PurchaseID:     p.ID,
		PhysicalSerial: "SN-1",
		Actor:          opA,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "SN-ENGRAVED")

	result, err := uc.ActivateCard(context.Background(), &dto.ActivateCardInput{
		PurchaseID:     p.ID,
		PhysicalSerial: "SN-ENGRAVED",
		Actor:          opA,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CardSoldActive, result.Card.Status)
}

func TestActivateCardSerialMismatch(t *testing.T) {
	c := assignedCard("SN-1")
	fx := newFixture(c)
	p := pendingPurchaseFor(fx, c.ID)
	uc := fx.usecase()

	_, err := uc.ActivateCard(context.Background(), &dto.ActivateCardInput{
		PurchaseID:     p.ID,
		PhysicalSerial: "SN-WRONG",
		Actor:          opA,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "SN-WRONG")
	assert.Contains(t, err.Error(), "SN-1")

	// the purchase is untouched
	stored, _ := fx.repo.GetByID(context.Background(), p.ID)
	assert.Equal(t, model.ActivationPending, stored.ActivationStatus)
}

func TestActivateCardAlreadyActivated(t *testing.T) {
	c := assignedCard("SN-1")
	fx := newFixture(c)
	p := pendingPurchaseFor(fx, c.ID)
	p.ActivationStatus = model.ActivationActivated
	uc := fx.usecase()

	_, err := uc.ActivateCard(context.Background(), &dto.ActivateCardInput{
		PurchaseID:     p.ID,
		PhysicalSerial: "SN-1",
		Actor:          opA,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSwapCard(t *testing.T) {
	oldCard := assignedCard("SN-OLD")
	newCard := stationCard("SN-NEW")
	fx := newFixture(oldCard, newCard)
	p := pendingPurchaseFor(fx, oldCard.ID)
	uc := fx.usecase()

	got, err := uc.SwapCard(context.Background(), &dto.SwapCardInput{
		PurchaseID:    p.ID,
		CorrectSerial: "SN-NEW",
		Actor:         opA,
		Reason:        "member presented a different card",
	})
	require.NoError(t, err)
	assert.Equal(t, newCard.ID, got.CardID)
	assert.Contains(t, got.Notes, "SN-OLD")
	assert.Contains(t, got.Notes, "SN-NEW")
}

func TestSwapCardCategoryMismatch(t *testing.T) {
	oldCard := assignedCard("SN-OLD")
	newCard := stationCard("SN-NEW")
	newCard.CategoryID = "cat-student"
	fx := newFixture(oldCard, newCard)
	p := pendingPurchaseFor(fx, oldCard.ID)
	uc := fx.usecase()

	_, err := uc.SwapCard(context.Background(), &dto.SwapCardInput{
		PurchaseID:    p.ID,
		CorrectSerial: "SN-NEW",
		Actor:         opA,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSwapCardTypeMismatch(t *testing.T) {
	oldCard := assignedCard("SN-OLD")
	newCard := stationCard("SN-NEW")
	newCard.TypeID = "type-student"
	fx := newFixture(oldCard, newCard)
	p := pendingPurchaseFor(fx, oldCard.ID)
	uc := fx.usecase()

	_, err := uc.SwapCard(context.Background(), &dto.SwapCardInput{
		PurchaseID:    p.ID,
		CorrectSerial: "SN-NEW",
		Actor:         opA,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSwapCardTargetNotInStation(t *testing.T) {
	oldCard := assignedCard("SN-OLD")
	newCard := assignedCard("SN-NEW")
	fx := newFixture(oldCard, newCard)
	p := pendingPurchaseFor(fx, oldCard.ID)
	uc := fx.usecase()

	_, err := uc.SwapCard(context.Background(), &dto.SwapCardInput{
		PurchaseID:    p.ID,
		CorrectSerial: "SN-NEW",
		Actor:         opA,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCancelPurchase(t *testing.T) {
	c := assignedCard("SN-1")
	fx := newFixture(c)
	p := pendingPurchaseFor(fx, c.ID)
	uc := fx.usecase()

	got, err := uc.CancelPurchase(context.Background(), &dto.CancelPurchaseInput{
		PurchaseID: p.ID,
		Actor:      opA,
		Reason:     "member changed their mind",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ActivationCancelled, got.ActivationStatus)
	assert.Contains(t, got.Notes, "cancelled")

	stored, _ := fx.repo.GetByID(context.Background(), p.ID)
	assert.Equal(t, model.ActivationCancelled, stored.ActivationStatus)
}

func TestCancelPurchaseAlreadyCancelled(t *testing.T) {
	c := assignedCard("SN-1")
	fx := newFixture(c)
	p := pendingPurchaseFor(fx, c.ID)
	p.ActivationStatus = model.ActivationCancelled
	uc := fx.usecase()

	_, err := uc.CancelPurchase(context.Background(), &dto.CancelPurchaseInput{
		PurchaseID: p.ID,
		Actor:      opA,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func soldCard(serial string) *model.Card {
	c := stationCard(serial)
	c.Status = model.CardSoldActive
	member := memberA
	c.MemberID = &member
	now := time.Now()
	expiry := now.AddDate(1, 0, 0)
	c.PurchaseDate = &now
	c.ExpiryDate = &expiry
	c.QuotaRemaining = 42
	return c
}

func TestCorrectCardMismatch(t *testing.T) {
	original := soldCard("SN-ORIG")
	wrong := stationCard("SN-WRONG")
	correct := stationCard("SN-CORRECT")
	fx := newFixture(original, wrong, correct)
	p := pendingPurchaseFor(fx, original.ID)
	uc := fx.usecase()

	got, err := uc.CorrectCardMismatch(context.Background(), &dto.CorrectMismatchInput{
		PurchaseID:    p.ID,
		WrongCardID:   wrong.ID,
		CorrectCardID: correct.ID,
		Actor:         opA,
	})
	require.NoError(t, err)
	assert.Equal(t, correct.ID, got.CardID)
	assert.Contains(t, got.Notes, "SN-WRONG")
	assert.Contains(t, got.Notes, "SN-CORRECT")
}

func TestCorrectCardMismatchGuards(t *testing.T) {
	original := soldCard("SN-ORIG")
	wrong := stationCard("SN-WRONG")
	correct := stationCard("SN-CORRECT")
	fx := newFixture(original, wrong, correct)
	p := pendingPurchaseFor(fx, original.ID)
	uc := fx.usecase()

	// same wrong and correct card
	_, err := uc.CorrectCardMismatch(context.Background(), &dto.CorrectMismatchInput{
		PurchaseID:    p.ID,
		WrongCardID:   wrong.ID,
		CorrectCardID: wrong.ID,
		Actor:         opA,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// correct card from another category
	correct.CategoryID = "cat-student"
	_, err = uc.CorrectCardMismatch(context.Background(), &dto.CorrectMismatchInput{
		PurchaseID:    p.ID,
		WrongCardID:   wrong.ID,
		CorrectCardID: correct.ID,
		Actor:         opA,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	correct.CategoryID = catA

	// cancelled purchase
	p.ActivationStatus = model.ActivationCancelled
	_, err = uc.CorrectCardMismatch(context.Background(), &dto.CorrectMismatchInput{
		PurchaseID:    p.ID,
		WrongCardID:   wrong.ID,
		CorrectCardID: correct.ID,
		Actor:         opA,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	cardrepo "github.com/farehub/card-service/internal/card/repository"
	ledgerrepo "github.com/farehub/card-service/internal/ledger/repository"
	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/pkg/apperr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const purchaseColumns = `id, card_id, member_id, operator_id, station_id, reference_number, price, notes,
	activation_status, physical_serial, created_by_name, deleted_at, created_at, updated_at`

const insertPurchaseQuery = `
	INSERT INTO purchases (
		id, card_id, member_id, operator_id, station_id, reference_number, price, notes,
		activation_status, physical_serial, created_by_name, created_at, updated_at
	) VALUES (
		:id, :card_id, :member_id, :operator_id, :station_id, :reference_number, :price, :notes,
		:activation_status, :physical_serial, :created_by_name, :created_at, :updated_at
	)
`

// isUniqueViolation reports SQLSTATE 23505 anywhere in the wrap chain.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Purchase, error) {
	var p model.Purchase
	err := r.DB.GetContext(ctx, &p, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) ActivePurchaseExists(ctx context.Context, cardID string) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM purchases WHERE card_id = $1 AND deleted_at IS NULL)`, cardID)
	return exists, err
}

func (r *PGRepository) ReferenceExists(ctx context.Context, referenceNumber string) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM purchases WHERE reference_number = $1 AND deleted_at IS NULL)`, referenceNumber)
	return exists, err
}

// advancePurchaseTx applies a guarded purchase UPDATE and converts a
// zero-row result into a Conflict. Every mutation requires the purchase to
// still be in the expected activation status.
func advancePurchaseTx(ctx context.Context, tx *sqlx.Tx, id string, expected model.ActivationStatus, setClause string, args ...interface{}) error {
	query := `UPDATE purchases SET updated_at = now()` + setClause +
		` WHERE id = $1 AND activation_status = $2 AND deleted_at IS NULL`
	res, err := tx.ExecContext(ctx, query, append([]interface{}{id, expected}, args...)...)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.Conflict("purchase %s is no longer %s, retry", id, expected)
	}
	return nil
}

func (r *PGRepository) CreatePurchase(ctx context.Context, p *model.Purchase, card *model.Card, expiry time.Time, quota int) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertPurchaseQuery, p); err != nil {
		// The reference pre-check races with the UNIQUE constraint; the
		// loser of that race still gets the validation answer.
		if isUniqueViolation(err) {
			return apperr.Validation("reference number %s is already used", p.ReferenceNumber)
		}
		return fmt.Errorf("inserting purchase: %w", err)
	}

	if err := cardrepo.SellTx(ctx, tx, card.ID, card.Status, p.MemberID, p.CreatedAt, expiry, quota); err != nil {
		return err
	}

	if err := ledgerrepo.AddUnsoldTx(ctx, tx, card.CategoryID, card.TypeID, p.StationID, -1); err != nil {
		return err
	}
	if err := ledgerrepo.AddActiveTx(ctx, tx, card.CategoryID, card.TypeID, p.StationID, 1); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PGRepository) Activate(ctx context.Context, p *model.Purchase, card *model.Card, physicalSerial string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := cardrepo.ActivateTx(ctx, tx, card.ID); err != nil {
		return err
	}

	set := `, activation_status = $3, physical_serial = $4`
	if err := advancePurchaseTx(ctx, tx, p.ID, model.ActivationPending, set, model.ActivationActivated, physicalSerial); err != nil {
		return err
	}

	if err := ledgerrepo.AddActiveTx(ctx, tx, card.CategoryID, card.TypeID, p.StationID, 1); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PGRepository) Swap(ctx context.Context, p *model.Purchase, oldCard, newCard *model.Card, notes string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := cardrepo.ReturnToPoolTx(ctx, tx, oldCard.ID, model.CardAssigned); err != nil {
		return err
	}
	// The replacement inherits the sale the released card carried; an
	// assignment without member, dates and quota would activate into an
	// unusable card.
	if err := cardrepo.AssignTx(ctx, tx, newCard.ID, newCard.SerialNumber,
		oldCard.MemberID, oldCard.PurchaseDate, oldCard.ExpiryDate, oldCard.QuotaRemaining); err != nil {
		return err
	}

	set := `, card_id = $3, notes = $4`
	if err := advancePurchaseTx(ctx, tx, p.ID, model.ActivationPending, set, newCard.ID, notes); err != nil {
		return err
	}

	// The released card re-enters its station pool while the replacement
	// leaves it; each side uses its own product key.
	if err := ledgerrepo.AddUnsoldTx(ctx, tx, oldCard.CategoryID, oldCard.TypeID, p.StationID, 1); err != nil {
		return err
	}
	if err := ledgerrepo.AddUnsoldTx(ctx, tx, newCard.CategoryID, newCard.TypeID, p.StationID, -1); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PGRepository) Cancel(ctx context.Context, p *model.Purchase, card *model.Card, notes string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := cardrepo.ReturnToPoolTx(ctx, tx, card.ID, model.CardAssigned); err != nil {
		return err
	}

	set := `, activation_status = $3, notes = $4`
	if err := advancePurchaseTx(ctx, tx, p.ID, model.ActivationPending, set, model.ActivationCancelled, notes); err != nil {
		return err
	}

	if err := ledgerrepo.AddUnsoldTx(ctx, tx, card.CategoryID, card.TypeID, p.StationID, 1); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PGRepository) CorrectMismatch(ctx context.Context, p *model.Purchase, original, wrong, correct *model.Card, notes string) error {
	if original.PurchaseDate == nil || original.ExpiryDate == nil {
		return apperr.Validation("card %s has no recorded sale to transfer", original.ID)
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. The recorded card was never truly delivered; back to the pool.
	if err := cardrepo.ReturnToPoolTx(ctx, tx, original.ID, model.CardSoldActive); err != nil {
		return err
	}
	// 2. The mis-issued card must never re-enter circulation.
	if err := cardrepo.SoftDeleteTx(ctx, tx, wrong.ID, model.CardInStation); err != nil {
		return err
	}
	// 3. The card actually in the customer's hands inherits the sale.
	if err := cardrepo.SellTx(ctx, tx, correct.ID, model.CardInStation, p.MemberID,
		*original.PurchaseDate, *original.ExpiryDate, original.QuotaRemaining); err != nil {
		return err
	}

	set := `, card_id = $3, notes = $4`
	if err := advancePurchaseTx(ctx, tx, p.ID, p.ActivationStatus, set, correct.ID, notes); err != nil {
		return err
	}

	if err := ledgerrepo.AddActiveTx(ctx, tx, original.CategoryID, original.TypeID, p.StationID, -1); err != nil {
		return err
	}
	if err := ledgerrepo.AddUnsoldTx(ctx, tx, original.CategoryID, original.TypeID, p.StationID, 1); err != nil {
		return err
	}
	if err := ledgerrepo.AddUnsoldTx(ctx, tx, wrong.CategoryID, wrong.TypeID, p.StationID, -1); err != nil {
		return err
	}
	if err := ledgerrepo.AddUnsoldTx(ctx, tx, correct.CategoryID, correct.TypeID, p.StationID, -1); err != nil {
		return err
	}
	if err := ledgerrepo.AddActiveTx(ctx, tx, correct.CategoryID, correct.TypeID, p.StationID, 1); err != nil {
		return err
	}

	return tx.Commit()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ledgerrepo "github.com/farehub/card-service/internal/ledger/repository"
	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/pkg/apperr"
	"github.com/jmoiron/sqlx"
)

const cardColumns = `id, serial_number, category_id, type_id, status, member_id, assigned_serial,
	quota_remaining, purchase_date, expiry_date, deleted_at, created_at, updated_at`

// guardTransition rejects edges outside the lifecycle table before any SQL
// runs, naming the illegal pair.
func guardTransition(from, to model.CardStatus) error {
	if !from.CanTransitionTo(to) {
		return apperr.Validation("illegal card status transition %s -> %s", from, to)
	}
	return nil
}

// TransitionBySerialsTx moves a serial set from one status to another inside
// the caller's transaction. The WHERE guard on the expected source status is
// the concurrency control: fewer affected rows than serials means another
// writer got there first.
func TransitionBySerialsTx(ctx context.Context, ext sqlx.ExtContext, serials []string, from, to model.CardStatus) error {
	if len(serials) == 0 {
		return nil
	}
	if err := guardTransition(from, to); err != nil {
		return err
	}

	query, args, err := sqlx.In(`
		UPDATE cards SET status = ?, updated_at = now()
		WHERE serial_number IN (?) AND status = ? AND deleted_at IS NULL
	`, to, serials, from)
	if err != nil {
		return err
	}
	res, err := ext.ExecContext(ctx, ext.Rebind(query), args...)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows != int64(len(serials)) {
		return apperr.Conflict("expected %d cards in status %s, found %d, retry", len(serials), from, rows)
	}
	return nil
}

// transitionOneTx applies a guarded single-card UPDATE with extra SET
// clauses and converts a zero-row result into a Conflict.
func transitionOneTx(ctx context.Context, ext sqlx.ExtContext, cardID string, from, to model.CardStatus, setClause string, extraArgs ...interface{}) error {
	if err := guardTransition(from, to); err != nil {
		return err
	}

	query := `UPDATE cards SET status = $1, updated_at = now()` + setClause +
		` WHERE id = $2 AND status = $3 AND deleted_at IS NULL`
	args := append([]interface{}{to, cardID, from}, extraArgs...)

	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.Conflict("card %s is no longer in status %s, retry", cardID, from)
	}
	return nil
}

// SellTx marks a card sold to a member, stamping purchase date, expiry and
// the product's full quota, and clearing any assignment serial.
func SellTx(ctx context.Context, ext sqlx.ExtContext, cardID string, from model.CardStatus, memberID string, purchaseDate, expiry time.Time, quota int) error {
	set := `, member_id = $4, purchase_date = $5, expiry_date = $6, quota_remaining = $7, assigned_serial = NULL`
	return transitionOneTx(ctx, ext, cardID, from, model.CardSoldActive, set, memberID, purchaseDate, expiry, quota)
}

// ReturnToPoolTx puts a card back into the station's unsold pool, clearing
// member, purchase, expiry, quota and assignment.
func ReturnToPoolTx(ctx context.Context, ext sqlx.ExtContext, cardID string, from model.CardStatus) error {
	set := `, member_id = NULL, purchase_date = NULL, expiry_date = NULL, quota_remaining = 0, assigned_serial = NULL`
	return transitionOneTx(ctx, ext, cardID, from, model.CardInStation, set)
}

// AssignTx reserves an in-station card for a pending purchase. ASSIGNED
// cards carry the sale data (member, purchase date, expiry, quota) so that
// activation only has to flip the status.
func AssignTx(ctx context.Context, ext sqlx.ExtContext, cardID, assignedSerial string, memberID *string, purchaseDate, expiry *time.Time, quota int) error {
	set := `, assigned_serial = $4, member_id = $5, purchase_date = $6, expiry_date = $7, quota_remaining = $8`
	return transitionOneTx(ctx, ext, cardID, model.CardInStation, model.CardAssigned, set, assignedSerial, memberID, purchaseDate, expiry, quota)
}

// ActivateTx completes physical activation of an assigned card.
func ActivateTx(ctx context.Context, ext sqlx.ExtContext, cardID string) error {
	set := `, assigned_serial = NULL`
	return transitionOneTx(ctx, ext, cardID, model.CardAssigned, model.CardSoldActive, set)
}

// SoftDeleteTx retires a mis-issued card permanently. The row stays for
// audit; deleted_at excludes it from every read path.
func SoftDeleteTx(ctx context.Context, ext sqlx.ExtContext, cardID string, from model.CardStatus) error {
	set := `, deleted_at = now()`
	return transitionOneTx(ctx, ext, cardID, from, model.CardDeleted, set)
}

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Card, error) {
	var c model.Card
	err := r.DB.GetContext(ctx, &c, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGRepository) GetBySerial(ctx context.Context, serial string) (*model.Card, error) {
	var c model.Card
	err := r.DB.GetContext(ctx, &c, `SELECT `+cardColumns+` FROM cards WHERE serial_number = $1 AND deleted_at IS NULL`, serial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGRepository) FindBySerials(ctx context.Context, serials []string) ([]model.Card, error) {
	if len(serials) == 0 {
		return []model.Card{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+cardColumns+` FROM cards WHERE serial_number IN (?) AND deleted_at IS NULL`, serials)
	if err != nil {
		return nil, err
	}
	var cards []model.Card
	err = r.DB.SelectContext(ctx, &cards, r.DB.Rebind(query), args...)
	return cards, err
}

func (r *PGRepository) FindShippable(ctx context.Context, serials []string, categoryID, typeID string) ([]model.Card, error) {
	if len(serials) == 0 {
		return []model.Card{}, nil
	}
	query, args, err := sqlx.In(`
		SELECT `+cardColumns+`
		FROM cards
		WHERE serial_number IN (?) AND category_id = ? AND type_id = ? AND status = ? AND deleted_at IS NULL
	`, serials, categoryID, typeID, model.CardInOffice)
	if err != nil {
		return nil, err
	}
	var cards []model.Card
	err = r.DB.SelectContext(ctx, &cards, r.DB.Rebind(query), args...)
	return cards, err
}

func (r *PGRepository) ExistingSerials(ctx context.Context, serials []string) ([]string, error) {
	if len(serials) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT serial_number FROM cards WHERE serial_number IN (?)`, serials)
	if err != nil {
		return nil, err
	}
	var existing []string
	err = r.DB.SelectContext(ctx, &existing, r.DB.Rebind(query), args...)
	return existing, err
}

const insertMovementQuery = `
	INSERT INTO movements (
		id, direction, status, category_id, type_id, source_station_id, destination_station_id,
		quantity, shipped_serials, receipt, note, movement_date, created_by, created_by_name,
		created_at, updated_at
	) VALUES (
		:id, :direction, :status, :category_id, :type_id, :source_station_id, :destination_station_id,
		:quantity, :shipped_serials, :receipt, :note, :movement_date, :created_by, :created_by_name,
		:created_at, :updated_at
	)
`

func (r *PGRepository) StockIn(ctx context.Context, cards []model.Card, movement *model.Movement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// One multi-row insert for the whole batch.
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO cards (id, serial_number, category_id, type_id, status, quota_remaining, created_at, updated_at)
		VALUES (:id, :serial_number, :category_id, :type_id, :status, :quota_remaining, :created_at, :updated_at)
	`, cards)
	if err != nil {
		return fmt.Errorf("inserting card batch: %w", err)
	}

	if _, err := tx.NamedExecContext(ctx, insertMovementQuery, movement); err != nil {
		return fmt.Errorf("recording stock-in movement: %w", err)
	}

	if err := ledgerrepo.AddOfficeStockTx(ctx, tx, movement.CategoryID, movement.TypeID, len(cards)); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PGRepository) ExpireDue(ctx context.Context, asOf time.Time) (int, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var due []struct {
		ID         string `db:"id"`
		CategoryID string `db:"category_id"`
		TypeID     string `db:"type_id"`
		StationID  string `db:"station_id"`
	}
	err = tx.SelectContext(ctx, &due, `
		SELECT c.id, c.category_id, c.type_id, p.station_id
		FROM cards c
		JOIN purchases p ON p.card_id = c.id AND p.deleted_at IS NULL AND p.activation_status <> $1
		WHERE c.status = $2 AND c.deleted_at IS NULL AND c.expiry_date IS NOT NULL AND c.expiry_date <= $3
		FOR UPDATE OF c
	`, model.ActivationCancelled, model.CardSoldActive, asOf)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, tx.Commit()
	}

	ids := make([]string, 0, len(due))
	for _, d := range due {
		ids = append(ids, d.ID)
	}
	query, args, err := sqlx.In(`
		UPDATE cards SET status = ?, updated_at = now()
		WHERE id IN (?) AND status = ?
	`, model.CardSoldInactive, ids, model.CardSoldActive)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return 0, err
	}

	type key struct{ category, typ, station string }
	grouped := map[key]int{}
	for _, d := range due {
		grouped[key{d.CategoryID, d.TypeID, d.StationID}]++
	}
	for k, n := range grouped {
		if err := ledgerrepo.AddActiveTx(ctx, tx, k.category, k.typ, k.station, -n); err != nil {
			return 0, err
		}
		if err := ledgerrepo.AddInactiveTx(ctx, tx, k.category, k.typ, k.station, n); err != nil {
			return 0, err
		}
	}

	return len(due), tx.Commit()
}

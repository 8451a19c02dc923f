package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	cardrepo "github.com/farehub/card-service/internal/card/repository"
	ledgerrepo "github.com/farehub/card-service/internal/ledger/repository"
	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/pkg/apperr"
	"github.com/farehub/card-service/internal/stock/dto"
	"github.com/jmoiron/sqlx"
)

const movementColumns = `id, direction, status, category_id, type_id, source_station_id, destination_station_id,
	quantity, shipped_serials, receipt, note, movement_date, created_by, created_by_name, created_at, updated_at`

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

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetMovement(ctx context.Context, id string) (*model.Movement, error) {
	var m model.Movement
	err := r.DB.GetContext(ctx, &m, `SELECT `+movementColumns+` FROM movements WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.Movement, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.Direction != "" {
		conditions = append(conditions, "direction = :direction")
		args["direction"] = f.Direction
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if f.StationID != nil {
		if *f.StationID == "" {
			conditions = append(conditions, "source_station_id IS NULL AND destination_station_id IS NULL")
		} else {
			conditions = append(conditions, "(source_station_id = :station_id OR destination_station_id = :station_id)")
			args["station_id"] = *f.StationID
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	rows, err := r.DB.NamedQueryContext(ctx, "SELECT count(*) FROM movements"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT " + movementColumns + " FROM movements" + whereClause + " ORDER BY movement_date DESC, created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	var items []model.Movement
	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) CreateStockOut(ctx context.Context, movement *model.Movement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertMovementQuery, movement); err != nil {
		return fmt.Errorf("inserting stock-out movement: %w", err)
	}

	if err := cardrepo.TransitionBySerialsTx(ctx, tx, movement.ShippedSerials, model.CardInOffice, model.CardInTransit); err != nil {
		return err
	}

	if err := ledgerrepo.AddOfficeStockTx(ctx, tx, movement.CategoryID, movement.TypeID, -movement.Quantity); err != nil {
		return err
	}
	if err := ledgerrepo.AddInTransitTx(ctx, tx, movement.CategoryID, movement.TypeID, *movement.DestinationStationID, movement.Quantity); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PGRepository) ApproveReceipt(ctx context.Context, movement *model.Movement, audit *model.ReceiptAudit) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := cardrepo.TransitionBySerialsTx(ctx, tx, audit.ReceivedSerials, model.CardInTransit, model.CardInStation); err != nil {
		return err
	}
	if err := cardrepo.TransitionBySerialsTx(ctx, tx, audit.LostSerials, model.CardInTransit, model.CardLost); err != nil {
		return err
	}

	station := *movement.DestinationStationID
	if err := ledgerrepo.AddInTransitTx(ctx, tx, movement.CategoryID, movement.TypeID, station, -movement.Quantity); err != nil {
		return err
	}
	if n := len(audit.ReceivedSerials); n > 0 {
		if err := ledgerrepo.AddUnsoldTx(ctx, tx, movement.CategoryID, movement.TypeID, station, n); err != nil {
			return err
		}
	}

	// The status guard makes approval idempotence-safe: a second validator
	// loses here and the whole transaction rolls back.
	res, err := tx.ExecContext(ctx, `
		UPDATE movements SET status = $1, receipt = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, model.MovementApproved, audit, movement.ID, model.MovementPending)
	if err != nil {
		return fmt.Errorf("approving movement: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.Conflict("movement %s was approved concurrently", movement.ID)
	}

	return tx.Commit()
}

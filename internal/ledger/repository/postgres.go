package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/farehub/card-service/internal/ledger/dto"
	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/pkg/apperr"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Counter columns that Apply*Tx may touch. Guarded here because the column
// name is interpolated into the upsert statement.
const (
	colOfficeStock = "office_stock"
	colInTransit   = "in_transit"
	colUnsold      = "unsold"
	colActive      = "active"
	colInactive    = "inactive"
)

// applyDeltaTx applies a delta to a single counter column inside the
// caller's transaction. Increments upsert the row; decrements run a guarded
// UPDATE only, so a missing row counts as an empty pool rather than an
// insert of a negative value. Zero rows affected means the pool cannot
// cover the draw, either because a concurrent writer drained it or because
// it was never stocked.
func applyDeltaTx(ctx context.Context, ext sqlx.ExtContext, categoryID, typeID string, stationID *string, column string, delta int) error {
	switch column {
	case colOfficeStock, colInTransit, colUnsold, colActive, colInactive:
	default:
		return fmt.Errorf("unknown counter column %q", column)
	}

	var (
		res sql.Result
		err error
	)
	if delta < 0 {
		query := fmt.Sprintf(`
			UPDATE stock_counters
			SET %[1]s = %[1]s + $4, updated_at = now()
			WHERE category_id = $1 AND type_id = $2 AND station_id IS NOT DISTINCT FROM $3
			  AND %[1]s + $4 >= 0
		`, column)
		res, err = ext.ExecContext(ctx, query, categoryID, typeID, stationID, delta)
	} else {
		query := fmt.Sprintf(`
			INSERT INTO stock_counters (id, category_id, type_id, station_id, %[1]s, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (category_id, type_id, station_id) DO UPDATE
			SET %[1]s = stock_counters.%[1]s + $5, updated_at = now()
		`, column)
		res, err = ext.ExecContext(ctx, query, uuid.New().String(), categoryID, typeID, stationID, delta)
	}
	if err != nil {
		return fmt.Errorf("applying %s delta: %w", column, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.Conflict("%s counter for category %s type %s would go negative, retry", column, categoryID, typeID)
	}
	return nil
}

func AddOfficeStockTx(ctx context.Context, ext sqlx.ExtContext, categoryID, typeID string, delta int) error {
	return applyDeltaTx(ctx, ext, categoryID, typeID, nil, colOfficeStock, delta)
}

func AddInTransitTx(ctx context.Context, ext sqlx.ExtContext, categoryID, typeID, stationID string, delta int) error {
	return applyDeltaTx(ctx, ext, categoryID, typeID, &stationID, colInTransit, delta)
}

func AddUnsoldTx(ctx context.Context, ext sqlx.ExtContext, categoryID, typeID, stationID string, delta int) error {
	return applyDeltaTx(ctx, ext, categoryID, typeID, &stationID, colUnsold, delta)
}

func AddActiveTx(ctx context.Context, ext sqlx.ExtContext, categoryID, typeID, stationID string, delta int) error {
	return applyDeltaTx(ctx, ext, categoryID, typeID, &stationID, colActive, delta)
}

func AddInactiveTx(ctx context.Context, ext sqlx.ExtContext, categoryID, typeID, stationID string, delta int) error {
	return applyDeltaTx(ctx, ext, categoryID, typeID, &stationID, colInactive, delta)
}

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const counterColumns = `id, category_id, type_id, station_id, office_stock, in_transit, unsold, active, inactive, updated_at`

func (r *PGRepository) GetOffice(ctx context.Context, categoryID, typeID string) (*model.StockCounter, error) {
	var c model.StockCounter
	err := r.DB.GetContext(ctx, &c, `
		SELECT `+counterColumns+`
		FROM stock_counters
		WHERE category_id = $1 AND type_id = $2 AND station_id IS NULL
	`, categoryID, typeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGRepository) GetStation(ctx context.Context, categoryID, typeID, stationID string) (*model.StockCounter, error) {
	var c model.StockCounter
	err := r.DB.GetContext(ctx, &c, `
		SELECT `+counterColumns+`
		FROM stock_counters
		WHERE category_id = $1 AND type_id = $2 AND station_id = $3
	`, categoryID, typeID, stationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.CounterFilters) ([]model.StockCounter, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.CategoryID != "" {
		conditions = append(conditions, "category_id = :category_id")
		args["category_id"] = f.CategoryID
	}
	if f.TypeID != "" {
		conditions = append(conditions, "type_id = :type_id")
		args["type_id"] = f.TypeID
	}
	if f.StationID != nil {
		if *f.StationID == "" {
			conditions = append(conditions, "station_id IS NULL")
		} else {
			conditions = append(conditions, "station_id = :station_id")
			args["station_id"] = *f.StationID
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	rows, err := r.DB.NamedQueryContext(ctx, "SELECT count(*) FROM stock_counters"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT " + counterColumns + " FROM stock_counters" + whereClause + " ORDER BY category_id, type_id, station_id NULLS FIRST"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	var items []model.StockCounter
	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

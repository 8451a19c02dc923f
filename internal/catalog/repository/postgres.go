package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/pkg/apperr"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetProduct(ctx context.Context, categoryID, typeID string) (*model.CardProduct, error) {
	var p model.CardProduct
	err := r.DB.GetContext(ctx, &p, `
		SELECT id, category_id, type_id, name, price, total_quota, validity_days, is_active
		FROM card_products
		WHERE category_id = $1 AND type_id = $2
	`, categoryID, typeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("no card product for category %s type %s", categoryID, typeID)
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) GetMember(ctx context.Context, id string) (*model.Member, error) {
	var m model.Member
	err := r.DB.GetContext(ctx, &m, `
		SELECT id, full_name, email, phone, is_active
		FROM members
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("member %s not found", id)
		}
		return nil, err
	}
	return &m, nil
}

func (r *PGRepository) GetOperator(ctx context.Context, id string) (*model.Operator, error) {
	var op model.Operator
	err := r.DB.GetContext(ctx, &op, `
		SELECT id, full_name, is_active
		FROM operators
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("operator %s not found", id)
		}
		return nil, err
	}
	return &op, nil
}

func (r *PGRepository) GetStation(ctx context.Context, id string) (*model.Station, error) {
	var st model.Station
	err := r.DB.GetContext(ctx, &st, `
		SELECT id, name, is_active
		FROM stations
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("station %s not found", id)
		}
		return nil, err
	}
	return &st, nil
}

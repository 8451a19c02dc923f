package model

import "github.com/shopspring/decimal"

// CardProduct is the catalog row for a (category, type) pair: list price,
// total quota and validity window granted at sale. Read-only for this
// service; provisioning is an administrative concern elsewhere.
type CardProduct struct {
	ID           string          `db:"id" json:"id"`
	CategoryID   string          `db:"category_id" json:"category_id"`
	TypeID       string          `db:"type_id" json:"type_id"`
	Name         string          `db:"name" json:"name"`
	Price        decimal.Decimal `db:"price" json:"price"`
	TotalQuota   int             `db:"total_quota" json:"total_quota"`
	ValidityDays int             `db:"validity_days" json:"validity_days"`
	IsActive     bool            `db:"is_active" json:"is_active"`
}

type Member struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	Phone    string `db:"phone" json:"phone"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

type Operator struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

type Station struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

package model

import "time"

// StockCounter aggregates card counts for a (category, type, station) key.
// A nil StationID is the head-office pool row; only office_stock is tracked
// there, while station rows track in_transit/unsold/active/inactive.
// Counters are mutated only inside the transaction of the card status
// transition that moves a card between pools.
type StockCounter struct {
	ID          string    `db:"id" json:"id"`
	CategoryID  string    `db:"category_id" json:"category_id"`
	TypeID      string    `db:"type_id" json:"type_id"`
	StationID   *string   `db:"station_id" json:"station_id"`
	OfficeStock int       `db:"office_stock" json:"office_stock"`
	InTransit   int       `db:"in_transit" json:"in_transit"`
	Unsold      int       `db:"unsold" json:"unsold"`
	Active      int       `db:"active" json:"active"`
	Inactive    int       `db:"inactive" json:"inactive"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

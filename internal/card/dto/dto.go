package dto

type StockInResult struct {
	MovementID   string `json:"movement_id"`
	CreatedCount int    `json:"created_count"`
}

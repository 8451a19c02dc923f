package dto

type StockOutResult struct {
	MovementID string `json:"movement_id"`
	Status     string `json:"status"`
	SentCount  int    `json:"sent_count"`
}

type ReceiptResult struct {
	MovementID    string `json:"movement_id"`
	Status        string `json:"status"`
	ReceivedCount int    `json:"received_count"`
	LostCount     int    `json:"lost_count"`
}

type MovementFilters struct {
	Direction string
	Status    string
	StationID *string // matches source or destination; pointer to "" = head-office legs
	Page      int
	PageSize  int
}

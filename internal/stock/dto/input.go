package dto

import "time"

type CreateStockOutInput struct {
	Date                 time.Time
	CategoryID           string
	TypeID               string
	DestinationStationID string
	Serials              []string
	Actor                string
	Note                 string
}

type ValidateReceiptInput struct {
	MovementID      string
	Actor           string
	ActorStationID  string
	ReceivedSerials []string
	LostSerials     []string
	Note            string
}

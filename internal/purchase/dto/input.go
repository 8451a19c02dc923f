package dto

import "github.com/shopspring/decimal"

type CreatePurchaseInput struct {
	CardID          string
	MemberID        string
	ReferenceNumber string
	Price           *decimal.Decimal // nil = product list price
	Notes           string
	Actor           string
	StationID       string
}

type ActivateCardInput struct {
	PurchaseID     string
	PhysicalSerial string
	Actor          string
}

type SwapCardInput struct {
	PurchaseID    string
	CorrectSerial string
	Actor         string
	Reason        string
}

type CancelPurchaseInput struct {
	PurchaseID string
	Actor      string
	Reason     string
}

type CorrectMismatchInput struct {
	PurchaseID    string
	WrongCardID   string
	CorrectCardID string
	Actor         string
	Notes         string
}

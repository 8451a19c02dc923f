package dto

import "time"

type StockInInput struct {
	Date       time.Time
	CategoryID string
	TypeID     string
	Serials    []string
	Actor      string
	Note       string
}

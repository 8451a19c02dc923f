package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ActivationStatus string

const (
	ActivationPending   ActivationStatus = "PENDING"
	ActivationActivated ActivationStatus = "ACTIVATED"
	ActivationCancelled ActivationStatus = "CANCELLED"
)

func ParseActivationStatus(s string) (ActivationStatus, error) {
	switch ActivationStatus(s) {
	case ActivationPending, ActivationActivated, ActivationCancelled:
		return ActivationStatus(s), nil
	}
	return "", fmt.Errorf("unknown activation status %q", s)
}

type Purchase struct {
	BaseModel
	CardID           string           `db:"card_id" json:"card_id"`
	MemberID         string           `db:"member_id" json:"member_id"`
	OperatorID       string           `db:"operator_id" json:"operator_id"`
	StationID        string           `db:"station_id" json:"station_id"`
	ReferenceNumber  string           `db:"reference_number" json:"reference_number"`
	Price            decimal.Decimal  `db:"price" json:"price"`
	Notes            string           `db:"notes" json:"notes"`
	ActivationStatus ActivationStatus `db:"activation_status" json:"activation_status"`
	PhysicalSerial   *string          `db:"physical_serial" json:"physical_serial"` // captured at activation
	CreatedByName    string           `db:"created_by_name" json:"created_by_name"`
	DeletedAt        *time.Time       `db:"deleted_at" json:"-"`
}

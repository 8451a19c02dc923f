package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type MovementDirection string

const (
	MovementIn  MovementDirection = "IN"
	MovementOut MovementDirection = "OUT"
)

type MovementStatus string

const (
	MovementPending  MovementStatus = "PENDING"
	MovementApproved MovementStatus = "APPROVED"
)

func ParseMovementStatus(s string) (MovementStatus, error) {
	switch MovementStatus(s) {
	case MovementPending, MovementApproved:
		return MovementStatus(s), nil
	}
	return "", fmt.Errorf("unknown movement status %q", s)
}

// ReceiptAudit is the structured record written exactly once when a station
// validates a pending OUT movement. Stored as a jsonb column on the movement
// row; Valid is false while the movement is still pending (SQL NULL).
type ReceiptAudit struct {
	Valid           bool      `json:"-"`
	Version         int       `json:"version"`
	ReceivedSerials []string  `json:"received_serials"`
	LostSerials     []string  `json:"lost_serials"`
	ValidatorID     string    `json:"validator_id"`
	ValidatorName   string    `json:"validator_name"`
	Note            string    `json:"note,omitempty"`
	ValidatedAt     time.Time `json:"validated_at"`
}

const ReceiptAuditVersion = 1

type receiptAuditJSON ReceiptAudit

func (a ReceiptAudit) Value() (driver.Value, error) {
	if !a.Valid {
		return nil, nil
	}
	return json.Marshal(receiptAuditJSON(a))
}

func (a *ReceiptAudit) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = ReceiptAudit{}
		return nil
	case []byte:
		if err := json.Unmarshal(v, (*receiptAuditJSON)(a)); err != nil {
			return err
		}
		a.Valid = true
		return nil
	case string:
		return a.Scan([]byte(v))
	}
	return fmt.Errorf("cannot scan %T into ReceiptAudit", src)
}

func (a ReceiptAudit) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(receiptAuditJSON(a))
}

type Movement struct {
	BaseModel
	Direction            MovementDirection `db:"direction" json:"direction"`
	Status               MovementStatus    `db:"status" json:"status"`
	CategoryID           string            `db:"category_id" json:"category_id"`
	TypeID               string            `db:"type_id" json:"type_id"`
	SourceStationID      *string           `db:"source_station_id" json:"source_station_id"`           // nil = head-office pool
	DestinationStationID *string           `db:"destination_station_id" json:"destination_station_id"` // nil = head-office pool
	Quantity             int               `db:"quantity" json:"quantity"`
	ShippedSerials       SerialList        `db:"shipped_serials" json:"shipped_serials"`
	Receipt              ReceiptAudit      `db:"receipt" json:"receipt"`
	Note                 string            `db:"note" json:"note"`
	MovementDate         time.Time         `db:"movement_date" json:"movement_date"`
	CreatedBy            string            `db:"created_by" json:"created_by"`
	CreatedByName        string            `db:"created_by_name" json:"created_by_name"`
}

// ReconciliationComplete reports whether an approved movement accounts for
// every shipped serial exactly once: received and lost are disjoint subsets
// of shipped and together cover it.
func (m *Movement) ReconciliationComplete() bool {
	if m.Status != MovementApproved || !m.Receipt.Valid {
		return false
	}
	if len(SerialIntersect(m.Receipt.ReceivedSerials, m.Receipt.LostSerials)) > 0 {
		return false
	}
	accounted := append(append([]string{}, m.Receipt.ReceivedSerials...), m.Receipt.LostSerials...)
	if len(accounted) != len(m.ShippedSerials) {
		return false
	}
	return len(SerialDiff(accounted, m.ShippedSerials)) == 0
}

package model

import (
	"fmt"
	"time"
)

// CardStatus is the closed set of lifecycle states a physical card can be in.
// Unknown spellings are rejected by ParseCardStatus; there is no default.
type CardStatus string

const (
	CardInOffice     CardStatus = "IN_OFFICE"
	CardInTransit    CardStatus = "IN_TRANSIT"
	CardInStation    CardStatus = "IN_STATION"
	CardAssigned     CardStatus = "ASSIGNED"
	CardSoldActive   CardStatus = "SOLD_ACTIVE"
	CardSoldInactive CardStatus = "SOLD_INACTIVE"
	CardLost         CardStatus = "LOST"
	CardDeleted      CardStatus = "DELETED"
)

// cardTransitions is the single source of truth for legal status edges.
// LOST, DELETED and SOLD_INACTIVE are terminal.
var cardTransitions = map[CardStatus][]CardStatus{
	CardInOffice:   {CardInTransit},
	CardInTransit:  {CardInStation, CardLost},
	CardInStation:  {CardAssigned, CardSoldActive, CardDeleted},
	CardAssigned:   {CardSoldActive, CardInStation},
	CardSoldActive: {CardSoldInactive, CardInStation},
}

func ParseCardStatus(s string) (CardStatus, error) {
	switch CardStatus(s) {
	case CardInOffice, CardInTransit, CardInStation, CardAssigned,
		CardSoldActive, CardSoldInactive, CardLost, CardDeleted:
		return CardStatus(s), nil
	}
	return "", fmt.Errorf("unknown card status %q", s)
}

func (s CardStatus) CanTransitionTo(next CardStatus) bool {
	for _, allowed := range cardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Card struct {
	BaseModel
	SerialNumber   string     `db:"serial_number" json:"serial_number"`
	CategoryID     string     `db:"category_id" json:"category_id"`
	TypeID         string     `db:"type_id" json:"type_id"`
	Status         CardStatus `db:"status" json:"status"`
	MemberID       *string    `db:"member_id" json:"member_id"`
	AssignedSerial *string    `db:"assigned_serial" json:"assigned_serial"` // set only during the ASSIGNED phase
	QuotaRemaining int        `db:"quota_remaining" json:"quota_remaining"`
	PurchaseDate   *time.Time `db:"purchase_date" json:"purchase_date"`
	ExpiryDate     *time.Time `db:"expiry_date" json:"expiry_date"`
	DeletedAt      *time.Time `db:"deleted_at" json:"-"`
}

// EffectiveSerial is the serial a customer's physical card is verified
// against at activation. Falls back to the manufactured serial when no
// assignment step was used.
func (c *Card) EffectiveSerial() string {
	if c.AssignedSerial != nil && *c.AssignedSerial != "" {
		return *c.AssignedSerial
	}
	return c.SerialNumber
}

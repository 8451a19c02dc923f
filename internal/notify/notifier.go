package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/farehub/card-service/internal/pkg/broker"
	"github.com/farehub/card-service/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PurchaseConfirmation is the payload sent to the member after a purchase
// commits. Delivery is best-effort; the purchase is never rolled back for a
// notification failure.
type PurchaseConfirmation struct {
	PurchaseID      string          `json:"purchase_id"`
	MemberID        string          `json:"member_id"`
	CardSerial      string          `json:"card_serial"`
	ReferenceNumber string          `json:"reference_number"`
	Price           decimal.Decimal `json:"price"`
	ExpiryDate      time.Time       `json:"expiry_date"`
}

type Notifier interface {
	PurchaseConfirmed(ctx context.Context, msg *PurchaseConfirmation) error
}

type event struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type KafkaNotifier struct {
	producer *broker.Producer
	logger   logger.ZapLogger
}

func NewKafkaNotifier(producer *broker.Producer, log logger.ZapLogger) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		logger:   log,
	}
}

func (n *KafkaNotifier) PurchaseConfirmed(ctx context.Context, msg *PurchaseConfirmation) error {
	evt := event{
		EventID:   uuid.New().String(),
		EventType: "PurchaseConfirmed",
		Payload:   msg,
		Timestamp: time.Now(),
	}

	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	if err := n.producer.Publish(ctx, []byte(msg.PurchaseID), value); err != nil {
		return err
	}

	n.logger.Debug("purchase confirmation published",
		zap.String("purchase_id", msg.PurchaseID),
		zap.String("member_id", msg.MemberID),
	)
	return nil
}

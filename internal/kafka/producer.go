package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"gatepass/internal/models"
)

// Topic names. Downstream consumers (finance exports, capacity dashboards)
// subscribe to these.
const (
	TopicOrderFulfilled = "gatepass.order.fulfilled"
	TopicItemScanned    = "gatepass.item.scanned"
	TopicItemRefunded   = "gatepass.item.refunded"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

func (p *Producer) publish(topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishOrderFulfilled streams the fulfillment completion event.
func (p *Producer) PublishOrderFulfilled(sessionID, eventID string, itemIDs []string) error {
	return p.publish(TopicOrderFulfilled, sessionID, models.FulfilledEvent{
		SessionID: sessionID,
		EventID:   eventID,
		ItemIDs:   itemIDs,
		Timestamp: time.Now(),
	})
}

// PublishItemScanned streams every scan attempt, including rejected ones.
func (p *Producer) PublishItemScanned(itemID, eventID, outcome, staffName string) error {
	return p.publish(TopicItemScanned, itemID, models.ScannedEvent{
		ItemID:    itemID,
		EventID:   eventID,
		Outcome:   outcome,
		StaffName: staffName,
		Timestamp: time.Now(),
	})
}

// PublishItemRefunded streams a completed refund.
func (p *Producer) PublishItemRefunded(itemID, sessionID string, amount int64, stripeRefundID string) error {
	return p.publish(TopicItemRefunded, itemID, models.RefundedEvent{
		ItemID:         itemID,
		SessionID:      sessionID,
		RefundAmount:   amount,
		StripeRefundID: stripeRefundID,
		Timestamp:      time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"conf-registration/internal/models"
)

const (
	TopicRegistrationCreated   = "registrations.created"
	TopicRegistrationCancelled = "registrations.cancelled"
	TopicFeeChanged            = "fees.changed"
)

// Topics lists every topic the service publishes to, for bootstrap.
func Topics() []string {
	return []string{TopicRegistrationCreated, TopicRegistrationCancelled, TopicFeeChanged}
}

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

// Publish writes one message to the given topic.
func (p *Producer) Publish(topic string, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

type registrationEvent struct {
	RegistrationID string    `json:"registration_id"`
	ConferenceID   string    `json:"conference_id"`
	FeeID          string    `json:"fee_id"`
	AttendeeEmail  string    `json:"attendee_email"`
	PriceGross     float64   `json:"price_gross"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PublishRegistrationCreated streams a confirmed reservation so
// downstream consumers (confirmation email, dashboards) can react.
func (p *Producer) PublishRegistrationCreated(reg models.Registration, snapshot models.PriceSnapshot) error {
	msgBytes, err := json.Marshal(registrationEvent{
		RegistrationID: reg.RegistrationID,
		ConferenceID:   reg.ConferenceID,
		FeeID:          snapshot.FeeID,
		AttendeeEmail:  reg.AttendeeEmail,
		PriceGross:     snapshot.PriceGross,
		Currency:       snapshot.Currency,
		OccurredAt:     snapshot.CapturedAt,
	})
	if err != nil {
		return err
	}
	return p.Publish(TopicRegistrationCreated, reg.RegistrationID, msgBytes)
}

func (p *Producer) PublishRegistrationCancelled(reg models.Registration) error {
	msgBytes, err := json.Marshal(registrationEvent{
		RegistrationID: reg.RegistrationID,
		ConferenceID:   reg.ConferenceID,
		FeeID:          reg.FeeID,
		AttendeeEmail:  reg.AttendeeEmail,
		PriceGross:     reg.PriceAtRegistration,
		Currency:       reg.Currency,
		OccurredAt:     reg.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return p.Publish(TopicRegistrationCancelled, reg.RegistrationID, msgBytes)
}

type feeChangedEvent struct {
	Action string     `json:"action"`
	Fee    models.Fee `json:"fee"`
}

// PublishFeeChanged streams catalog mutations (created/updated) for
// admin dashboards and cache invalidation.
func (p *Producer) PublishFeeChanged(fee models.Fee, action string) error {
	msgBytes, err := json.Marshal(feeChangedEvent{Action: action, Fee: fee})
	if err != nil {
		return err
	}
	fmt.Printf("Publishing to Kafka [%s]: fee %s %s\n", TopicFeeChanged, fee.FeeID, action)
	return p.Publish(TopicFeeChanged, fee.FeeID, msgBytes)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

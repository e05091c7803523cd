// Package events announces saved and deleted records to other services.
package events

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	sdk "github.com/segmentio/kafka-go"
)

type Type string

const (
	Created Type = "created"
	Updated Type = "updated"
	Deleted Type = "deleted"
)

type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	RecordID   string    `json:"record_id"`
	Identifier string    `json:"identifier"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New builds an event named "<entity>.<type>", e.g. "post.created".
func New(entity string, t Type, collection, recordID, identifier, actorID string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       fmt.Sprintf("%s.%s", entity, t),
		Collection: collection,
		RecordID:   recordID,
		Identifier: identifier,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &sdk.Writer{
			Addr:                   sdk.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &sdk.Hash{},
			RequiredAcks:           sdk.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish keys messages by record ID so each record's events stay ordered
// within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := Encode(event)
	if err != nil {
		return err
	}
	tflog.Trace(ctx, fmt.Sprintf("publishing %s for %s", event.Type, event.RecordID))
	return p.writer.WriteMessages(ctx, sdk.Message{
		Key:   []byte(event.RecordID),
		Value: value,
		Headers: []sdk.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func Encode(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func Decode(data []byte) (Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return event, err
}

package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topics the engine publishes to. Consumers (notifications, CRM sync, audit)
// live outside this repo.
const (
	TopicBlocks      = "fleet.blocks"
	TopicHolds       = "fleet.holds"
	TopicAssignments = "fleet.assignments"
	TopicTours       = "fleet.tours"
)

// Event types carried in the event-type header.
const (
	EventBlockCreated        = "block.created"
	EventBlockUpdated        = "block.updated"
	EventBlockDeleted        = "block.deleted"
	EventHoldCreated         = "hold.created"
	EventHoldConverted       = "hold.converted"
	EventHoldCancelled       = "hold.cancelled"
	EventHoldsExpired        = "holds.expired"
	EventVehicleAssigned     = "vehicle.assigned"
	EventVehicleReleased     = "vehicle.released"
	EventTourVehicleChanged  = "tour.vehicle_reassigned"
	EventTourScheduleChanged = "tour.schedule_changed"
)

// Message is a Kafka message with engine metadata headers.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
}

const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"
	HeaderOriginalTopic = "original-topic"
)

// MessageBuilder provides a fluent interface for building messages
type MessageBuilder struct {
	msg Message
}

func NewMessage() *MessageBuilder {
	return &MessageBuilder{
		msg: Message{
			Headers:   make(map[string]string),
			Timestamp: time.Now(),
		},
	}
}

// WithTopic sets the destination topic
func (mb *MessageBuilder) WithTopic(topic string) *MessageBuilder {
	mb.msg.Topic = topic
	return mb
}

// WithKey sets the message key (for partition routing)
func (mb *MessageBuilder) WithKey(key string) *MessageBuilder {
	mb.msg.Key = key
	return mb
}

// WithValue sets the message value (will be JSON-encoded)
func (mb *MessageBuilder) WithValue(value interface{}) *MessageBuilder {
	data, err := json.Marshal(value)
	if err != nil {
		mb.msg.Value = nil
		return mb
	}
	mb.msg.Value = data
	return mb
}

func (mb *MessageBuilder) WithHeader(key, value string) *MessageBuilder {
	mb.msg.Headers[key] = value
	return mb
}

func (mb *MessageBuilder) WithEventType(eventType string) *MessageBuilder {
	mb.msg.Headers[HeaderEventType] = eventType
	return mb
}

func (mb *MessageBuilder) WithCorrelationID(correlationID string) *MessageBuilder {
	mb.msg.Headers[HeaderCorrelationID] = correlationID
	return mb
}

func (mb *MessageBuilder) WithSource(source string) *MessageBuilder {
	mb.msg.Headers[HeaderSource] = source
	return mb
}

// Build returns the constructed message with event ID and timestamp headers
// guaranteed present.
func (mb *MessageBuilder) Build() Message {
	if mb.msg.Headers[HeaderEventID] == "" {
		mb.msg.Headers[HeaderEventID] = uuid.New().String()
	}

	if mb.msg.Headers[HeaderTimestamp] == "" {
		mb.msg.Headers[HeaderTimestamp] = mb.msg.Timestamp.Format(time.RFC3339)
	}

	return mb.msg
}

// DecodeValue decodes the message value into the provided struct
func (m *Message) DecodeValue(v interface{}) error {
	return json.Unmarshal(m.Value, v)
}

func (m *Message) GetHeader(key string) (string, bool) {
	value, exists := m.Headers[key]
	return value, exists
}

func (m *Message) GetEventID() string {
	return m.Headers[HeaderEventID]
}

func (m *Message) GetEventType() string {
	return m.Headers[HeaderEventType]
}

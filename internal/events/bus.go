package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Event is a recorded domain event.
type Event struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// EventStore defines the persistence operations required by the event bus.
// Append assigns the event ID.
type EventStore interface {
	Append(ctx context.Context, event Event) (Event, error)
}

// Notifier reacts to emitted events (e.g. logging, metrics, etc.).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus persists domain events and fans them out to downstream handlers.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
	Now       func() time.Time
}

// Emit records the event and dispatches it to all configured notifiers.
// Notifier failures are joined and returned alongside the stored event.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload any) (Event, error) {
	if b == nil || b.Store == nil {
		return Event{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if !slices.Contains(DefaultTopics(), topic) {
		return Event{}, fmt.Errorf("events: unknown topic %q", topic)
	}
	if strings.TrimSpace(aggregateID) == "" {
		return Event{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	ev, err := b.Store.Append(ctx, Event{
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     encoded,
		OccurredAt:  now().UTC(),
	})
	if err != nil {
		return Event{}, fmt.Errorf("events: persist event: %w", err)
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	case string:
		data = []byte(strings.TrimSpace(v))
	default:
		return json.Marshal(v)
	}
	if len(data) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(data) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), data...), nil
}

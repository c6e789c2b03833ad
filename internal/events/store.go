package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamStore appends events to a Redis stream per topic (events:<topic>).
type StreamStore struct {
	Client *redis.Client
	// MaxLen caps each stream approximately; zero keeps everything.
	MaxLen int64
}

func streamKey(topic string) string { return "events:" + topic }

// Append implements EventStore.
func (s StreamStore) Append(ctx context.Context, ev Event) (Event, error) {
	args := &redis.XAddArgs{
		Stream: streamKey(ev.Topic),
		Values: map[string]any{
			"aggregate_id": ev.AggregateID,
			"payload":      string(ev.Payload),
			"occurred_at":  ev.OccurredAt.Format(time.RFC3339Nano),
		},
	}
	if s.MaxLen > 0 {
		args.MaxLen = s.MaxLen
		args.Approx = true
	}
	id, err := s.Client.XAdd(ctx, args).Result()
	if err != nil {
		return Event{}, err
	}
	ev.ID = id
	return ev, nil
}

// Recent returns up to count events of a topic, newest first.
func (s StreamStore) Recent(ctx context.Context, topic string, count int64) ([]Event, error) {
	msgs, err := s.Client.XRevRangeN(ctx, streamKey(topic), "+", "-", count).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		ev := Event{ID: msg.ID, Topic: topic}
		if v, ok := msg.Values["aggregate_id"].(string); ok {
			ev.AggregateID = v
		}
		if v, ok := msg.Values["payload"].(string); ok {
			ev.Payload = json.RawMessage(v)
		}
		if v, ok := msg.Values["occurred_at"].(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				ev.OccurredAt = ts
			}
		}
		out = append(out, ev)
	}
	return out, nil
}

// MemoryStore keeps events in process.
type MemoryStore struct {
	mu     sync.Mutex
	seq    int
	events []Event
}

// Append implements EventStore.
func (m *MemoryStore) Append(_ context.Context, ev Event) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ev.ID = fmt.Sprintf("%d-%s", ev.OccurredAt.UnixMilli(), strconv.Itoa(m.seq))
	m.events = append(m.events, ev)
	return ev, nil
}

// Events returns a copy of the stored events, oldest first.
func (m *MemoryStore) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

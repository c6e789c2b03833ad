package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// Store persists cart line items between requests.
type Store interface {
	Load(ctx context.Context, cartID string) ([]LineItem, error)
	Save(ctx context.Context, cartID string, items []LineItem) error
	Delete(ctx context.Context, cartID string) error
}

// RedisStore keeps one JSON snapshot per cart with a sliding TTL.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
}

func (s RedisStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func cartKey(id string) string { return "cart:" + id }

// Load reads the snapshot and refreshes its TTL. A failed refresh is logged
// and the snapshot is still returned; the next Save resets the TTL anyway.
func (s RedisStore) Load(ctx context.Context, cartID string) ([]LineItem, error) {
	data, err := s.Client.Get(ctx, cartKey(cartID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	if err := s.Client.Expire(ctx, cartKey(cartID), s.ttl()).Err(); err != nil {
		s.Logger.Debug().Err(err).Str("cart_id", cartID).Msg("refresh cart ttl")
	}
	return items, nil
}

// Save overwrites the snapshot.
func (s RedisStore) Save(ctx context.Context, cartID string, items []LineItem) error {
	if items == nil {
		items = []LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, cartKey(cartID), data, s.ttl()).Err()
}

// Delete removes the snapshot.
func (s RedisStore) Delete(ctx context.Context, cartID string) error {
	n, err := s.Client.Del(ctx, cartKey(cartID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]byte)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, cartID string) ([]LineItem, error) {
	s.mu.RLock()
	data, ok := s.carts[cartID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, cartID string, items []LineItem) error {
	if items == nil {
		items = []LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.carts[cartID] = data
	s.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[cartID]; !ok {
		return ErrNotFound
	}
	delete(s.carts, cartID)
	return nil
}

package address

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store persists one address book per customer. Loading an unknown customer
// yields an empty book.
type Store interface {
	Load(ctx context.Context, customerID string) ([]Address, error)
	Save(ctx context.Context, customerID string, book []Address) error
}

// RedisStore keeps each address book as a JSON list without expiry.
type RedisStore struct {
	Client *redis.Client
}

func bookKey(customerID string) string { return "addresses:" + customerID }

// Load implements Store.
func (s RedisStore) Load(ctx context.Context, customerID string) ([]Address, error) {
	data, err := s.Client.Get(ctx, bookKey(customerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var book []Address
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, err
	}
	return book, nil
}

// Save implements Store. An empty book removes the key.
func (s RedisStore) Save(ctx context.Context, customerID string, book []Address) error {
	if len(book) == 0 {
		return s.Client.Del(ctx, bookKey(customerID)).Err()
	}
	data, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, bookKey(customerID), data, 0).Err()
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	books map[string][]Address
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{books: make(map[string][]Address)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, customerID string) ([]Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Address(nil), s.books[customerID]...), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, customerID string, book []Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(book) == 0 {
		delete(s.books, customerID)
		return nil
	}
	s.books[customerID] = append([]Address(nil), book...)
	return nil
}

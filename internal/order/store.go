package order

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
)

const ordersHashKey = "orders"

func customerOrdersKey(customerID string) string { return "orders:customer:" + customerID }

// RedisStore keeps orders as JSON in one hash keyed by order id, with a list
// of order ids per customer, newest first.
type RedisStore struct {
	Client *redis.Client
}

// Create implements Store.
func (s RedisStore) Create(ctx context.Context, o Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	ok, err := s.Client.HSetNX(ctx, ordersHashKey, o.ID, data).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateID
	}
	return s.Client.LPush(ctx, customerOrdersKey(o.CustomerID), o.ID).Err()
}

// ListByCustomer implements Store.
func (s RedisStore) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	ids, err := s.Client.LRange(ctx, customerOrdersKey(customerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Order{}, nil
	}
	raw, err := s.Client.HMGet(ctx, ordersHashKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(raw))
	for _, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var o Order
		if err := json.Unmarshal([]byte(str), &o); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Get implements Store.
func (s RedisStore) Get(ctx context.Context, customerID, orderID string) (Order, error) {
	data, err := s.Client.HGet(ctx, ordersHashKey, orderID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	var o Order
	if err := json.Unmarshal(data, &o); err != nil {
		return Order{}, err
	}
	if o.CustomerID != customerID {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]Order
	byCust map[string][]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]Order), byCust: make(map[string][]string)}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return ErrDuplicateID
	}
	o.Items = slices.Clone(o.Items)
	s.orders[o.ID] = o
	s.byCust[o.CustomerID] = append(s.byCust[o.CustomerID], o.ID)
	return nil
}

// ListByCustomer implements Store.
func (s *MemoryStore) ListByCustomer(_ context.Context, customerID string) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byCust[customerID]
	orders := make([]Order, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		o := s.orders[ids[i]]
		o.Items = slices.Clone(o.Items)
		orders = append(orders, o)
	}
	return orders, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, customerID, orderID string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok || o.CustomerID != customerID {
		return Order{}, ErrOrderNotFound
	}
	o.Items = slices.Clone(o.Items)
	return o, nil
}

package address

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chowpati-api/internal/common"
)

// PinCodeValidator checks that a pin code is inside the delivery area and
// returns it normalised.
type PinCodeValidator interface {
	Validate(ctx context.Context, pin string) (string, error)
}

// Locker serialises work on a key across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service manages customer address books.
type Service struct {
	Store    Store
	PinCodes PinCodeValidator
	Locker   Locker
	LockTTL  time.Duration
	Logger   zerolog.Logger
	NewID    func() string

	mu sync.Mutex
}

// List returns the customer's addresses in the order they were saved.
func (s *Service) List(ctx context.Context, customerID string) ([]Address, error) {
	customerID, err := s.customer(customerID)
	if err != nil {
		return nil, err
	}
	book, err := s.Store.Load(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load addresses: %w", err)
	}
	if book == nil {
		book = []Address{}
	}
	return book, nil
}

// Get returns one address of the customer.
func (s *Service) Get(ctx context.Context, customerID, id string) (Address, error) {
	book, err := s.List(ctx, customerID)
	if err != nil {
		return Address{}, err
	}
	i := indexOf(book, id)
	if i < 0 {
		return Address{}, ErrNotFound
	}
	return book[i], nil
}

// Default returns the address flagged as default, else the first saved one.
// It reports false when the book is empty.
func (s *Service) Default(ctx context.Context, customerID string) (Address, bool, error) {
	book, err := s.List(ctx, customerID)
	if err != nil || len(book) == 0 {
		return Address{}, false, err
	}
	for _, a := range book {
		if a.IsDefault {
			return a, true, nil
		}
	}
	return book[0], true, nil
}

// Add saves a new address. The first address of a customer becomes the
// default.
func (s *Service) Add(ctx context.Context, customerID string, in Input) (Address, error) {
	a, err := s.clean(ctx, Address{
		StreetAddress: in.StreetAddress,
		City:          in.City,
		PinCode:       in.PinCode,
		MobileNumber:  in.MobileNumber,
	})
	if err != nil {
		return Address{}, err
	}
	a.ID = s.newID()
	err = s.mutate(ctx, customerID, func(book []Address) ([]Address, error) {
		if len(book) >= MaxPerCustomer {
			return nil, ErrLimitReached
		}
		a.IsDefault = len(book) == 0
		return append(book, a), nil
	})
	if err != nil {
		return Address{}, err
	}
	return a, nil
}

// Update applies a partial change. Setting IsDefault clears the flag on every
// other address of the customer.
func (s *Service) Update(ctx context.Context, customerID, id string, p Patch) (Address, error) {
	var updated Address
	err := s.mutate(ctx, customerID, func(book []Address) ([]Address, error) {
		i := indexOf(book, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		a, err := s.clean(ctx, p.apply(book[i]))
		if err != nil {
			return nil, err
		}
		if p.IsDefault != nil {
			a.IsDefault = *p.IsDefault
			if a.IsDefault {
				for j := range book {
					book[j].IsDefault = false
				}
			}
		}
		book[i] = a
		updated = a
		return book, nil
	})
	if err != nil {
		return Address{}, err
	}
	return updated, nil
}

// SetDefault makes the address the customer's only default.
func (s *Service) SetDefault(ctx context.Context, customerID, id string) (Address, error) {
	isDefault := true
	return s.Update(ctx, customerID, id, Patch{IsDefault: &isDefault})
}

// Delete removes an address. Removing the default hands the flag to the
// first remaining address.
func (s *Service) Delete(ctx context.Context, customerID, id string) error {
	return s.mutate(ctx, customerID, func(book []Address) ([]Address, error) {
		i := indexOf(book, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		wasDefault := book[i].IsDefault
		book = slices.Delete(book, i, i+1)
		if wasDefault && len(book) > 0 {
			book[0].IsDefault = true
		}
		return book, nil
	})
}

// clean trims and normalises the fields, validates them and checks the pin
// code against the delivery area.
func (s *Service) clean(ctx context.Context, a Address) (Address, error) {
	a.StreetAddress = strings.TrimSpace(a.StreetAddress)
	a.City = strings.TrimSpace(a.City)
	a.MobileNumber = common.DigitsOnly(a.MobileNumber)
	a.PinCode = strings.TrimSpace(a.PinCode)
	if err := common.Validate(a.input()); err != nil {
		return Address{}, err
	}
	if s.PinCodes != nil {
		pin, err := s.PinCodes.Validate(ctx, a.PinCode)
		if err != nil {
			return Address{}, err
		}
		a.PinCode = pin
	} else {
		a.PinCode = common.DigitsOnly(a.PinCode)
	}
	return a, nil
}

func (s *Service) mutate(ctx context.Context, customerID string, fn func([]Address) ([]Address, error)) error {
	customerID, err := s.customer(customerID)
	if err != nil {
		return err
	}
	run := func(ctx context.Context) error {
		book, err := s.Store.Load(ctx, customerID)
		if err != nil {
			return fmt.Errorf("load addresses: %w", err)
		}
		book, err = fn(book)
		if err != nil {
			return err
		}
		if err := s.Store.Save(ctx, customerID, book); err != nil {
			return fmt.Errorf("save addresses: %w", err)
		}
		s.Logger.Debug().Str("customer_id", customerID).Int("addresses", len(book)).Msg("address book saved")
		return nil
	}
	if s.Locker != nil {
		return s.Locker.WithLock(ctx, "lock:addresses:"+customerID, s.lockTTL(), run)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return run(ctx)
}

func (s *Service) customer(customerID string) (string, error) {
	if s == nil || s.Store == nil {
		return "", errors.New("address service not configured")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", ErrCustomerRequired
	}
	return customerID, nil
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 5 * time.Second
	}
	return s.LockTTL
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func indexOf(book []Address, id string) int {
	return slices.IndexFunc(book, func(a Address) bool { return a.ID == id })
}

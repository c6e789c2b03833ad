package address

import (
	"errors"
	"strings"
)

// MaxPerCustomer caps the size of one customer's address book.
const MaxPerCustomer = 20

var (
	// ErrNotFound is returned when the address does not belong to the customer.
	ErrNotFound = errors.New("address not found")
	// ErrCustomerRequired is returned when no customer id is given.
	ErrCustomerRequired = errors.New("customer id is required")
	// ErrLimitReached is returned when the address book is full.
	ErrLimitReached = errors.New("address book is full")
)

// Address is a saved delivery address. At most one address of a customer is
// the default.
type Address struct {
	ID            string `json:"id"`
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	PinCode       string `json:"pinCode"`
	MobileNumber  string `json:"mobileNumber,omitempty"`
	IsDefault     bool   `json:"isDefault"`
}

// Format renders the address on one line, the way it is printed on orders.
func (a Address) Format() string {
	var b strings.Builder
	b.WriteString(a.StreetAddress)
	if a.City != "" {
		b.WriteString(", ")
		b.WriteString(a.City)
	}
	b.WriteString(", ")
	b.WriteString(a.PinCode)
	if a.MobileNumber != "" {
		b.WriteString(" (Mobile: ")
		b.WriteString(a.MobileNumber)
		b.WriteString(")")
	}
	return b.String()
}

// Input holds the editable fields of an address.
type Input struct {
	StreetAddress string `json:"streetAddress" validate:"required,max=300"`
	City          string `json:"city" validate:"max=100"`
	PinCode       string `json:"pinCode" validate:"required"`
	MobileNumber  string `json:"mobileNumber" validate:"omitempty,mobile"`
}

// Patch is a partial update. Nil fields keep their value; an empty mobile
// number removes it.
type Patch struct {
	StreetAddress *string `json:"streetAddress"`
	City          *string `json:"city"`
	PinCode       *string `json:"pinCode"`
	MobileNumber  *string `json:"mobileNumber"`
	IsDefault     *bool   `json:"isDefault"`
}

func (p Patch) apply(a Address) Address {
	if p.StreetAddress != nil {
		a.StreetAddress = *p.StreetAddress
	}
	if p.City != nil {
		a.City = *p.City
	}
	if p.PinCode != nil {
		a.PinCode = *p.PinCode
	}
	if p.MobileNumber != nil {
		a.MobileNumber = *p.MobileNumber
	}
	return a
}

func (a Address) input() Input {
	return Input{
		StreetAddress: a.StreetAddress,
		City:          a.City,
		PinCode:       a.PinCode,
		MobileNumber:  a.MobileNumber,
	}
}

package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryConeCandy tags the count-based cone and kulfi range.
const CategoryConeCandy = "ConeCandy"

// Product is a catalog entry with one or more purchasable sizes.
type Product struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Image       string        `json:"image"`
	Cover       string        `json:"cover,omitempty"`
	Sizes       []ProductSize `json:"sizes"`
}

// ProductSize is one purchasable variant of a product. Price is the base
// (wholesale) unit price; MRP is the optional retail price.
type ProductSize struct {
	Size  string           `json:"size"`
	Price decimal.Decimal  `json:"price"`
	MRP   *decimal.Decimal `json:"mrp,omitempty"`
}

// RetailPrice returns the MRP, falling back to Price when the MRP is absent or zero.
func (s ProductSize) RetailPrice() decimal.Decimal {
	if s.MRP == nil || s.MRP.IsZero() {
		return s.Price
	}
	return *s.MRP
}

// SizeByLabel returns the size variant with the exact label.
func (p Product) SizeByLabel(label string) (ProductSize, bool) {
	for _, s := range p.Sizes {
		if s.Size == label {
			return s, true
		}
	}
	return ProductSize{}, false
}

// hasSizeFold reports whether the product offers the size, ignoring case.
func (p Product) hasSizeFold(label string) bool {
	for _, s := range p.Sizes {
		if strings.EqualFold(s.Size, label) {
			return true
		}
	}
	return false
}

package pricing

import (
	"github.com/shopspring/decimal"
)

// WholesaleThreshold is the 5-liter tier volume, in liters, at which the
// whole cart switches to wholesale pricing.
const WholesaleThreshold = 10

// fiveLiterUnit is what one 5-liter tier unit adds to the tier accumulator.
const fiveLiterUnit = 5

// Line describes a line item used for pricing calculation.
type Line struct {
	Category string
	Size     string
	Price    decimal.Decimal
	MRP      *decimal.Decimal
	Qty      int
}

// Summary aggregates the derived cart totals.
type Summary struct {
	TotalItems      int             `json:"totalItems"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	TotalVolume     float64         `json:"totalVolume"`
	TotalCountItems int             `json:"totalCountItems"`
	FiveLiterVolume float64         `json:"fiveLiterVolume"`
	IsWholesale     bool            `json:"isWholesale"`
}

// Compute derives all totals over the full set of lines. The wholesale flag is
// decided once for the whole cart before any line is priced.
func Compute(lines []Line) Summary {
	var sum Summary
	for _, l := range lines {
		sum.TotalItems += l.Qty
		if IsCountBased(l.Category) {
			sum.TotalCountItems += l.Qty
			continue
		}
		if liters, ok := Liters(l.Size); ok {
			sum.TotalVolume += liters * float64(l.Qty)
		}
		if IsFiveLiterTier(l.Size) {
			sum.FiveLiterVolume += float64(fiveLiterUnit * l.Qty)
		}
	}
	sum.IsWholesale = sum.FiveLiterVolume >= WholesaleThreshold

	sum.TotalAmount = decimal.Zero
	for _, l := range lines {
		sum.TotalAmount = sum.TotalAmount.Add(UnitPrice(l, sum.IsWholesale).Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return sum
}

// UnitPrice returns the chargeable unit price of a line under the cart-wide
// wholesale flag. Only liquid 5-liter tier lines ever get the base price.
func UnitPrice(l Line, wholesale bool) decimal.Decimal {
	if wholesale && !IsCountBased(l.Category) && IsFiveLiterTier(l.Size) {
		return l.Price
	}
	return RetailPrice(l.Price, l.MRP)
}

// RetailPrice returns mrp, or price when mrp is absent or zero.
func RetailPrice(price decimal.Decimal, mrp *decimal.Decimal) decimal.Decimal {
	if mrp == nil || mrp.IsZero() {
		return price
	}
	return *mrp
}

// Shortfall reports how many liters of 5-liter tier product are still needed
// before wholesale pricing applies. It is zero once wholesale is active and
// when the cart holds no 5-liter tier product at all.
func Shortfall(sum Summary) float64 {
	if sum.IsWholesale || sum.FiveLiterVolume <= 0 {
		return 0
	}
	return WholesaleThreshold - sum.FiveLiterVolume
}

package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chowpati-api/internal/pricing"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestIsCountBased(t *testing.T) {
	cases := map[string]bool{
		"cone":      true,
		"Cone":      true,
		"CANDY":     true,
		"stick":     true,
		"Cup":       true,
		"ConeCandy": true,
		"conecandy": false,
		"CONECANDY": false,
		"IceCreame": false,
		"":          false,
		"cones":     false,
	}
	for category, want := range cases {
		require.Equal(t, want, pricing.IsCountBased(category), category)
	}
}

func TestLiters(t *testing.T) {
	cases := []struct {
		size string
		want float64
		ok   bool
	}{
		{"5 Litre", 5, true},
		{"750 ML", 0.75, true},
		{"750ml", 0.75, true},
		{"5.5 Litre", 5.5, true},
		{"1.5.2 L", 1.5, true},
		{".5 L", 0.5, true},
		{"8", 8, true},
		{"Regular", 0, false},
		{"", 0, false},
		{"ml", 0, false},
	}
	for _, tc := range cases {
		got, ok := pricing.Liters(tc.size)
		require.Equal(t, tc.ok, ok, tc.size)
		require.InDelta(t, tc.want, got, 1e-9, tc.size)
	}
}

func TestIsFiveLiterTier(t *testing.T) {
	matches := []string{"5", "5L", "5 L", "5 Litre", "5 litre", " 5 Litre ", "5 Liter", "5 liters", "15 liter"}
	for _, s := range matches {
		require.True(t, pricing.IsFiveLiterTier(s), s)
	}
	misses := []string{"5.5 Litre", "750 ML", "5 Ltr", "10 L", "Regular", "5litre"}
	for _, s := range misses {
		require.False(t, pricing.IsFiveLiterTier(s), s)
	}
}

func TestComputeWholesaleThreshold(t *testing.T) {
	five := pricing.Line{Category: "IceCreame", Size: "5 Litre", Price: dec(550), MRP: decPtr(700)}

	one := five
	one.Qty = 1
	sum := pricing.Compute([]pricing.Line{one})
	require.False(t, sum.IsWholesale)
	require.Equal(t, 5.0, sum.FiveLiterVolume)
	require.True(t, sum.TotalAmount.Equal(dec(700)))
	require.Equal(t, 5.0, pricing.Shortfall(sum))

	two := five
	two.Qty = 2
	sum = pricing.Compute([]pricing.Line{two})
	require.True(t, sum.IsWholesale)
	require.Equal(t, 10.0, sum.TotalVolume)
	require.True(t, sum.TotalAmount.Equal(dec(1100)))
	require.Zero(t, pricing.Shortfall(sum))
}

func TestComputeWholesaleOnlyForFiveLiterLines(t *testing.T) {
	lines := []pricing.Line{
		{Category: "IceCreame", Size: "5 Litre", Price: dec(550), MRP: decPtr(700), Qty: 2},
		{Category: "IceCreame", Size: "750 ML", Price: dec(120), MRP: decPtr(135), Qty: 1},
		{Category: "IceCreame", Size: "5.5 Litre", Price: dec(600), MRP: decPtr(800), Qty: 1},
		{Category: "ConeCandy", Size: "8", Price: dec(160), Qty: 3},
	}
	sum := pricing.Compute(lines)
	require.True(t, sum.IsWholesale)
	require.Equal(t, 7, sum.TotalItems)
	require.Equal(t, 3, sum.TotalCountItems)
	require.InDelta(t, 10+0.75+5.5, sum.TotalVolume, 1e-9)
	require.Equal(t, 10.0, sum.FiveLiterVolume)
	// 550*2 + 135 + 800 + 160*3
	require.True(t, sum.TotalAmount.Equal(dec(2515)), sum.TotalAmount.String())
}

func TestComputeCountBasedFiveIgnored(t *testing.T) {
	lines := []pricing.Line{{Category: "cone", Size: "5", Price: dec(10), Qty: 4}}
	sum := pricing.Compute(lines)
	require.Zero(t, sum.TotalVolume)
	require.Zero(t, sum.FiveLiterVolume)
	require.False(t, sum.IsWholesale)
	require.Zero(t, pricing.Shortfall(sum))
}

func TestRetailPriceFallsBackOnZeroMRP(t *testing.T) {
	require.True(t, pricing.RetailPrice(dec(90), nil).Equal(dec(90)))
	require.True(t, pricing.RetailPrice(dec(90), decPtr(0)).Equal(dec(90)))
	require.True(t, pricing.RetailPrice(dec(90), decPtr(100)).Equal(dec(100)))
}

func TestComputeEmpty(t *testing.T) {
	sum := pricing.Compute(nil)
	require.Zero(t, sum.TotalItems)
	require.True(t, sum.TotalAmount.IsZero())
	require.False(t, sum.IsWholesale)
}

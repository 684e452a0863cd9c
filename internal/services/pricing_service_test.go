package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ambre/internal/models"
)

func variantFixture(price string, stock int) *models.ProductVariant {
	id := uuid.New()
	productID := uuid.New()
	return &models.ProductVariant{
		BaseModel:     models.BaseModel{ID: id},
		ProductID:     &productID,
		Product:       &models.Product{BaseModel: models.BaseModel{ID: productID}, Name: "Nuit Ambrée", IsActive: true},
		SKU:           "SKU-" + id.String()[:8],
		Label:         "50ml",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
}

func TestComputeLineSnapshotsPricesFromCatalog(t *testing.T) {
	catalog := newFakeCatalog()
	variant := variantFixture("49.99", 10)
	catalog.variants[variant.ID] = variant

	pricing := NewPricingService(catalog)

	snapshots, subtotal, err := pricing.ComputeLineSnapshots(context.Background(), []CartLine{
		{VariantID: variant.ID, Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	assert.Equal(t, "99.98", subtotal.StringFixed(2))
	assert.Equal(t, "49.99", snapshots[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "99.98", snapshots[0].LineTotal.StringFixed(2))
	assert.Equal(t, "Nuit Ambrée", snapshots[0].ProductName)
	assert.Equal(t, "50ml", snapshots[0].VariantLabel)
}

func TestComputeLineSnapshotsUnknownVariant(t *testing.T) {
	pricing := NewPricingService(newFakeCatalog())

	_, _, err := pricing.ComputeLineSnapshots(context.Background(), []CartLine{
		{VariantID: uuid.New(), Quantity: 1},
	})

	var invalid *InvalidItemError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "variant not found", invalid.Reason)
}

func TestComputeLineSnapshotsRejectsZeroQuantity(t *testing.T) {
	catalog := newFakeCatalog()
	variant := variantFixture("10.00", 5)
	catalog.variants[variant.ID] = variant

	pricing := NewPricingService(catalog)

	_, _, err := pricing.ComputeLineSnapshots(context.Background(), []CartLine{
		{VariantID: variant.ID, Quantity: 0},
	})

	var invalid *InvalidItemError
	require.True(t, errors.As(err, &invalid))
}

func TestTotalsForAddsShippingAfterDiscount(t *testing.T) {
	subtotal := decimal.RequireFromString("99.98")
	discount := decimal.RequireFromString("10.00")
	shipping := decimal.RequireFromString("4.99")

	_, _, total := TotalsFor(subtotal, discount, shipping)
	assert.Equal(t, "94.97", total.StringFixed(2))
}

func TestTotalsForDiscountLargerThanSubtotal(t *testing.T) {
	// A discount that exceeds the goods value clamps the goods portion to
	// zero; shipping is still charged on top.
	subtotal := decimal.RequireFromString("49.99")
	discount := decimal.RequireFromString("1000.00")

	_, _, total := TotalsFor(subtotal, discount, decimal.Zero)
	assert.Equal(t, "0.00", total.StringFixed(2))

	_, _, withShipping := TotalsFor(subtotal, discount, decimal.RequireFromString("4.99"))
	assert.Equal(t, "4.99", withShipping.StringFixed(2))
}

func TestTotalsForClampsNegativeInputs(t *testing.T) {
	subtotal := decimal.RequireFromString("20.00")

	discount, shipping, total := TotalsFor(subtotal, decimal.RequireFromString("-5.00"), decimal.RequireFromString("-3.00"))
	assert.True(t, discount.IsZero())
	assert.True(t, shipping.IsZero())
	assert.Equal(t, "20.00", total.StringFixed(2))
}

func TestComputeOrderTotalsEndToEnd(t *testing.T) {
	catalog := newFakeCatalog()
	variant := variantFixture("49.99", 10)
	catalog.variants[variant.ID] = variant

	pricing := NewPricingService(catalog)

	totals, err := pricing.ComputeOrderTotals(context.Background(),
		[]CartLine{{VariantID: variant.ID, Quantity: 2}},
		decimal.Zero, decimal.RequireFromString("4.99"))
	require.NoError(t, err)

	assert.Equal(t, "99.98", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "104.97", totals.Total.StringFixed(2))
	assert.Len(t, totals.Lines, 1)
}

package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one requested order line. It deliberately carries no price:
// unit prices come exclusively from the catalog.
type CartLine struct {
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

// LineSnapshot is a priced order line frozen against the catalog at the
// moment of computation.
type LineSnapshot struct {
	ProductID    *uuid.UUID
	VariantID    uuid.UUID
	ProductName  string
	VariantLabel string
	Quantity     int
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
}

// OrderTotals is the result of the pricing computation. All figures are
// rounded to two decimal places.
type OrderTotals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingCost   decimal.Decimal
	Total          decimal.Decimal
	Lines          []LineSnapshot
}

// InvalidItemError marks a cart line that cannot be priced.
type InvalidItemError struct {
	VariantID uuid.UUID
	Reason    string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid item %s: %s", e.VariantID, e.Reason)
}

// PricingService computes order totals from the catalog's stored prices.
// It has no side effects.
type PricingService struct {
	catalog CatalogLookup
}

// NewPricingService constructs PricingService.
func NewPricingService(catalog CatalogLookup) *PricingService {
	return &PricingService{catalog: catalog}
}

// ComputeLineSnapshots prices each requested line against the catalog and
// returns the snapshots plus their subtotal.
func (s *PricingService) ComputeLineSnapshots(ctx context.Context, lines []CartLine) ([]LineSnapshot, decimal.Decimal, error) {
	snapshots := make([]LineSnapshot, 0, len(lines))
	subtotal := decimal.Zero

	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, decimal.Zero, &InvalidItemError{VariantID: line.VariantID, Reason: "quantity must be at least 1"}
		}

		variant, err := s.catalog.GetVariant(ctx, line.VariantID)
		if err != nil {
			if err == ErrVariantNotFound {
				return nil, decimal.Zero, &InvalidItemError{VariantID: line.VariantID, Reason: "variant not found"}
			}
			return nil, decimal.Zero, err
		}

		lineTotal := variant.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)

		snapshot := LineSnapshot{
			ProductID:    variant.ProductID,
			VariantID:    variant.ID,
			VariantLabel: variant.Label,
			Quantity:     line.Quantity,
			UnitPrice:    variant.Price.Round(2),
			LineTotal:    lineTotal,
		}
		if variant.Product != nil {
			snapshot.ProductName = variant.Product.Name
		}

		snapshots = append(snapshots, snapshot)
		subtotal = subtotal.Add(lineTotal)
	}

	return snapshots, subtotal.Round(2), nil
}

// TotalsFor applies the discount and shipping rules to a subtotal.
// Negative inputs clamp to zero, and the discounted subtotal clamps to zero
// before shipping is added, so the total is never negative.
func TotalsFor(subtotal, discount, shipping decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if shipping.IsNegative() {
		shipping = decimal.Zero
	}

	discounted := subtotal.Sub(discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}

	total := discounted.Add(shipping).Round(2)
	return discount.Round(2), shipping.Round(2), total
}

// ComputeOrderTotals prices the cart and folds in discount and shipping.
func (s *PricingService) ComputeOrderTotals(ctx context.Context, lines []CartLine, discount, shipping decimal.Decimal) (*OrderTotals, error) {
	snapshots, subtotal, err := s.ComputeLineSnapshots(ctx, lines)
	if err != nil {
		return nil, err
	}

	discount, shipping, total := TotalsFor(subtotal, discount, shipping)

	return &OrderTotals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingCost:   shipping,
		Total:          total,
		Lines:          snapshots,
	}, nil
}

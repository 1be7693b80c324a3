package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/weihengtan/motormart-backend/pkg/config"
)

// Totals is the frozen pricing breakdown for one order. Every field is
// computed once at settlement and never recomputed afterwards.
type Totals struct {
	SubtotalCents       int64
	DiscountCents       int64
	PlatformFeeCents    int64
	TaxCents            int64
	TotalCents          int64
	SellerEarningsCents int64
	OperatorFeeCents    int64
}

// ComputeTotals derives the full breakdown from a subtotal and a discount.
// The platform fee applies to the discounted subtotal and the tax applies to
// the fee-inclusive amount, so the two rates compound rather than add. The
// operator fee is the remainder after the seller share so the split always
// sums to the total exactly.
func ComputeTotals(subtotalCents, discountCents int64, cfg config.CheckoutConfig) Totals {
	if discountCents < 0 {
		discountCents = 0
	}
	if discountCents > subtotalCents {
		discountCents = subtotalCents
	}

	discounted := subtotalCents - discountCents
	fee := applyBps(discounted, cfg.PlatformFeeBps)
	tax := applyBps(discounted+fee, cfg.TaxBps)
	total := discounted + fee + tax
	earnings := applyBps(total, cfg.SellerShareBps)

	return Totals{
		SubtotalCents:       subtotalCents,
		DiscountCents:       discountCents,
		PlatformFeeCents:    fee,
		TaxCents:            tax,
		TotalCents:          total,
		SellerEarningsCents: earnings,
		OperatorFeeCents:    total - earnings,
	}
}

func applyBps(amountCents int64, bps int) int64 {
	return decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}

// allocateProportionally splits total across the weights using cumulative
// rounding, so the parts always sum to total even when individual shares do
// not divide evenly.
func allocateProportionally(weights []int64, total int64) []int64 {
	parts := make([]int64, len(weights))
	if len(weights) == 0 {
		return parts
	}

	var weightSum int64
	for _, w := range weights {
		weightSum += w
	}
	if weightSum <= 0 {
		parts[len(parts)-1] = total
		return parts
	}

	var consumed, allocated int64
	for i, w := range weights {
		consumed += w
		target := decimal.NewFromInt(total).
			Mul(decimal.NewFromInt(consumed)).
			Div(decimal.NewFromInt(weightSum)).
			Round(0).
			IntPart()
		parts[i] = target - allocated
		allocated = target
	}
	return parts
}

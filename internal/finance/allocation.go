package finance

import "github.com/shopspring/decimal"

// Allocation is the split of a received amount across debt components.
type Allocation struct {
	PaidPrincipal decimal.Decimal `json:"paid_principal"`
	PaidInterest  decimal.Decimal `json:"paid_interest"`
	PaidLateFee   decimal.Decimal `json:"paid_late_fee"`
}

// Total is the amount actually consumed by the allocation.
func (a Allocation) Total() decimal.Decimal {
	return a.PaidPrincipal.Add(a.PaidInterest).Add(a.PaidLateFee)
}

// Allocate applies a received amount to an outstanding balance using the
// fixed waterfall: interest, then late fee, then principal. Accrued yield is
// recovered before capital; changing this order changes revenue recognition.
// Any amount beyond the total owed is left unconsumed for the caller to
// handle.
func Allocate(amount decimal.Decimal, balance Balance) Allocation {
	remaining := ClampZero(amount)

	paidInterest := decimal.Min(remaining, ClampZero(balance.InterestRemaining))
	remaining = remaining.Sub(paidInterest)

	paidLateFee := decimal.Min(remaining, ClampZero(balance.LateFeeRemaining))
	remaining = remaining.Sub(paidLateFee)

	paidPrincipal := decimal.Min(remaining, ClampZero(balance.PrincipalRemaining))

	return Allocation{
		PaidPrincipal: Round2(paidPrincipal),
		PaidInterest:  Round2(paidInterest),
		PaidLateFee:   Round2(paidLateFee),
	}
}

// Renew is the "pay to extend" operation: it clears interest and late fee in
// full and leaves principal untouched. The caller supplies the new due date.
func Renew(balance Balance) Allocation {
	return Allocation{
		PaidPrincipal: decimal.Zero,
		PaidInterest:  Round2(ClampZero(balance.InterestRemaining)),
		PaidLateFee:   Round2(ClampZero(balance.LateFeeRemaining)),
	}
}

package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle selects how contractual interest accrues on a loan.
type BillingCycle string

const (
	// CycleMonthly has fixed installments with interest scheduled at origination.
	CycleMonthly BillingCycle = "monthly"
	// CycleDailyFree accrues daily interest with no fixed maturity.
	CycleDailyFree BillingCycle = "daily_free"
	// CycleDailyFixedTerm accrues daily interest toward a fixed maturity date.
	CycleDailyFixedTerm BillingCycle = "daily_fixed_term"
)

// Forgiveness selects which late-fee components are waived for a computation.
// "Interest" here is the daily mora penalty, not the contractual interest,
// which is never forgivable.
type Forgiveness string

const (
	ForgivenessNone         Forgiveness = "none"
	ForgivenessFineOnly     Forgiveness = "fine_only"
	ForgivenessInterestOnly Forgiveness = "interest_only"
	ForgivenessBoth         Forgiveness = "both"
)

// LoanTerms is the immutable contractual side of a loan, as the calculators
// need it. Rates are plain percentages: 10 means 10%.
type LoanTerms struct {
	Principal            decimal.Decimal
	MonthlyInterestRate  decimal.Decimal
	FinePercent          decimal.Decimal
	DailyInterestPercent decimal.Decimal
	BillingCycle         BillingCycle
	StartDate            time.Time
}

// Validate fails fast on structurally required invariants. Fine and mora
// percentages are optional and may be zero.
func (t LoanTerms) Validate() error {
	if !t.Principal.IsPositive() {
		return errInvalid("principal", "deve ser maior que zero")
	}
	if t.MonthlyInterestRate.IsNegative() {
		return errInvalid("interest_rate", "não pode ser negativa")
	}
	if t.FinePercent.IsNegative() {
		return errInvalid("fine_percent", "não pode ser negativo")
	}
	if t.DailyInterestPercent.IsNegative() {
		return errInvalid("daily_interest_percent", "não pode ser negativo")
	}
	if t.StartDate.IsZero() {
		return errInvalid("start_date", "é obrigatória")
	}
	switch t.BillingCycle {
	case CycleMonthly, CycleDailyFree, CycleDailyFixedTerm:
	default:
		return errInvalid("billing_cycle", "ciclo de cobrança desconhecido")
	}
	return nil
}

// InstallmentSnapshot is the mutable side of one installment at the moment of
// computation. LastSettledAt anchors daily-cycle interest accrual; when nil,
// accrual starts at the loan's start date.
type InstallmentSnapshot struct {
	DueDate            time.Time
	ScheduledPrincipal decimal.Decimal
	ScheduledInterest  decimal.Decimal
	PrincipalRemaining decimal.Decimal
	InterestRemaining  decimal.Decimal
	LateFeeAccrued     decimal.Decimal
	PaidTotal          decimal.Decimal
	LastSettledAt      *time.Time
}

// DebtBreakdown is the outstanding debt of one installment as of a reference
// date, split by component. Every amount is rounded to 2 places and ≥ 0.
type DebtBreakdown struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Fine      decimal.Decimal `json:"fine"`
	DailyMora decimal.Decimal `json:"daily_mora"`
	Total     decimal.Decimal `json:"total"`
	DaysLate  int             `json:"days_late"`
}

// LateFee is the fine plus the accumulated daily mora.
func (b DebtBreakdown) LateFee() decimal.Decimal {
	return b.Fine.Add(b.DailyMora)
}

// DaysLate returns how many whole days the reference date is past the due
// date, floored at zero.
func DaysLate(referenceDate, dueDate time.Time) int {
	d := DaysUntilDue(dueDate, referenceDate)
	if d >= 0 {
		return 0
	}
	return -d
}

// ComputeDebt accrues interest and late fees on one installment as of the
// reference date. Pure: identical inputs always produce identical output.
func ComputeDebt(terms LoanTerms, inst InstallmentSnapshot, referenceDate time.Time, forgiveness Forgiveness) (DebtBreakdown, error) {
	if err := terms.Validate(); err != nil {
		return DebtBreakdown{}, err
	}
	if inst.DueDate.IsZero() {
		return DebtBreakdown{}, errInvalid("due_date", "é obrigatória")
	}
	if referenceDate.IsZero() {
		return DebtBreakdown{}, errInvalid("reference_date", "é obrigatória")
	}
	if !TruncateToDay(terms.StartDate).Before(TruncateToDay(inst.DueDate)) {
		return DebtBreakdown{}, errInvalid("due_date", "deve ser posterior à data de início")
	}
	switch forgiveness {
	case ForgivenessNone, ForgivenessFineOnly, ForgivenessInterestOnly, ForgivenessBoth:
	default:
		return DebtBreakdown{}, errInvalid("forgiveness", "modo de perdão desconhecido")
	}

	daysLate := DaysLate(referenceDate, inst.DueDate)
	principal := Round2(ClampZero(inst.PrincipalRemaining))

	interest, err := accrueContractualInterest(terms, inst, referenceDate, principal)
	if err != nil {
		return DebtBreakdown{}, err
	}

	fine := decimal.Zero
	mora := decimal.Zero
	if daysLate > 0 {
		// Fixed fine charged once, daily mora compounding linearly per day late.
		fine = Round2(percentOf(principal, terms.FinePercent))
		mora = Round2(percentOf(principal, terms.DailyInterestPercent).Mul(decimal.NewFromInt(int64(daysLate))))
	}

	// Forgiveness waives late penalties only, never contractual interest.
	switch forgiveness {
	case ForgivenessFineOnly:
		fine = decimal.Zero
	case ForgivenessInterestOnly:
		mora = decimal.Zero
	case ForgivenessBoth:
		fine = decimal.Zero
		mora = decimal.Zero
	}

	return DebtBreakdown{
		Principal: principal,
		Interest:  interest,
		Fine:      fine,
		DailyMora: mora,
		Total:     principal.Add(interest).Add(fine).Add(mora),
		DaysLate:  daysLate,
	}, nil
}

// accrueContractualInterest computes the interest component per billing cycle.
// Monthly cycles carry the interest scheduled at origination; daily cycles
// accrue principal × (monthlyRate/100/30) per elapsed day since the last
// settlement (or the loan start when nothing was settled yet).
func accrueContractualInterest(terms LoanTerms, inst InstallmentSnapshot, referenceDate time.Time, principal decimal.Decimal) (decimal.Decimal, error) {
	switch terms.BillingCycle {
	case CycleMonthly:
		return Round2(ClampZero(inst.InterestRemaining)), nil
	case CycleDailyFree, CycleDailyFixedTerm:
		anchor := terms.StartDate
		if inst.LastSettledAt != nil {
			anchor = *inst.LastSettledAt
		}
		days := int64(TruncateToDay(referenceDate).Sub(TruncateToDay(anchor)).Hours() / 24)
		if days <= 0 {
			return decimal.Zero, nil
		}
		dailyRate := terms.MonthlyInterestRate.Div(oneHundred).Div(daysPerMonth)
		return Round2(principal.Mul(dailyRate).Mul(decimal.NewFromInt(days))), nil
	default:
		return decimal.Zero, errInvalid("billing_cycle", "ciclo de cobrança desconhecido")
	}
}

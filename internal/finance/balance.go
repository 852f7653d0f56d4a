package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is the per-installment lifecycle bucket.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPartial InstallmentStatus = "partial"
	InstallmentLate    InstallmentStatus = "late"
	InstallmentPaid    InstallmentStatus = "paid"
)

// LoanStatus is the loan lifecycle state derived from installment balances
// and any active renegotiation.
type LoanStatus string

const (
	LoanActive  LoanStatus = "active"
	LoanOverdue LoanStatus = "overdue"
	LoanLegal   LoanStatus = "legal"
	LoanPaid    LoanStatus = "paid"
)

// Balance is the clamped sum of outstanding components across installments.
type Balance struct {
	PrincipalRemaining decimal.Decimal `json:"principal_remaining"`
	InterestRemaining  decimal.Decimal `json:"interest_remaining"`
	LateFeeRemaining   decimal.Decimal `json:"late_fee_remaining"`
	TotalRemaining     decimal.Decimal `json:"total_remaining"`
}

// LoanSnapshot is the read-only view of a loan the status resolver needs.
type LoanSnapshot struct {
	Installments    []InstallmentSnapshot
	AgreementActive bool
}

// RemainingBalance sums outstanding principal, interest and late fee across
// installments. Each component is clamped at zero before summing, so a
// recomputation can never manufacture negative debt.
func RemainingBalance(installments []InstallmentSnapshot) Balance {
	b := Balance{
		PrincipalRemaining: decimal.Zero,
		InterestRemaining:  decimal.Zero,
		LateFeeRemaining:   decimal.Zero,
	}
	for _, inst := range installments {
		b.PrincipalRemaining = b.PrincipalRemaining.Add(ClampZero(inst.PrincipalRemaining))
		b.InterestRemaining = b.InterestRemaining.Add(ClampZero(inst.InterestRemaining))
		b.LateFeeRemaining = b.LateFeeRemaining.Add(ClampZero(inst.LateFeeAccrued))
	}
	b.PrincipalRemaining = Round2(b.PrincipalRemaining)
	b.InterestRemaining = Round2(b.InterestRemaining)
	b.LateFeeRemaining = Round2(b.LateFeeRemaining)
	b.TotalRemaining = b.PrincipalRemaining.Add(b.InterestRemaining).Add(b.LateFeeRemaining)
	return b
}

// Outstanding returns the total still owed on a single installment.
func (i InstallmentSnapshot) Outstanding() decimal.Decimal {
	return ClampZero(i.PrincipalRemaining).
		Add(ClampZero(i.InterestRemaining)).
		Add(ClampZero(i.LateFeeAccrued))
}

// ResolveInstallmentStatus buckets one installment as of a reference date.
func ResolveInstallmentStatus(inst InstallmentSnapshot, referenceDate time.Time) InstallmentStatus {
	outstanding := inst.Outstanding()
	if IsSettled(outstanding) {
		return InstallmentPaid
	}
	if DaysLate(referenceDate, inst.DueDate) > 0 {
		return InstallmentLate
	}
	if inst.PaidTotal.IsPositive() {
		return InstallmentPartial
	}
	return InstallmentPending
}

// ResolveLoanStatus derives the loan lifecycle state. Evaluation order is
// strict: a settled balance wins over everything, an active renegotiation
// overrides per-installment lateness, and only then does lateness surface.
func ResolveLoanStatus(loan LoanSnapshot, referenceDate time.Time) LoanStatus {
	balance := RemainingBalance(loan.Installments)
	if IsSettled(balance.TotalRemaining) {
		return LoanPaid
	}
	if loan.AgreementActive {
		return LoanLegal
	}
	for _, inst := range loan.Installments {
		if ResolveInstallmentStatus(inst, referenceDate) == InstallmentLate {
			return LoanOverdue
		}
	}
	return LoanActive
}

// IsLegallyActionable reports whether collection/legal action may be taken:
// the loan is overdue or under renegotiation, and real debt remains. The
// caller owns the decision; this only supplies the gate.
func IsLegallyActionable(loan LoanSnapshot, referenceDate time.Time) bool {
	status := ResolveLoanStatus(loan, referenceDate)
	if status != LoanOverdue && status != LoanLegal {
		return false
	}
	return RemainingBalance(loan.Installments).TotalRemaining.GreaterThan(SettlementTolerance)
}

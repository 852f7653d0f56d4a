package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cobrafacil/cobranca-api/internal/finance"
)

// Installment is one scheduled repayment of a loan. Money is conserved per
// component: paid + remaining always equals everything ever scheduled or
// accrued for that component.
type Installment struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	LoanID             uint            `gorm:"not null;index" json:"loan_id"`
	Number             int             `gorm:"not null" json:"number"`
	DueDate            time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	ScheduledPrincipal decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"scheduled_principal"`
	ScheduledInterest  decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"scheduled_interest"`
	PrincipalRemaining decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"principal_remaining"`
	InterestRemaining  decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"interest_remaining"`
	LateFeeAccrued     decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"late_fee_accrued"`
	PaidPrincipal      decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"paid_principal"`
	PaidInterest       decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"paid_interest"`
	PaidLateFee        decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"paid_late_fee"`
	PaidTotal          decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"paid_total"`
	Status             string          `gorm:"default:pending;not null;index" json:"status"`
	LastSettledAt      *time.Time      `gorm:"type:date" json:"last_settled_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Associations
	Loan Loan `gorm:"foreignKey:LoanID" json:"-"`
}

// TableName specifies the table name for Installment
func (Installment) TableName() string {
	return "installments"
}

// Installment status constants
const (
	InstallmentStatusPending = string(finance.InstallmentPending)
	InstallmentStatusPartial = string(finance.InstallmentPartial)
	InstallmentStatusLate    = string(finance.InstallmentLate)
	InstallmentStatusPaid    = string(finance.InstallmentPaid)
)

// Snapshot projects the installment into the calculator's shape.
func (i *Installment) Snapshot() finance.InstallmentSnapshot {
	return finance.InstallmentSnapshot{
		DueDate:            i.DueDate,
		ScheduledPrincipal: i.ScheduledPrincipal,
		ScheduledInterest:  i.ScheduledInterest,
		PrincipalRemaining: i.PrincipalRemaining,
		InterestRemaining:  i.InterestRemaining,
		LateFeeAccrued:     i.LateFeeAccrued,
		PaidTotal:          i.PaidTotal,
		LastSettledAt:      i.LastSettledAt,
	}
}

// IsSettled returns true if nothing meaningful remains outstanding.
func (i *Installment) IsSettled() bool {
	return finance.IsSettled(i.Snapshot().Outstanding())
}

// ApplyAllocation moves an allocation from remaining into paid, clamping each
// remainder at zero, and re-resolves the installment status as of the payment
// date.
func (i *Installment) ApplyAllocation(alloc finance.Allocation, paidAt time.Time) {
	i.PaidInterest = i.PaidInterest.Add(alloc.PaidInterest)
	i.InterestRemaining = finance.ClampZero(i.InterestRemaining.Sub(alloc.PaidInterest))

	i.PaidLateFee = i.PaidLateFee.Add(alloc.PaidLateFee)
	i.LateFeeAccrued = finance.ClampZero(i.LateFeeAccrued.Sub(alloc.PaidLateFee))

	i.PaidPrincipal = i.PaidPrincipal.Add(alloc.PaidPrincipal)
	i.PrincipalRemaining = finance.ClampZero(i.PrincipalRemaining.Sub(alloc.PaidPrincipal))

	i.PaidTotal = i.PaidTotal.Add(alloc.Total())

	settledAt := finance.TruncateToDay(paidAt)
	i.LastSettledAt = &settledAt
	i.RefreshStatus(paidAt)
}

// AccrueInterest adds newly accrued contractual interest (daily cycles) to
// the outstanding interest. Monthly cycles carry their interest from
// origination and never call this.
func (i *Installment) AccrueInterest(amount decimal.Decimal) {
	if amount.IsPositive() {
		i.InterestRemaining = i.InterestRemaining.Add(amount)
	}
}

// SyncLateFee raises the outstanding late fee to what the rates produce as of
// the reference date, net of what was already collected. Never lowers it.
func (i *Installment) SyncLateFee(totalAccrued decimal.Decimal) {
	outstanding := finance.ClampZero(totalAccrued.Sub(i.PaidLateFee))
	if outstanding.GreaterThan(i.LateFeeAccrued) {
		i.LateFeeAccrued = outstanding
	}
}

// RefreshStatus re-buckets the installment as of a reference date.
func (i *Installment) RefreshStatus(referenceDate time.Time) {
	i.Status = string(finance.ResolveInstallmentStatus(i.Snapshot(), referenceDate))
}

// InstallmentResponse is the JSON response format for installments
type InstallmentResponse struct {
	ID                 uint            `json:"id"`
	LoanID             uint            `json:"loan_id"`
	Number             int             `json:"number"`
	DueDate            time.Time       `json:"due_date"`
	ScheduledPrincipal decimal.Decimal `json:"scheduled_principal"`
	ScheduledInterest  decimal.Decimal `json:"scheduled_interest"`
	PrincipalRemaining decimal.Decimal `json:"principal_remaining"`
	InterestRemaining  decimal.Decimal `json:"interest_remaining"`
	LateFeeAccrued     decimal.Decimal `json:"late_fee_accrued"`
	PaidPrincipal      decimal.Decimal `json:"paid_principal"`
	PaidInterest       decimal.Decimal `json:"paid_interest"`
	PaidLateFee        decimal.Decimal `json:"paid_late_fee"`
	PaidTotal          decimal.Decimal `json:"paid_total"`
	Status             string          `json:"status"`
	DueLabel           string          `json:"due_label"`
	DueStatus          string          `json:"due_status"`
}

// ToResponse converts Installment to InstallmentResponse. The due-date label
// is computed against the wall clock; use ToResponseAsOf for deterministic
// output.
func (i *Installment) ToResponse() InstallmentResponse {
	return i.ToResponseAsOf(time.Now())
}

// ToResponseAsOf converts Installment to InstallmentResponse with due-date
// classification relative to the given reference date.
func (i *Installment) ToResponseAsOf(referenceDate time.Time) InstallmentResponse {
	due := finance.ClassifyInstallmentDueDate(i.DueDate, referenceDate)
	return InstallmentResponse{
		ID:                 i.ID,
		LoanID:             i.LoanID,
		Number:             i.Number,
		DueDate:            i.DueDate,
		ScheduledPrincipal: i.ScheduledPrincipal,
		ScheduledInterest:  i.ScheduledInterest,
		PrincipalRemaining: i.PrincipalRemaining,
		InterestRemaining:  i.InterestRemaining,
		LateFeeAccrued:     i.LateFeeAccrued,
		PaidPrincipal:      i.PaidPrincipal,
		PaidInterest:       i.PaidInterest,
		PaidLateFee:        i.PaidLateFee,
		PaidTotal:          i.PaidTotal,
		Status:             i.Status,
		DueLabel:           due.Label,
		DueStatus:          string(due.Status),
	}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cobrafacil/cobranca-api/internal/finance"
)

// Agreement is a renegotiation of defaulted debt. TotalDebtAtNegotiation is a
// snapshot frozen when the agreement is created; while the agreement is
// active it supersedes the original installment schedule for lifecycle
// purposes.
type Agreement struct {
	ID                     uint            `gorm:"primaryKey" json:"id"`
	LoanID                 uint            `gorm:"not null;index" json:"loan_id"`
	Type                   string          `gorm:"not null" json:"type"`
	TotalDebtAtNegotiation decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_debt_at_negotiation"`
	NegotiatedTotal        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"negotiated_total"`
	InstallmentsCount      int             `gorm:"not null" json:"installments_count"`
	InterestRate           decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"interest_rate"`
	Frequency              string          `gorm:"not null" json:"frequency"`
	Status                 string          `gorm:"default:active;not null;index" json:"status"`
	PaidAt                 *time.Time      `json:"paid_at,omitempty"`
	BrokenAt               *time.Time      `json:"broken_at,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`

	// Associations
	Installments []AgreementInstallment `gorm:"foreignKey:AgreementID" json:"installments,omitempty"`
	Loan         *Loan                  `gorm:"foreignKey:LoanID" json:"-"`
}

// TableName specifies the table name for Agreement
func (Agreement) TableName() string {
	return "agreements"
}

// Agreement status constants
const (
	AgreementStatusActive = "active"
	AgreementStatusPaid   = "paid"
	AgreementStatusBroken = "broken"
)

// Agreement type constants
const (
	AgreementTypeWithInterest    = string(finance.AgreementWithInterest)
	AgreementTypeWithoutInterest = string(finance.AgreementWithoutInterest)
)

// Agreement frequency constants
const (
	AgreementFrequencyWeekly   = string(finance.FrequencyWeekly)
	AgreementFrequencyBiweekly = string(finance.FrequencyBiweekly)
	AgreementFrequencyMonthly  = string(finance.FrequencyMonthly)
)

// MayRegisterPayment returns true if the agreement still accepts payments
func (a *Agreement) MayRegisterPayment() bool {
	return a.Status == AgreementStatusActive
}

// MayBreak returns true if the agreement can be marked broken
func (a *Agreement) MayBreak() bool {
	return a.Status == AgreementStatusActive
}

// AllInstallmentsSettled returns true if every agreement installment is paid
func (a *Agreement) AllInstallmentsSettled() bool {
	if len(a.Installments) == 0 {
		return false
	}
	for i := range a.Installments {
		if a.Installments[i].Status != AgreementInstallmentStatusPaid {
			return false
		}
	}
	return true
}

// Outstanding returns how much of the negotiated total is still owed
func (a *Agreement) Outstanding() decimal.Decimal {
	paid := decimal.Zero
	for i := range a.Installments {
		paid = paid.Add(a.Installments[i].PaidAmount)
	}
	return finance.ClampZero(a.NegotiatedTotal.Sub(paid))
}

// AgreementInstallment is one entry of a renegotiated schedule.
type AgreementInstallment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AgreementID uint            `gorm:"not null;index" json:"agreement_id"`
	Number      int             `gorm:"not null" json:"number"`
	DueDate     time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	PaidAmount  decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"paid_amount"`
	Status      string          `gorm:"default:pending;not null;index" json:"status"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for AgreementInstallment
func (AgreementInstallment) TableName() string {
	return "agreement_installments"
}

// Agreement installment status constants
const (
	AgreementInstallmentStatusPending = "pending"
	AgreementInstallmentStatusPartial = "partial"
	AgreementInstallmentStatusPaid    = "paid"
)

// Remaining returns how much of this installment is still owed
func (ai *AgreementInstallment) Remaining() decimal.Decimal {
	return finance.ClampZero(ai.Amount.Sub(ai.PaidAmount))
}

// ApplyPayment credits an amount against the installment and re-buckets it.
func (ai *AgreementInstallment) ApplyPayment(amount decimal.Decimal, paidAt time.Time) {
	ai.PaidAmount = ai.PaidAmount.Add(amount)
	if finance.IsSettled(ai.Remaining()) {
		ai.Status = AgreementInstallmentStatusPaid
		settled := finance.TruncateToDay(paidAt)
		ai.PaidAt = &settled
	} else if ai.PaidAmount.IsPositive() {
		ai.Status = AgreementInstallmentStatusPartial
	}
}

// AgreementResponse is the JSON response format for agreements
type AgreementResponse struct {
	ID                     uint                           `json:"id"`
	LoanID                 uint                           `json:"loan_id"`
	Type                   string                         `json:"type"`
	TotalDebtAtNegotiation decimal.Decimal                `json:"total_debt_at_negotiation"`
	NegotiatedTotal        decimal.Decimal                `json:"negotiated_total"`
	InstallmentsCount      int                            `json:"installments_count"`
	InterestRate           decimal.Decimal                `json:"interest_rate"`
	Frequency              string                         `json:"frequency"`
	Status                 string                         `json:"status"`
	Outstanding            decimal.Decimal                `json:"outstanding"`
	PaidAt                 *time.Time                     `json:"paid_at,omitempty"`
	BrokenAt               *time.Time                     `json:"broken_at,omitempty"`
	Installments           []AgreementInstallmentResponse `json:"installments,omitempty"`
}

// AgreementInstallmentResponse is the JSON response format for agreement installments
type AgreementInstallmentResponse struct {
	ID         uint            `json:"id"`
	Number     int             `json:"number"`
	DueDate    time.Time       `json:"due_date"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Status     string          `json:"status"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
}

// ToResponse converts Agreement to AgreementResponse
func (a *Agreement) ToResponse() AgreementResponse {
	resp := AgreementResponse{
		ID:                     a.ID,
		LoanID:                 a.LoanID,
		Type:                   a.Type,
		TotalDebtAtNegotiation: a.TotalDebtAtNegotiation,
		NegotiatedTotal:        a.NegotiatedTotal,
		InstallmentsCount:      a.InstallmentsCount,
		InterestRate:           a.InterestRate,
		Frequency:              a.Frequency,
		Status:                 a.Status,
		Outstanding:            a.Outstanding(),
		PaidAt:                 a.PaidAt,
		BrokenAt:               a.BrokenAt,
	}
	for i := range a.Installments {
		ai := &a.Installments[i]
		resp.Installments = append(resp.Installments, AgreementInstallmentResponse{
			ID:         ai.ID,
			Number:     ai.Number,
			DueDate:    ai.DueDate,
			Amount:     ai.Amount,
			PaidAmount: ai.PaidAmount,
			Status:     ai.Status,
			PaidAt:     ai.PaidAt,
		})
	}
	return resp
}

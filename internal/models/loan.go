package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cobrafacil/cobranca-api/internal/finance"
)

// Loan represents a lending contract and its full ledger.
type Loan struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	ReferenceCode        string          `gorm:"uniqueIndex;not null" json:"reference_code"`
	BorrowerName         string          `gorm:"not null" json:"borrower_name"`
	BorrowerPhone        string          `json:"borrower_phone"`
	Principal            decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"principal"`
	InterestRate         decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"interest_rate"`
	FinePercent          decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"fine_percent"`
	DailyInterestPercent decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"daily_interest_percent"`
	BillingCycle         string          `gorm:"default:monthly;not null" json:"billing_cycle"`
	PaymentTerm          int             `gorm:"default:1" json:"payment_term"`
	StartDate            time.Time       `gorm:"type:date;not null" json:"start_date"`
	Status               string          `gorm:"default:active;not null;index" json:"status"`
	ClosedAt             *time.Time      `json:"closed_at,omitempty"`
	CreatedAt            time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`

	// Associations
	Installments []Installment     `gorm:"foreignKey:LoanID" json:"installments,omitempty"`
	Transactions []LoanTransaction `gorm:"foreignKey:LoanID" json:"transactions,omitempty"`
	Agreements   []Agreement       `gorm:"foreignKey:LoanID" json:"agreements,omitempty"`
}

// TableName specifies the table name for Loan
func (Loan) TableName() string {
	return "loans"
}

// Loan status constants, mirroring the lifecycle resolver's states.
const (
	LoanStatusActive  = string(finance.LoanActive)
	LoanStatusOverdue = string(finance.LoanOverdue)
	LoanStatusLegal   = string(finance.LoanLegal)
	LoanStatusPaid    = string(finance.LoanPaid)
)

// Billing cycle constants
const (
	BillingCycleMonthly        = string(finance.CycleMonthly)
	BillingCycleDailyFree      = string(finance.CycleDailyFree)
	BillingCycleDailyFixedTerm = string(finance.CycleDailyFixedTerm)
)

// Terms projects the loan's contractual side into the calculator's shape.
func (l *Loan) Terms() finance.LoanTerms {
	return finance.LoanTerms{
		Principal:            l.Principal,
		MonthlyInterestRate:  l.InterestRate,
		FinePercent:          l.FinePercent,
		DailyInterestPercent: l.DailyInterestPercent,
		BillingCycle:         finance.BillingCycle(l.BillingCycle),
		StartDate:            l.StartDate,
	}
}

// Snapshot builds the read-only view the status resolver consumes. Requires
// Installments (and Agreements, for the legal override) to be loaded.
func (l *Loan) Snapshot() finance.LoanSnapshot {
	snap := finance.LoanSnapshot{
		Installments:    make([]finance.InstallmentSnapshot, 0, len(l.Installments)),
		AgreementActive: l.ActiveAgreement() != nil,
	}
	for i := range l.Installments {
		snap.Installments = append(snap.Installments, l.Installments[i].Snapshot())
	}
	return snap
}

// ActiveAgreement returns the loan's active renegotiation, if any.
func (l *Loan) ActiveAgreement() *Agreement {
	for i := range l.Agreements {
		if l.Agreements[i].Status == AgreementStatusActive {
			return &l.Agreements[i]
		}
	}
	return nil
}

// MayRenegotiate returns true if a new agreement can be opened: the loan has
// outstanding late debt and no active agreement already superseding it.
func (l *Loan) MayRenegotiate() bool {
	return l.Status == LoanStatusOverdue && l.ActiveAgreement() == nil
}

// IsClosed returns true if the loan has been settled.
func (l *Loan) IsClosed() bool {
	return l.Status == LoanStatusPaid
}

// LoanResponse is the JSON response format for loans
type LoanResponse struct {
	ID                   uint                  `json:"id"`
	ReferenceCode        string                `json:"reference_code"`
	BorrowerName         string                `json:"borrower_name"`
	BorrowerPhone        string                `json:"borrower_phone,omitempty"`
	Principal            decimal.Decimal       `json:"principal"`
	InterestRate         decimal.Decimal       `json:"interest_rate"`
	FinePercent          decimal.Decimal       `json:"fine_percent"`
	DailyInterestPercent decimal.Decimal       `json:"daily_interest_percent"`
	BillingCycle         string                `json:"billing_cycle"`
	PaymentTerm          int                   `json:"payment_term"`
	StartDate            time.Time             `json:"start_date"`
	Status               string                `json:"status"`
	ClosedAt             *time.Time            `json:"closed_at,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	Installments         []InstallmentResponse `json:"installments,omitempty"`
}

// ToResponse converts Loan to LoanResponse
func (l *Loan) ToResponse() LoanResponse {
	resp := LoanResponse{
		ID:                   l.ID,
		ReferenceCode:        l.ReferenceCode,
		BorrowerName:         l.BorrowerName,
		BorrowerPhone:        l.BorrowerPhone,
		Principal:            l.Principal,
		InterestRate:         l.InterestRate,
		FinePercent:          l.FinePercent,
		DailyInterestPercent: l.DailyInterestPercent,
		BillingCycle:         l.BillingCycle,
		PaymentTerm:          l.PaymentTerm,
		StartDate:            l.StartDate,
		Status:               l.Status,
		ClosedAt:             l.ClosedAt,
		CreatedAt:            l.CreatedAt,
	}
	for i := range l.Installments {
		resp.Installments = append(resp.Installments, l.Installments[i].ToResponse())
	}
	return resp
}

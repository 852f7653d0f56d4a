package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanTransaction is one entry of a loan's ledger. Positive amounts are
// credits (money received, debt goes down); negative amounts are debits
// (disbursements and charges, debt goes up).
type LoanTransaction struct {
	ID                     uint            `gorm:"primaryKey" json:"id"`
	LoanID                 uint            `gorm:"not null;index" json:"loan_id"`
	InstallmentID          *uint           `gorm:"index" json:"installment_id,omitempty"`
	AgreementInstallmentID *uint           `gorm:"index" json:"agreement_installment_id,omitempty"`
	ReferenceCode          string          `gorm:"uniqueIndex;not null" json:"reference_code"`
	Amount                 decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	PaidPrincipal          decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"paid_principal"`
	PaidInterest           decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"paid_interest"`
	PaidLateFee            decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"paid_late_fee"`
	Description            string          `gorm:"not null" json:"description"`
	EntryType              string          `gorm:"not null;index" json:"entry_type"`
	EntryDate              time.Time       `gorm:"not null;index" json:"entry_date"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`

	// Associations
	Loan *Loan `gorm:"foreignKey:LoanID" json:"-"`
}

// TableName specifies the table name for LoanTransaction
func (LoanTransaction) TableName() string {
	return "loan_transactions"
}

// Entry type constants
const (
	EntryTypeDisbursement     = "disbursement"      // principal handed out (debit)
	EntryTypePayment          = "payment"           // ordinary payment received (credit)
	EntryTypeRenewal          = "renewal"           // interest+fee cleared, due date pushed (credit)
	EntryTypeLateFee          = "late_fee"          // fine/mora accrual (debit)
	EntryTypeLendMore         = "lend_more"         // additional principal on an open loan (debit)
	EntryTypeAgreementPayment = "agreement_payment" // payment against a renegotiated schedule (credit)
	EntryTypeAdjustment       = "adjustment"        // manual correction or reversal
)

// LoanTransactionResponse is the JSON response format for ledger entries
type LoanTransactionResponse struct {
	ID                     uint            `json:"id"`
	LoanID                 uint            `json:"loan_id"`
	InstallmentID          *uint           `json:"installment_id,omitempty"`
	AgreementInstallmentID *uint           `json:"agreement_installment_id,omitempty"`
	ReferenceCode          string          `json:"reference_code"`
	Amount                 decimal.Decimal `json:"amount"`
	PaidPrincipal          decimal.Decimal `json:"paid_principal"`
	PaidInterest           decimal.Decimal `json:"paid_interest"`
	PaidLateFee            decimal.Decimal `json:"paid_late_fee"`
	Description            string          `json:"description"`
	EntryType              string          `json:"entry_type"`
	EntryDate              time.Time       `json:"entry_date"`
}

// ToResponse converts LoanTransaction to LoanTransactionResponse
func (t *LoanTransaction) ToResponse() LoanTransactionResponse {
	return LoanTransactionResponse{
		ID:                     t.ID,
		LoanID:                 t.LoanID,
		InstallmentID:          t.InstallmentID,
		AgreementInstallmentID: t.AgreementInstallmentID,
		ReferenceCode:          t.ReferenceCode,
		Amount:                 t.Amount,
		PaidPrincipal:          t.PaidPrincipal,
		PaidInterest:           t.PaidInterest,
		PaidLateFee:            t.PaidLateFee,
		Description:            t.Description,
		EntryType:              t.EntryType,
		EntryDate:              t.EntryDate,
	}
}

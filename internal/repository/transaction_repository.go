package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cobrafacil/cobranca-api/internal/models"
)

// TransactionRepository defines the interface for loan ledger data access
type TransactionRepository interface {
	Create(ctx context.Context, entry *models.LoanTransaction) error
	FindByLoanID(ctx context.Context, loanID uint) ([]models.LoanTransaction, error)
	FindByInstallmentID(ctx context.Context, installmentID uint) ([]models.LoanTransaction, error)
	CalculateBalance(ctx context.Context, loanID uint) (decimal.Decimal, error)
	UpsertLateFee(ctx context.Context, entry *models.LoanTransaction) error
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new loan ledger repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, entry *models.LoanTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *transactionRepository) FindByLoanID(ctx context.Context, loanID uint) ([]models.LoanTransaction, error) {
	var entries []models.LoanTransaction
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *transactionRepository) FindByInstallmentID(ctx context.Context, installmentID uint) ([]models.LoanTransaction, error) {
	var entries []models.LoanTransaction
	err := r.db.WithContext(ctx).
		Where("installment_id = ?", installmentID).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error
	return entries, err
}

// CalculateBalance sums the loan's ledger. Negative means outstanding debt,
// zero or positive means the loan has been paid out.
func (r *transactionRepository) CalculateBalance(ctx context.Context, loanID uint) (decimal.Decimal, error) {
	var result struct {
		Balance decimal.Decimal
	}

	err := r.db.WithContext(ctx).
		Model(&models.LoanTransaction{}).
		Select("COALESCE(SUM(amount), 0) as balance").
		Where("loan_id = ?", loanID).
		Scan(&result).Error

	return result.Balance, err
}

// UpsertLateFee updates the accumulated late-fee entry for an installment if
// one exists, otherwise creates it. Keeps the ledger at "current total"
// rather than stacking one debit per refresh run.
func (r *transactionRepository) UpsertLateFee(ctx context.Context, entry *models.LoanTransaction) error {
	if entry.InstallmentID != nil && entry.EntryType == models.EntryTypeLateFee {
		var existing models.LoanTransaction
		err := r.db.WithContext(ctx).
			Where("installment_id = ? AND entry_type = ?", entry.InstallmentID, entry.EntryType).
			First(&existing).Error

		if err == nil {
			existing.Amount = entry.Amount
			existing.Description = entry.Description
			existing.EntryDate = entry.EntryDate
			return r.db.WithContext(ctx).Save(&existing).Error
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
	}

	return r.Create(ctx, entry)
}

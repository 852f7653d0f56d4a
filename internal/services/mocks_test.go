package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cobrafacil/cobranca-api/internal/models"
	"github.com/cobrafacil/cobranca-api/internal/repository"
)

// Mock LoanRepository
type mockLoanRepository struct {
	mockFindByID            func(ctx context.Context, id uint) (*models.Loan, error)
	mockFindByIDWithDetails func(ctx context.Context, id uint) (*models.Loan, error)
	mockFindByReference     func(ctx context.Context, reference string) (*models.Loan, error)
	mockCreate              func(ctx context.Context, loan *models.Loan) error
	mockUpdate              func(ctx context.Context, loan *models.Loan) error
	mockFindOpen            func(ctx context.Context) ([]models.Loan, error)
}

func (m *mockLoanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	if m.mockFindByIDWithDetails != nil {
		return m.mockFindByIDWithDetails(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLoanRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error) {
	if m.mockFindByIDWithDetails != nil {
		return m.mockFindByIDWithDetails(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLoanRepository) FindByReference(ctx context.Context, reference string) (*models.Loan, error) {
	if m.mockFindByReference != nil {
		return m.mockFindByReference(ctx, reference)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, loan)
	}
	return nil
}

func (m *mockLoanRepository) Update(ctx context.Context, loan *models.Loan) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, loan)
	}
	return nil
}

func (m *mockLoanRepository) List(ctx context.Context, query *repository.ListQuery) ([]models.Loan, int64, error) {
	return nil, 0, nil
}

func (m *mockLoanRepository) FindOpen(ctx context.Context) ([]models.Loan, error) {
	if m.mockFindOpen != nil {
		return m.mockFindOpen(ctx)
	}
	return nil, nil
}

// Mock InstallmentRepository
type mockInstallmentRepository struct {
	mockFindByID    func(ctx context.Context, id uint) (*models.Installment, error)
	mockCreate      func(ctx context.Context, installment *models.Installment) error
	mockFindOverdue func(ctx context.Context, asOf time.Time) ([]models.Installment, error)
	updated         []models.Installment
}

func (m *mockInstallmentRepository) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInstallmentRepository) FindByLoan(ctx context.Context, loanID uint) ([]models.Installment, error) {
	return nil, nil
}

func (m *mockInstallmentRepository) Create(ctx context.Context, installment *models.Installment) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, installment)
	}
	installment.ID = uint(len(m.updated) + 100)
	return nil
}

func (m *mockInstallmentRepository) Update(ctx context.Context, installment *models.Installment) error {
	m.updated = append(m.updated, *installment)
	return nil
}

func (m *mockInstallmentRepository) FindOverdue(ctx context.Context, asOf time.Time) ([]models.Installment, error) {
	if m.mockFindOverdue != nil {
		return m.mockFindOverdue(ctx, asOf)
	}
	return nil, nil
}

// Mock AgreementRepository
type mockAgreementRepository struct {
	mockFindByID         func(ctx context.Context, id uint) (*models.Agreement, error)
	mockFindActiveByLoan func(ctx context.Context, loanID uint) (*models.Agreement, error)
	mockCreate           func(ctx context.Context, agreement *models.Agreement) error
	updated              []models.Agreement
}

func (m *mockAgreementRepository) FindByID(ctx context.Context, id uint) (*models.Agreement, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAgreementRepository) FindActiveByLoan(ctx context.Context, loanID uint) (*models.Agreement, error) {
	if m.mockFindActiveByLoan != nil {
		return m.mockFindActiveByLoan(ctx, loanID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAgreementRepository) Create(ctx context.Context, agreement *models.Agreement) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, agreement)
	}
	agreement.ID = 1
	for i := range agreement.Installments {
		agreement.Installments[i].ID = uint(i + 1)
		agreement.Installments[i].AgreementID = agreement.ID
	}
	return nil
}

func (m *mockAgreementRepository) Update(ctx context.Context, agreement *models.Agreement) error {
	m.updated = append(m.updated, *agreement)
	return nil
}

func (m *mockAgreementRepository) UpdateInstallment(ctx context.Context, installment *models.AgreementInstallment) error {
	return nil
}

// Mock TransactionRepository, recording everything written to the ledger.
type mockTransactionRepository struct {
	created  []models.LoanTransaction
	upserted []models.LoanTransaction
}

func (m *mockTransactionRepository) Create(ctx context.Context, entry *models.LoanTransaction) error {
	entry.ID = uint(len(m.created) + 1)
	m.created = append(m.created, *entry)
	return nil
}

func (m *mockTransactionRepository) FindByLoanID(ctx context.Context, loanID uint) ([]models.LoanTransaction, error) {
	var out []models.LoanTransaction
	for _, e := range m.created {
		if e.LoanID == loanID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockTransactionRepository) FindByInstallmentID(ctx context.Context, installmentID uint) ([]models.LoanTransaction, error) {
	var out []models.LoanTransaction
	for _, e := range m.created {
		if e.InstallmentID != nil && *e.InstallmentID == installmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockTransactionRepository) CalculateBalance(ctx context.Context, loanID uint) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range m.created {
		if e.LoanID == loanID {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (m *mockTransactionRepository) UpsertLateFee(ctx context.Context, entry *models.LoanTransaction) error {
	m.upserted = append(m.upserted, *entry)
	return nil
}

func (m *mockTransactionRepository) entriesOfType(entryType string) []models.LoanTransaction {
	var out []models.LoanTransaction
	for _, e := range m.created {
		if e.EntryType == entryType {
			out = append(out, e)
		}
	}
	return out
}

func newMockRepositories(loanRepo *mockLoanRepository, instRepo *mockInstallmentRepository, agrRepo *mockAgreementRepository, txRepo *mockTransactionRepository) *repository.Repositories {
	return &repository.Repositories{
		Loan:        loanRepo,
		Installment: instRepo,
		Agreement:   agrRepo,
		Transaction: txRepo,
	}
}

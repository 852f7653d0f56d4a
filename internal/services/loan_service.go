package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cobrafacil/cobranca-api/internal/finance"
	"github.com/cobrafacil/cobranca-api/internal/models"
	"github.com/cobrafacil/cobranca-api/internal/repository"
	"github.com/cobrafacil/cobranca-api/internal/statemachine"
	"github.com/cobrafacil/cobranca-api/pkg/metrics"
)

// LoanService handles loan origination and lifecycle.
type LoanService struct {
	repos    *repository.Repositories
	schedule *ScheduleService
	metrics  *metrics.Collector
}

func NewLoanService(repos *repository.Repositories, schedule *ScheduleService, collector *metrics.Collector) *LoanService {
	return &LoanService{
		repos:    repos,
		schedule: schedule,
		metrics:  collector,
	}
}

// CreateLoanInput carries the contractual conditions of a new loan.
type CreateLoanInput struct {
	BorrowerName         string
	BorrowerPhone        string
	Principal            decimal.Decimal
	InterestRate         decimal.Decimal
	FinePercent          decimal.Decimal
	DailyInterestPercent decimal.Decimal
	BillingCycle         string
	PaymentTerm          int
	StartDate            time.Time
}

// Create validates the terms, generates the installment schedule and records
// the disbursement as the opening entry of the loan's ledger.
func (s *LoanService) Create(ctx context.Context, input CreateLoanInput) (*models.Loan, error) {
	loan := &models.Loan{
		ReferenceCode:        newLoanReference(),
		BorrowerName:         strings.TrimSpace(input.BorrowerName),
		BorrowerPhone:        strings.TrimSpace(input.BorrowerPhone),
		Principal:            input.Principal,
		InterestRate:         input.InterestRate,
		FinePercent:          input.FinePercent,
		DailyInterestPercent: input.DailyInterestPercent,
		BillingCycle:         input.BillingCycle,
		PaymentTerm:          input.PaymentTerm,
		StartDate:            finance.TruncateToDay(input.StartDate),
		Status:               models.LoanStatusActive,
	}

	if loan.BorrowerName == "" {
		return nil, &finance.ValidationError{Field: "borrowerName", Reason: "nome do tomador é obrigatório"}
	}

	installments, err := s.schedule.Generate(loan)
	if err != nil {
		return nil, err
	}
	loan.Installments = installments

	if err := s.repos.Loan.Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	disbursement := &models.LoanTransaction{
		LoanID:        loan.ID,
		ReferenceCode: newEntryReference(),
		Amount:        loan.Principal.Neg(),
		Description:   fmt.Sprintf("Desembolso do empréstimo %s", loan.ReferenceCode),
		EntryType:     models.EntryTypeDisbursement,
		EntryDate:     loan.StartDate,
	}
	if err := s.repos.Transaction.Create(ctx, disbursement); err != nil {
		return nil, fmt.Errorf("failed to record disbursement: %w", err)
	}

	s.metrics.RecordLoanCreated()
	return loan, nil
}

// LendMore adds principal to an existing loan as a new installment. A paid
// loan reopens; the new debt restarts its lifecycle.
func (s *LoanService) LendMore(ctx context.Context, loanID uint, amount decimal.Decimal, dueDate time.Time) (*models.Loan, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	loan, err := s.repos.Loan.FindByIDWithDetails(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if loan.ActiveAgreement() != nil {
		return nil, ErrAgreementSupersedes
	}

	due := finance.TruncateToDay(dueDate)
	if !due.After(finance.TruncateToDay(time.Now())) {
		return nil, ErrInvalidDueDate
	}

	interest := decimal.Zero
	if loan.BillingCycle == models.BillingCycleMonthly {
		interest = finance.Round2(amount.Mul(loan.InterestRate).Div(decimal.NewFromInt(100)))
	}

	installment := &models.Installment{
		LoanID:             loan.ID,
		Number:             len(loan.Installments) + 1,
		DueDate:            due,
		ScheduledPrincipal: amount,
		ScheduledInterest:  interest,
		PrincipalRemaining: amount,
		InterestRemaining:  interest,
		Status:             models.InstallmentStatusPending,
	}
	if err := s.repos.Installment.Create(ctx, installment); err != nil {
		return nil, fmt.Errorf("failed to create installment: %w", err)
	}
	loan.Installments = append(loan.Installments, *installment)

	entry := &models.LoanTransaction{
		LoanID:        loan.ID,
		InstallmentID: &installment.ID,
		ReferenceCode: newEntryReference(),
		Amount:        amount.Neg(),
		Description:   fmt.Sprintf("Novo aporte de principal — parcela %d", installment.Number),
		EntryType:     models.EntryTypeLendMore,
		EntryDate:     time.Now(),
	}
	if err := s.repos.Transaction.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record lend_more entry: %w", err)
	}

	// Additional principal scales the base the fine and daily interest
	// rates apply to.
	loan.Principal = loan.Principal.Add(amount)
	loan.ClosedAt = nil

	if err := syncLoanStatus(ctx, loan, time.Now()); err != nil {
		return nil, err
	}
	if err := s.repos.Loan.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}
	return loan, nil
}

// FindByID returns a loan with installments, ledger and agreements loaded.
func (s *LoanService) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.repos.Loan.FindByIDWithDetails(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return loan, nil
}

// FindByReference resolves a loan by its public EMP- reference code and loads
// its details.
func (s *LoanService) FindByReference(ctx context.Context, reference string) (*models.Loan, error) {
	loan, err := s.repos.Loan.FindByReference(ctx, strings.ToUpper(strings.TrimSpace(reference)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.FindByID(ctx, loan.ID)
}

// List returns a filtered, paginated page of loans.
func (s *LoanService) List(ctx context.Context, query *repository.ListQuery) ([]models.Loan, int64, error) {
	return s.repos.Loan.List(ctx, query)
}

// GetBalance returns the loan's outstanding balance per component.
func (s *LoanService) GetBalance(ctx context.Context, id uint) (finance.Balance, error) {
	loan, err := s.FindByID(ctx, id)
	if err != nil {
		return finance.Balance{}, err
	}
	return finance.RemainingBalance(loan.Snapshot().Installments), nil
}

// LoanStatusView is the resolved lifecycle view of a loan at a point in time.
type LoanStatusView struct {
	Status            string          `json:"status"`
	Balance           finance.Balance `json:"balance"`
	LegallyActionable bool            `json:"legally_actionable"`
}

// GetStatus resolves the loan's lifecycle state as of a reference date.
func (s *LoanService) GetStatus(ctx context.Context, id uint, referenceDate time.Time) (*LoanStatusView, error) {
	loan, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := loan.Snapshot()
	return &LoanStatusView{
		Status:            string(finance.ResolveLoanStatus(snap, referenceDate)),
		Balance:           finance.RemainingBalance(snap.Installments),
		LegallyActionable: finance.IsLegallyActionable(snap, referenceDate),
	}, nil
}

// Ledger returns the loan's full transaction history and running balance.
func (s *LoanService) Ledger(ctx context.Context, id uint) ([]models.LoanTransaction, decimal.Decimal, error) {
	if _, err := s.repos.Loan.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, decimal.Zero, ErrNotFound
		}
		return nil, decimal.Zero, err
	}
	entries, err := s.repos.Transaction.FindByLoanID(ctx, id)
	if err != nil {
		return nil, decimal.Zero, err
	}
	balance, err := s.repos.Transaction.CalculateBalance(ctx, id)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return entries, balance, nil
}

// syncLoanStatus re-resolves the loan's lifecycle state from its installments
// and drives the state machine through whatever transitions close the gap.
func syncLoanStatus(ctx context.Context, loan *models.Loan, referenceDate time.Time) error {
	target := string(finance.ResolveLoanStatus(loan.Snapshot(), referenceDate))
	if target == loan.Status {
		return nil
	}

	machine := statemachine.NewLoanFSM(loan)
	switch {
	case target == models.LoanStatusPaid:
		return machine.Settle(ctx)
	case loan.Status == models.LoanStatusPaid && target == models.LoanStatusActive:
		return machine.Reopen(ctx)
	case loan.Status == models.LoanStatusPaid && target == models.LoanStatusOverdue:
		if err := machine.Reopen(ctx); err != nil {
			return err
		}
		return machine.MarkOverdue(ctx)
	case loan.Status == models.LoanStatusActive && target == models.LoanStatusOverdue:
		return machine.MarkOverdue(ctx)
	case loan.Status == models.LoanStatusOverdue && target == models.LoanStatusActive:
		return machine.Normalize(ctx)
	case loan.Status == models.LoanStatusLegal && target == models.LoanStatusOverdue:
		return machine.BreakAgreement(ctx)
	case loan.Status == models.LoanStatusLegal && target == models.LoanStatusActive:
		if err := machine.BreakAgreement(ctx); err != nil {
			return err
		}
		return machine.Normalize(ctx)
	case target == models.LoanStatusLegal:
		return machine.Renegotiate(ctx)
	default:
		return fmt.Errorf("no transition from %s to %s", loan.Status, target)
	}
}

func newLoanReference() string {
	return "EMP-" + strings.ToUpper(uuid.NewString()[:8])
}

func newEntryReference() string {
	return "TRX-" + strings.ToUpper(uuid.NewString()[:12])
}

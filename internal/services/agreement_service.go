package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cobrafacil/cobranca-api/internal/finance"
	"github.com/cobrafacil/cobranca-api/internal/models"
	"github.com/cobrafacil/cobranca-api/internal/repository"
	"github.com/cobrafacil/cobranca-api/internal/statemachine"
	"github.com/cobrafacil/cobranca-api/pkg/metrics"
)

// AgreementService renegotiates defaulted debt. An agreement freezes the
// total owed at negotiation time and replaces the original schedule with its
// own until it is paid or broken.
type AgreementService struct {
	repos   *repository.Repositories
	logger  *slog.Logger
	metrics *metrics.Collector
}

func NewAgreementService(repos *repository.Repositories, logger *slog.Logger, collector *metrics.Collector) *AgreementService {
	return &AgreementService{
		repos:   repos,
		logger:  logger,
		metrics: collector,
	}
}

// AgreementInput carries the negotiated conditions.
type AgreementInput struct {
	Type              string
	InstallmentsCount int
	InterestRate      decimal.Decimal
	Frequency         string
	FirstDueDate      time.Time
}

// Simulate prices an agreement without persisting anything. The debt base is
// the loan's full exposure as of now, late fees included.
func (s *AgreementService) Simulate(ctx context.Context, loanID uint, input AgreementInput) (*finance.AgreementPlan, error) {
	loan, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	debt, err := s.currentExposure(loan, time.Now())
	if err != nil {
		return nil, err
	}
	plan, err := finance.SimulateAgreement(s.params(debt, input))
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Create opens an agreement for an overdue loan: simulates the schedule,
// persists it atomically and moves the loan to legal.
func (s *AgreementService) Create(ctx context.Context, loanID uint, input AgreementInput) (*models.Agreement, error) {
	loan, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.ActiveAgreement() != nil {
		return nil, ErrAgreementActive
	}
	if !loan.MayRenegotiate() {
		return nil, ErrNotRenegotiable
	}

	debt, err := s.currentExposure(loan, time.Now())
	if err != nil {
		return nil, err
	}
	plan, err := finance.SimulateAgreement(s.params(debt, input))
	if err != nil {
		return nil, err
	}

	agreement := &models.Agreement{
		LoanID:                 loan.ID,
		Type:                   input.Type,
		TotalDebtAtNegotiation: debt,
		NegotiatedTotal:        plan.NegotiatedTotal,
		InstallmentsCount:      input.InstallmentsCount,
		InterestRate:           input.InterestRate,
		Frequency:              input.Frequency,
		Status:                 models.AgreementStatusActive,
	}
	for _, si := range plan.Installments {
		agreement.Installments = append(agreement.Installments, models.AgreementInstallment{
			Number:  si.Number,
			DueDate: si.DueDate,
			Amount:  si.Amount,
			Status:  models.AgreementInstallmentStatusPending,
		})
	}

	if err := s.repos.Agreement.Create(ctx, agreement); err != nil {
		return nil, fmt.Errorf("failed to create agreement: %w", err)
	}

	if err := statemachine.NewLoanFSM(loan).Renegotiate(ctx); err != nil {
		return nil, err
	}
	if err := s.repos.Loan.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	s.metrics.RecordAgreementCreated()
	s.logger.Info("agreement created",
		"loan_id", loan.ID,
		"agreement_id", agreement.ID,
		"negotiated_total", agreement.NegotiatedTotal,
		"installments", agreement.InstallmentsCount,
	)
	return agreement, nil
}

// FindByID returns an agreement with its schedule loaded.
func (s *AgreementService) FindByID(ctx context.Context, id uint) (*models.Agreement, error) {
	agreement, err := s.repos.Agreement.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return agreement, nil
}

// FindActiveByLoan returns the loan's active agreement, if any. ErrNotFound
// means the loan is being collected on its original schedule.
func (s *AgreementService) FindActiveByLoan(ctx context.Context, loanID uint) (*models.Agreement, error) {
	agreement, err := s.repos.Agreement.FindActiveByLoan(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return agreement, nil
}

// RegisterPayment credits a payment against one agreement installment. When
// the whole schedule settles, the agreement and the underlying loan close.
func (s *AgreementService) RegisterPayment(ctx context.Context, agreementID, installmentID uint, amount decimal.Decimal, paymentDate time.Time) (*models.Agreement, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	date := paymentDate
	if date.IsZero() {
		date = time.Now()
	}

	agreement, err := s.FindByID(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	if !agreement.MayRegisterPayment() {
		return nil, fmt.Errorf("acordo não aceita pagamentos no estado %s", agreement.Status)
	}

	var inst *models.AgreementInstallment
	for i := range agreement.Installments {
		if agreement.Installments[i].ID == installmentID {
			inst = &agreement.Installments[i]
			break
		}
	}
	if inst == nil {
		return nil, ErrNotFound
	}
	if inst.Status == models.AgreementInstallmentStatusPaid {
		return nil, ErrInstallmentSettled
	}

	inst.ApplyPayment(amount, date)
	if err := s.repos.Agreement.UpdateInstallment(ctx, inst); err != nil {
		return nil, fmt.Errorf("failed to update agreement installment: %w", err)
	}

	entry := &models.LoanTransaction{
		LoanID:                 agreement.LoanID,
		AgreementInstallmentID: &inst.ID,
		ReferenceCode:          newEntryReference(),
		Amount:                 amount,
		Description:            fmt.Sprintf("Pagamento de acordo — parcela %d", inst.Number),
		EntryType:              models.EntryTypeAgreementPayment,
		EntryDate:              date,
	}
	if err := s.repos.Transaction.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record agreement payment: %w", err)
	}

	if agreement.AllInstallmentsSettled() {
		if err := statemachine.NewAgreementFSM(agreement).Settle(ctx); err != nil {
			return nil, err
		}
		if err := s.repos.Agreement.Update(ctx, agreement); err != nil {
			return nil, fmt.Errorf("failed to update agreement: %w", err)
		}
		if err := s.settleUnderlyingLoan(ctx, agreement, date); err != nil {
			return nil, err
		}
	}

	s.metrics.RecordPayment(models.EntryTypeAgreementPayment, amount.InexactFloat64())
	s.logger.Info("agreement payment registered",
		"agreement_id", agreement.ID,
		"installment", inst.Number,
		"amount", amount,
		"agreement_status", agreement.Status,
	)
	return agreement, nil
}

// MarkBroken flags a defaulted agreement; the loan returns to overdue and
// the original schedule resumes collecting.
func (s *AgreementService) MarkBroken(ctx context.Context, agreementID uint) (*models.Agreement, error) {
	agreement, err := s.FindByID(ctx, agreementID)
	if err != nil {
		return nil, err
	}

	if err := statemachine.NewAgreementFSM(agreement).Break(ctx); err != nil {
		return nil, err
	}
	if err := s.repos.Agreement.Update(ctx, agreement); err != nil {
		return nil, fmt.Errorf("failed to update agreement: %w", err)
	}

	loan, err := s.loadLoan(ctx, agreement.LoanID)
	if err != nil {
		return nil, err
	}
	for i := range loan.Agreements {
		if loan.Agreements[i].ID == agreement.ID {
			loan.Agreements[i].Status = agreement.Status
			loan.Agreements[i].BrokenAt = agreement.BrokenAt
		}
	}
	if err := syncLoanStatus(ctx, loan, time.Now()); err != nil {
		return nil, err
	}
	if err := s.repos.Loan.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	s.metrics.RecordAgreementBroken()
	s.logger.Info("agreement broken", "agreement_id", agreement.ID, "loan_id", loan.ID)
	return agreement, nil
}

// settleUnderlyingLoan writes off the original schedule once an agreement is
// fully paid: the negotiated total replaced the old debt, so whatever remains
// on the original installments is discharged.
func (s *AgreementService) settleUnderlyingLoan(ctx context.Context, agreement *models.Agreement, date time.Time) error {
	loan, err := s.loadLoan(ctx, agreement.LoanID)
	if err != nil {
		return err
	}

	discharged := decimal.Zero
	for i := range loan.Installments {
		inst := &loan.Installments[i]
		if inst.IsSettled() {
			continue
		}
		discharged = discharged.Add(inst.Snapshot().Outstanding())
		inst.PrincipalRemaining = decimal.Zero
		inst.InterestRemaining = decimal.Zero
		inst.LateFeeAccrued = decimal.Zero
		inst.Status = models.InstallmentStatusPaid
		if err := s.repos.Installment.Update(ctx, inst); err != nil {
			return fmt.Errorf("failed to discharge installment: %w", err)
		}
	}

	if discharged.IsPositive() {
		entry := &models.LoanTransaction{
			LoanID:        loan.ID,
			ReferenceCode: newEntryReference(),
			Amount:        finance.Round2(discharged),
			Description:   "Quitação por acordo cumprido",
			EntryType:     models.EntryTypeAdjustment,
			EntryDate:     date,
		}
		if err := s.repos.Transaction.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to record discharge entry: %w", err)
		}
	}

	// Agreement is paid, so the snapshot no longer reports it active.
	agreement.Status = models.AgreementStatusPaid
	for i := range loan.Agreements {
		if loan.Agreements[i].ID == agreement.ID {
			loan.Agreements[i].Status = models.AgreementStatusPaid
		}
	}

	if err := syncLoanStatus(ctx, loan, date); err != nil {
		return err
	}
	if loan.Status == models.LoanStatusPaid && loan.ClosedAt == nil {
		now := time.Now()
		loan.ClosedAt = &now
	}
	return s.repos.Loan.Update(ctx, loan)
}

// currentExposure totals what the borrower owes across unsettled
// installments as of the reference date, fines and daily interest included.
func (s *AgreementService) currentExposure(loan *models.Loan, referenceDate time.Time) (decimal.Decimal, error) {
	terms := loan.Terms()
	total := decimal.Zero
	for i := range loan.Installments {
		inst := &loan.Installments[i]
		if inst.IsSettled() {
			continue
		}
		breakdown, err := finance.ComputeDebt(terms, inst.Snapshot(), referenceDate, finance.ForgivenessNone)
		if err != nil {
			return decimal.Zero, err
		}
		outstanding := breakdown.Principal.Add(breakdown.Interest)
		if terms.BillingCycle != finance.CycleMonthly {
			// Daily cycles may carry interest accrued before an earlier
			// partial payment; the breakdown only has the delta since then.
			outstanding = outstanding.Add(finance.ClampZero(inst.InterestRemaining))
		}
		outstanding = outstanding.Add(finance.ClampZero(breakdown.LateFee().Sub(inst.PaidLateFee)))
		total = total.Add(outstanding)
	}
	return finance.Round2(total), nil
}

func (s *AgreementService) params(debt decimal.Decimal, input AgreementInput) finance.AgreementParams {
	return finance.AgreementParams{
		TotalDebt:         debt,
		Type:              finance.AgreementType(input.Type),
		InstallmentsCount: input.InstallmentsCount,
		InterestRate:      input.InterestRate,
		FirstDueDate:      input.FirstDueDate,
		Frequency:         finance.AgreementFrequency(input.Frequency),
	}
}

func (s *AgreementService) loadLoan(ctx context.Context, loanID uint) (*models.Loan, error) {
	loan, err := s.repos.Loan.FindByIDWithDetails(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return loan, nil
}

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
	"github.com/cobrafacil/cobranca-api/pkg/metrics"
)

// Payment type constants
const (
	PaymentTypeFull    = "full"
	PaymentTypePartial = "partial"
	PaymentTypeRenewal = "renewal"
)

// PaymentService settles installments: it accrues whatever the rates produce
// up to the payment date, runs the waterfall allocation and keeps the ledger,
// the installment buckets and the loan lifecycle in sync.
type PaymentService struct {
	repos   *repository.Repositories
	logger  *slog.Logger
	metrics *metrics.Collector
}

func NewPaymentService(repos *repository.Repositories, logger *slog.Logger, collector *metrics.Collector) *PaymentService {
	return &PaymentService{
		repos:   repos,
		logger:  logger,
		metrics: collector,
	}
}

// RegisterPaymentInput carries one payment against an installment.
type RegisterPaymentInput struct {
	InstallmentID uint
	Amount        decimal.Decimal
	Type          string
	Forgiveness   finance.Forgiveness
	PaymentDate   time.Time
	NewDueDate    *time.Time
}

// PaymentResult is what a processed payment produced.
type PaymentResult struct {
	Loan        *models.Loan       `json:"-"`
	Installment models.Installment `json:"installment"`
	Allocation  finance.Allocation `json:"allocation"`
	WaivedFees  decimal.Decimal    `json:"waived_fees"`
	Entry       models.LoanTransaction
}

// RegisterPayment processes a payment against an installment of the original
// schedule. Renewals clear interest and fees and push the due date without
// touching principal; full and partial payments run the waterfall.
func (s *PaymentService) RegisterPayment(ctx context.Context, input RegisterPaymentInput) (*PaymentResult, error) {
	switch input.Type {
	case PaymentTypeFull, PaymentTypePartial, PaymentTypeRenewal:
	default:
		return nil, ErrInvalidPaymentType
	}
	if input.Forgiveness == "" {
		input.Forgiveness = finance.ForgivenessNone
	}
	date := input.PaymentDate
	if date.IsZero() {
		date = time.Now()
	}

	target, err := s.repos.Installment.FindByID(ctx, input.InstallmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	loan, err := s.repos.Loan.FindByIDWithDetails(ctx, target.LoanID)
	if err != nil {
		return nil, err
	}
	if loan.ActiveAgreement() != nil {
		return nil, ErrAgreementSupersedes
	}

	var inst *models.Installment
	for i := range loan.Installments {
		if loan.Installments[i].ID == input.InstallmentID {
			inst = &loan.Installments[i]
			break
		}
	}
	if inst == nil {
		return nil, ErrNotFound
	}
	if inst.IsSettled() {
		return nil, ErrInstallmentSettled
	}

	breakdown, err := finance.ComputeDebt(loan.Terms(), inst.Snapshot(), date, input.Forgiveness)
	if err != nil {
		return nil, err
	}

	// Daily cycles accrue contractual interest between settlements; the
	// breakdown carries exactly the delta since the last anchor.
	if loan.BillingCycle != models.BillingCycleMonthly {
		inst.AccrueInterest(breakdown.Interest)
	}

	waived := s.syncFees(inst, breakdown, input.Forgiveness)

	balance := finance.Balance{
		PrincipalRemaining: finance.ClampZero(inst.PrincipalRemaining),
		InterestRemaining:  finance.ClampZero(inst.InterestRemaining),
		LateFeeRemaining:   finance.ClampZero(inst.LateFeeAccrued),
	}

	var alloc finance.Allocation
	var entryType, description string

	switch input.Type {
	case PaymentTypeRenewal:
		if input.NewDueDate == nil {
			return nil, ErrInvalidDueDate
		}
		newDue := finance.TruncateToDay(*input.NewDueDate)
		if !newDue.After(finance.TruncateToDay(inst.DueDate)) {
			return nil, ErrInvalidDueDate
		}
		alloc = finance.Renew(balance)
		inst.DueDate = newDue
		entryType = models.EntryTypeRenewal
		description = fmt.Sprintf("Renovação — parcela %d, novo vencimento %s", inst.Number, newDue.Format("02/01/2006"))
	default:
		if !input.Amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
		alloc = finance.Allocate(input.Amount, balance)
		entryType = models.EntryTypePayment
		description = fmt.Sprintf("Pagamento recebido — parcela %d", inst.Number)
	}

	inst.ApplyAllocation(alloc, date)
	if err := s.repos.Installment.Update(ctx, inst); err != nil {
		return nil, fmt.Errorf("failed to update installment: %w", err)
	}

	entry := &models.LoanTransaction{
		LoanID:        loan.ID,
		InstallmentID: &inst.ID,
		ReferenceCode: newEntryReference(),
		Amount:        alloc.Total(),
		PaidPrincipal: alloc.PaidPrincipal,
		PaidInterest:  alloc.PaidInterest,
		PaidLateFee:   alloc.PaidLateFee,
		Description:   description,
		EntryType:     entryType,
		EntryDate:     date,
	}
	if err := s.repos.Transaction.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record payment entry: %w", err)
	}

	if waived.IsPositive() {
		waiver := &models.LoanTransaction{
			LoanID:        loan.ID,
			InstallmentID: &inst.ID,
			ReferenceCode: newEntryReference(),
			Amount:        waived,
			Description:   forgivenessDescription(input.Forgiveness, inst.Number),
			EntryType:     models.EntryTypeAdjustment,
			EntryDate:     date,
		}
		if err := s.repos.Transaction.Create(ctx, waiver); err != nil {
			return nil, fmt.Errorf("failed to record forgiveness entry: %w", err)
		}
	}

	if err := syncLoanStatus(ctx, loan, date); err != nil {
		return nil, err
	}
	if loan.Status == models.LoanStatusPaid && loan.ClosedAt == nil {
		now := time.Now()
		loan.ClosedAt = &now
	}
	if err := s.repos.Loan.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	s.metrics.RecordPayment(entryType, alloc.Total().InexactFloat64())
	s.logger.Info("payment registered",
		"loan_id", loan.ID,
		"installment", inst.Number,
		"type", input.Type,
		"amount", alloc.Total(),
		"loan_status", loan.Status,
	)

	return &PaymentResult{
		Loan:        loan,
		Installment: *inst,
		Allocation:  alloc,
		WaivedFees:  waived,
		Entry:       *entry,
	}, nil
}

// syncFees brings the installment's outstanding late fee in line with what
// the rates produce as of the payment date. With forgiveness the waived
// portion is written off for this payment; a later refresh on a still-open
// installment re-accrues it.
func (s *PaymentService) syncFees(inst *models.Installment, breakdown finance.DebtBreakdown, forgiveness finance.Forgiveness) decimal.Decimal {
	if forgiveness == finance.ForgivenessNone {
		inst.SyncLateFee(breakdown.LateFee())
		return decimal.Zero
	}

	previous := inst.LateFeeAccrued
	effective := finance.ClampZero(breakdown.LateFee().Sub(inst.PaidLateFee))
	inst.LateFeeAccrued = effective
	return finance.ClampZero(previous.Sub(effective))
}

// GetDebtPreview computes what an installment costs to settle on a given
// date, without mutating anything. The quote matches what RegisterPayment
// would charge: fees already collected are netted out and daily cycles keep
// carrying interest accrued through earlier payments.
func (s *PaymentService) GetDebtPreview(ctx context.Context, installmentID uint, referenceDate time.Time, forgiveness finance.Forgiveness) (*finance.DebtBreakdown, error) {
	inst, err := s.repos.Installment.FindByID(ctx, installmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if forgiveness == "" {
		forgiveness = finance.ForgivenessNone
	}
	breakdown, err := finance.ComputeDebt(inst.Loan.Terms(), inst.Snapshot(), referenceDate, forgiveness)
	if err != nil {
		return nil, err
	}

	// Run the settlement bookkeeping on a scratch copy so the quoted
	// components equal the balance a payment on this date would face.
	preview := *inst
	if inst.Loan.BillingCycle != models.BillingCycleMonthly {
		preview.AccrueInterest(breakdown.Interest)
	}
	s.syncFees(&preview, breakdown, forgiveness)

	outstandingFee := finance.ClampZero(preview.LateFeeAccrued)
	// What remains owed is attributed to the fine first.
	fine := decimal.Min(breakdown.Fine, outstandingFee)

	breakdown.Interest = finance.Round2(finance.ClampZero(preview.InterestRemaining))
	breakdown.Fine = fine
	breakdown.DailyMora = outstandingFee.Sub(fine)
	breakdown.Total = breakdown.Principal.Add(breakdown.Interest).Add(outstandingFee)
	return &breakdown, nil
}

// OverdueInstallments lists unsettled installments past their due date as of
// the reference date. Feeds the collections view.
func (s *PaymentService) OverdueInstallments(ctx context.Context, referenceDate time.Time) ([]models.Installment, error) {
	installments, err := s.repos.Installment.FindOverdue(ctx, finance.TruncateToDay(referenceDate))
	if err != nil {
		return nil, fmt.Errorf("failed to load overdue installments: %w", err)
	}
	return installments, nil
}

// InstallmentLedger returns every ledger entry written against one installment.
func (s *PaymentService) InstallmentLedger(ctx context.Context, installmentID uint) ([]models.LoanTransaction, error) {
	if _, err := s.repos.Installment.FindByID(ctx, installmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.repos.Transaction.FindByInstallmentID(ctx, installmentID)
}

// RefreshLateFees walks every open loan, re-accrues fines and daily interest
// on late installments and keeps the ledger's late-fee entries at the current
// total. Runs on a schedule; also re-buckets installment and loan statuses.
func (s *PaymentService) RefreshLateFees(ctx context.Context) (int, error) {
	now := time.Now()
	loans, err := s.repos.Loan.FindOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load open loans: %w", err)
	}

	updated := 0
	for li := range loans {
		loan := &loans[li]
		terms := loan.Terms()

		for ii := range loan.Installments {
			inst := &loan.Installments[ii]
			if inst.IsSettled() {
				continue
			}

			breakdown, err := finance.ComputeDebt(terms, inst.Snapshot(), now, finance.ForgivenessNone)
			if err != nil {
				s.logger.Error("skipping installment in late-fee refresh",
					"loan_id", loan.ID, "installment_id", inst.ID, "error", err)
				continue
			}

			previousFee := inst.LateFeeAccrued
			previousStatus := inst.Status
			inst.SyncLateFee(breakdown.LateFee())
			inst.RefreshStatus(now)

			if inst.LateFeeAccrued.Equal(previousFee) && inst.Status == previousStatus {
				continue
			}
			if err := s.repos.Installment.Update(ctx, inst); err != nil {
				s.logger.Error("failed to persist late-fee refresh",
					"loan_id", loan.ID, "installment_id", inst.ID, "error", err)
				continue
			}

			if !inst.LateFeeAccrued.Equal(previousFee) {
				entry := &models.LoanTransaction{
					LoanID:        loan.ID,
					InstallmentID: &inst.ID,
					ReferenceCode: newEntryReference(),
					Amount:        inst.LateFeeAccrued.Add(inst.PaidLateFee).Neg(),
					Description:   fmt.Sprintf("Encargos de atraso acumulados — parcela %d", inst.Number),
					EntryType:     models.EntryTypeLateFee,
					EntryDate:     now,
				}
				if err := s.repos.Transaction.UpsertLateFee(ctx, entry); err != nil {
					s.logger.Error("failed to upsert late-fee ledger entry",
						"loan_id", loan.ID, "installment_id", inst.ID, "error", err)
				}
				updated++
			}
		}

		previousStatus := loan.Status
		if err := syncLoanStatus(ctx, loan, now); err != nil {
			s.logger.Error("failed to sync loan status", "loan_id", loan.ID, "error", err)
			continue
		}
		if loan.Status != previousStatus {
			if err := s.repos.Loan.Update(ctx, loan); err != nil {
				s.logger.Error("failed to persist loan status", "loan_id", loan.ID, "error", err)
			}
		}
	}

	s.metrics.RecordLateFeeRefresh(updated)
	s.logger.Info("late-fee refresh completed", "loans", len(loans), "installments_updated", updated)
	return updated, nil
}

func forgivenessDescription(f finance.Forgiveness, number int) string {
	switch f {
	case finance.ForgivenessFineOnly:
		return fmt.Sprintf("Perdão de multa — parcela %d", number)
	case finance.ForgivenessInterestOnly:
		return fmt.Sprintf("Perdão de juros de mora — parcela %d", number)
	case finance.ForgivenessBoth:
		return fmt.Sprintf("Perdão de multa e mora — parcela %d", number)
	default:
		return fmt.Sprintf("Ajuste de encargos — parcela %d", number)
	}
}

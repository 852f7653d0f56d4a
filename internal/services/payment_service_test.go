package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrafacil/cobranca-api/internal/finance"
	"github.com/cobrafacil/cobranca-api/internal/models"
	"github.com/cobrafacil/cobranca-api/pkg/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newOverdueMonthlyLoan builds a monthly loan of 1000 at 10% with a 5% fine
// and 2% daily interest, one installment due 2025-02-01.
func newOverdueMonthlyLoan() *models.Loan {
	loan := &models.Loan{
		ID:                   1,
		ReferenceCode:        "EMP-TEST0001",
		BorrowerName:         "Maria Souza",
		Principal:            decimal.RequireFromString("1000"),
		InterestRate:         decimal.RequireFromString("10"),
		FinePercent:          decimal.RequireFromString("5"),
		DailyInterestPercent: decimal.RequireFromString("2"),
		BillingCycle:         models.BillingCycleMonthly,
		PaymentTerm:          1,
		StartDate:            time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:               models.LoanStatusActive,
	}
	loan.Installments = []models.Installment{{
		ID:                 10,
		LoanID:             1,
		Number:             1,
		DueDate:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		ScheduledPrincipal: decimal.RequireFromString("1000"),
		ScheduledInterest:  decimal.RequireFromString("100"),
		PrincipalRemaining: decimal.RequireFromString("1000"),
		InterestRemaining:  decimal.RequireFromString("100"),
		Status:             models.InstallmentStatusPending,
	}}
	return loan
}

func newPaymentServiceFor(loan *models.Loan) (*PaymentService, *mockTransactionRepository, *mockLoanRepository) {
	loanRepo := &mockLoanRepository{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Loan, error) {
			return loan, nil
		},
		mockFindOpen: func(ctx context.Context) ([]models.Loan, error) {
			return []models.Loan{*loan}, nil
		},
	}
	instRepo := &mockInstallmentRepository{
		mockFindByID: func(ctx context.Context, id uint) (*models.Installment, error) {
			for i := range loan.Installments {
				if loan.Installments[i].ID == id {
					inst := loan.Installments[i]
					inst.Loan = *loan
					return &inst, nil
				}
			}
			return nil, ErrNotFound
		},
	}
	txRepo := &mockTransactionRepository{}
	repos := newMockRepositories(loanRepo, instRepo, &mockAgreementRepository{}, txRepo)
	return NewPaymentService(repos, testLogger(), metrics.New()), txRepo, loanRepo
}

func TestRegisterPaymentSettlesOnTime(t *testing.T) {
	loan := newOverdueMonthlyLoan()
	svc, txRepo, _ := newPaymentServiceFor(loan)

	result, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 10,
		Amount:        decimal.RequireFromString("1100"),
		Type:          PaymentTypeFull,
		PaymentDate:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Waterfall: interest first, then principal; no late fee on the due date.
	assert.True(t, result.Allocation.PaidInterest.Equal(decimal.RequireFromString("100")))
	assert.True(t, result.Allocation.PaidPrincipal.Equal(decimal.RequireFromString("1000")))
	assert.True(t, result.Allocation.PaidLateFee.IsZero())

	assert.Equal(t, models.InstallmentStatusPaid, result.Installment.Status)
	assert.Equal(t, models.LoanStatusPaid, loan.Status)
	assert.NotNil(t, loan.ClosedAt)

	payments := txRepo.entriesOfType(models.EntryTypePayment)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(decimal.RequireFromString("1100")))
	assert.Equal(t, uint(10), *payments[0].InstallmentID)
}

func TestRegisterPaymentPartialGoesToInterestFirst(t *testing.T) {
	loan := newOverdueMonthlyLoan()
	svc, _, _ := newPaymentServiceFor(loan)

	result, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 10,
		Amount:        decimal.RequireFromString("50"),
		Type:          PaymentTypePartial,
		PaymentDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, result.Allocation.PaidInterest.Equal(decimal.RequireFromString("50")))
	assert.True(t, result.Allocation.PaidPrincipal.IsZero())
	assert.Equal(t, models.InstallmentStatusPartial, result.Installment.Status)
	assert.Equal(t, models.LoanStatusActive, loan.Status)
	assert.True(t, result.Installment.InterestRemaining.Equal(decimal.RequireFromString("50")))
}

func TestRegisterPaymentLateAccruesFeesBeforeAllocating(t *testing.T) {
	loan := newOverdueMonthlyLoan()
	svc, _, _ := newPaymentServiceFor(loan)

	// Five days late: fine 5% of 1000 = 50, daily 2% x 5 days = 100.
	result, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 10,
		Amount:        decimal.RequireFromString("200"),
		Type:          PaymentTypePartial,
		PaymentDate:   time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, result.Allocation.PaidInterest.Equal(decimal.RequireFromString("100")))
	assert.True(t, result.Allocation.PaidLateFee.Equal(decimal.RequireFromString("100")))
	assert.True(t, result.Allocation.PaidPrincipal.IsZero())

	assert.True(t, result.Installment.LateFeeAccrued.Equal(decimal.RequireFromString("50")))
	assert.True(t, result.Installment.PrincipalRemaining.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, models.InstallmentStatusLate, result.Installment.Status)
	assert.Equal(t, models.LoanStatusOverdue, loan.Status)
}

func TestRegisterPaymentForgivenessWaivesFees(t *testing.T) {
	loan := newOverdueMonthlyLoan()
	// A previous refresh already accrued the fees on the books.
	loan.Installments[0].LateFeeAccrued = decimal.RequireFromString("150")
	svc, txRepo, _ := newPaymentServiceFor(loan)

	result, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 10,
		Amount:        decimal.RequireFromString("1100"),
		Type:          PaymentTypeFull,
		Forgiveness:   finance.ForgivenessBoth,
		PaymentDate:   time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, result.WaivedFees.Equal(decimal.RequireFromString("150")))
	assert.True(t, result.Allocation.PaidLateFee.IsZero())
	assert.Equal(t, models.InstallmentStatusPaid, result.Installment.Status)
	assert.Equal(t, models.LoanStatusPaid, loan.Status)

	adjustments := txRepo.entriesOfType(models.EntryTypeAdjustment)
	require.Len(t, adjustments, 1)
	assert.True(t, adjustments[0].Amount.Equal(decimal.RequireFromString("150")))
}

func TestRegisterPaymentRenewalClearsChargesKeepsPrincipal(t *testing.T) {
	loan := newOverdueMonthlyLoan()
	svc, txRepo, _ := newPaymentServiceFor(loan)

	newDue := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 10,
		Type:          PaymentTypeRenewal,
		PaymentDate:   time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC),
		NewDueDate:    &newDue,
	})
	require.NoError(t, err)

	assert.True(t, result.Allocation.PaidInterest.Equal(decimal.RequireFromString("100")))
	assert.True(t, result.Allocation.PaidLateFee.Equal(decimal.RequireFromString("150")))
	assert.True(t, result.Allocation.PaidPrincipal.IsZero())

	assert.True(t, result.Installment.PrincipalRemaining.Equal(decimal.RequireFromString("1000")))
	assert.True(t, result.Installment.InterestRemaining.IsZero())
	assert.True(t, result.Installment.LateFeeAccrued.IsZero())
	assert.Equal(t, newDue, result.Installment.DueDate)
	assert.Equal(t, models.InstallmentStatusPartial, result.Installment.Status)
	assert.Equal(t, models.LoanStatusActive, loan.Status)

	renewals := txRepo.entriesOfType(models.EntryTypeRenewal)
	require.Len(t, renewals, 1)
	assert.True(t, renewals[0].Amount.Equal(decimal.RequireFromString("250")))
}

func TestRegisterPaymentRenewalRequiresLaterDueDate(t *testing.T) {
	loan := newOverdueMonthlyLoan()
	svc, _, _ := newPaymentServiceFor(loan)

	earlier := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	_, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 10,
		Type:          PaymentTypeRenewal,
		PaymentDate:   time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC),
		NewDueDate:    &earlier,
	})
	assert.ErrorIs(t, err, ErrInvalidDueDate)

	_, err = svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 10,
		Type:          PaymentTypeRenewal,
		PaymentDate:   time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrInvalidDueDate)
}

func TestRegisterPaymentDailyCycleAccruesInterestSinceStart(t *testing.T) {
	loan := &models.Loan{
		ID:           2,
		Principal:    decimal.RequireFromString("3000"),
		InterestRate: decimal.RequireFromString("10"),
		BillingCycle: models.BillingCycleDailyFree,
		PaymentTerm:  1,
		StartDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:       models.LoanStatusActive,
	}
	loan.Installments = []models.Installment{{
		ID:                 20,
		LoanID:             2,
		Number:             1,
		DueDate:            time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		ScheduledPrincipal: decimal.RequireFromString("3000"),
		PrincipalRemaining: decimal.RequireFromString("3000"),
		Status:             models.InstallmentStatusPending,
	}}
	svc, _, _ := newPaymentServiceFor(loan)

	// 15 days at 10%/30 per day over 3000 = 150 of interest.
	result, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 20,
		Amount:        decimal.RequireFromString("150"),
		Type:          PaymentTypePartial,
		PaymentDate:   time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, result.Allocation.PaidInterest.Equal(decimal.RequireFromString("150")))
	assert.True(t, result.Installment.InterestRemaining.IsZero())
	assert.True(t, result.Installment.PrincipalRemaining.Equal(decimal.RequireFromString("3000")))
	require.NotNil(t, result.Installment.LastSettledAt)
	assert.Equal(t, time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC), *result.Installment.LastSettledAt)
}

func TestRegisterPaymentGuards(t *testing.T) {
	t.Run("unknown payment type", func(t *testing.T) {
		loan := newOverdueMonthlyLoan()
		svc, _, _ := newPaymentServiceFor(loan)
		_, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
			InstallmentID: 10,
			Amount:        decimal.RequireFromString("10"),
			Type:          "quitacao",
		})
		assert.ErrorIs(t, err, ErrInvalidPaymentType)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		loan := newOverdueMonthlyLoan()
		svc, _, _ := newPaymentServiceFor(loan)
		_, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
			InstallmentID: 10,
			Amount:        decimal.Zero,
			Type:          PaymentTypePartial,
			PaymentDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("active agreement supersedes the schedule", func(t *testing.T) {
		loan := newOverdueMonthlyLoan()
		loan.Agreements = []models.Agreement{{ID: 1, LoanID: 1, Status: models.AgreementStatusActive}}
		svc, _, _ := newPaymentServiceFor(loan)
		_, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
			InstallmentID: 10,
			Amount:        decimal.RequireFromString("100"),
			Type:          PaymentTypePartial,
			PaymentDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		})
		assert.ErrorIs(t, err, ErrAgreementSupersedes)
	})

	t.Run("settled installment rejects payments", func(t *testing.T) {
		loan := newOverdueMonthlyLoan()
		loan.Installments[0].PrincipalRemaining = decimal.Zero
		loan.Installments[0].InterestRemaining = decimal.Zero
		loan.Installments[0].Status = models.InstallmentStatusPaid
		svc, _, _ := newPaymentServiceFor(loan)
		_, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
			InstallmentID: 10,
			Amount:        decimal.RequireFromString("100"),
			Type:          PaymentTypePartial,
			PaymentDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		})
		assert.ErrorIs(t, err, ErrInstallmentSettled)
	})
}

func TestGetDebtPreviewNetsCollectedLateFees(t *testing.T) {
	loan := newOverdueMonthlyLoan()
	// An earlier payment already collected 100 of late fees; 50 remain open.
	loan.Installments[0].PaidLateFee = decimal.RequireFromString("100")
	loan.Installments[0].LateFeeAccrued = decimal.RequireFromString("50")
	svc, _, _ := newPaymentServiceFor(loan)

	asOf := time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC)
	preview, err := svc.GetDebtPreview(context.Background(), 10, asOf, finance.ForgivenessNone)
	require.NoError(t, err)

	// Five days late the rates produce 150 of fees (fine 50 + mora 100); the
	// 100 already collected are netted out of the quote.
	assert.True(t, preview.Fine.Equal(decimal.RequireFromString("50")))
	assert.True(t, preview.DailyMora.IsZero())
	assert.True(t, preview.Interest.Equal(decimal.RequireFromString("100")))
	assert.True(t, preview.Total.Equal(decimal.RequireFromString("1150")))

	// Paying exactly the quoted total settles the installment.
	result, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 10,
		Amount:        preview.Total,
		Type:          PaymentTypeFull,
		PaymentDate:   asOf,
	})
	require.NoError(t, err)
	assert.True(t, result.Allocation.Total().Equal(preview.Total))
	assert.Equal(t, models.InstallmentStatusPaid, result.Installment.Status)
}

func TestGetDebtPreviewCarriesDailyInterestAcrossPayments(t *testing.T) {
	anchor := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	loan := &models.Loan{
		ID:           2,
		Principal:    decimal.RequireFromString("3000"),
		InterestRate: decimal.RequireFromString("10"),
		BillingCycle: models.BillingCycleDailyFree,
		PaymentTerm:  1,
		StartDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:       models.LoanStatusActive,
	}
	loan.Installments = []models.Installment{{
		ID:                 20,
		LoanID:             2,
		Number:             1,
		DueDate:            time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		ScheduledPrincipal: decimal.RequireFromString("3000"),
		PrincipalRemaining: decimal.RequireFromString("3000"),
		// An earlier partial payment left 40 of interest on the books.
		InterestRemaining: decimal.RequireFromString("40"),
		LastSettledAt:     &anchor,
		Status:            models.InstallmentStatusPartial,
	}}
	svc, _, _ := newPaymentServiceFor(loan)

	asOf := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	preview, err := svc.GetDebtPreview(context.Background(), 20, asOf, finance.ForgivenessNone)
	require.NoError(t, err)

	// 15 days since the anchor accrue 150; the carried 40 stay owed too.
	assert.True(t, preview.Interest.Equal(decimal.RequireFromString("190")))
	assert.True(t, preview.Total.Equal(decimal.RequireFromString("3190")))

	result, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 20,
		Amount:        preview.Total,
		Type:          PaymentTypeFull,
		PaymentDate:   asOf,
	})
	require.NoError(t, err)
	assert.True(t, result.Allocation.Total().Equal(preview.Total))
	assert.Equal(t, models.InstallmentStatusPaid, result.Installment.Status)
}

func TestOverdueInstallmentsTruncatesReferenceDate(t *testing.T) {
	loan := newOverdueMonthlyLoan()
	svc, _, _ := newPaymentServiceFor(loan)
	instRepo := svc.repos.Installment.(*mockInstallmentRepository)

	var gotAsOf time.Time
	instRepo.mockFindOverdue = func(ctx context.Context, asOf time.Time) ([]models.Installment, error) {
		gotAsOf = asOf
		return loan.Installments, nil
	}

	installments, err := svc.OverdueInstallments(context.Background(), time.Date(2025, 2, 10, 15, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, installments, 1)
	assert.Equal(t, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), gotAsOf)
}

func TestInstallmentLedgerListsOnlyItsEntries(t *testing.T) {
	loan := newOverdueMonthlyLoan()
	svc, txRepo, _ := newPaymentServiceFor(loan)

	otherID := uint(99)
	txRepo.created = append(txRepo.created, models.LoanTransaction{
		ID: 1, LoanID: 1, InstallmentID: &otherID,
		Amount: decimal.RequireFromString("10"), EntryType: models.EntryTypePayment,
	})

	_, err := svc.RegisterPayment(context.Background(), RegisterPaymentInput{
		InstallmentID: 10,
		Amount:        decimal.RequireFromString("50"),
		Type:          PaymentTypePartial,
		PaymentDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	entries, err := svc.InstallmentLedger(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint(10), *entries[0].InstallmentID)
	assert.Equal(t, models.EntryTypePayment, entries[0].EntryType)

	_, err = svc.InstallmentLedger(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshLateFeesAccruesAndReclassifies(t *testing.T) {
	loan := newOverdueMonthlyLoan()
	var savedLoan *models.Loan
	svc, txRepo, loanRepo := newPaymentServiceFor(loan)
	loanRepo.mockUpdate = func(ctx context.Context, l *models.Loan) error {
		savedLoan = l
		return nil
	}

	updated, err := svc.RefreshLateFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	require.Len(t, txRepo.upserted, 1)
	entry := txRepo.upserted[0]
	assert.Equal(t, models.EntryTypeLateFee, entry.EntryType)
	assert.True(t, entry.Amount.IsNegative(), "late fees enter the ledger as debits")

	require.NotNil(t, savedLoan)
	assert.Equal(t, models.LoanStatusOverdue, savedLoan.Status)
}

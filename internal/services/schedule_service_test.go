package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrafacil/cobranca-api/internal/models"
)

func newMonthlyLoan(principal string, rate string, term int) *models.Loan {
	return &models.Loan{
		Principal:    decimal.RequireFromString(principal),
		InterestRate: decimal.RequireFromString(rate),
		BillingCycle: models.BillingCycleMonthly,
		PaymentTerm:  term,
		StartDate:    time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerateMonthlySchedule(t *testing.T) {
	svc := NewScheduleService()
	loan := newMonthlyLoan("1000", "10", 3)

	installments, err := svc.Generate(loan)
	require.NoError(t, err)
	require.Len(t, installments, 3)

	// Principal splits evenly with residual cents on the last installment.
	assert.True(t, installments[0].ScheduledPrincipal.Equal(decimal.RequireFromString("333.33")))
	assert.True(t, installments[1].ScheduledPrincipal.Equal(decimal.RequireFromString("333.33")))
	assert.True(t, installments[2].ScheduledPrincipal.Equal(decimal.RequireFromString("333.34")))

	sum := decimal.Zero
	for _, inst := range installments {
		sum = sum.Add(inst.ScheduledPrincipal)
	}
	assert.True(t, sum.Equal(loan.Principal), "schedule must conserve principal, got %s", sum)

	// Interest is fixed at origination from each installment's principal.
	assert.True(t, installments[0].ScheduledInterest.Equal(decimal.RequireFromString("33.33")))
	assert.True(t, installments[0].InterestRemaining.Equal(installments[0].ScheduledInterest))

	// Monthly due dates starting one month after the start date.
	assert.Equal(t, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), installments[0].DueDate)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), installments[1].DueDate)
	assert.Equal(t, time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), installments[2].DueDate)

	for i, inst := range installments {
		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, models.InstallmentStatusPending, inst.Status)
	}
}

func TestGenerateDailyFreeSchedule(t *testing.T) {
	svc := NewScheduleService()
	loan := &models.Loan{
		Principal:    decimal.RequireFromString("3000"),
		InterestRate: decimal.RequireFromString("10"),
		BillingCycle: models.BillingCycleDailyFree,
		PaymentTerm:  1,
		StartDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	installments, err := svc.Generate(loan)
	require.NoError(t, err)
	require.Len(t, installments, 1)

	inst := installments[0]
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), inst.DueDate)
	assert.True(t, inst.ScheduledPrincipal.Equal(loan.Principal))
	// Daily cycles accrue interest over time, nothing is pre-scheduled.
	assert.True(t, inst.ScheduledInterest.IsZero())
	assert.True(t, inst.InterestRemaining.IsZero())
}

func TestGenerateDailyFixedTermSchedule(t *testing.T) {
	svc := NewScheduleService()
	loan := &models.Loan{
		Principal:    decimal.RequireFromString("2000"),
		InterestRate: decimal.RequireFromString("12"),
		BillingCycle: models.BillingCycleDailyFixedTerm,
		PaymentTerm:  45,
		StartDate:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	installments, err := svc.Generate(loan)
	require.NoError(t, err)
	require.Len(t, installments, 1)
	assert.Equal(t, time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), installments[0].DueDate)
}

func TestGenerateRejectsBadTerms(t *testing.T) {
	svc := NewScheduleService()

	t.Run("zero installment count", func(t *testing.T) {
		loan := newMonthlyLoan("1000", "10", 0)
		_, err := svc.Generate(loan)
		assert.Error(t, err)
	})

	t.Run("unknown billing cycle", func(t *testing.T) {
		loan := newMonthlyLoan("1000", "10", 3)
		loan.BillingCycle = "weekly"
		_, err := svc.Generate(loan)
		assert.Error(t, err)
	})

	t.Run("non-positive principal", func(t *testing.T) {
		loan := newMonthlyLoan("0", "10", 3)
		_, err := svc.Generate(loan)
		assert.Error(t, err)
	})
}

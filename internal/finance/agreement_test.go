package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseAgreementParams() AgreementParams {
	return AgreementParams{
		TotalDebt:         dec("1000"),
		Type:              AgreementWithInterest,
		InstallmentsCount: 3,
		InterestRate:      dec("5"),
		FirstDueDate:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Frequency:         FrequencyMonthly,
	}
}

func TestSimulateAgreement_SumInvariant(t *testing.T) {
	plan, err := SimulateAgreement(baseAgreementParams())
	require.NoError(t, err)

	// 1000 × (1 + 0.05 × 3) = 1150.00
	assert.Equal(t, "1150.00", plan.NegotiatedTotal.StringFixed(2))
	require.Len(t, plan.Installments, 3)

	// round2(1150/3) = 383.33; the residual cent lands on the last entry.
	assert.Equal(t, "383.33", plan.Installments[0].Amount.StringFixed(2))
	assert.Equal(t, "383.33", plan.Installments[1].Amount.StringFixed(2))
	assert.Equal(t, "383.34", plan.Installments[2].Amount.StringFixed(2))

	sum := decimal.Zero
	for _, inst := range plan.Installments {
		sum = sum.Add(inst.Amount)
	}
	assert.True(t, sum.Equal(plan.NegotiatedTotal), "installments must sum to the negotiated total exactly")
}

func TestSimulateAgreement_WithoutInterestFreezesDebt(t *testing.T) {
	p := baseAgreementParams()
	p.Type = AgreementWithoutInterest
	p.InterestRate = dec("99") // ignored for frozen agreements

	plan, err := SimulateAgreement(p)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", plan.NegotiatedTotal.StringFixed(2))
}

func TestSimulateAgreement_FrequencyMonthEquivalents(t *testing.T) {
	p := baseAgreementParams()
	p.Frequency = FrequencyWeekly
	p.InstallmentsCount = 8 // 8 weekly installments = 2 month-equivalents

	plan, err := SimulateAgreement(p)
	require.NoError(t, err)
	// 1000 × (1 + 0.05 × 2) = 1100.00
	assert.Equal(t, "1100.00", plan.NegotiatedTotal.StringFixed(2))
}

func TestSimulateAgreement_DueDateStepping(t *testing.T) {
	tests := []struct {
		frequency AgreementFrequency
		stepDays  int
	}{
		{FrequencyWeekly, 7},
		{FrequencyBiweekly, 15},
		{FrequencyMonthly, 30},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			p := baseAgreementParams()
			p.Frequency = tt.frequency

			plan, err := SimulateAgreement(p)
			require.NoError(t, err)

			first := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
			for i, inst := range plan.Installments {
				assert.Equal(t, i+1, inst.Number)
				assert.Equal(t, first.AddDate(0, 0, i*tt.stepDays), inst.DueDate)
			}
		})
	}
}

func TestSimulateAgreement_Deterministic(t *testing.T) {
	p := baseAgreementParams()
	p.TotalDebt = dec("7777.77")
	p.InstallmentsCount = 7

	first, err := SimulateAgreement(p)
	require.NoError(t, err)
	second, err := SimulateAgreement(p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSimulateAgreement_Validation(t *testing.T) {
	t.Run("zero debt", func(t *testing.T) {
		p := baseAgreementParams()
		p.TotalDebt = decimal.Zero
		_, err := SimulateAgreement(p)
		assert.Error(t, err)
	})

	t.Run("zero installments", func(t *testing.T) {
		p := baseAgreementParams()
		p.InstallmentsCount = 0
		_, err := SimulateAgreement(p)
		assert.Error(t, err)
	})

	t.Run("negative rate", func(t *testing.T) {
		p := baseAgreementParams()
		p.InterestRate = dec("-5")
		_, err := SimulateAgreement(p)
		assert.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		p := baseAgreementParams()
		p.Type = AgreementType("quitacao")
		_, err := SimulateAgreement(p)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "type", verr.Field)
	})

	t.Run("unknown frequency", func(t *testing.T) {
		p := baseAgreementParams()
		p.Frequency = AgreementFrequency("daily")
		_, err := SimulateAgreement(p)
		assert.Error(t, err)
	})

	t.Run("missing first due date", func(t *testing.T) {
		p := baseAgreementParams()
		p.FirstDueDate = time.Time{}
		_, err := SimulateAgreement(p)
		assert.Error(t, err)
	})
}

package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgreementType selects whether a renegotiation grows the debt with fresh
// interest or freezes it.
type AgreementType string

const (
	AgreementWithInterest    AgreementType = "parcelado_com_juros"
	AgreementWithoutInterest AgreementType = "parcelado_sem_juros"
)

// AgreementFrequency is the spacing between renegotiated installments.
type AgreementFrequency string

const (
	FrequencyWeekly   AgreementFrequency = "weekly"
	FrequencyBiweekly AgreementFrequency = "biweekly"
	FrequencyMonthly  AgreementFrequency = "monthly"
)

// AgreementParams drives a renegotiation simulation. InterestRate is a plain
// monthly percentage and only applies to AgreementWithInterest.
type AgreementParams struct {
	TotalDebt         decimal.Decimal
	Type              AgreementType
	InstallmentsCount int
	InterestRate      decimal.Decimal
	FirstDueDate      time.Time
	Frequency         AgreementFrequency
}

// Validate fails fast on inputs that would produce a nonsensical schedule.
func (p AgreementParams) Validate() error {
	if !p.TotalDebt.IsPositive() {
		return errInvalid("total_debt", "deve ser maior que zero")
	}
	if p.InstallmentsCount <= 0 {
		return errInvalid("installments_count", "deve ser maior que zero")
	}
	if p.InterestRate.IsNegative() {
		return errInvalid("interest_rate", "não pode ser negativa")
	}
	if p.FirstDueDate.IsZero() {
		return errInvalid("first_due_date", "é obrigatória")
	}
	switch p.Type {
	case AgreementWithInterest, AgreementWithoutInterest:
	default:
		return errInvalid("type", "tipo de acordo desconhecido")
	}
	switch p.Frequency {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	default:
		return errInvalid("frequency", "frequência desconhecida")
	}
	return nil
}

// SimulatedInstallment is one entry of a renegotiated schedule.
type SimulatedInstallment struct {
	Number  int             `json:"number"`
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

// AgreementPlan is the outcome of a renegotiation simulation. The sum of the
// installment amounts equals NegotiatedTotal to the cent.
type AgreementPlan struct {
	NegotiatedTotal decimal.Decimal        `json:"negotiated_total"`
	Installments    []SimulatedInstallment `json:"installments"`
}

// SimulateAgreement produces a fresh amortization schedule for a renegotiated
// debt. Deterministic: identical inputs always yield byte-identical output,
// which audits of a signed agreement depend on.
func SimulateAgreement(p AgreementParams) (AgreementPlan, error) {
	if err := p.Validate(); err != nil {
		return AgreementPlan{}, err
	}

	count := decimal.NewFromInt(int64(p.InstallmentsCount))

	negotiated := Round2(p.TotalDebt)
	if p.Type == AgreementWithInterest {
		// Simple interest over the term expressed in month-equivalents.
		factor := decimal.NewFromInt(1).Add(p.InterestRate.Div(oneHundred).Mul(monthsEquivalent(p.InstallmentsCount, p.Frequency)))
		negotiated = Round2(p.TotalDebt.Mul(factor))
	}

	installmentValue := Round2(negotiated.Div(count))
	// Residual cents go entirely into the last installment so the schedule
	// sums to the negotiated total exactly.
	residual := negotiated.Sub(installmentValue.Mul(count))

	firstDue := TruncateToDay(p.FirstDueDate)
	step := stepDays(p.Frequency)

	installments := make([]SimulatedInstallment, 0, p.InstallmentsCount)
	for i := 0; i < p.InstallmentsCount; i++ {
		amount := installmentValue
		if i == p.InstallmentsCount-1 {
			amount = installmentValue.Add(residual)
		}
		installments = append(installments, SimulatedInstallment{
			Number:  i + 1,
			DueDate: firstDue.AddDate(0, 0, i*step),
			Amount:  amount,
		})
	}

	return AgreementPlan{NegotiatedTotal: negotiated, Installments: installments}, nil
}

// monthsEquivalent converts an installment count at a given frequency into
// months of exposure: 4 weekly or 2 biweekly installments count as 1 month.
func monthsEquivalent(count int, freq AgreementFrequency) decimal.Decimal {
	n := decimal.NewFromInt(int64(count))
	switch freq {
	case FrequencyWeekly:
		return n.Div(decimal.NewFromInt(4))
	case FrequencyBiweekly:
		return n.Div(decimal.NewFromInt(2))
	default:
		return n
	}
}

func stepDays(freq AgreementFrequency) int {
	switch freq {
	case FrequencyWeekly:
		return 7
	case FrequencyBiweekly:
		return 15
	default:
		return 30
	}
}

package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cobrafacil/cobranca-api/internal/finance"
	"github.com/cobrafacil/cobranca-api/internal/models"
)

// ScheduleService builds a loan's installment schedule from its contracted
// terms. The schedule is generated once, at origination; interest on daily
// cycles accrues afterwards, outside the schedule.
type ScheduleService struct{}

func NewScheduleService() *ScheduleService {
	return &ScheduleService{}
}

// Generate lays out the loan's installments according to its billing cycle.
//
// MONTHLY: PaymentTerm monthly installments; the principal is split into
// equal parts (residual cents land on the last installment) and each
// installment carries the monthly interest fixed at origination
// (installment principal x monthly rate).
//
// DAILY_FREE: a single installment due 30 days after the start date, with
// no pre-fixed interest; daily interest accrues until settlement.
//
// DAILY_FIXED_TERM: a single installment due PaymentTerm days after the
// start date, also with interest accruing daily.
func (s *ScheduleService) Generate(loan *models.Loan) ([]models.Installment, error) {
	terms := loan.Terms()
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	switch terms.BillingCycle {
	case finance.CycleMonthly:
		return s.generateMonthly(loan, terms)
	case finance.CycleDailyFree:
		return s.generateSingle(loan, terms.StartDate.AddDate(0, 0, 30)), nil
	case finance.CycleDailyFixedTerm:
		if loan.PaymentTerm <= 0 {
			return nil, fmt.Errorf("prazo em dias deve ser maior que zero")
		}
		return s.generateSingle(loan, terms.StartDate.AddDate(0, 0, loan.PaymentTerm)), nil
	default:
		return nil, fmt.Errorf("ciclo de cobrança desconhecido: %s", terms.BillingCycle)
	}
}

func (s *ScheduleService) generateMonthly(loan *models.Loan, terms finance.LoanTerms) ([]models.Installment, error) {
	count := loan.PaymentTerm
	if count <= 0 {
		return nil, fmt.Errorf("quantidade de parcelas deve ser maior que zero")
	}

	per := finance.Round2(terms.Principal.Div(decimal.NewFromInt(int64(count))))
	residual := terms.Principal.Sub(per.Mul(decimal.NewFromInt(int64(count))))

	installments := make([]models.Installment, 0, count)
	for i := 1; i <= count; i++ {
		principal := per
		if i == count {
			principal = principal.Add(residual)
		}
		interest := finance.Round2(principal.Mul(terms.MonthlyInterestRate).Div(decimal.NewFromInt(100)))

		installments = append(installments, models.Installment{
			Number:             i,
			DueDate:            finance.TruncateToDay(terms.StartDate.AddDate(0, i, 0)),
			ScheduledPrincipal: principal,
			ScheduledInterest:  interest,
			PrincipalRemaining: principal,
			InterestRemaining:  interest,
			Status:             models.InstallmentStatusPending,
		})
	}
	return installments, nil
}

func (s *ScheduleService) generateSingle(loan *models.Loan, dueDate time.Time) []models.Installment {
	return []models.Installment{{
		Number:             1,
		DueDate:            finance.TruncateToDay(dueDate),
		ScheduledPrincipal: loan.Principal,
		ScheduledInterest:  decimal.Zero,
		PrincipalRemaining: loan.Principal,
		InterestRemaining:  decimal.Zero,
		Status:             models.InstallmentStatusPending,
	}}
}

package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrafacil/cobranca-api/internal/models"
)

func TestLoanLifecycleHappyPath(t *testing.T) {
	ctx := context.Background()
	loan := &models.Loan{Status: models.LoanStatusActive}
	fsm := NewLoanFSM(loan)

	require.NoError(t, fsm.MarkOverdue(ctx))
	assert.Equal(t, models.LoanStatusOverdue, loan.Status)

	require.NoError(t, fsm.Normalize(ctx))
	assert.Equal(t, models.LoanStatusActive, loan.Status)

	require.NoError(t, fsm.Settle(ctx))
	assert.Equal(t, models.LoanStatusPaid, loan.Status)
}

func TestLoanRenegotiationPath(t *testing.T) {
	ctx := context.Background()
	loan := &models.Loan{Status: models.LoanStatusOverdue}
	fsm := NewLoanFSM(loan)

	require.NoError(t, fsm.Renegotiate(ctx))
	assert.Equal(t, models.LoanStatusLegal, loan.Status)

	// Broken agreement sends the loan back to collections.
	require.NoError(t, fsm.BreakAgreement(ctx))
	assert.Equal(t, models.LoanStatusOverdue, loan.Status)
}

func TestLoanReopensFromPaid(t *testing.T) {
	ctx := context.Background()
	loan := &models.Loan{Status: models.LoanStatusPaid}
	fsm := NewLoanFSM(loan)

	require.NoError(t, fsm.Reopen(ctx))
	assert.Equal(t, models.LoanStatusActive, loan.Status)
}

func TestLoanInvalidTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("cannot normalize an active loan", func(t *testing.T) {
		loan := &models.Loan{Status: models.LoanStatusActive}
		assert.Error(t, NewLoanFSM(loan).Normalize(ctx))
		assert.Equal(t, models.LoanStatusActive, loan.Status)
	})

	t.Run("cannot settle twice", func(t *testing.T) {
		loan := &models.Loan{Status: models.LoanStatusPaid}
		assert.Error(t, NewLoanFSM(loan).Settle(ctx))
	})

	t.Run("cannot break without an agreement", func(t *testing.T) {
		loan := &models.Loan{Status: models.LoanStatusActive}
		assert.Error(t, NewLoanFSM(loan).BreakAgreement(ctx))
	})
}

func TestAgreementLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("settle requires every installment paid", func(t *testing.T) {
		agreement := &models.Agreement{
			Status: models.AgreementStatusActive,
			Installments: []models.AgreementInstallment{
				{Number: 1, Status: models.AgreementInstallmentStatusPaid},
				{Number: 2, Status: models.AgreementInstallmentStatusPending},
			},
		}
		assert.Error(t, NewAgreementFSM(agreement).Settle(ctx))
		assert.Equal(t, models.AgreementStatusActive, agreement.Status)

		agreement.Installments[1].Status = models.AgreementInstallmentStatusPaid
		require.NoError(t, NewAgreementFSM(agreement).Settle(ctx))
		assert.Equal(t, models.AgreementStatusPaid, agreement.Status)
		assert.NotNil(t, agreement.PaidAt)
	})

	t.Run("break only from active", func(t *testing.T) {
		agreement := &models.Agreement{Status: models.AgreementStatusActive}
		require.NoError(t, NewAgreementFSM(agreement).Break(ctx))
		assert.Equal(t, models.AgreementStatusBroken, agreement.Status)
		assert.NotNil(t, agreement.BrokenAt)

		assert.Error(t, NewAgreementFSM(agreement).Break(ctx))
	})
}

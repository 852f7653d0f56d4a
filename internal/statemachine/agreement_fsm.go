package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/cobrafacil/cobranca-api/internal/models"
)

// AgreementFSM wraps a renegotiation agreement with its state machine
type AgreementFSM struct {
	agreement *models.Agreement
	fsm       *fsm.FSM
}

// NewAgreementFSM creates a new agreement state machine
func NewAgreementFSM(agreement *models.Agreement) *AgreementFSM {
	afsm := &AgreementFSM{
		agreement: agreement,
	}

	afsm.fsm = fsm.NewFSM(
		agreement.Status,
		fsm.Events{
			// active → paid (every agreement installment settled)
			{Name: "settle", Src: []string{models.AgreementStatusActive}, Dst: models.AgreementStatusPaid},

			// active → broken (borrower defaulted on the renegotiation)
			{Name: "break", Src: []string{models.AgreementStatusActive}, Dst: models.AgreementStatusBroken},
		},
		fsm.Callbacks{},
	)

	return afsm
}

// Settle transitions the agreement to paid
func (a *AgreementFSM) Settle(ctx context.Context) error {
	if !a.agreement.AllInstallmentsSettled() {
		return fmt.Errorf("agreement cannot be settled: installments remain unpaid")
	}

	if err := a.fsm.Event(ctx, "settle"); err != nil {
		return fmt.Errorf("failed to settle agreement: %w", err)
	}

	a.agreement.Status = a.fsm.Current()
	now := time.Now()
	a.agreement.PaidAt = &now
	return nil
}

// Break transitions the agreement to broken; the original debt resumes
func (a *AgreementFSM) Break(ctx context.Context) error {
	if !a.agreement.MayBreak() {
		return fmt.Errorf("agreement cannot be broken in current state: %s", a.agreement.Status)
	}

	if err := a.fsm.Event(ctx, "break"); err != nil {
		return fmt.Errorf("failed to break agreement: %w", err)
	}

	a.agreement.Status = a.fsm.Current()
	now := time.Now()
	a.agreement.BrokenAt = &now
	return nil
}

// Current returns the current state
func (a *AgreementFSM) Current() string {
	return a.fsm.Current()
}

// Can checks if a transition is possible
func (a *AgreementFSM) Can(event string) bool {
	return a.fsm.Can(event)
}

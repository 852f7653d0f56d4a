package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/cobrafacil/cobranca-api/internal/models"
)

// LoanFSM wraps a loan with its lifecycle state machine
type LoanFSM struct {
	loan *models.Loan
	fsm  *fsm.FSM
}

// NewLoanFSM creates a new loan state machine
func NewLoanFSM(loan *models.Loan) *LoanFSM {
	lfsm := &LoanFSM{
		loan: loan,
	}

	lfsm.fsm = fsm.NewFSM(
		loan.Status,
		fsm.Events{
			// active → overdue (an installment went late)
			{Name: "mark_overdue", Src: []string{models.LoanStatusActive}, Dst: models.LoanStatusOverdue},

			// overdue → active (late debt was settled, balance remains)
			{Name: "normalize", Src: []string{models.LoanStatusOverdue}, Dst: models.LoanStatusActive},

			// active/overdue → legal (renegotiation agreement opened)
			{Name: "renegotiate", Src: []string{models.LoanStatusActive, models.LoanStatusOverdue}, Dst: models.LoanStatusLegal},

			// legal → overdue (agreement broken, original debt resumes)
			{Name: "break_agreement", Src: []string{models.LoanStatusLegal}, Dst: models.LoanStatusOverdue},

			// any open state → paid
			{Name: "settle", Src: []string{models.LoanStatusActive, models.LoanStatusOverdue, models.LoanStatusLegal}, Dst: models.LoanStatusPaid},

			// paid → active (new debt recorded, e.g. lend_more)
			{Name: "reopen", Src: []string{models.LoanStatusPaid}, Dst: models.LoanStatusActive},
		},
		fsm.Callbacks{},
	)

	return lfsm
}

// MarkOverdue transitions the loan to overdue
func (l *LoanFSM) MarkOverdue(ctx context.Context) error {
	if err := l.fsm.Event(ctx, "mark_overdue"); err != nil {
		return fmt.Errorf("failed to mark loan overdue: %w", err)
	}
	l.loan.Status = l.fsm.Current()
	return nil
}

// Normalize transitions the loan back to active
func (l *LoanFSM) Normalize(ctx context.Context) error {
	if err := l.fsm.Event(ctx, "normalize"); err != nil {
		return fmt.Errorf("failed to normalize loan: %w", err)
	}
	l.loan.Status = l.fsm.Current()
	return nil
}

// Renegotiate transitions the loan to legal (active agreement supersedes the schedule)
func (l *LoanFSM) Renegotiate(ctx context.Context) error {
	if !l.loan.MayRenegotiate() && l.loan.Status != models.LoanStatusActive {
		return fmt.Errorf("loan cannot be renegotiated in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "renegotiate"); err != nil {
		return fmt.Errorf("failed to renegotiate loan: %w", err)
	}
	l.loan.Status = l.fsm.Current()
	return nil
}

// BreakAgreement transitions the loan from legal back to overdue
func (l *LoanFSM) BreakAgreement(ctx context.Context) error {
	if err := l.fsm.Event(ctx, "break_agreement"); err != nil {
		return fmt.Errorf("failed to resume original debt: %w", err)
	}
	l.loan.Status = l.fsm.Current()
	return nil
}

// Settle transitions the loan to paid
func (l *LoanFSM) Settle(ctx context.Context) error {
	if err := l.fsm.Event(ctx, "settle"); err != nil {
		return fmt.Errorf("failed to settle loan: %w", err)
	}
	l.loan.Status = l.fsm.Current()
	return nil
}

// Reopen transitions a paid loan back to active when new debt is recorded
func (l *LoanFSM) Reopen(ctx context.Context) error {
	if err := l.fsm.Event(ctx, "reopen"); err != nil {
		return fmt.Errorf("failed to reopen loan: %w", err)
	}
	l.loan.Status = l.fsm.Current()
	return nil
}

// Current returns the current state
func (l *LoanFSM) Current() string {
	return l.fsm.Current()
}

// Can checks if a transition is possible
func (l *LoanFSM) Can(event string) bool {
	return l.fsm.Can(event)
}

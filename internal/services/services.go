package services

import (
	"log/slog"

	"github.com/cobrafacil/cobranca-api/internal/repository"
	"github.com/cobrafacil/cobranca-api/pkg/metrics"
)

// Services holds all service instances
type Services struct {
	Schedule  *ScheduleService
	Loan      *LoanService
	Payment   *PaymentService
	Agreement *AgreementService
	Export    *ExportService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, logger *slog.Logger, collector *metrics.Collector) *Services {
	scheduleSvc := NewScheduleService()
	loanSvc := NewLoanService(repos, scheduleSvc, collector)

	return &Services{
		Schedule:  scheduleSvc,
		Loan:      loanSvc,
		Payment:   NewPaymentService(repos, logger, collector),
		Agreement: NewAgreementService(repos, logger, collector),
		Export:    NewExportService(loanSvc),
	}
}

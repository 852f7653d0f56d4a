package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cobrafacil/cobranca-api/internal/finance"
	"github.com/cobrafacil/cobranca-api/internal/jobs"
	"github.com/cobrafacil/cobranca-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health    *HealthHandler
	Loan      *LoanHandler
	Payment   *PaymentHandler
	Agreement *AgreementHandler
	Export    *ExportHandler
	Job       *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, worker *jobs.Worker) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(),
		Loan:      NewLoanHandler(svcs.Loan),
		Payment:   NewPaymentHandler(svcs.Payment, worker),
		Agreement: NewAgreementHandler(svcs.Agreement),
		Export:    NewExportHandler(svcs.Export),
		Job:       NewJobHandler(worker),
	}
}

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "cobranca-api",
		"version": "1.0.0",
	})
}

type JobHandler struct {
	worker *jobs.Worker
}

func NewJobHandler(worker *jobs.Worker) *JobHandler {
	return &JobHandler{worker: worker}
}

func (h *JobHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.GetStats())
}

// respondError maps service errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var validation *finance.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidPaymentType),
		errors.Is(err, services.ErrInvalidDueDate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInstallmentSettled),
		errors.Is(err, services.ErrLoanClosed),
		errors.Is(err, services.ErrAgreementActive),
		errors.Is(err, services.ErrAgreementSupersedes),
		errors.Is(err, services.ErrNotRenegotiable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// referenceDate reads the optional reference_date query parameter
// (YYYY-MM-DD); absent or malformed dates fall back to now.
func referenceDate(c *gin.Context) time.Time {
	if raw := c.Query("reference_date"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			return parsed
		}
	}
	return time.Now()
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cobrafacil/cobranca-api/internal/finance"
	"github.com/cobrafacil/cobranca-api/internal/jobs"
	"github.com/cobrafacil/cobranca-api/internal/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	worker         *jobs.Worker
}

func NewPaymentHandler(paymentService *services.PaymentService, worker *jobs.Worker) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, worker: worker}
}

type RegisterPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type" binding:"required"`
	Forgiveness string          `json:"forgiveness"`
	PaymentDate time.Time       `json:"payment_date"`
	NewDueDate  *time.Time      `json:"new_due_date"`
}

func (h *PaymentHandler) Register(c *gin.Context) {
	installmentID, err := parseID(c, "id")
	if err != nil {
		return
	}

	var req RegisterPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.paymentService.RegisterPayment(c.Request.Context(), services.RegisterPaymentInput{
		InstallmentID: installmentID,
		Amount:        req.Amount,
		Type:          req.Type,
		Forgiveness:   finance.Forgiveness(req.Forgiveness),
		PaymentDate:   req.PaymentDate,
		NewDueDate:    req.NewDueDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"installment": result.Installment.ToResponse(),
		"allocation":  result.Allocation,
		"waived_fees": result.WaivedFees,
		"entry":       result.Entry.ToResponse(),
		"loan_status": result.Loan.Status,
	})
}

// DebtPreview prices the settlement of an installment on a given date
// without registering anything.
func (h *PaymentHandler) DebtPreview(c *gin.Context) {
	installmentID, err := parseID(c, "id")
	if err != nil {
		return
	}

	forgiveness := finance.Forgiveness(c.DefaultQuery("forgiveness", string(finance.ForgivenessNone)))
	breakdown, err := h.paymentService.GetDebtPreview(c.Request.Context(), installmentID, referenceDate(c), forgiveness)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"debt": breakdown})
}

// OverdueIndex lists every unsettled installment past due as of the
// reference date. The collections view.
func (h *PaymentHandler) OverdueIndex(c *gin.Context) {
	asOf := referenceDate(c)
	installments, err := h.paymentService.OverdueInstallments(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(installments))
	for i := range installments {
		responses = append(responses, installments[i].ToResponseAsOf(asOf))
	}

	c.JSON(http.StatusOK, gin.H{"installments": responses})
}

// InstallmentLedger lists the ledger entries written against one installment.
func (h *PaymentHandler) InstallmentLedger(c *gin.Context) {
	installmentID, err := parseID(c, "id")
	if err != nil {
		return
	}

	entries, err := h.paymentService.InstallmentLedger(c.Request.Context(), installmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(entries))
	for i := range entries {
		responses = append(responses, entries[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"entries": responses})
}

// RefreshLateFees triggers a late-fee accrual pass on demand. The same pass
// also runs on the worker's schedule. With ?async=true the pass is handed to
// the background worker and the request returns immediately.
func (h *PaymentHandler) RefreshLateFees(c *gin.Context) {
	if c.Query("async") == "true" {
		h.worker.EnqueueAsync(func(ctx context.Context) error {
			_, err := h.paymentService.RefreshLateFees(ctx)
			return err
		})
		c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
		return
	}

	updated, err := h.paymentService.RefreshLateFees(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"installments_updated": updated})
}

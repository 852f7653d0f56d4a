package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cobrafacil/cobranca-api/internal/services"
)

type AgreementHandler struct {
	agreementService *services.AgreementService
}

func NewAgreementHandler(agreementService *services.AgreementService) *AgreementHandler {
	return &AgreementHandler{agreementService: agreementService}
}

type AgreementRequest struct {
	Type              string          `json:"type" binding:"required"`
	InstallmentsCount int             `json:"installments_count" binding:"required"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	Frequency         string          `json:"frequency" binding:"required"`
	FirstDueDate      time.Time       `json:"first_due_date" binding:"required"`
}

func (r AgreementRequest) toInput() services.AgreementInput {
	return services.AgreementInput{
		Type:              r.Type,
		InstallmentsCount: r.InstallmentsCount,
		InterestRate:      r.InterestRate,
		Frequency:         r.Frequency,
		FirstDueDate:      r.FirstDueDate,
	}
}

// Simulate prices an agreement for a loan without persisting it.
func (h *AgreementHandler) Simulate(c *gin.Context) {
	loanID, err := parseID(c, "id")
	if err != nil {
		return
	}

	var req AgreementRequest
	if err := BindNestedOrFlat(c, "agreement", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.agreementService.Simulate(c.Request.Context(), loanID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func (h *AgreementHandler) Create(c *gin.Context) {
	loanID, err := parseID(c, "id")
	if err != nil {
		return
	}

	var req AgreementRequest
	if err := BindNestedOrFlat(c, "agreement", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agreement, err := h.agreementService.Create(c.Request.Context(), loanID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"agreement": agreement.ToResponse()})
}

func (h *AgreementHandler) Show(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	agreement, err := h.agreementService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"agreement": agreement.ToResponse()})
}

// ShowActive returns the loan's active agreement, when one exists.
func (h *AgreementHandler) ShowActive(c *gin.Context) {
	loanID, err := parseID(c, "id")
	if err != nil {
		return
	}

	agreement, err := h.agreementService.FindActiveByLoan(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"agreement": agreement.ToResponse()})
}

type AgreementPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate time.Time       `json:"payment_date"`
}

func (h *AgreementHandler) RegisterPayment(c *gin.Context) {
	agreementID, err := parseID(c, "id")
	if err != nil {
		return
	}
	installmentID, err := parseID(c, "installment_id")
	if err != nil {
		return
	}

	var req AgreementPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agreement, err := h.agreementService.RegisterPayment(c.Request.Context(), agreementID, installmentID, req.Amount, req.PaymentDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"agreement": agreement.ToResponse()})
}

// Break marks a defaulted agreement as broken; the original debt resumes.
func (h *AgreementHandler) Break(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	agreement, err := h.agreementService.MarkBroken(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"agreement": agreement.ToResponse()})
}

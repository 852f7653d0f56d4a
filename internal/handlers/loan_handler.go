package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cobrafacil/cobranca-api/internal/repository"
	"github.com/cobrafacil/cobranca-api/internal/services"
)

type LoanHandler struct {
	loanService *services.LoanService
}

func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

type CreateLoanRequest struct {
	BorrowerName         string          `json:"borrower_name" binding:"required"`
	BorrowerPhone        string          `json:"borrower_phone"`
	Principal            decimal.Decimal `json:"principal" binding:"required"`
	InterestRate         decimal.Decimal `json:"interest_rate"`
	FinePercent          decimal.Decimal `json:"fine_percent"`
	DailyInterestPercent decimal.Decimal `json:"daily_interest_percent"`
	BillingCycle         string          `json:"billing_cycle" binding:"required"`
	PaymentTerm          int             `json:"payment_term"`
	StartDate            time.Time       `json:"start_date" binding:"required"`
}

func (h *LoanHandler) Create(c *gin.Context) {
	var req CreateLoanRequest
	if err := BindNestedOrFlat(c, "loan", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.loanService.Create(c.Request.Context(), services.CreateLoanInput{
		BorrowerName:         req.BorrowerName,
		BorrowerPhone:        req.BorrowerPhone,
		Principal:            req.Principal,
		InterestRate:         req.InterestRate,
		FinePercent:          req.FinePercent,
		DailyInterestPercent: req.DailyInterestPercent,
		BillingCycle:         req.BillingCycle,
		PaymentTerm:          req.PaymentTerm,
		StartDate:            req.StartDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"loan": loan.ToResponse()})
}

func (h *LoanHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Filters["status"] = c.Query("status")
	query.Filters["billing_cycle"] = c.Query("billing_cycle")

	if search := c.Query("search"); search != "" {
		query.Filters["search_term"] = search
	}

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	loans, total, err := h.loanService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(loans))
	for i := range loans {
		responses = append(responses, loans[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"loans": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

func (h *LoanHandler) Show(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	loan, err := h.loanService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
}

// ShowByReference looks a loan up by its public EMP- reference code.
func (h *LoanHandler) ShowByReference(c *gin.Context) {
	loan, err := h.loanService.FindByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
}

func (h *LoanHandler) Balance(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	balance, err := h.loanService.GetBalance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *LoanHandler) Status(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	status, err := h.loanService.GetStatus(c.Request.Context(), id, referenceDate(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *LoanHandler) Ledger(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	entries, balance, err := h.loanService.Ledger(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(entries))
	for i := range entries {
		responses = append(responses, entries[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": responses,
		"balance": balance,
	})
}

type LendMoreRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	DueDate time.Time       `json:"due_date" binding:"required"`
}

func (h *LoanHandler) LendMore(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	var req LendMoreRequest
	if err := BindNestedOrFlat(c, "lend_more", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.loanService.LendMore(c.Request.Context(), id, req.Amount, req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
}

// parseID reads a uint path parameter, writing the error response itself.
func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identificador inválido"})
		return 0, err
	}
	return uint(id), nil
}

package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cobrafacil/cobranca-api/internal/services"
)

type ExportHandler struct {
	exportService *services.ExportService
}

func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

func (h *ExportHandler) LedgerCSV(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	data, filename, err := h.exportService.ExportLedgerCSV(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

func (h *ExportHandler) StatementXLSX(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	data, filename, err := h.exportService.ExportStatementXLSX(c.Request.Context(), id, referenceDate(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *ExportHandler) ReceiptPDF(c *gin.Context) {
	loanID, err := parseID(c, "id")
	if err != nil {
		return
	}
	entryID, err := parseID(c, "entry_id")
	if err != nil {
		return
	}

	data, filename, err := h.exportService.ReceiptPDF(c.Request.Context(), loanID, entryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/cobrafacil/cobranca-api/internal/finance"
	"github.com/cobrafacil/cobranca-api/internal/models"
)

// ExportService renders loan statements and receipts for download.
type ExportService struct {
	loanSvc *LoanService
}

func NewExportService(loanSvc *LoanService) *ExportService {
	return &ExportService{loanSvc: loanSvc}
}

// ExportLedgerCSV renders the loan's full transaction history as CSV.
func (s *ExportService) ExportLedgerCSV(ctx context.Context, loanID uint) ([]byte, string, error) {
	loan, err := s.loanSvc.FindByID(ctx, loanID)
	if err != nil {
		return nil, "", err
	}
	entries, balance, err := s.loanSvc.Ledger(ctx, loanID)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Extrato do Empréstimo", loan.ReferenceCode})
	_ = writer.Write([]string{"Tomador", loan.BorrowerName})
	_ = writer.Write([]string{"Gerado em", time.Now().Format("2006-01-02 15:04")})
	_ = writer.Write([]string{""})

	_ = writer.Write([]string{"Data", "Tipo", "Descrição", "Valor", "Principal", "Juros", "Encargos"})
	for i := range entries {
		e := &entries[i]
		_ = writer.Write([]string{
			e.EntryDate.Format("2006-01-02"),
			e.EntryType,
			e.Description,
			e.Amount.StringFixed(2),
			e.PaidPrincipal.StringFixed(2),
			e.PaidInterest.StringFixed(2),
			e.PaidLateFee.StringFixed(2),
		})
	}
	_ = writer.Write([]string{""})
	_ = writer.Write([]string{"Saldo do Razão", "", "", balance.StringFixed(2)})

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("extrato_%s_%s.csv", loan.ReferenceCode, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportStatementXLSX renders the loan's installment schedule, current
// balance and agreement (if any) as a spreadsheet.
func (s *ExportService) ExportStatementXLSX(ctx context.Context, loanID uint, referenceDate time.Time) ([]byte, string, error) {
	loan, err := s.loanSvc.FindByID(ctx, loanID)
	if err != nil {
		return nil, "", err
	}
	balance := finance.RemainingBalance(loan.Snapshot().Installments)

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Parcelas"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Empréstimo %s — %s", loan.ReferenceCode, loan.BorrowerName))
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)
	_ = f.SetCellValue(sheet, "A2", "Situação")
	_ = f.SetCellValue(sheet, "B2", loan.Status)
	_ = f.SetCellValue(sheet, "A3", "Saldo Devedor")
	_ = f.SetCellValue(sheet, "B3", balance.TotalRemaining.InexactFloat64())

	headers := []string{"Nº", "Vencimento", "Situação", "Principal", "Juros", "Encargos", "Pago", "Em Aberto", "Prazo"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 5)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i := range loan.Installments {
		inst := &loan.Installments[i]
		row := 6 + i
		due := finance.ClassifyInstallmentDueDate(inst.DueDate, referenceDate)
		values := []interface{}{
			inst.Number,
			inst.DueDate.Format("02/01/2006"),
			inst.Status,
			inst.PrincipalRemaining.InexactFloat64(),
			inst.InterestRemaining.InexactFloat64(),
			inst.LateFeeAccrued.InexactFloat64(),
			inst.PaidTotal.InexactFloat64(),
			inst.Snapshot().Outstanding().InexactFloat64(),
			due.Label,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	if agreement := loan.ActiveAgreement(); agreement != nil {
		base := 7 + len(loan.Installments)
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", base), "Acordo Vigente")
		_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", base), fmt.Sprintf("A%d", base), headerStyle)
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", base+1), "Total Negociado")
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", base+1), agreement.NegotiatedTotal.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", base+2), "Em Aberto")
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", base+2), agreement.Outstanding().InexactFloat64())
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("emprestimo_%s_%s.xlsx", loan.ReferenceCode, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ReceiptPDF renders a payment receipt for one ledger entry.
func (s *ExportService) ReceiptPDF(ctx context.Context, loanID, entryID uint) ([]byte, string, error) {
	loan, err := s.loanSvc.FindByID(ctx, loanID)
	if err != nil {
		return nil, "", err
	}

	var entry *models.LoanTransaction
	for i := range loan.Transactions {
		if loan.Transactions[i].ID == entryID {
			entry = &loan.Transactions[i]
			break
		}
	}
	if entry == nil {
		return nil, "", ErrNotFound
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Recibo de Pagamento")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	line := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(55, 8, tr(label))
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(0, 8, tr(value))
		pdf.Ln(8)
	}

	line("Empréstimo:", loan.ReferenceCode)
	line("Tomador:", loan.BorrowerName)
	line("Referência:", entry.ReferenceCode)
	line("Data:", entry.EntryDate.Format("02/01/2006"))
	line("Valor:", "R$ "+entry.Amount.StringFixed(2))
	line("Principal:", "R$ "+entry.PaidPrincipal.StringFixed(2))
	line("Juros:", "R$ "+entry.PaidInterest.StringFixed(2))
	line("Encargos:", "R$ "+entry.PaidLateFee.StringFixed(2))

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(0, 8, tr(entry.Description))

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("recibo_%s.pdf", entry.ReferenceCode)
	return buf.Bytes(), filename, nil
}

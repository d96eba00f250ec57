package payroll

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RenderPayslipPDF renders one record as an A4 payslip. Each line item is
// printed with its signed effect so the PDF mirrors the stored itemization.
func RenderPayslipPDF(rec Record, providerName string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Provider: %s", providerName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", rec.Period.String()))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", rec.Status))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(120, 8, "Item")
	pdf.Cell(0, 8, "Amount")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range rec.Lines {
		amount := line.Amount
		if line.Category == CategoryDeduction {
			amount = amount.Neg()
		}
		label := line.Description
		if line.Category == CategoryInfo {
			label += " (informational)"
		}
		pdf.Cell(120, 7, label)
		pdf.Cell(0, 7, amount.StringFixed(2))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(120, 8, "Gross")
	pdf.Cell(0, 8, rec.Gross.StringFixed(2))
	pdf.Ln(8)
	pdf.Cell(120, 8, "Net")
	pdf.Cell(0, 8, rec.Net.StringFixed(2))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

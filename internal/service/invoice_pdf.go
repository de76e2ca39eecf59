package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vrl-pickup/internal/models"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

// BuildInvoicePDF 渲染发票 PDF，返回字节流与附件文件名。
func (s *InvoiceService) BuildInvoicePDF(request *models.PickupRequest, invoice *models.Invoice) ([]byte, string, error) {
	if request == nil || invoice == nil {
		return nil, "", ErrPickupNotFound
	}

	companyName := strings.TrimSpace(s.cfg.CompanyName)
	if companyName == "" {
		companyName = "VRL Logistics"
	}
	currency := strings.TrimSpace(s.cfg.Currency)
	if currency == "" {
		currency = "INR"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Pickup Invoice", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, strings.ToUpper(companyName))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Parcel Pickup Invoice")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Invoice No : "+invoice.InvoiceNo)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Date       : "+invoice.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Request ID : #%d", request.ID))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed To:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Name    : %s", fallbackText(request.FullName, "-")))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Phone   : %s", fallbackText(request.PhoneNumber, "-")))
	pdf.Ln(7)
	pdf.MultiCell(0, 7, fmt.Sprintf("Address : %s, %s, %s - %s",
		fallbackText(request.Address, "-"),
		fallbackText(request.City, "-"),
		fallbackText(request.State, "-"),
		fallbackText(request.Pincode, "-"),
	), "", "", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Parcel:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, fmt.Sprintf("%s (weight: %s)",
		fallbackText(request.ParcelDescription, "-"),
		fallbackText(request.ParcelWeight, "-"),
	), "", "", false)
	pdf.Ln(4)

	// 税额按 CGST/SGST 各半展示
	halfTaxPercent := invoice.TaxPercent.Decimal.Div(decimal.NewFromInt(2)).Round(2)
	halfTaxAmount := invoice.TaxAmount.Decimal.Div(decimal.NewFromInt(2)).Round(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Charges:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	rows := []struct {
		label  string
		amount string
	}{
		{"Base pickup charge", invoice.BaseCharge.String()},
		{"Weight charge", invoice.WeightCharge.String()},
		{fmt.Sprintf("CGST (%s%%)", halfTaxPercent.StringFixed(2)), halfTaxAmount.StringFixed(2)},
		{fmt.Sprintf("SGST (%s%%)", halfTaxPercent.StringFixed(2)), halfTaxAmount.StringFixed(2)},
	}
	for _, row := range rows {
		pdf.CellFormat(120, 7, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("%s %s", currency, row.amount), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(120, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("%s %s", currency, invoice.TotalAmount.String()), "T", 1, "R", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "I", 10)
	footer := "This is a computer generated invoice and does not require a signature."
	if supportEmail := strings.TrimSpace(s.cfg.SupportEmail); supportEmail != "" {
		footer += " For queries contact " + supportEmail + "."
	}
	pdf.MultiCell(0, 6, footer, "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("Invoice_Request_%d.pdf", request.ID)
	return buf.Bytes(), filename, nil
}

func fallbackText(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

// Package invoicepdf renders invoices into paginated PDF documents.
package invoicepdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/bips-college-api/pkg/money"
)

const (
	marginLeft   = 18.0
	pageTop      = 18.0
	rowHeight    = 6.0
	pageBreakAtY = 255.0
	footerY      = 280.0
)

// Branding is printed in the document header and footer.
type Branding struct {
	Name    string
	Tagline string
	Contact string
}

// BillTo identifies the sponsor being invoiced.
type BillTo struct {
	Name          string
	ContactPerson string
	Email         string
	Phone         string
}

// Line is one student row on the invoice.
type Line struct {
	Name   string
	Course string
	Amount decimal.Decimal
}

// Document is the fully populated invoice to render.
type Document struct {
	InvoiceNumber string
	IssuedAt      time.Time
	DueDate       time.Time
	BillTo        BillTo
	AcademicYear  string
	Semester      string
	Lines         []Line
	Tuition       decimal.Decimal
	Registration  decimal.Decimal
	OtherFees     decimal.Decimal
	Total         decimal.Decimal
	BalanceDue    decimal.Decimal
	Status        string
	Currency      string
}

// Renderer draws invoice documents; it holds no per-document state.
type Renderer struct {
	brand Branding
}

// NewRenderer constructs a renderer with the given branding.
func NewRenderer(brand Branding) *Renderer {
	return &Renderer{brand: brand}
}

// Render produces the PDF bytes. Identical documents yield identical bytes.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	pdf, err := r.build(doc)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) build(doc Document) (*gofpdf.Fpdf, error) {
	if doc.InvoiceNumber == "" {
		return nil, fmt.Errorf("invoice number required")
	}
	currency := doc.Currency
	if currency == "" {
		currency = "KES"
	}
	amount := func(v decimal.Decimal) string { return money.Format(currency, v) }

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.IssuedAt)
	pdf.SetModificationDate(doc.IssuedAt)
	pdf.SetTitle("Invoice "+doc.InvoiceNumber, false)
	pdf.SetAuthor(r.brand.Name, false)
	pdf.SetMargins(marginLeft, pageTop, marginLeft)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(x, y float64, s string) { pdf.Text(x, y, tr(s)) }
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(102, 102, 102)
		text(marginLeft, footerY, "Thank you for choosing "+r.brand.Name+". "+r.brand.Contact)
		text(175, footerY, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()))
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 64, 175)
	text(marginLeft, 22, r.brand.Name)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(102, 102, 102)
	text(marginLeft, 28, r.brand.Tagline)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 14)
	text(marginLeft, 44, "INVOICE")

	pdf.SetFont("Helvetica", "", 9)
	text(120, 44, "Invoice Number: "+doc.InvoiceNumber)
	text(120, 49, "Date: "+formatDate(doc.IssuedAt))
	text(120, 54, "Due Date: "+formatDate(doc.DueDate))

	text(marginLeft, 64, "Bill To:")
	pdf.SetFont("Helvetica", "B", 9)
	text(marginLeft, 69, doc.BillTo.Name)
	pdf.SetFont("Helvetica", "", 9)
	y := 74.0
	for _, line := range []string{doc.BillTo.ContactPerson, doc.BillTo.Email, doc.BillTo.Phone} {
		if line == "" {
			continue
		}
		text(marginLeft, y, line)
		y += 5
	}

	y += 5
	text(marginLeft, y, "Academic Year: "+doc.AcademicYear)
	y += 5
	text(marginLeft, y, "Semester: "+doc.Semester)

	y += 12
	tableHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		text(marginLeft, y, "Student Name")
		text(80, y, "Course")
		text(150, y, "Amount")
		pdf.SetFont("Helvetica", "", 9)
		y += rowHeight + 1
	}
	tableHeader()

	for _, line := range doc.Lines {
		if y > pageBreakAtY {
			pdf.AddPage()
			y = pageTop + 4
			tableHeader()
		}
		text(marginLeft, y, truncate(line.Name, 34))
		text(80, y, truncate(line.Course, 38))
		text(150, y, amount(line.Amount))
		y += rowHeight
	}

	// summary block needs roughly 60mm
	if y+60 > footerY {
		pdf.AddPage()
		y = pageTop + 4
	}

	y += 10
	pdf.SetFont("Helvetica", "B", 9)
	text(marginLeft, y, "Fee Breakdown:")
	pdf.SetFont("Helvetica", "", 9)
	y += rowHeight
	text(marginLeft+6, y, "Tuition Fees: "+amount(doc.Tuition))
	y += rowHeight
	text(marginLeft+6, y, "Registration Fees: "+amount(doc.Registration))
	if doc.OtherFees.IsPositive() {
		y += rowHeight
		text(marginLeft+6, y, "Other Fees: "+amount(doc.OtherFees))
	}

	y += 12
	pdf.SetFont("Helvetica", "B", 10)
	text(120, y, "Total Amount: "+amount(doc.Total))
	y += rowHeight
	text(120, y, "Balance Due: "+amount(doc.BalanceDue))
	y += rowHeight
	text(120, y, "Status: "+strings.ToUpper(doc.Status))

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("draw invoice pdf: %w", err)
	}
	return pdf, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("January 2, 2006")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

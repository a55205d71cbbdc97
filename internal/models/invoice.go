package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

// Invoice statuses.
const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// invoiceTransitions lists the statuses reachable from each state; paid is terminal.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue},
	InvoiceStatusSent:    {InvoiceStatusPaid, InvoiceStatusOverdue},
	InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusSent},
	InvoiceStatusPaid:    {},
}

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	_, ok := invoiceTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is reachable from s.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// InvoiceLineItem copies the student's name, course and amount so the invoice stays stable if the student changes.
type InvoiceLineItem struct {
	StudentID string          `json:"studentId"`
	Name      string          `json:"name"`
	Course    string          `json:"course"`
	Amount    decimal.Decimal `json:"amount"`
}

// InvoiceLineItems is persisted as JSONB.
type InvoiceLineItems []InvoiceLineItem

// Value marshals the line items for persistence.
func (l InvoiceLineItems) Value() (driver.Value, error) {
	if l == nil {
		l = InvoiceLineItems{}
	}
	data, err := json.Marshal([]InvoiceLineItem(l))
	if err != nil {
		return nil, fmt.Errorf("marshal invoice line items: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB line items.
func (l *InvoiceLineItems) Scan(value interface{}) error {
	*l = InvoiceLineItems{}
	return scanJSON(value, (*[]InvoiceLineItem)(l), "invoice line items")
}

// Total sums the line item amounts.
func (l InvoiceLineItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range l {
		total = total.Add(item.Amount)
	}
	return total
}

// PaymentRecord is one entry of an invoice's payment history.
type PaymentRecord struct {
	PaymentID string          `json:"paymentId"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Method    string          `json:"method"`
}

// PaymentHistory is persisted as JSONB in insertion order.
type PaymentHistory []PaymentRecord

// Value marshals the history for persistence.
func (p PaymentHistory) Value() (driver.Value, error) {
	if p == nil {
		p = PaymentHistory{}
	}
	data, err := json.Marshal([]PaymentRecord(p))
	if err != nil {
		return nil, fmt.Errorf("marshal payment history: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB payment history.
func (p *PaymentHistory) Scan(value interface{}) error {
	*p = PaymentHistory{}
	return scanJSON(value, (*[]PaymentRecord)(p), "payment history")
}

// Total sums the recorded payments.
func (p PaymentHistory) Total() decimal.Decimal {
	total := decimal.Zero
	for _, record := range p {
		total = total.Add(record.Amount)
	}
	return total
}

// InvoiceBreakdown splits the invoice total by fee kind.
type InvoiceBreakdown struct {
	Tuition      decimal.Decimal `db:"tuition_total" json:"tuition"`
	Registration decimal.Decimal `db:"registration_total" json:"registration"`
	OtherFees    decimal.Decimal `db:"other_fees" json:"otherFees"`
}

// Total sums the breakdown components.
func (b InvoiceBreakdown) Total() decimal.Decimal {
	return b.Tuition.Add(b.Registration).Add(b.OtherFees)
}

// Invoice bills a sponsor for one or more students.
type Invoice struct {
	ID               string           `db:"id" json:"id"`
	InvoiceNumber    string           `db:"invoice_number" json:"invoiceNumber"`
	SponsorID        string           `db:"sponsor_id" json:"sponsorId"`
	AcademicYear     string           `db:"academic_year" json:"academicYear"`
	Semester         string           `db:"semester" json:"semester"`
	Students         InvoiceLineItems `db:"line_items" json:"students"`
	InvoiceBreakdown `json:"breakdown"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"totalAmount"`
	BalanceDue       decimal.Decimal `db:"balance_due" json:"balanceDue"`
	DueDate          time.Time       `db:"due_date" json:"dueDate"`
	Status           InvoiceStatus   `db:"status" json:"status"`
	Payments         PaymentHistory  `db:"payments" json:"payments"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
	PaidAt           *time.Time      `db:"paid_at" json:"paidAt,omitempty"`
}

// RecomputeBalance derives the balance from status and payments instead of trusting the stored value.
func (i *Invoice) RecomputeBalance() {
	if i.Status == InvoiceStatusPaid {
		i.BalanceDue = decimal.Zero
		return
	}
	balance := i.TotalAmount.Sub(i.Payments.Total())
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	i.BalanceDue = balance
}

// InvoiceDetail is an invoice with its sponsor populated.
type InvoiceDetail struct {
	Invoice
	Sponsor SponsorSummary `db:"sponsor" json:"sponsor"`
}

// InvoiceSummary is the compact invoice projection used in batch listings.
type InvoiceSummary struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        InvoiceStatus   `json:"status"`
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	SponsorID string
	Status    InvoiceStatus
}

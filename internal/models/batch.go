package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus tracks batch settlement.
type BatchStatus string

// Batch statuses. A batch moves from processing to completed exactly once.
const (
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// StagedStudent is a prospective enrollment captured at batch submission; it is not mutated afterwards.
type StagedStudent struct {
	FullName        string          `json:"fullName"`
	Course          string          `json:"course"`
	Semester        string          `json:"semester"`
	TuitionFee      decimal.Decimal `json:"tuitionFee"`
	RegistrationFee decimal.Decimal `json:"registrationFee"`
}

// Total returns tuition plus registration for the staged student.
func (s StagedStudent) Total() decimal.Decimal {
	return s.TuitionFee.Add(s.RegistrationFee)
}

// StagedStudents is persisted as JSONB.
type StagedStudents []StagedStudent

// Value marshals the staged students for persistence.
func (s StagedStudents) Value() (driver.Value, error) {
	if s == nil {
		s = StagedStudents{}
	}
	data, err := json.Marshal([]StagedStudent(s))
	if err != nil {
		return nil, fmt.Errorf("marshal staged students: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB staged students.
func (s *StagedStudents) Scan(value interface{}) error {
	*s = StagedStudents{}
	return scanJSON(value, (*[]StagedStudent)(s), "staged students")
}

// BatchRegistration groups student enrollments submitted together by one sponsor.
type BatchRegistration struct {
	ID            string          `db:"id" json:"id"`
	BatchNumber   string          `db:"batch_number" json:"batchNumber"`
	SponsorID     string          `db:"sponsor_id" json:"sponsorId"`
	Students      StagedStudents  `db:"students" json:"students"`
	TotalStudents int             `db:"total_students" json:"totalStudents"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"totalAmount"`
	InvoiceID     *string         `db:"invoice_id" json:"invoiceId,omitempty"`
	Status        BatchStatus     `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
}

// BatchListItem is a batch with sponsor and invoice summaries for listings.
type BatchListItem struct {
	BatchRegistration
	SponsorName          string           `db:"sponsor_name" json:"sponsorName"`
	SponsorContactPerson string           `db:"sponsor_contact_person" json:"sponsorContactPerson"`
	InvoiceNumber        *string          `db:"invoice_number" json:"-"`
	InvoiceTotal         *decimal.Decimal `db:"invoice_total" json:"-"`
	InvoiceStatus        *InvoiceStatus   `db:"invoice_status" json:"-"`
	Invoice              *InvoiceSummary  `db:"-" json:"invoice,omitempty"`
}

// BatchSettlement is everything written atomically when a batch is processed.
type BatchSettlement struct {
	BatchID     string
	SponsorID   string
	Students    []Student
	Invoice     Invoice
	CompletedAt time.Time
}

// BatchResult is returned after a batch is processed.
type BatchResult struct {
	Batch    BatchRegistration `json:"batch"`
	Invoice  Invoice           `json:"invoice"`
	Students []Student         `json:"students"`
}

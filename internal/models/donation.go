package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DonationStatus is the reconciliation state of a donation.
type DonationStatus string

// Donation statuses. Success is terminal.
const (
	DonationStatusPending DonationStatus = "pending"
	DonationStatusSuccess DonationStatus = "success"
	DonationStatusFailed  DonationStatus = "failed"
)

// GatewayPayload keeps the raw gateway transaction document as JSONB.
type GatewayPayload json.RawMessage

// Value stores the payload, defaulting to an empty object.
func (p GatewayPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return []byte(p), nil
}

// Scan copies the JSONB payload.
func (p *GatewayPayload) Scan(value interface{}) error {
	data, err := jsonBytes(value, "gateway payload")
	if err != nil {
		return err
	}
	*p = append((*p)[:0], data...)
	return nil
}

// MarshalJSON emits the payload verbatim.
func (p GatewayPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return []byte(p), nil
}

// UnmarshalJSON keeps a copy of the raw document.
func (p *GatewayPayload) UnmarshalJSON(data []byte) error {
	*p = append((*p)[:0], data...)
	return nil
}

// Donation is a one-off gift collected through the payment gateway. Reference is the sole correlation key.
type Donation struct {
	ID          string          `db:"id" json:"id"`
	Reference   string          `db:"reference" json:"reference"`
	DonorEmail  string          `db:"donor_email" json:"donorEmail"`
	DonorName   string          `db:"donor_name" json:"donorName"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Currency    string          `db:"currency" json:"currency"`
	Status      DonationStatus  `db:"status" json:"status"`
	GatewayData GatewayPayload  `db:"gateway_payload" json:"paystackData"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
	CompletedAt *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
}

// DonationFilter narrows donation listings.
type DonationFilter struct {
	Status DonationStatus
}

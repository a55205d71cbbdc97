package models

import "time"

// SponsorStatus flags whether a sponsor still refers students.
type SponsorStatus string

// Sponsor statuses.
const (
	SponsorStatusActive   SponsorStatus = "active"
	SponsorStatusInactive SponsorStatus = "inactive"
)

// Valid reports whether s is a known sponsor status.
func (s SponsorStatus) Valid() bool {
	return s == SponsorStatusActive || s == SponsorStatusInactive
}

// Sponsor is the paying party that refers and funds students. Phone uniquely identifies a sponsor.
type Sponsor struct {
	ID               string        `db:"id" json:"id"`
	Name             string        `db:"name" json:"name"`
	ContactPerson    string        `db:"contact_person" json:"contactPerson"`
	Phone            string        `db:"phone" json:"phone"`
	Email            *string       `db:"email" json:"email,omitempty"`
	Notes            *string       `db:"notes" json:"notes,omitempty"`
	StudentsReferred int           `db:"students_referred" json:"studentsReferred"`
	Status           SponsorStatus `db:"status" json:"status"`
	RegistrationDate time.Time     `db:"registration_date" json:"registrationDate"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updatedAt"`
}

// SponsorSummary is the sponsor projection embedded in invoice and batch listings.
type SponsorSummary struct {
	ID            string  `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	ContactPerson string  `db:"contact_person" json:"contactPerson"`
	Phone         string  `db:"phone" json:"phone"`
	Email         *string `db:"email" json:"email,omitempty"`
}

// Summary projects the sponsor into its listing form.
func (s Sponsor) Summary() SponsorSummary {
	return SponsorSummary{ID: s.ID, Name: s.Name, ContactPerson: s.ContactPerson, Phone: s.Phone, Email: s.Email}
}

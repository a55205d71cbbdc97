package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StudentStatus tracks a student's progress through the college.
type StudentStatus string

// Student statuses in lifecycle order.
const (
	StudentStatusPending    StudentStatus = "pending"
	StudentStatusRegistered StudentStatus = "registered"
	StudentStatusActive     StudentStatus = "active"
	StudentStatusCompleted  StudentStatus = "completed"
)

var studentStatusRank = map[StudentStatus]int{
	StudentStatusPending:    0,
	StudentStatusRegistered: 1,
	StudentStatusActive:     2,
	StudentStatusCompleted:  3,
}

// Valid reports whether s is a known student status.
func (s StudentStatus) Valid() bool {
	_, ok := studentStatusRank[s]
	return ok
}

// CanTransitionTo allows only forward moves along the lifecycle.
func (s StudentStatus) CanTransitionTo(next StudentStatus) bool {
	from, ok := studentStatusRank[s]
	if !ok {
		return false
	}
	to, ok := studentStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Student is a learner funded by a sponsor. TotalFees is fixed at creation to tuition plus registration.
type Student struct {
	ID              string          `db:"id" json:"id"`
	StudentCode     string          `db:"student_code" json:"studentId"`
	FullName        string          `db:"full_name" json:"fullName"`
	SponsorID       string          `db:"sponsor_id" json:"sponsorId"`
	Course          string          `db:"course" json:"course"`
	Semester        string          `db:"semester" json:"semester"`
	AcademicYear    string          `db:"academic_year" json:"academicYear"`
	TuitionFee      decimal.Decimal `db:"tuition_fee" json:"tuitionFee"`
	RegistrationFee decimal.Decimal `db:"registration_fee" json:"registrationFee"`
	TotalFees       decimal.Decimal `db:"total_fees" json:"totalFees"`
	Status          StudentStatus   `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// StudentDetail adds the sponsor's display fields to a student row.
type StudentDetail struct {
	Student
	SponsorName          string `db:"sponsor_name" json:"sponsorName"`
	SponsorContactPerson string `db:"sponsor_contact_person" json:"sponsorContactPerson"`
}

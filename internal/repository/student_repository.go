package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bips-college-api/internal/models"
)

const studentColumns = `s.id, s.student_code, s.full_name, s.sponsor_id, s.course, s.semester, s.academic_year,
        s.tuition_fee, s.registration_fee, s.total_fees, s.status, s.created_at, s.updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students with their sponsor's display fields, newest first.
func (r *StudentRepository) List(ctx context.Context) ([]models.StudentDetail, error) {
	query := `SELECT ` + studentColumns + `, sp.name AS sponsor_name, sp.contact_person AS sponsor_contact_person
        FROM students s JOIN sponsors sp ON sp.id = s.sponsor_id
        ORDER BY s.created_at DESC`
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListBySponsor returns the students referred by one sponsor, newest first.
func (r *StudentRepository) ListBySponsor(ctx context.Context, sponsorID string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students s WHERE s.sponsor_id = $1 ORDER BY s.created_at DESC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, sponsorID); err != nil {
		return nil, fmt.Errorf("list sponsor students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students s WHERE s.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// CreateForSponsor inserts the student and increments the sponsor's referral counter in one transaction.
func (r *StudentRepository) CreateForSponsor(ctx context.Context, student *models.Student) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertStudent(ctx, tx, student); err != nil {
		return err
	}
	if err = incrementReferrals(ctx, tx, student.SponsorID, 1); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student tx: %w", err)
	}
	return nil
}

// UpdateStatus moves a student from one status to another. ErrStaleWrite means the current status was no longer from.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, from, to models.StudentStatus) (*models.Student, error) {
	query := `UPDATE students s SET status = $3, updated_at = $4 WHERE s.id = $1 AND s.status = $2 RETURNING ` + studentColumns
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, from, to, time.Now().UTC()); err != nil {
		if isNoRows(err) {
			return nil, ErrStaleWrite
		}
		return nil, fmt.Errorf("update student status: %w", err)
	}
	return &student, nil
}

func insertStudent(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, student_code, full_name, sponsor_id, course, semester, academic_year, tuition_fee, registration_fee, total_fees, status, created_at, updated_at)
        VALUES (:id, :student_code, :full_name, :sponsor_id, :course, :semester, :academic_year, :tuition_fee, :registration_fee, :total_fees, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", mapWriteError(err))
	}
	return nil
}

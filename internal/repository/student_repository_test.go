package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bips-college-api/internal/models"
)

var studentRowColumns = []string{"id", "student_code", "full_name", "sponsor_id", "course", "semester", "academic_year", "tuition_fee", "registration_fee", "total_fees", "status", "created_at", "updated_at"}

func newStudent() *models.Student {
	return &models.Student{
		StudentCode:     "BIPS-STU-1",
		FullName:        "Amina Otieno",
		SponsorID:       "sp-1",
		Course:          "Electrical",
		Semester:        "First",
		AcademicYear:    "2026",
		TuitionFee:      decimal.NewFromInt(1000),
		RegistrationFee: decimal.NewFromInt(200),
		TotalFees:       decimal.NewFromInt(1200),
		Status:          models.StudentStatusPending,
	}
}

func TestStudentRepositoryCreateForSponsor(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sponsors SET students_referred = students_referred + $2")).
		WithArgs("sp-1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := newStudent()
	require.NoError(t, repo.CreateForSponsor(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateForSponsorRollsBackWhenSponsorMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE sponsors SET students_referred").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CreateForSponsor(context.Background(), newStudent())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateForSponsorDuplicateCode(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateForSponsor(context.Background(), newStudent())
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListJoinsSponsor(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(append(append([]string{}, studentRowColumns...), "sponsor_name", "sponsor_contact_person")).
		AddRow("st-1", "BIPS-STU-1", "Amina", "sp-1", "Electrical", "First", "2026", "1000", "200", "1200", "pending", now, now, "Acme", "Jane")
	mock.ExpectQuery(regexp.QuoteMeta("FROM students s JOIN sponsors sp ON sp.id = s.sponsor_id")).WillReturnRows(rows)

	students, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Acme", students[0].SponsorName)
	assert.True(t, students[0].TotalFees.Equal(decimal.NewFromInt(1200)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students s SET status = $3")).
		WithArgs("st-1", models.StudentStatusPending, models.StudentStatusRegistered, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(studentRowColumns).
			AddRow("st-1", "BIPS-STU-1", "Amina", "sp-1", "Electrical", "First", "2026", "1000", "200", "1200", "registered", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students s SET status = $3")).
		WithArgs("st-1", models.StudentStatusPending, models.StudentStatusRegistered, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(studentRowColumns))

	student, err := repo.UpdateStatus(context.Background(), "st-1", models.StudentStatusPending, models.StudentStatusRegistered)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusRegistered, student.Status)

	_, err = repo.UpdateStatus(context.Background(), "st-1", models.StudentStatusPending, models.StudentStatusRegistered)
	assert.ErrorIs(t, err, ErrStaleWrite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

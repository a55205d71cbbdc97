package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/bips-college-api/internal/models"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
	"github.com/noah-isme/bips-college-api/pkg/ids"
)

type studentRepository interface {
	List(ctx context.Context) ([]models.StudentDetail, error)
	ListBySponsor(ctx context.Context, sponsorID string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	CreateForSponsor(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id string, from, to models.StudentStatus) (*models.Student, error)
}

type sponsorLookup interface {
	FindByID(ctx context.Context, id string) (*models.Sponsor, error)
}

// CreateStudentRequest holds payload for enrolling a single student. Fees default to zero.
type CreateStudentRequest struct {
	FullName        string           `json:"fullName" validate:"required"`
	SponsorID       string           `json:"sponsorId" validate:"required"`
	Course          string           `json:"course" validate:"required"`
	Semester        string           `json:"semester" validate:"required"`
	AcademicYear    string           `json:"academicYear" validate:"required"`
	TuitionFee      *decimal.Decimal `json:"tuitionFee" validate:"omitempty,gte=0"`
	RegistrationFee *decimal.Decimal `json:"registrationFee" validate:"omitempty,gte=0"`
}

// UpdateStudentStatusRequest moves a student along its lifecycle.
type UpdateStudentStatusRequest struct {
	Status models.StudentStatus `json:"status" validate:"required"`
}

// StudentService handles student enrollment and lifecycle.
type StudentService struct {
	repo      studentRepository
	sponsors  sponsorLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, sponsors sponsorLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, sponsors: sponsors, cache: cache, validator: validate, logger: logger}
}

// List returns all students with sponsor names, newest first.
func (s *StudentService) List(ctx context.Context) ([]models.StudentDetail, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}
	if students == nil {
		students = []models.StudentDetail{}
	}
	return students, nil
}

// ListBySponsor returns the students referred by a sponsor.
func (s *StudentService) ListBySponsor(ctx context.Context, sponsorID string) ([]models.Student, error) {
	students, err := s.repo.ListBySponsor(ctx, sponsorID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sponsor students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// Create enrolls a student under an existing sponsor and bumps the sponsor's referral count.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "all fields except fees are required")
	}

	if _, err := s.sponsors.FindByID(ctx, req.SponsorID); err != nil {
		return nil, storeError(err, "sponsor not found", "sponsor conflict", "failed to load sponsor")
	}

	tuition := decimal.Zero
	if req.TuitionFee != nil {
		tuition = *req.TuitionFee
	}
	registration := decimal.Zero
	if req.RegistrationFee != nil {
		registration = *req.RegistrationFee
	}
	if err := amountError(tuition.Add(registration)); err != nil {
		return nil, err
	}

	student := &models.Student{
		StudentCode:     ids.Student(),
		FullName:        req.FullName,
		SponsorID:       req.SponsorID,
		Course:          strings.TrimSpace(req.Course),
		Semester:        strings.TrimSpace(req.Semester),
		AcademicYear:    strings.TrimSpace(req.AcademicYear),
		TuitionFee:      tuition,
		RegistrationFee: registration,
		TotalFees:       tuition.Add(registration),
		Status:          models.StudentStatusPending,
	}
	if err := s.repo.CreateForSponsor(ctx, student); err != nil {
		return nil, storeError(err, "sponsor not found", "student code already exists", "failed to create student")
	}
	s.cache.Invalidate(ctx, sponsorCachePrefix+"*")
	return student, nil
}

// UpdateStatus advances a student's status. Moving backwards or sideways is rejected.
func (s *StudentService) UpdateStatus(ctx context.Context, id string, req UpdateStudentStatusRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "status is required")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student status")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "student not found", "student conflict", "failed to load student")
	}
	if !current.Status.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move student from "+string(current.Status)+" to "+string(req.Status))
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, req.Status)
	if err != nil {
		return nil, storeError(err, "student not found", "student status changed concurrently, retry", "failed to update student status")
	}
	return updated, nil
}

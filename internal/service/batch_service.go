package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/bips-college-api/internal/models"
	"github.com/noah-isme/bips-college-api/internal/repository"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
	"github.com/noah-isme/bips-college-api/pkg/ids"
)

type batchRepository interface {
	Create(ctx context.Context, batch *models.BatchRegistration) error
	FindByID(ctx context.Context, id string) (*models.BatchRegistration, error)
	List(ctx context.Context) ([]models.BatchListItem, error)
	Settle(ctx context.Context, settlement *models.BatchSettlement) (*models.BatchRegistration, error)
}

// BatchConfig sets the invoice terms used when a batch is settled.
type BatchConfig struct {
	DueDays  int
	Semester string
	Currency string
}

// BatchStudentInput is one prospective student in a batch submission.
type BatchStudentInput struct {
	FullName        string           `json:"fullName" validate:"required"`
	Course          string           `json:"course" validate:"required"`
	Semester        string           `json:"semester" validate:"required"`
	TuitionFee      *decimal.Decimal `json:"tuitionFee" validate:"omitempty,gte=0"`
	RegistrationFee *decimal.Decimal `json:"registrationFee" validate:"omitempty,gte=0"`
}

// CreateBatchRequest submits several students for one sponsor.
type CreateBatchRequest struct {
	SponsorID string              `json:"sponsorId" validate:"required"`
	Students  []BatchStudentInput `json:"students" validate:"required,min=1,dive"`
}

// BatchService stages batch registrations and settles them into students and an invoice.
type BatchService struct {
	repo      batchRepository
	sponsors  sponsorLookup
	notifier  notifier
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    BatchConfig
	now       func() time.Time
}

// NewBatchService constructs the batch service. notifier and cache may be nil.
func NewBatchService(repo batchRepository, sponsors sponsorLookup, notifier notifier, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg BatchConfig) *BatchService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DueDays <= 0 {
		cfg.DueDays = 30
	}
	if strings.TrimSpace(cfg.Semester) == "" {
		cfg.Semester = "First"
	}
	return &BatchService{
		repo:      repo,
		sponsors:  sponsors,
		notifier:  notifier,
		cache:     cache,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

func feeOrZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}

// Create records a batch in processing state with its totals computed.
func (s *BatchService) Create(ctx context.Context, req CreateBatchRequest) (*models.BatchRegistration, error) {
	req.SponsorID = strings.TrimSpace(req.SponsorID)
	for i := range req.Students {
		req.Students[i].FullName = strings.TrimSpace(req.Students[i].FullName)
		req.Students[i].Course = strings.TrimSpace(req.Students[i].Course)
		req.Students[i].Semester = strings.TrimSpace(req.Students[i].Semester)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "sponsorId and at least one student with name, course and semester are required")
	}
	if _, err := s.sponsors.FindByID(ctx, req.SponsorID); err != nil {
		return nil, storeError(err, "sponsor not found", "sponsor conflict", "failed to load sponsor")
	}

	staged := make(models.StagedStudents, 0, len(req.Students))
	total := decimal.Zero
	for _, in := range req.Students {
		student := models.StagedStudent{
			FullName:        in.FullName,
			Course:          in.Course,
			Semester:        in.Semester,
			TuitionFee:      feeOrZero(in.TuitionFee),
			RegistrationFee: feeOrZero(in.RegistrationFee),
		}
		total = total.Add(student.Total())
		staged = append(staged, student)
	}
	if err := amountError(total); err != nil {
		return nil, err
	}

	batch := &models.BatchRegistration{
		BatchNumber:   ids.Batch(),
		SponsorID:     req.SponsorID,
		Students:      staged,
		TotalStudents: len(staged),
		TotalAmount:   total,
		Status:        models.BatchStatusProcessing,
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, storeError(err, "sponsor not found", "batch number already exists", "failed to create batch")
	}
	s.logger.Info("batch registration created",
		zap.String("batch_id", batch.ID),
		zap.String("sponsor_id", batch.SponsorID),
		zap.Int("students", batch.TotalStudents),
	)
	return batch, nil
}

// Process turns a processing batch into registered students and one draft invoice in a single transaction.
// A batch that is already completed, or is completed concurrently, is rejected with a conflict and nothing is written.
func (s *BatchService) Process(ctx context.Context, id string) (*models.BatchResult, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "batch not found", "batch conflict", "failed to load batch")
	}
	if batch.Status != models.BatchStatusProcessing {
		return nil, appErrors.Clone(appErrors.ErrConflict, "batch already processed")
	}
	sponsor, err := s.sponsors.FindByID(ctx, batch.SponsorID)
	if err != nil {
		return nil, storeError(err, "sponsor not found", "sponsor conflict", "failed to load sponsor")
	}

	settlement := s.settlement(batch)
	completed, err := s.repo.Settle(ctx, settlement)
	if err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "batch already processed")
		}
		s.logger.Error("batch settlement failed", zap.String("batch_id", batch.ID), zap.Error(err))
		return nil, storeError(err, "batch not found", "duplicate student or invoice number", "failed to process batch")
	}
	s.cache.Invalidate(ctx, sponsorCachePrefix+"*")

	s.logger.Info("batch registration processed",
		zap.String("batch_id", completed.ID),
		zap.String("invoice_id", settlement.Invoice.ID),
		zap.String("invoice_number", settlement.Invoice.InvoiceNumber),
	)

	if s.notifier != nil {
		notice := InvoiceIssuedNotice{
			InvoiceNumber: settlement.Invoice.InvoiceNumber,
			SponsorName:   sponsor.Name,
			Total:         settlement.Invoice.TotalAmount,
			Currency:      s.config.Currency,
			DueDate:       settlement.Invoice.DueDate,
			StudentCount:  len(settlement.Students),
		}
		if sponsor.Email != nil {
			notice.Email = *sponsor.Email
		}
		s.notifier.InvoiceIssued(ctx, notice)
	}

	return &models.BatchResult{
		Batch:    *completed,
		Invoice:  settlement.Invoice,
		Students: settlement.Students,
	}, nil
}

func (s *BatchService) settlement(batch *models.BatchRegistration) *models.BatchSettlement {
	now := s.now().UTC()
	year := strconv.Itoa(now.Year())

	students := make([]models.Student, 0, len(batch.Students))
	lines := make(models.InvoiceLineItems, 0, len(batch.Students))
	var breakdown models.InvoiceBreakdown
	for _, staged := range batch.Students {
		student := models.Student{
			ID:              uuid.NewString(),
			StudentCode:     ids.Student(),
			FullName:        staged.FullName,
			SponsorID:       batch.SponsorID,
			Course:          staged.Course,
			Semester:        staged.Semester,
			AcademicYear:    year,
			TuitionFee:      staged.TuitionFee,
			RegistrationFee: staged.RegistrationFee,
			TotalFees:       staged.Total(),
			Status:          models.StudentStatusRegistered,
			CreatedAt:       now,
		}
		students = append(students, student)
		lines = append(lines, models.InvoiceLineItem{
			StudentID: student.ID,
			Name:      student.FullName,
			Course:    student.Course,
			Amount:    student.TotalFees,
		})
		breakdown.Tuition = breakdown.Tuition.Add(staged.TuitionFee)
		breakdown.Registration = breakdown.Registration.Add(staged.RegistrationFee)
	}
	breakdown.OtherFees = decimal.Zero
	total := breakdown.Total()

	return &models.BatchSettlement{
		BatchID:   batch.ID,
		SponsorID: batch.SponsorID,
		Students:  students,
		Invoice: models.Invoice{
			ID:               uuid.NewString(),
			InvoiceNumber:    ids.Invoice(),
			SponsorID:        batch.SponsorID,
			AcademicYear:     year,
			Semester:         s.config.Semester,
			Students:         lines,
			InvoiceBreakdown: breakdown,
			TotalAmount:      total,
			BalanceDue:       total,
			DueDate:          now.AddDate(0, 0, s.config.DueDays),
			Status:           models.InvoiceStatusDraft,
			Payments:         models.PaymentHistory{},
			CreatedAt:        now,
		},
		CompletedAt: now,
	}
}

// List returns batches newest first with sponsor names and invoice summaries.
func (s *BatchService) List(ctx context.Context) ([]models.BatchListItem, error) {
	batches, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list batches")
	}
	if batches == nil {
		batches = []models.BatchListItem{}
	}
	return batches, nil
}

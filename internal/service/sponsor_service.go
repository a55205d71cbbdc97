package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/bips-college-api/internal/models"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
)

const (
	sponsorCachePrefix = "sponsors:"
	sponsorListKey     = sponsorCachePrefix + "list"
)

type sponsorRepository interface {
	List(ctx context.Context) ([]models.Sponsor, error)
	FindByID(ctx context.Context, id string) (*models.Sponsor, error)
	ExistsByPhone(ctx context.Context, phone, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, sponsor *models.Sponsor) error
	Update(ctx context.Context, sponsor *models.Sponsor) error
}

// CreateSponsorRequest holds the payload for registering a sponsor.
type CreateSponsorRequest struct {
	Name          string  `json:"name" validate:"required"`
	ContactPerson string  `json:"contactPerson" validate:"required"`
	Phone         string  `json:"phone" validate:"required,min=7,max=20"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Notes         *string `json:"notes"`
}

// UpdateSponsorRequest holds a partial sponsor update. The referral counter is not editable.
type UpdateSponsorRequest struct {
	Name          *string               `json:"name" validate:"omitempty,min=1"`
	ContactPerson *string               `json:"contactPerson" validate:"omitempty,min=1"`
	Phone         *string               `json:"phone" validate:"omitempty,min=7,max=20"`
	Email         *string               `json:"email" validate:"omitempty,email"`
	Notes         *string               `json:"notes"`
	Status        *models.SponsorStatus `json:"status"`
}

// SponsorService handles sponsor registration and profile edits.
type SponsorService struct {
	repo      sponsorRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSponsorService constructs the sponsor service. cache may be nil.
func NewSponsorService(repo sponsorRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SponsorService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SponsorService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns all sponsors, newest first.
func (s *SponsorService) List(ctx context.Context) ([]models.Sponsor, error) {
	var sponsors []models.Sponsor
	if s.cache.Get(ctx, sponsorListKey, &sponsors) {
		return sponsors, nil
	}
	sponsors, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sponsors")
	}
	if sponsors == nil {
		sponsors = []models.Sponsor{}
	}
	s.cache.Set(ctx, sponsorListKey, sponsors, 0)
	return sponsors, nil
}

// Get returns a sponsor by ID.
func (s *SponsorService) Get(ctx context.Context, id string) (*models.Sponsor, error) {
	key := sponsorCachePrefix + id
	var cached models.Sponsor
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	sponsor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "sponsor not found", "sponsor conflict", "failed to load sponsor")
	}
	s.cache.Set(ctx, key, sponsor, 0)
	return sponsor, nil
}

// Create registers a sponsor. Phone, and email when given, must not already be on file.
func (s *SponsorService) Create(ctx context.Context, req CreateSponsorRequest) (*models.Sponsor, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.ContactPerson = strings.TrimSpace(req.ContactPerson)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = trimmed(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid sponsor payload")
	}

	if err := s.ensureUnique(ctx, req.Phone, req.Email, ""); err != nil {
		return nil, err
	}

	sponsor := &models.Sponsor{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Notes:         trimmed(req.Notes),
		Status:        models.SponsorStatusActive,
	}
	if err := s.repo.Create(ctx, sponsor); err != nil {
		return nil, storeError(err, "sponsor not found", "sponsor with this phone or email already exists", "failed to create sponsor")
	}
	s.cache.Invalidate(ctx, sponsorCachePrefix+"*")
	s.logger.Info("sponsor registered", zap.String("sponsor_id", sponsor.ID))
	return sponsor, nil
}

// Update applies a partial update to a sponsor.
func (s *SponsorService) Update(ctx context.Context, id string, req UpdateSponsorRequest) (*models.Sponsor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid sponsor payload")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid sponsor status")
	}

	sponsor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "sponsor not found", "sponsor conflict", "failed to load sponsor")
	}

	if req.Name != nil {
		sponsor.Name = strings.TrimSpace(*req.Name)
	}
	if req.ContactPerson != nil {
		sponsor.ContactPerson = strings.TrimSpace(*req.ContactPerson)
	}
	phoneChanged := false
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != sponsor.Phone {
		sponsor.Phone = strings.TrimSpace(*req.Phone)
		phoneChanged = true
	}
	emailChanged := false
	if req.Email != nil {
		email := trimmed(req.Email)
		emailChanged = email != nil && (sponsor.Email == nil || !strings.EqualFold(*email, *sponsor.Email))
		sponsor.Email = email
	}
	if req.Notes != nil {
		sponsor.Notes = trimmed(req.Notes)
	}
	if req.Status != nil {
		sponsor.Status = *req.Status
	}
	if sponsor.Name == "" || sponsor.ContactPerson == "" || sponsor.Phone == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name, contact person and phone cannot be empty")
	}

	var phone string
	var email *string
	if phoneChanged {
		phone = sponsor.Phone
	}
	if emailChanged {
		email = sponsor.Email
	}
	if err := s.ensureUnique(ctx, phone, email, sponsor.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, sponsor); err != nil {
		return nil, storeError(err, "sponsor not found", "sponsor with this phone or email already exists", "failed to update sponsor")
	}
	s.cache.Invalidate(ctx, sponsorCachePrefix+"*")
	return sponsor, nil
}

func (s *SponsorService) ensureUnique(ctx context.Context, phone string, email *string, excludeID string) error {
	if phone != "" {
		exists, err := s.repo.ExistsByPhone(ctx, phone, excludeID)
		if err != nil {
			return appErrors.Internal(err, "failed to check sponsor phone")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "sponsor with this phone number already exists")
		}
	}
	if email != nil {
		exists, err := s.repo.ExistsByEmail(ctx, *email, excludeID)
		if err != nil {
			return appErrors.Internal(err, "failed to check sponsor email")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "sponsor with this email already exists")
		}
	}
	return nil
}

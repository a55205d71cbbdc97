package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/bips-college-api/internal/models"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
	"github.com/noah-isme/bips-college-api/pkg/ids"
	"github.com/noah-isme/bips-college-api/pkg/invoicepdf"
	"github.com/noah-isme/bips-college-api/pkg/paystack"
)

type invoiceRepository interface {
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, error)
	FindByID(ctx context.Context, id string) (*models.InvoiceDetail, error)
	UpdateWithLock(ctx context.Context, id string, mutate func(*models.Invoice) error) (*models.Invoice, error)
}

type invoiceRenderer interface {
	Render(doc invoicepdf.Document) ([]byte, error)
}

type linkSigner interface {
	Generate(subject string) (string, time.Time, error)
	Parse(token string) (string, time.Time, error)
}

// InvoiceConfig configures invoice payments and documents.
type InvoiceConfig struct {
	Currency string
	// CallbackURL may contain {reference} and {invoiceId} placeholders.
	CallbackURL string
	// LinkBaseURL prefixes shareable PDF link tokens.
	LinkBaseURL string
}

// InvoicePDFLink is a shareable, expiring download link for an invoice document.
type InvoicePDFLink struct {
	InvoiceID     string    `json:"invoiceId"`
	InvoiceNumber string    `json:"invoiceNumber"`
	URL           string    `json:"url"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// InitializeInvoicePaymentRequest opens a checkout for an invoice's outstanding balance.
type InitializeInvoicePaymentRequest struct {
	InvoiceID string `json:"invoiceId" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// InvoicePaymentSession is the checkout plus the invoice it settles.
type InvoicePaymentSession struct {
	CheckoutSession
	Invoice InvoicePaymentSummary `json:"invoice"`
}

// InvoicePaymentSummary identifies the invoice being paid.
type InvoicePaymentSummary struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Amount        decimal.Decimal `json:"amount"`
	SponsorName   string          `json:"sponsorName"`
}

// PaymentInput is a payment reported alongside a status change.
type PaymentInput struct {
	PaymentID string          `json:"paymentId"`
	Amount    decimal.Decimal `json:"amount" validate:"gte=0"`
	Method    string          `json:"method"`
}

// UpdateInvoiceStatusRequest moves an invoice along its lifecycle.
type UpdateInvoiceStatusRequest struct {
	Status      models.InvoiceStatus `json:"status" validate:"required"`
	PaymentData *PaymentInput        `json:"paymentData"`
}

// InvoiceService reads invoices and drives their payment lifecycle.
type InvoiceService struct {
	repo      invoiceRepository
	gateway   paymentGateway
	renderer  invoiceRenderer
	links     linkSigner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    InvoiceConfig
	now       func() time.Time
}

// NewInvoiceService constructs the invoice service. links may be nil, which disables shareable PDF links.
func NewInvoiceService(repo invoiceRepository, gateway paymentGateway, renderer invoiceRenderer, links linkSigner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg InvoiceConfig) *InvoiceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = "KES"
	}
	return &InvoiceService{
		repo:      repo,
		gateway:   instrument(gateway, metrics),
		renderer:  renderer,
		links:     links,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// List returns all invoices newest first.
func (s *InvoiceService) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid invoice status filter")
	}
	invoices, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to fetch invoices")
	}
	if invoices == nil {
		invoices = []models.InvoiceDetail{}
	}
	return invoices, nil
}

// ListBySponsor returns a sponsor's invoices newest first.
func (s *InvoiceService) ListBySponsor(ctx context.Context, sponsorID string) ([]models.InvoiceDetail, error) {
	return s.List(ctx, models.InvoiceFilter{SponsorID: sponsorID})
}

// Get returns one invoice with its sponsor.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.InvoiceDetail, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "invoice not found", "invoice conflict", "failed to fetch invoice")
	}
	return invoice, nil
}

// InitializePayment opens a gateway checkout for the invoice balance. The invoice itself is not modified.
func (s *InvoiceService) InitializePayment(ctx context.Context, req InitializeInvoicePaymentRequest) (*InvoicePaymentSession, error) {
	req.InvoiceID = strings.TrimSpace(req.InvoiceID)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invoiceId is required and email must be valid")
	}

	invoice, err := s.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "invoice is already paid")
	}
	if !invoice.BalanceDue.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invoice has no outstanding balance")
	}

	email := req.Email
	if email == "" && invoice.Sponsor.Email != nil {
		email = *invoice.Sponsor.Email
	}
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is required when the sponsor has none on file")
	}

	reference := ids.InvoicePayment(invoice.InvoiceNumber)
	callback := strings.NewReplacer("{reference}", reference, "{invoiceId}", invoice.ID).Replace(s.config.CallbackURL)
	auth, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:     email,
		Amount:    paystack.ToMinorUnits(invoice.BalanceDue),
		Currency:  s.config.Currency,
		Reference: reference,
		Metadata: map[string]interface{}{
			"invoice_id":     invoice.ID,
			"invoice_number": invoice.InvoiceNumber,
			"sponsor_name":   invoice.Sponsor.Name,
		},
		CallbackURL: callback,
	})
	if err != nil {
		s.logger.Error("invoice checkout failed",
			zap.String("invoice_id", invoice.ID),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, gatewayError(err, "failed to initialize invoice payment")
	}
	s.metrics.InvoicePayment("initialized")

	if auth.Reference != "" {
		reference = auth.Reference
	}
	return &InvoicePaymentSession{
		CheckoutSession: CheckoutSession{
			AuthorizationURL: auth.AuthorizationURL,
			Reference:        reference,
			AccessCode:       auth.AccessCode,
			Currency:         s.config.Currency,
		},
		Invoice: InvoicePaymentSummary{
			ID:            invoice.ID,
			InvoiceNumber: invoice.InvoiceNumber,
			Amount:        invoice.BalanceDue,
			SponsorName:   invoice.Sponsor.Name,
		},
	}, nil
}

// UpdateStatus applies a lifecycle transition under a row lock. Moving to paid zeroes the balance,
// stamps paidAt and appends the reported payment, if any.
func (s *InvoiceService) UpdateStatus(ctx context.Context, id string, req UpdateInvoiceStatusRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status update")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown invoice status "+string(req.Status))
	}
	if req.PaymentData != nil && req.Status != models.InvoiceStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment data is only accepted when marking an invoice paid")
	}

	var previous models.InvoiceStatus
	invoice, err := s.repo.UpdateWithLock(ctx, id, func(inv *models.Invoice) error {
		if !inv.Status.CanTransitionTo(req.Status) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move invoice from "+string(inv.Status)+" to "+string(req.Status))
		}
		previous = inv.Status
		now := s.now().UTC()
		inv.Status = req.Status
		if req.Status == models.InvoiceStatusPaid {
			inv.PaidAt = &now
			if req.PaymentData != nil {
				paymentID := strings.TrimSpace(req.PaymentData.PaymentID)
				if paymentID == "" {
					paymentID = ids.Payment()
				}
				inv.Payments = append(inv.Payments, models.PaymentRecord{
					PaymentID: paymentID,
					Amount:    req.PaymentData.Amount,
					Date:      now,
					Method:    req.PaymentData.Method,
				})
			}
		}
		inv.RecomputeBalance()
		inv.UpdatedAt = now
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, storeError(err, "invoice not found", "invoice was modified concurrently", "failed to update invoice")
	}

	if invoice.Status == models.InvoiceStatusPaid {
		s.metrics.InvoicePayment("settled")
	}
	s.logger.Info("invoice status updated",
		zap.String("invoice_id", invoice.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(invoice.Status)),
	)
	return invoice, nil
}

// RenderPDF renders the invoice document and returns it with a download file name.
func (s *InvoiceService) RenderPDF(ctx context.Context, id string) ([]byte, string, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := s.renderer.Render(s.document(invoice))
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render invoice")
	}
	return data, invoice.InvoiceNumber + ".pdf", nil
}

// CreatePDFLink issues a link that lets a sponsor download the invoice without operator credentials.
func (s *InvoiceService) CreatePDFLink(ctx context.Context, id string) (*InvoicePDFLink, error) {
	if s.links == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "invoice links are not configured")
	}
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.links.Generate(invoice.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign invoice link")
	}
	return &InvoicePDFLink{
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		URL:           strings.TrimRight(s.config.LinkBaseURL, "/") + "/" + token,
		ExpiresAt:     expiresAt,
	}, nil
}

// RenderSharedPDF renders the invoice named by a link token.
func (s *InvoiceService) RenderSharedPDF(ctx context.Context, token string) ([]byte, string, error) {
	if s.links == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "invoice link not found")
	}
	id, _, err := s.links.Parse(token)
	if err != nil {
		s.logger.Debug("rejected invoice link", zap.Error(err))
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invoice link is invalid or has expired")
	}
	return s.RenderPDF(ctx, id)
}

func (s *InvoiceService) document(invoice *models.InvoiceDetail) invoicepdf.Document {
	lines := make([]invoicepdf.Line, 0, len(invoice.Students))
	for _, item := range invoice.Students {
		lines = append(lines, invoicepdf.Line{Name: item.Name, Course: item.Course, Amount: item.Amount})
	}
	billTo := invoicepdf.BillTo{
		Name:          invoice.Sponsor.Name,
		ContactPerson: invoice.Sponsor.ContactPerson,
		Phone:         invoice.Sponsor.Phone,
	}
	if invoice.Sponsor.Email != nil {
		billTo.Email = *invoice.Sponsor.Email
	}
	return invoicepdf.Document{
		InvoiceNumber: invoice.InvoiceNumber,
		IssuedAt:      invoice.CreatedAt,
		DueDate:       invoice.DueDate,
		BillTo:        billTo,
		AcademicYear:  invoice.AcademicYear,
		Semester:      invoice.Semester,
		Lines:         lines,
		Tuition:       invoice.Tuition,
		Registration:  invoice.Registration,
		OtherFees:     invoice.OtherFees,
		Total:         invoice.TotalAmount,
		BalanceDue:    invoice.BalanceDue,
		Status:        string(invoice.Status),
		Currency:      s.config.Currency,
	}
}

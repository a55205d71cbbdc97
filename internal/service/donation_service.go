package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/bips-college-api/internal/models"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
	"github.com/noah-isme/bips-college-api/pkg/export"
	"github.com/noah-isme/bips-college-api/pkg/ids"
	"github.com/noah-isme/bips-college-api/pkg/money"
	"github.com/noah-isme/bips-college-api/pkg/paystack"
)

// Reconciliation sources.
const (
	SourceVerify  = "verify"
	SourceWebhook = "webhook"
)

type donationRepository interface {
	Create(ctx context.Context, donation *models.Donation) error
	FindByReference(ctx context.Context, reference string) (*models.Donation, error)
	List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error)
	MarkSuccess(ctx context.Context, reference string, payload models.GatewayPayload, completedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, reference string, payload models.GatewayPayload) (bool, error)
}

// DonationConfig holds currency policy and the checkout callback.
type DonationConfig struct {
	DefaultCurrency     string
	SupportedCurrencies []string
	// MinimumAmounts overrides the default minimum of 1 major unit per currency.
	MinimumAmounts map[string]decimal.Decimal
	// CallbackURL may contain a {reference} placeholder.
	CallbackURL string
}

// InitializeDonationRequest starts a donation checkout.
type InitializeDonationRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Name     string          `json:"name" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Currency string          `json:"currency"`
}

// ReconcileResult reports the donation state after a reconciliation and whether this call changed it.
type ReconcileResult struct {
	Donation     *models.Donation
	Transitioned bool
}

// DonationReceipt is the human-friendly digest of a verified transaction.
type DonationReceipt struct {
	TransactionID int64           `json:"transactionId"`
	Reference     string          `json:"reference"`
	ReceiptNumber string          `json:"receiptNumber,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	NetAmount     decimal.Decimal `json:"netAmount"`
	Currency      string          `json:"currency"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	PaymentMethod string          `json:"paymentMethod"`
	Customer      ReceiptCustomer `json:"customer"`
	Summary       ReceiptSummary  `json:"summary"`
}

// ReceiptCustomer identifies the payer.
type ReceiptCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ReceiptSummary holds display strings for the receipt.
type ReceiptSummary struct {
	AmountPaid     string `json:"amountPaid"`
	TransactionFee string `json:"transactionFee"`
	NetAmount      string `json:"netAmount"`
	PaymentDate    string `json:"paymentDate,omitempty"`
}

// VerificationResult carries the raw gateway transaction and, on success, a formatted receipt.
// It marshals as the gateway document with an added "formatted" key.
type VerificationResult struct {
	Status    string
	Payload   json.RawMessage
	Formatted *DonationReceipt
}

// Successful reports whether the gateway confirmed the charge.
func (v *VerificationResult) Successful() bool {
	return v.Status == paystack.StatusSuccess
}

// MarshalJSON merges the receipt into the raw gateway document.
func (v VerificationResult) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if len(v.Payload) > 0 {
		if err := json.Unmarshal(v.Payload, &fields); err != nil {
			return nil, err
		}
	}
	if v.Formatted != nil {
		formatted, err := json.Marshal(v.Formatted)
		if err != nil {
			return nil, err
		}
		fields["formatted"] = formatted
	}
	return json.Marshal(fields)
}

var paymentMethods = map[string]string{
	"mobile_money":  "Mobile Money (M-Pesa)",
	"card":          "Credit/Debit Card",
	"bank":          "Bank Transfer",
	"bank_transfer": "Bank Transfer",
	"ussd":          "USSD",
	"qr":            "QR Code",
	"mpesa":         "M-Pesa",
	"mptill":        "M-Pesa Till",
	"atl_ke":        "Airtel Money",
}

// PaymentMethodLabel turns a gateway channel code into a display label.
func PaymentMethodLabel(channel string) string {
	if label, ok := paymentMethods[channel]; ok {
		return label
	}
	return channel
}

// DonationService runs the donation checkout and reconciliation flow.
type DonationService struct {
	repo      donationRepository
	gateway   paymentGateway
	notifier  notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    DonationConfig
	csv       *export.CSVWriter
	now       func() time.Time
}

// NewDonationService constructs the donation service. notifier and metrics may be nil.
func NewDonationService(repo donationRepository, gateway paymentGateway, notifier notifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg DonationConfig) *DonationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "KES"
	}
	if len(cfg.SupportedCurrencies) == 0 {
		cfg.SupportedCurrencies = []string{cfg.DefaultCurrency}
	}
	return &DonationService{
		repo:      repo,
		gateway:   instrument(gateway, metrics),
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		csv:       export.NewCSVWriter(),
		now:       time.Now,
	}
}

func (s *DonationService) supports(currency string) bool {
	for _, c := range s.config.SupportedCurrencies {
		if strings.EqualFold(c, currency) {
			return true
		}
	}
	return false
}

func (s *DonationService) minimum(currency string) decimal.Decimal {
	if min, ok := s.config.MinimumAmounts[currency]; ok {
		return min
	}
	return decimal.NewFromInt(1)
}

// Initialize creates a gateway checkout and records a pending donation. Nothing is stored when the gateway fails.
func (s *DonationService) Initialize(ctx context.Context, req InitializeDonationRequest) (*CheckoutSession, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "email, amount, and name are required")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	if !s.supports(currency) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "currency "+currency+" is not supported")
	}
	if min := s.minimum(currency); req.Amount.LessThan(min) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be at least "+money.Format(currency, min))
	}

	reference := ids.Donation()
	auth, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:     req.Email,
		Amount:    paystack.ToMinorUnits(req.Amount),
		Currency:  currency,
		Reference: reference,
		Metadata: map[string]interface{}{
			"donor_name": req.Name,
			"custom_fields": []map[string]string{
				{"display_name": "Donor Name", "variable_name": "donor_name", "value": req.Name},
			},
		},
		CallbackURL: strings.ReplaceAll(s.config.CallbackURL, "{reference}", reference),
	})
	if err != nil {
		s.logger.Error("donation checkout failed", zap.String("reference", reference), zap.Error(err))
		return nil, gatewayError(err, "failed to initialize payment")
	}

	donation := &models.Donation{
		Reference:  reference,
		DonorEmail: req.Email,
		DonorName:  req.Name,
		Amount:     req.Amount,
		Currency:   currency,
		Status:     models.DonationStatusPending,
	}
	if err := s.repo.Create(ctx, donation); err != nil {
		s.logger.Error("checkout created but donation not stored", zap.String("reference", reference), zap.Error(err))
		return nil, storeError(err, "donation not found", "donation reference already used", "failed to record donation")
	}
	s.metrics.DonationInitialized(currency)

	if auth.Reference != "" {
		reference = auth.Reference
	}
	return &CheckoutSession{
		AuthorizationURL: auth.AuthorizationURL,
		Reference:        reference,
		AccessCode:       auth.AccessCode,
		Currency:         currency,
	}, nil
}

// Verify asks the gateway for the authoritative outcome, reconciles the donation and returns the gateway document.
func (s *DonationService) Verify(ctx context.Context, reference string) (*VerificationResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reference is required")
	}
	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		s.logger.Error("donation verification failed", zap.String("reference", reference), zap.Error(err))
		return nil, gatewayError(err, "failed to verify payment")
	}

	result, err := s.Reconcile(ctx, reference, tx.Status, tx.Raw, SourceVerify)
	if err != nil {
		return nil, err
	}

	out := &VerificationResult{Status: tx.Status, Payload: tx.Raw}
	if out.Successful() {
		out.Formatted = buildReceipt(tx, result.Donation)
	}
	return out, nil
}

// Reconcile applies a gateway-reported outcome to the donation. It is safe to call repeatedly and concurrently:
// only the first success stamps completedAt, failure only applies to pending donations and other statuses change nothing.
func (s *DonationService) Reconcile(ctx context.Context, reference, gatewayStatus string, payload json.RawMessage, source string) (*ReconcileResult, error) {
	if _, err := s.repo.FindByReference(ctx, reference); err != nil {
		return nil, storeError(err, "donation not found", "donation conflict", "failed to load donation")
	}

	var (
		transitioned bool
		err          error
		outcome      = "ignored"
	)
	switch gatewayStatus {
	case paystack.StatusSuccess:
		transitioned, err = s.repo.MarkSuccess(ctx, reference, models.GatewayPayload(payload), s.now().UTC())
		outcome = "success"
	case paystack.StatusFailed:
		transitioned, err = s.repo.MarkFailed(ctx, reference, models.GatewayPayload(payload))
		outcome = "failed"
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update donation")
	}
	if !transitioned && outcome != "ignored" {
		outcome = "duplicate"
	}
	s.metrics.Reconciled(source, outcome)

	donation, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, storeError(err, "donation not found", "donation conflict", "failed to reload donation")
	}
	s.logger.Info("donation reconciled",
		zap.String("reference", reference),
		zap.String("source", source),
		zap.String("gateway_status", gatewayStatus),
		zap.String("status", string(donation.Status)),
		zap.Bool("transitioned", transitioned),
	)

	if transitioned && donation.Status == models.DonationStatusSuccess && s.notifier != nil {
		s.notifier.PaymentConfirmed(ctx, PaymentConfirmedNotice{
			Reference:  donation.Reference,
			DonorName:  donation.DonorName,
			DonorEmail: donation.DonorEmail,
			Amount:     donation.Amount,
			Currency:   donation.Currency,
		})
	}
	return &ReconcileResult{Donation: donation, Transitioned: transitioned}, nil
}

// List returns donations newest first.
func (s *DonationService) List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error) {
	if filter.Status != "" && filter.Status != models.DonationStatusPending && filter.Status != models.DonationStatusSuccess && filter.Status != models.DonationStatusFailed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid donation status filter")
	}
	donations, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to fetch donations")
	}
	if donations == nil {
		donations = []models.Donation{}
	}
	return donations, nil
}

var donationExportColumns = []string{"reference", "donor_name", "donor_email", "amount", "currency", "status", "created_at", "completed_at"}

// ExportCSV renders the filtered donation ledger as CSV.
func (s *DonationService) ExportCSV(ctx context.Context, filter models.DonationFilter) ([]byte, error) {
	donations, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	table := export.Table{Columns: donationExportColumns}
	for _, d := range donations {
		completed := ""
		if d.CompletedAt != nil {
			completed = d.CompletedAt.UTC().Format(time.RFC3339)
		}
		table.AddRow(map[string]string{
			"reference":    d.Reference,
			"donor_name":   d.DonorName,
			"donor_email":  d.DonorEmail,
			"amount":       d.Amount.StringFixed(2),
			"currency":     d.Currency,
			"status":       string(d.Status),
			"created_at":   d.CreatedAt.UTC().Format(time.RFC3339),
			"completed_at": completed,
		})
	}
	data, err := s.csv.Render(table)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to export donations")
	}
	return data, nil
}

func buildReceipt(tx *paystack.Transaction, donation *models.Donation) *DonationReceipt {
	currency := tx.Currency
	if currency == "" && donation != nil {
		currency = donation.Currency
	}
	amount := paystack.FromMinorUnits(tx.Amount)
	fee := paystack.FromMinorUnits(tx.Fees)
	net := amount.Sub(fee)

	name := tx.MetadataString("donor_name")
	if name == "" && donation != nil {
		name = donation.DonorName
	}
	if name == "" {
		name = strings.TrimSpace(tx.Customer.FirstName + " " + tx.Customer.LastName)
	}
	if name == "" {
		name = "Customer"
	}

	phone := tx.Customer.Phone
	if phone == "" {
		phone = tx.Authorization.MobileMoneyNumber
	}

	receipt := &DonationReceipt{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		ReceiptNumber: tx.ReceiptNumber,
		Amount:        amount,
		Fee:           fee,
		NetAmount:     net,
		Currency:      currency,
		PaidAt:        tx.PaidAt,
		PaymentMethod: PaymentMethodLabel(tx.Channel),
		Customer: ReceiptCustomer{
			Name:  name,
			Email: tx.Customer.Email,
			Phone: phone,
		},
		Summary: ReceiptSummary{
			AmountPaid:     money.Format(currency, amount),
			TransactionFee: money.Format(currency, fee),
			NetAmount:      money.Format(currency, net),
		},
	}
	if tx.PaidAt != nil {
		receipt.Summary.PaymentDate = tx.PaidAt.Format("Monday, 2 January 2006 15:04")
	}
	return receipt
}

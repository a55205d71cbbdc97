package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
	"github.com/noah-isme/bips-college-api/pkg/paystack"
)

// Webhook outcomes, also used as metric labels.
const (
	WebhookProcessed        = "processed"
	WebhookIgnored          = "ignored"
	WebhookUnknownReference = "unknown_reference"
	WebhookRejected         = "rejected"
	WebhookFailed           = "failed"
)

const eventChargeSuccess = "charge.success"

type reconciler interface {
	Reconcile(ctx context.Context, reference, gatewayStatus string, payload json.RawMessage, source string) (*ReconcileResult, error)
}

// WebhookEvent is the envelope of a gateway push notification.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type webhookCharge struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// WebhookService authenticates and applies gateway push notifications.
type WebhookService struct {
	donations reconciler
	secret    string
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewWebhookService constructs the webhook service. secret is the gateway secret key used to sign events.
func NewWebhookService(donations reconciler, secret string, metrics *MetricsService, logger *zap.Logger) *WebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{donations: donations, secret: secret, metrics: metrics, logger: logger}
}

// HandlePaystack verifies the signature over the raw body before decoding it. Events that cannot be
// applied are acknowledged so the gateway stops retrying; only store failures return an error it should retry on.
func (s *WebhookService) HandlePaystack(ctx context.Context, body []byte, signature string) (string, error) {
	if signature == "" || s.secret == "" || !paystack.VerifySignature(body, signature, s.secret) {
		s.logger.Warn("webhook signature rejected", zap.Bool("signature_present", signature != ""))
		s.metrics.WebhookHandled("unknown", WebhookRejected)
		return WebhookRejected, appErrors.Clone(appErrors.ErrUnauthorized, "invalid webhook signature")
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Warn("webhook payload malformed", zap.Error(err))
		s.metrics.WebhookHandled("unknown", WebhookIgnored)
		return WebhookIgnored, nil
	}

	outcome, err := s.apply(ctx, event)
	s.metrics.WebhookHandled(event.Event, outcome)
	return outcome, err
}

func (s *WebhookService) apply(ctx context.Context, event WebhookEvent) (string, error) {
	if event.Event != eventChargeSuccess {
		s.logger.Info("webhook event ignored", zap.String("event", event.Event))
		return WebhookIgnored, nil
	}

	var charge webhookCharge
	if err := json.Unmarshal(event.Data, &charge); err != nil || charge.Reference == "" {
		s.logger.Warn("webhook charge without reference", zap.String("event", event.Event))
		return WebhookIgnored, nil
	}
	if charge.Status != paystack.StatusSuccess {
		s.logger.Info("webhook charge not successful",
			zap.String("reference", charge.Reference),
			zap.String("status", charge.Status),
		)
		return WebhookIgnored, nil
	}

	_, err := s.donations.Reconcile(ctx, charge.Reference, paystack.StatusSuccess, event.Data, SourceWebhook)
	switch {
	case err == nil:
		return WebhookProcessed, nil
	case errors.Is(err, appErrors.ErrNotFound):
		s.logger.Warn("webhook for unknown donation", zap.String("reference", charge.Reference))
		return WebhookUnknownReference, nil
	default:
		s.logger.Error("webhook reconciliation failed", zap.String("reference", charge.Reference), zap.Error(err))
		return WebhookFailed, err
	}
}

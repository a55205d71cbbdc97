package service

import (
	"context"
	"errors"
	"time"

	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
	"github.com/noah-isme/bips-college-api/pkg/paystack"
)

// paymentGateway is the subset of the Paystack client the flows depend on.
type paymentGateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// CheckoutSession is returned when a hosted payment page has been created.
type CheckoutSession struct {
	AuthorizationURL string `json:"authorizationUrl"`
	Reference        string `json:"reference"`
	AccessCode       string `json:"accessCode"`
	Currency         string `json:"currency"`
}

// instrumentedGateway times every gateway call.
type instrumentedGateway struct {
	next    paymentGateway
	metrics *MetricsService
}

func instrument(gateway paymentGateway, metrics *MetricsService) paymentGateway {
	if metrics == nil {
		return gateway
	}
	return &instrumentedGateway{next: gateway, metrics: metrics}
}

func (g *instrumentedGateway) InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error) {
	start := time.Now()
	auth, err := g.next.InitializeTransaction(ctx, req)
	g.metrics.ObserveGatewayCall("initialize", err, time.Since(start))
	return auth, err
}

func (g *instrumentedGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error) {
	start := time.Now()
	tx, err := g.next.VerifyTransaction(ctx, reference)
	g.metrics.ObserveGatewayCall("verify", err, time.Since(start))
	return tx, err
}

// gatewayError converts a gateway failure into GATEWAY_UNAVAILABLE, keeping the upstream payload for operators.
func gatewayError(err error, message string) error {
	details := map[string]interface{}{}
	var pErr *paystack.Error
	if errors.As(err, &pErr) {
		if pErr.StatusCode != 0 {
			details["statusCode"] = pErr.StatusCode
		}
		if pErr.Message != "" {
			details["reason"] = pErr.Message
		}
		if len(pErr.Body) > 0 {
			details["gateway"] = pErr.Body
		}
	}
	wrapped := appErrors.Wrap(err, appErrors.ErrGatewayUnavailable.Code, appErrors.ErrGatewayUnavailable.Status, message)
	if len(details) == 0 {
		return wrapped
	}
	return appErrors.WithDetails(wrapped, details)
}

package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bips-college-api/pkg/paystack"
	"github.com/noah-isme/bips-college-api/pkg/response"
)

const maxWebhookBody = 1 << 20

type webhookService interface {
	HandlePaystack(ctx context.Context, body []byte, signature string) (string, error)
}

// WebhookHandler receives gateway push notifications.
type WebhookHandler struct {
	webhooks webhookService
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(webhooks webhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Paystack godoc
// @Summary Paystack webhook
// @Description Signed with HMAC-SHA512 of the raw body in the X-Paystack-Signature header.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Paystack-Signature header string true "Hex HMAC-SHA512 signature"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /webhooks/paystack [post]
func (h *WebhookHandler) Paystack(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	outcome, err := h.webhooks.HandlePaystack(c.Request.Context(), body, c.GetHeader(paystack.SignatureHeader))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, outcome, nil)
}

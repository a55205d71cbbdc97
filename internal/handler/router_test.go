package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/bips-college-api/internal/service"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
	"github.com/noah-isme/bips-college-api/pkg/response"
)

func newTestRouter(guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	return NewRouter(RouterConfig{APIPrefix: "/api"}, Handlers{
		Sponsors:  NewSponsorHandler(&sponsorServiceMock{}),
		Students:  NewStudentHandler(&studentServiceMock{}),
		Donations: NewDonationHandler(&donationServiceMock{}),
		Webhooks:  NewWebhookHandler(&webhookServiceMock{}),
		Invoices:  NewInvoiceHandler(&invoiceServiceMock{}),
		Batches:   NewBatchHandler(&batchServiceMock{}),
		Auth:      NewAuthHandler(authServiceMock{}),
		Metrics:   NewMetricsHandler(metrics),
	}, guard, metrics, zap.NewNop())
}

func denyAll(c *gin.Context) {
	response.Error(c, appErrors.ErrUnauthorized)
	c.Abort()
}

func serve(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRouterPublicRoutesBypassGuard(t *testing.T) {
	r := newTestRouter(denyAll)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/health", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/webhooks/paystack", []byte(`{}`)).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/donations/initialize", []byte(`{"email":"a@example.com","name":"A","amount":5}`)).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/invoice-links/tok", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/invoices/inv-1/pdf-link", nil).Code)
}

func TestRouterOperatorRoutesGuarded(t *testing.T) {
	r := newTestRouter(denyAll)

	for _, path := range []string{"/api/sponsors", "/api/students", "/api/invoices", "/api/batches", "/api/donations", "/api/donations/export"} {
		assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, path, nil).Code, path)
	}
}

func TestRouterWithoutGuard(t *testing.T) {
	r := newTestRouter(nil)

	w := serve(r, http.MethodGet, "/api/sponsors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/invoices/inv-1/pdf", nil).Code)
	assert.Equal(t, http.StatusConflict, serve(r, http.MethodPost, "/api/batches/b-1/process", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/unknown", nil).Code)
}

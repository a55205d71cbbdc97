package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/bips-college-api/internal/middleware"
	"github.com/noah-isme/bips-college-api/internal/service"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
	"github.com/noah-isme/bips-college-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/bips-college-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/bips-college-api/pkg/middleware/requestid"
	"github.com/noah-isme/bips-college-api/pkg/response"
)

// Handlers groups the resource handlers mounted by the router.
type Handlers struct {
	Sponsors  *SponsorHandler
	Students  *StudentHandler
	Donations *DonationHandler
	Webhooks  *WebhookHandler
	Invoices  *InvoiceHandler
	Batches   *BatchHandler
	Auth      *AuthHandler
	Metrics   *MetricsHandler
}

// RouterConfig controls route layout.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
}

// NewRouter builds the gin engine. Operator routes go through guard when it is non-nil; the donation
// checkout, the webhook, shared invoice links, token issuance and health stay public.
func NewRouter(cfg RouterConfig, h Handlers, guard gin.HandlerFunc, metrics *service.MetricsService, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	api := r.Group(prefix)
	api.GET("/health", h.Metrics.Health)
	api.POST("/auth/token", h.Auth.Token)
	api.POST("/donations/initialize", h.Donations.Initialize)
	api.GET("/donations/verify/:reference", h.Donations.Verify)
	api.POST("/webhooks/paystack", h.Webhooks.Paystack)
	api.GET("/invoice-links/:token", h.Invoices.SharedPDF)

	operator := api.Group("")
	if guard != nil {
		operator.Use(guard)
	}

	operator.GET("/donations", h.Donations.List)
	operator.GET("/donations/export", h.Donations.Export)

	operator.POST("/sponsors", h.Sponsors.Create)
	operator.GET("/sponsors", h.Sponsors.List)
	operator.GET("/sponsors/:id", h.Sponsors.Get)
	operator.PUT("/sponsors/:id", h.Sponsors.Update)

	operator.POST("/students", h.Students.Create)
	operator.GET("/students", h.Students.List)
	operator.GET("/students/sponsor/:id", h.Students.ListBySponsor)
	operator.PUT("/students/:id/status", h.Students.UpdateStatus)

	operator.GET("/invoices", h.Invoices.List)
	operator.GET("/invoices/sponsor/:id", h.Invoices.ListBySponsor)
	operator.POST("/invoices/initialize-payment", h.Invoices.InitializePayment)
	operator.GET("/invoices/:id", h.Invoices.Get)
	operator.GET("/invoices/:id/pdf", h.Invoices.PDF)
	operator.POST("/invoices/:id/pdf-link", h.Invoices.PDFLink)
	operator.PUT("/invoices/:id/status", h.Invoices.UpdateStatus)

	operator.POST("/batches", h.Batches.Create)
	operator.GET("/batches", h.Batches.List)
	operator.POST("/batches/:id/process", h.Batches.Process)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusMethodNotAllowed)
	})

	return r
}

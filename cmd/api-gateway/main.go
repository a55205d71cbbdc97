package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/bips-college-api/api/swagger"
	"github.com/noah-isme/bips-college-api/internal/handler"
	"github.com/noah-isme/bips-college-api/internal/middleware"
	"github.com/noah-isme/bips-college-api/internal/repository"
	"github.com/noah-isme/bips-college-api/internal/service"
	"github.com/noah-isme/bips-college-api/pkg/cache"
	"github.com/noah-isme/bips-college-api/pkg/config"
	"github.com/noah-isme/bips-college-api/pkg/database"
	"github.com/noah-isme/bips-college-api/pkg/invoicepdf"
	"github.com/noah-isme/bips-college-api/pkg/jobs"
	"github.com/noah-isme/bips-college-api/pkg/logger"
	"github.com/noah-isme/bips-college-api/pkg/paystack"
	"github.com/noah-isme/bips-college-api/pkg/signedurl"
)

// @title BIPS College API
// @version 1.0.0
// @description Sponsorship, student enrollment, invoicing and donation payments for BIPS Technical College.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("application terminated with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logr.Info("database migrations applied")
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	if cfg.Paystack.SecretKey == "" {
		logr.Warn("PAYSTACK_SECRET_KEY is empty; payments and webhooks will be rejected")
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	queue := jobs.New("notifications", jobs.Config{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.Retries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	notifications := service.NewNotificationService(queue, cfg.College.Name, logr)
	notifications.Register(queue)
	queue.Start(ctx)
	defer queue.Stop()

	gateway := paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.Timeout)

	sponsorRepo := repository.NewSponsorRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	donationRepo := repository.NewDonationRepository(db)

	sponsorSvc := service.NewSponsorService(sponsorRepo, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, sponsorRepo, cacheSvc, validate, logr)
	donationSvc := service.NewDonationService(donationRepo, gateway, notifications, metrics, validate, logr, service.DonationConfig{
		DefaultCurrency:     cfg.Payments.DefaultCurrency,
		SupportedCurrencies: cfg.Payments.SupportedCurrencies,
		CallbackURL:         cfg.Paystack.DonationCallback,
	})
	webhookSvc := service.NewWebhookService(donationSvc, cfg.Paystack.SecretKey, metrics, logr)
	renderer := invoicepdf.NewRenderer(invoicepdf.Branding{
		Name:    cfg.College.Name,
		Tagline: cfg.College.Tagline,
		Contact: cfg.College.Contact,
	})
	links := signedurl.NewSigner(cfg.Invoices.LinkSecret, cfg.Invoices.LinkTTL)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, gateway, renderer, links, metrics, validate, logr, service.InvoiceConfig{
		Currency:    cfg.Payments.DefaultCurrency,
		CallbackURL: cfg.Paystack.InvoiceCallbackURL,
		LinkBaseURL: cfg.Invoices.LinkBaseURL,
	})
	batchSvc := service.NewBatchService(batchRepo, sponsorRepo, notifications, cacheSvc, validate, logr, service.BatchConfig{
		DueDays:  cfg.Invoices.DueDays,
		Semester: cfg.Invoices.DefaultSemester,
		Currency: cfg.Payments.DefaultCurrency,
	})
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		Username:          cfg.Auth.AdminUsername,
		PasswordHash:      cfg.Auth.AdminPasswordHash,
		AccessTokenSecret: cfg.Auth.JWTSecret,
		AccessTokenExpiry: cfg.Auth.JWTExpiration,
		Issuer:            "bips-college-api",
	})

	var guard gin.HandlerFunc
	if cfg.Auth.Enabled {
		guard = middleware.JWT(authSvc)
	} else {
		logr.Warn("AUTH_ENABLED is false; operator routes are unauthenticated")
	}

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
	}, handler.Handlers{
		Sponsors:  handler.NewSponsorHandler(sponsorSvc),
		Students:  handler.NewStudentHandler(studentSvc),
		Donations: handler.NewDonationHandler(donationSvc),
		Webhooks:  handler.NewWebhookHandler(webhookSvc),
		Invoices:  handler.NewInvoiceHandler(invoiceSvc),
		Batches:   handler.NewBatchHandler(batchSvc),
		Auth:      handler.NewAuthHandler(authSvc),
		Metrics:   handler.NewMetricsHandler(metrics),
	}, guard, metrics, logr)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logr.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

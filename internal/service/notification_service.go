package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/bips-college-api/pkg/jobs"
	"github.com/noah-isme/bips-college-api/pkg/money"
)

// Notification job types.
const (
	JobInvoiceIssued    = "notify.invoice_issued"
	JobPaymentConfirmed = "notify.payment_confirmed"
)

// InvoiceIssuedNotice tells a sponsor that a consolidated invoice is ready.
type InvoiceIssuedNotice struct {
	InvoiceNumber string
	SponsorName   string
	Email         string
	Total         decimal.Decimal
	Currency      string
	DueDate       time.Time
	StudentCount  int
}

// PaymentConfirmedNotice thanks a donor for a completed donation.
type PaymentConfirmedNotice struct {
	Reference  string
	DonorName  string
	DonorEmail string
	Amount     decimal.Decimal
	Currency   string
}

type jobQueue interface {
	Enqueue(jobType string, payload interface{}) error
}

type notifier interface {
	InvoiceIssued(ctx context.Context, notice InvoiceIssuedNotice)
	PaymentConfirmed(ctx context.Context, notice PaymentConfirmedNotice)
}

// NotificationService queues outbound messages and renders them on the worker side.
// Delivery is logged only; no mail transport is wired.
type NotificationService struct {
	queue   jobQueue
	logger  *zap.Logger
	college string
}

// NewNotificationService constructs the notification service.
func NewNotificationService(queue jobQueue, college string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, logger: logger, college: college}
}

// Register binds the delivery handlers to q.
func (s *NotificationService) Register(q *jobs.Queue) {
	q.Register(JobInvoiceIssued, s.deliver)
	q.Register(JobPaymentConfirmed, s.deliver)
}

// InvoiceIssued schedules an invoice notice. Enqueue failures are logged, not returned.
// Sponsors without an email on file are skipped.
func (s *NotificationService) InvoiceIssued(ctx context.Context, notice InvoiceIssuedNotice) {
	if s == nil {
		return
	}
	if notice.Email == "" {
		s.logger.Info("invoice notice skipped, sponsor has no email", zap.String("invoice_number", notice.InvoiceNumber))
		return
	}
	s.enqueue(JobInvoiceIssued, notice)
}

// PaymentConfirmed schedules a donation receipt.
func (s *NotificationService) PaymentConfirmed(ctx context.Context, notice PaymentConfirmedNotice) {
	s.enqueue(JobPaymentConfirmed, notice)
}

func (s *NotificationService) enqueue(jobType string, payload interface{}) {
	if s == nil || s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobType, payload); err != nil {
		s.logger.Warn("notification not queued", zap.String("type", jobType), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	to, subject, err := s.compose(job)
	if err != nil {
		// Undeliverable payloads never succeed on retry.
		s.logger.Warn("notification dropped", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		return nil
	}
	s.logger.Info("notification dispatched",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

func (s *NotificationService) compose(job jobs.Job) (string, string, error) {
	switch notice := job.Payload.(type) {
	case InvoiceIssuedNotice:
		if notice.Email == "" {
			return "", "", fmt.Errorf("invoice %s: sponsor has no email", notice.InvoiceNumber)
		}
		subject := fmt.Sprintf("%s invoice %s: %s for %d student(s), due %s",
			s.college, notice.InvoiceNumber, money.Format(notice.Currency, notice.Total), notice.StudentCount, notice.DueDate.Format("2 Jan 2006"))
		return notice.Email, subject, nil
	case PaymentConfirmedNotice:
		subject := fmt.Sprintf("Thank you %s: donation of %s received (ref %s)",
			notice.DonorName, money.Format(notice.Currency, notice.Amount), notice.Reference)
		return notice.DonorEmail, subject, nil
	default:
		return "", "", fmt.Errorf("unsupported notification payload %T", job.Payload)
	}
}

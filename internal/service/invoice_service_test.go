package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bips-college-api/internal/models"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
	"github.com/noah-isme/bips-college-api/pkg/invoicepdf"
	"github.com/noah-isme/bips-college-api/pkg/signedurl"
)

func newInvoiceFixture(status models.InvoiceStatus) (*InvoiceService, *fakeDB, *fakeGateway, *models.Invoice) {
	db := newFakeDB()
	sponsor := db.addSponsor(models.Sponsor{Name: "Acme Foundation", ContactPerson: "Jane", Phone: "0700000001", Email: strPtr("billing@acme.org")})
	invoice := &models.Invoice{
		ID:            "inv-1",
		InvoiceNumber: "BIPS-INV-ABC123",
		SponsorID:     sponsor.ID,
		AcademicYear:  "2026",
		Semester:      "First",
		Students: models.InvoiceLineItems{
			{StudentID: "st-1", Name: "Amina", Course: "Electrical", Amount: decimal.NewFromInt(1200)},
			{StudentID: "st-2", Name: "Brian", Course: "Plumbing", Amount: decimal.NewFromInt(1700)},
		},
		InvoiceBreakdown: models.InvoiceBreakdown{
			Tuition:      decimal.NewFromInt(2500),
			Registration: decimal.NewFromInt(400),
			OtherFees:    decimal.Zero,
		},
		TotalAmount: decimal.NewFromInt(2900),
		BalanceDue:  decimal.NewFromInt(2900),
		DueDate:     time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:      status,
		CreatedAt:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	db.invoices[invoice.ID] = invoice

	gateway := &fakeGateway{}
	svc := NewInvoiceService(&fakeInvoiceRepo{db: db}, gateway, invoicepdf.NewRenderer(invoicepdf.Branding{Name: "BIPS College"}), signedurl.NewSigner("link-secret", time.Hour), nil, nil, nil, InvoiceConfig{
		Currency:    "KES",
		CallbackURL: "https://bips.example/invoices/{invoiceId}/paid?reference={reference}",
		LinkBaseURL: "https://api.bips.example/api/invoice-links/",
	})
	return svc, db, gateway, invoice
}

func TestInvoiceUpdateStatusPaidRecordsPayment(t *testing.T) {
	svc, db, _, _ := newInvoiceFixture(models.InvoiceStatusSent)
	paidAt := time.Date(2026, 4, 20, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return paidAt }

	invoice, err := svc.UpdateStatus(context.Background(), "inv-1", UpdateInvoiceStatusRequest{
		Status:      models.InvoiceStatusPaid,
		PaymentData: &PaymentInput{Amount: decimal.NewFromInt(2900), Method: "card"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)
	assert.True(t, invoice.BalanceDue.IsZero())
	require.NotNil(t, invoice.PaidAt)
	assert.True(t, paidAt.Equal(*invoice.PaidAt))

	require.Len(t, invoice.Payments, 1)
	payment := invoice.Payments[0]
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(2900)))
	assert.Equal(t, "card", payment.Method)
	assert.Contains(t, payment.PaymentID, "PAY-")
	assert.True(t, paidAt.Equal(payment.Date))

	assert.Len(t, db.invoices["inv-1"].Payments, 1)
}

func TestInvoiceUpdateStatusTransitions(t *testing.T) {
	cases := []struct {
		from    models.InvoiceStatus
		to      models.InvoiceStatus
		allowed bool
	}{
		{models.InvoiceStatusDraft, models.InvoiceStatusSent, true},
		{models.InvoiceStatusDraft, models.InvoiceStatusOverdue, true},
		{models.InvoiceStatusSent, models.InvoiceStatusOverdue, true},
		{models.InvoiceStatusOverdue, models.InvoiceStatusSent, true},
		{models.InvoiceStatusSent, models.InvoiceStatusDraft, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusSent, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusPaid, false},
	}
	for _, tc := range cases {
		svc, db, _, _ := newInvoiceFixture(tc.from)
		invoice, err := svc.UpdateStatus(context.Background(), "inv-1", UpdateInvoiceStatusRequest{Status: tc.to})
		if tc.allowed {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
			assert.Equal(t, tc.to, invoice.Status)
			assert.True(t, invoice.BalanceDue.Equal(decimal.NewFromInt(2900)))
			continue
		}
		assert.ErrorIs(t, err, appErrors.ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
		assert.Equal(t, tc.from, db.invoices["inv-1"].Status)
	}
}

func TestInvoiceUpdateStatusRejectsBadInput(t *testing.T) {
	svc, _, _, _ := newInvoiceFixture(models.InvoiceStatusDraft)

	_, err := svc.UpdateStatus(context.Background(), "inv-1", UpdateInvoiceStatusRequest{Status: "cancelled"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), "inv-1", UpdateInvoiceStatusRequest{
		Status:      models.InvoiceStatusSent,
		PaymentData: &PaymentInput{Amount: decimal.NewFromInt(10), Method: "cash"},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), "inv-1", UpdateInvoiceStatusRequest{
		Status:      models.InvoiceStatusPaid,
		PaymentData: &PaymentInput{Amount: decimal.RequireFromString("2900.001"), Method: "cash"},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), "missing", UpdateInvoiceStatusRequest{Status: models.InvoiceStatusSent})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestInvoiceInitializePayment(t *testing.T) {
	svc, db, gateway, _ := newInvoiceFixture(models.InvoiceStatusSent)

	session, err := svc.InitializePayment(context.Background(), InitializeInvoicePaymentRequest{InvoiceID: "inv-1"})
	require.NoError(t, err)

	require.Len(t, gateway.initialized, 1)
	req := gateway.initialized[0]
	assert.Equal(t, int64(290000), req.Amount)
	assert.Equal(t, "billing@acme.org", req.Email)
	assert.Contains(t, req.Reference, "BIPS-INV-ABC123-")
	assert.Equal(t, "inv-1", req.Metadata["invoice_id"])
	assert.Equal(t, "https://bips.example/invoices/inv-1/paid?reference="+req.Reference, req.CallbackURL)

	assert.Equal(t, "Acme Foundation", session.Invoice.SponsorName)
	assert.True(t, session.Invoice.Amount.Equal(decimal.NewFromInt(2900)))
	assert.Equal(t, models.InvoiceStatusSent, db.invoices["inv-1"].Status)
}

func TestInvoiceInitializePaymentRejectsPaid(t *testing.T) {
	svc, _, gateway, _ := newInvoiceFixture(models.InvoiceStatusPaid)

	_, err := svc.InitializePayment(context.Background(), InitializeInvoicePaymentRequest{InvoiceID: "inv-1"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Empty(t, gateway.initialized)
}

func TestInvoiceInitializePaymentNeedsEmail(t *testing.T) {
	svc, db, gateway, _ := newInvoiceFixture(models.InvoiceStatusDraft)
	for _, sp := range db.sponsors {
		sp.Email = nil
	}

	_, err := svc.InitializePayment(context.Background(), InitializeInvoicePaymentRequest{InvoiceID: "inv-1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.InitializePayment(context.Background(), InitializeInvoicePaymentRequest{InvoiceID: "inv-1", Email: "payer@example.com"})
	require.NoError(t, err)
	require.Len(t, gateway.initialized, 1)
	assert.Equal(t, "payer@example.com", gateway.initialized[0].Email)
}

func TestInvoiceListBySponsorAndRender(t *testing.T) {
	svc, _, _, invoice := newInvoiceFixture(models.InvoiceStatusDraft)

	invoices, err := svc.ListBySponsor(context.Background(), invoice.SponsorID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "Acme Foundation", invoices[0].Sponsor.Name)

	empty, err := svc.ListBySponsor(context.Background(), "other")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	data, name, err := svc.RenderPDF(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "BIPS-INV-ABC123.pdf", name)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestInvoicePDFLinkRoundTrip(t *testing.T) {
	svc, _, _, _ := newInvoiceFixture(models.InvoiceStatusSent)

	link, err := svc.CreatePDFLink(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", link.InvoiceID)
	require.True(t, strings.HasPrefix(link.URL, "https://api.bips.example/api/invoice-links/"))

	token := strings.TrimPrefix(link.URL, "https://api.bips.example/api/invoice-links/")
	data, filename, err := svc.RenderSharedPDF(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
	assert.Equal(t, link.InvoiceNumber+".pdf", filename)

	_, _, err = svc.RenderSharedPDF(context.Background(), token+"x")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.CreatePDFLink(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bips-college-api/internal/models"
)

const invoiceColumns = `i.id, i.invoice_number, i.sponsor_id, i.academic_year, i.semester, i.line_items,
        i.tuition_total, i.registration_total, i.other_fees, i.total_amount, i.balance_due, i.due_date,
        i.status, i.payments, i.created_at, i.updated_at, i.paid_at`

const invoiceSponsorColumns = `sp.id AS "sponsor.id", sp.name AS "sponsor.name", sp.contact_person AS "sponsor.contact_person",
        sp.phone AS "sponsor.phone", sp.email AS "sponsor.email"`

// InvoiceRepository manages persistence for invoices.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs an InvoiceRepository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// List returns invoices with their sponsor populated, newest first.
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.SponsorID != "" {
		args = append(args, filter.SponsorID)
		conditions = append(conditions, fmt.Sprintf("i.sponsor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", len(args)))
	}

	query := `SELECT ` + invoiceColumns + `, ` + invoiceSponsorColumns + `
        FROM invoices i JOIN sponsors sp ON sp.id = i.sponsor_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY i.created_at DESC"

	var invoices []models.InvoiceDetail
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// FindByID fetches an invoice with its sponsor populated.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.InvoiceDetail, error) {
	query := `SELECT ` + invoiceColumns + `, ` + invoiceSponsorColumns + `
        FROM invoices i JOIN sponsors sp ON sp.id = i.sponsor_id
        WHERE i.id = $1`
	var invoice models.InvoiceDetail
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateWithLock loads the invoice under a row lock, applies mutate and writes the result in the same transaction.
// An error from mutate aborts the update and is returned unchanged.
func (r *InvoiceRepository) UpdateWithLock(ctx context.Context, id string, mutate func(*models.Invoice) error) (_ *models.Invoice, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin invoice tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var invoice models.Invoice
	query := `SELECT ` + invoiceColumns + ` FROM invoices i WHERE i.id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}

	if err = mutate(&invoice); err != nil {
		return nil, err
	}
	invoice.UpdatedAt = time.Now().UTC()

	const update = `UPDATE invoices SET status = :status, balance_due = :balance_due, payments = :payments, paid_at = :paid_at, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, update, &invoice); err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invoice tx: %w", err)
	}
	return &invoice, nil
}

func insertInvoice(ctx context.Context, tx *sqlx.Tx, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now
	}
	invoice.UpdatedAt = now
	if invoice.Payments == nil {
		invoice.Payments = models.PaymentHistory{}
	}
	const query = `INSERT INTO invoices (id, invoice_number, sponsor_id, academic_year, semester, line_items, tuition_total, registration_total, other_fees,
        total_amount, balance_due, due_date, status, payments, created_at, updated_at, paid_at)
        VALUES (:id, :invoice_number, :sponsor_id, :academic_year, :semester, :line_items, :tuition_total, :registration_total, :other_fees,
        :total_amount, :balance_due, :due_date, :status, :payments, :created_at, :updated_at, :paid_at)`
	if _, err := tx.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", mapWriteError(err))
	}
	return nil
}

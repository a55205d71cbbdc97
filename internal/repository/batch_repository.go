package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bips-college-api/internal/models"
)

const batchColumns = `b.id, b.batch_number, b.sponsor_id, b.students, b.total_students, b.total_amount, b.invoice_id, b.status, b.created_at, b.completed_at`

// BatchRepository manages batch registrations and their settlement.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs a BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create stages a new batch.
func (r *BatchRepository) Create(ctx context.Context, batch *models.BatchRegistration) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	if batch.Status == "" {
		batch.Status = models.BatchStatusProcessing
	}
	const query = `INSERT INTO batch_registrations (id, batch_number, sponsor_id, students, total_students, total_amount, invoice_id, status, created_at, completed_at)
        VALUES (:id, :batch_number, :sponsor_id, :students, :total_students, :total_amount, :invoice_id, :status, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", mapWriteError(err))
	}
	return nil
}

// FindByID fetches a batch by ID.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.BatchRegistration, error) {
	query := `SELECT ` + batchColumns + ` FROM batch_registrations b WHERE b.id = $1`
	var batch models.BatchRegistration
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// List returns batches newest first with sponsor names and, once settled, their invoice summary.
func (r *BatchRepository) List(ctx context.Context) ([]models.BatchListItem, error) {
	query := `SELECT ` + batchColumns + `, sp.name AS sponsor_name, sp.contact_person AS sponsor_contact_person,
        i.invoice_number, i.total_amount AS invoice_total, i.status AS invoice_status
        FROM batch_registrations b
        JOIN sponsors sp ON sp.id = b.sponsor_id
        LEFT JOIN invoices i ON i.id = b.invoice_id
        ORDER BY b.created_at DESC`
	var items []models.BatchListItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	for idx := range items {
		item := &items[idx]
		if item.InvoiceID == nil || item.InvoiceNumber == nil {
			continue
		}
		summary := &models.InvoiceSummary{ID: *item.InvoiceID, InvoiceNumber: *item.InvoiceNumber}
		if item.InvoiceTotal != nil {
			summary.TotalAmount = *item.InvoiceTotal
		}
		if item.InvoiceStatus != nil {
			summary.Status = *item.InvoiceStatus
		}
		item.Invoice = summary
	}
	return items, nil
}

// Settle materialises a batch in one transaction: the batch row is locked, its students and invoice are inserted,
// the batch is completed and the sponsor counter incremented. A batch that is no longer processing yields ErrStaleWrite
// and nothing is written.
func (r *BatchRepository) Settle(ctx context.Context, settlement *models.BatchSettlement) (_ *models.BatchRegistration, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var batch models.BatchRegistration
	lock := `SELECT ` + batchColumns + ` FROM batch_registrations b WHERE b.id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &batch, lock, settlement.BatchID); err != nil {
		return nil, err
	}
	if batch.Status != models.BatchStatusProcessing {
		return nil, ErrStaleWrite
	}

	for i := range settlement.Students {
		if err = insertStudent(ctx, tx, &settlement.Students[i]); err != nil {
			return nil, err
		}
	}
	if err = insertInvoice(ctx, tx, &settlement.Invoice); err != nil {
		return nil, err
	}

	completedAt := settlement.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	const complete = `UPDATE batch_registrations SET status = $2, invoice_id = $3, completed_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, complete, batch.ID, models.BatchStatusCompleted, settlement.Invoice.ID, completedAt); err != nil {
		return nil, fmt.Errorf("complete batch: %w", err)
	}
	if err = incrementReferrals(ctx, tx, batch.SponsorID, batch.TotalStudents); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch tx: %w", err)
	}

	batch.Status = models.BatchStatusCompleted
	batch.InvoiceID = &settlement.Invoice.ID
	batch.CompletedAt = &completedAt
	return &batch, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bips-college-api/internal/models"
)

const donationColumns = `id, reference, donor_email, donor_name, amount, currency, status, gateway_payload, created_at, updated_at, completed_at`

// DonationRepository manages persistence for donations.
type DonationRepository struct {
	db *sqlx.DB
}

// NewDonationRepository constructs a DonationRepository.
func NewDonationRepository(db *sqlx.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create inserts a donation. A reused reference surfaces as ErrDuplicateKey.
func (r *DonationRepository) Create(ctx context.Context, donation *models.Donation) error {
	if donation.ID == "" {
		donation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if donation.CreatedAt.IsZero() {
		donation.CreatedAt = now
	}
	donation.UpdatedAt = now
	if donation.Status == "" {
		donation.Status = models.DonationStatusPending
	}
	const query = `INSERT INTO donations (` + donationColumns + `)
        VALUES (:id, :reference, :donor_email, :donor_name, :amount, :currency, :status, :gateway_payload, :created_at, :updated_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, donation); err != nil {
		return fmt.Errorf("create donation: %w", mapWriteError(err))
	}
	return nil
}

// FindByReference fetches a donation by its gateway reference.
func (r *DonationRepository) FindByReference(ctx context.Context, reference string) (*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE reference = $1`
	var donation models.Donation
	if err := r.db.GetContext(ctx, &donation, query, reference); err != nil {
		return nil, err
	}
	return &donation, nil
}

// List returns donations newest first, optionally filtered by status.
func (r *DonationRepository) List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations`
	var args []interface{}
	if filter.Status != "" {
		query += " WHERE status = $1"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"

	var donations []models.Donation
	if err := r.db.SelectContext(ctx, &donations, query, args...); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

// MarkSuccess completes a donation unless it already succeeded. It reports whether this call performed the transition.
func (r *DonationRepository) MarkSuccess(ctx context.Context, reference string, payload models.GatewayPayload, completedAt time.Time) (bool, error) {
	const query = `UPDATE donations SET status = $2, gateway_payload = $3, completed_at = $4, updated_at = $4
        WHERE reference = $1 AND status <> $2`
	return r.transition(ctx, query, reference, models.DonationStatusSuccess, payload, completedAt)
}

// MarkFailed fails a donation that is still pending. It reports whether this call performed the transition.
func (r *DonationRepository) MarkFailed(ctx context.Context, reference string, payload models.GatewayPayload) (bool, error) {
	const query = `UPDATE donations SET status = $2, gateway_payload = $3, updated_at = $4
        WHERE reference = $1 AND status = '` + string(models.DonationStatusPending) + `'`
	return r.transition(ctx, query, reference, models.DonationStatusFailed, payload, time.Now().UTC())
}

func (r *DonationRepository) transition(ctx context.Context, query, reference string, status models.DonationStatus, payload models.GatewayPayload, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, reference, status, payload, at)
	if err != nil {
		return false, fmt.Errorf("update donation %s: %w", reference, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update donation %s: %w", reference, err)
	}
	return affected == 1, nil
}

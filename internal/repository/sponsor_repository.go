package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bips-college-api/internal/models"
)

const sponsorColumns = `id, name, contact_person, phone, email, notes, students_referred, status, registration_date, updated_at`

// SponsorRepository manages persistence for sponsors.
type SponsorRepository struct {
	db *sqlx.DB
}

// NewSponsorRepository constructs a SponsorRepository.
func NewSponsorRepository(db *sqlx.DB) *SponsorRepository {
	return &SponsorRepository{db: db}
}

// List returns every sponsor, newest registration first.
func (r *SponsorRepository) List(ctx context.Context) ([]models.Sponsor, error) {
	query := `SELECT ` + sponsorColumns + ` FROM sponsors ORDER BY registration_date DESC`
	var sponsors []models.Sponsor
	if err := r.db.SelectContext(ctx, &sponsors, query); err != nil {
		return nil, fmt.Errorf("list sponsors: %w", err)
	}
	return sponsors, nil
}

// FindByID fetches a sponsor by ID.
func (r *SponsorRepository) FindByID(ctx context.Context, id string) (*models.Sponsor, error) {
	query := `SELECT ` + sponsorColumns + ` FROM sponsors WHERE id = $1`
	var sponsor models.Sponsor
	if err := r.db.GetContext(ctx, &sponsor, query, id); err != nil {
		return nil, err
	}
	return &sponsor, nil
}

// ExistsByPhone checks whether a sponsor already uses the phone number, optionally excluding an ID.
func (r *SponsorRepository) ExistsByPhone(ctx context.Context, phone, excludeID string) (bool, error) {
	return r.exists(ctx, "phone = $1", phone, excludeID)
}

// ExistsByEmail performs a case-insensitive email lookup, optionally excluding an ID.
func (r *SponsorRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER($1)", email, excludeID)
}

func (r *SponsorRepository) exists(ctx context.Context, predicate, value, excludeID string) (bool, error) {
	query := "SELECT 1 FROM sponsors WHERE " + predicate
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var found int
	if err := r.db.GetContext(ctx, &found, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check sponsor uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a sponsor. A phone or email collision surfaces as ErrDuplicateKey.
func (r *SponsorRepository) Create(ctx context.Context, sponsor *models.Sponsor) error {
	if sponsor.ID == "" {
		sponsor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sponsor.RegistrationDate.IsZero() {
		sponsor.RegistrationDate = now
	}
	sponsor.UpdatedAt = now
	if sponsor.Status == "" {
		sponsor.Status = models.SponsorStatusActive
	}
	const query = `INSERT INTO sponsors (` + sponsorColumns + `)
        VALUES (:id, :name, :contact_person, :phone, :email, :notes, :students_referred, :status, :registration_date, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sponsor); err != nil {
		return fmt.Errorf("create sponsor: %w", mapWriteError(err))
	}
	return nil
}

// Update writes the editable sponsor fields. The referral counter is only changed through incrementReferrals.
func (r *SponsorRepository) Update(ctx context.Context, sponsor *models.Sponsor) error {
	sponsor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sponsors SET name = :name, contact_person = :contact_person, phone = :phone, email = :email, notes = :notes, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, sponsor)
	if err != nil {
		return fmt.Errorf("update sponsor: %w", mapWriteError(err))
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// incrementReferrals bumps a sponsor's referral counter inside an open transaction.
func incrementReferrals(ctx context.Context, tx *sqlx.Tx, sponsorID string, by int) error {
	const query = `UPDATE sponsors SET students_referred = students_referred + $2, updated_at = $3 WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, sponsorID, by, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment sponsor referrals: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment sponsor referrals: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bips-college-api/internal/models"
	"github.com/noah-isme/bips-college-api/internal/repository"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
)

func strPtr(s string) *string { return &s }

func TestSponsorServiceCreate(t *testing.T) {
	db := newFakeDB()
	svc := NewSponsorService(&fakeSponsorRepo{db: db}, nil, nil, nil)

	sponsor, err := svc.Create(context.Background(), CreateSponsorRequest{
		Name:          " Acme Foundation ",
		ContactPerson: "Jane Wanjiru",
		Phone:         "0712345678",
		Email:         strPtr("grants@acme.test"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sponsor.ID)
	assert.Equal(t, "Acme Foundation", sponsor.Name)
	assert.Equal(t, models.SponsorStatusActive, sponsor.Status)
	assert.Equal(t, 0, sponsor.StudentsReferred)
}

func TestSponsorServiceCreateDuplicatePhoneCreatesNothing(t *testing.T) {
	db := newFakeDB()
	db.addSponsor(models.Sponsor{Name: "Existing", ContactPerson: "A", Phone: "0712345678"})
	repo := &fakeSponsorRepo{db: db}
	svc := NewSponsorService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateSponsorRequest{Name: "New", ContactPerson: "B", Phone: "0712345678"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, 0, repo.creates)
	assert.Len(t, db.sponsors, 1)
}

func TestSponsorServiceCreateDuplicateEmailIgnoresCase(t *testing.T) {
	db := newFakeDB()
	db.addSponsor(models.Sponsor{Name: "Existing", ContactPerson: "A", Phone: "0700000001", Email: strPtr("Grants@Acme.test")})
	svc := NewSponsorService(&fakeSponsorRepo{db: db}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateSponsorRequest{Name: "New", ContactPerson: "B", Phone: "0700000002", Email: strPtr("grants@acme.test")})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestSponsorServiceCreateRaceSurfacesAsConflict(t *testing.T) {
	db := newFakeDB()
	svc := NewSponsorService(&fakeSponsorRepo{db: db, createErr: repository.ErrDuplicateKey}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateSponsorRequest{Name: "New", ContactPerson: "B", Phone: "0700000002"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestSponsorServiceCreateValidation(t *testing.T) {
	svc := NewSponsorService(&fakeSponsorRepo{db: newFakeDB()}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateSponsorRequest{Name: "X", ContactPerson: "Y"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), CreateSponsorRequest{Name: "X", ContactPerson: "Y", Phone: "0700000002", Email: strPtr("not-an-email")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSponsorServiceUpdate(t *testing.T) {
	db := newFakeDB()
	existing := db.addSponsor(models.Sponsor{Name: "Acme", ContactPerson: "A", Phone: "0700000001", StudentsReferred: 3, Status: models.SponsorStatusActive})
	db.addSponsor(models.Sponsor{Name: "Other", ContactPerson: "B", Phone: "0700000002"})
	svc := NewSponsorService(&fakeSponsorRepo{db: db}, nil, nil, nil)

	updated, err := svc.Update(context.Background(), existing.ID, UpdateSponsorRequest{ContactPerson: strPtr("Jane"), Phone: strPtr("0700000001")})
	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.ContactPerson)
	assert.Equal(t, 3, updated.StudentsReferred)

	_, err = svc.Update(context.Background(), existing.ID, UpdateSponsorRequest{Phone: strPtr("0700000002")})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	inactive := models.SponsorStatusInactive
	updated, err = svc.Update(context.Background(), existing.ID, UpdateSponsorRequest{Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, models.SponsorStatusInactive, updated.Status)

	bogus := models.SponsorStatus("archived")
	_, err = svc.Update(context.Background(), existing.ID, UpdateSponsorRequest{Status: &bogus})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Update(context.Background(), "missing", UpdateSponsorRequest{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSponsorServiceListUsesCache(t *testing.T) {
	db := newFakeDB()
	db.addSponsor(models.Sponsor{Name: "Older", Phone: "1", RegistrationDate: time.Now().Add(-time.Hour)})
	db.addSponsor(models.Sponsor{Name: "Newer", Phone: "2", RegistrationDate: time.Now()})
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewSponsorService(&fakeSponsorRepo{db: db}, cache, nil, nil)

	sponsors, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sponsors, 2)
	assert.Equal(t, "Newer", sponsors[0].Name)

	db.addSponsor(models.Sponsor{Name: "Uncached", Phone: "3"})
	sponsors, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, sponsors, 2)

	_, err = svc.Create(context.Background(), CreateSponsorRequest{Name: "Fresh", ContactPerson: "C", Phone: "0700000009"})
	require.NoError(t, err)
	sponsors, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, sponsors, 4)
}

package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bips-college-api/internal/models"
	"github.com/noah-isme/bips-college-api/internal/service"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
)

type sponsorServiceMock struct {
	createErr error
}

func (m *sponsorServiceMock) List(ctx context.Context) ([]models.Sponsor, error) {
	return []models.Sponsor{{ID: "sp-1"}, {ID: "sp-2"}}, nil
}

func (m *sponsorServiceMock) Get(ctx context.Context, id string) (*models.Sponsor, error) {
	return &models.Sponsor{ID: id}, nil
}

func (m *sponsorServiceMock) Create(ctx context.Context, req service.CreateSponsorRequest) (*models.Sponsor, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Sponsor{ID: "sp-1", Name: req.Name, Phone: req.Phone}, nil
}

func (m *sponsorServiceMock) Update(ctx context.Context, id string, req service.UpdateSponsorRequest) (*models.Sponsor, error) {
	return &models.Sponsor{ID: id}, nil
}

func TestSponsorHandlerCreate(t *testing.T) {
	handler := NewSponsorHandler(&sponsorServiceMock{})
	c, w := newTestContext(http.MethodPost, "/sponsors", []byte(`{"name":"Acme","contactPerson":"Jane","phone":"0700000001"}`))

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "Sponsor registered successfully", env.Message)
}

func TestSponsorHandlerCreateDuplicate(t *testing.T) {
	handler := NewSponsorHandler(&sponsorServiceMock{createErr: appErrors.Clone(appErrors.ErrConflict, "a sponsor with this phone number already exists")})
	c, w := newTestContext(http.MethodPost, "/sponsors", []byte(`{"name":"Acme","contactPerson":"Jane","phone":"0700000001"}`))

	handler.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decodeEnvelope(t, w).Error.Code)
}

func TestSponsorHandlerList(t *testing.T) {
	handler := NewSponsorHandler(&sponsorServiceMock{})
	c, w := newTestContext(http.MethodGet, "/sponsors", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, *decodeEnvelope(t, w).Count)
}

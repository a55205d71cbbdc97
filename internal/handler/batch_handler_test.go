package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bips-college-api/internal/models"
	"github.com/noah-isme/bips-college-api/internal/service"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
)

type batchServiceMock struct {
	created service.CreateBatchRequest
}

func (m *batchServiceMock) Create(ctx context.Context, req service.CreateBatchRequest) (*models.BatchRegistration, error) {
	m.created = req
	return &models.BatchRegistration{ID: "b-1", TotalStudents: len(req.Students), Status: models.BatchStatusProcessing}, nil
}

func (m *batchServiceMock) Process(ctx context.Context, id string) (*models.BatchResult, error) {
	return nil, appErrors.Clone(appErrors.ErrConflict, "batch already processed")
}

func (m *batchServiceMock) List(ctx context.Context) ([]models.BatchListItem, error) {
	return []models.BatchListItem{}, nil
}

func TestBatchHandlerCreate(t *testing.T) {
	mock := &batchServiceMock{}
	handler := NewBatchHandler(mock)
	c, w := newTestContext(http.MethodPost, "/batches", []byte(`{"sponsorId":"sp-1","students":[{"fullName":"Amina","course":"Electrical","semester":"First","tuitionFee":1000,"registrationFee":200}]}`))

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, mock.created.Students, 1)
	assert.Equal(t, "1000", mock.created.Students[0].TuitionFee.String())
}

func TestBatchHandlerProcessConflict(t *testing.T) {
	handler := NewBatchHandler(&batchServiceMock{})
	c, w := newTestContext(http.MethodPost, "/batches/b-1/process", nil)
	c.Params = gin.Params{{Key: "id", Value: "b-1"}}

	handler.Process(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)
}

func TestBatchHandlerListCount(t *testing.T) {
	handler := NewBatchHandler(&batchServiceMock{})
	c, w := newTestContext(http.MethodGet, "/batches", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Count)
	assert.Equal(t, 0, *env.Count)
}

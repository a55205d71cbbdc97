package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bips-college-api/internal/models"
	"github.com/noah-isme/bips-college-api/internal/service"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
	"github.com/noah-isme/bips-college-api/pkg/response"
)

type batchService interface {
	Create(ctx context.Context, req service.CreateBatchRequest) (*models.BatchRegistration, error)
	Process(ctx context.Context, id string) (*models.BatchResult, error)
	List(ctx context.Context) ([]models.BatchListItem, error)
}

// BatchHandler exposes batch registration endpoints.
type BatchHandler struct {
	batches batchService
}

// NewBatchHandler constructs BatchHandler.
func NewBatchHandler(batches batchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// Create godoc
// @Summary Submit a batch registration
// @Tags Batches
// @Accept json
// @Produce json
// @Param payload body service.CreateBatchRequest true "Sponsor and students"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req service.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}
	batch, err := h.batches.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Batch registration created", batch)
}

// List godoc
// @Summary List batch registrations
// @Tags Batches
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	batches, err := h.batches.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, batches, len(batches))
}

// Process godoc
// @Summary Process a batch registration
// @Description Registers the students and issues one invoice atomically.
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /batches/{id}/process [post]
func (h *BatchHandler) Process(c *gin.Context) {
	result, err := h.batches.Process(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Batch processed successfully", result)
}

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

type sponsorService interface {
	List(ctx context.Context) ([]models.Sponsor, error)
	Get(ctx context.Context, id string) (*models.Sponsor, error)
	Create(ctx context.Context, req service.CreateSponsorRequest) (*models.Sponsor, error)
	Update(ctx context.Context, id string, req service.UpdateSponsorRequest) (*models.Sponsor, error)
}

// SponsorHandler exposes sponsor endpoints.
type SponsorHandler struct {
	sponsors sponsorService
}

// NewSponsorHandler constructs SponsorHandler.
func NewSponsorHandler(sponsors sponsorService) *SponsorHandler {
	return &SponsorHandler{sponsors: sponsors}
}

// List godoc
// @Summary List sponsors
// @Tags Sponsors
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sponsors [get]
func (h *SponsorHandler) List(c *gin.Context) {
	sponsors, err := h.sponsors.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, sponsors, len(sponsors))
}

// Get godoc
// @Summary Get sponsor
// @Tags Sponsors
// @Produce json
// @Param id path string true "Sponsor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /sponsors/{id} [get]
func (h *SponsorHandler) Get(c *gin.Context) {
	sponsor, err := h.sponsors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", sponsor)
}

// Create godoc
// @Summary Register sponsor
// @Tags Sponsors
// @Accept json
// @Produce json
// @Param payload body service.CreateSponsorRequest true "Sponsor payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /sponsors [post]
func (h *SponsorHandler) Create(c *gin.Context) {
	var req service.CreateSponsorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sponsor payload"))
		return
	}
	sponsor, err := h.sponsors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Sponsor registered successfully", sponsor)
}

// Update godoc
// @Summary Update sponsor
// @Tags Sponsors
// @Accept json
// @Produce json
// @Param id path string true "Sponsor ID"
// @Param payload body service.UpdateSponsorRequest true "Sponsor fields to change"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /sponsors/{id} [put]
func (h *SponsorHandler) Update(c *gin.Context) {
	var req service.UpdateSponsorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sponsor payload"))
		return
	}
	sponsor, err := h.sponsors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Sponsor updated successfully", sponsor)
}

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

type donationService interface {
	Initialize(ctx context.Context, req service.InitializeDonationRequest) (*service.CheckoutSession, error)
	Verify(ctx context.Context, reference string) (*service.VerificationResult, error)
	List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error)
	ExportCSV(ctx context.Context, filter models.DonationFilter) ([]byte, error)
}

// DonationHandler exposes the public donation checkout and the operator listing.
type DonationHandler struct {
	donations donationService
}

// NewDonationHandler constructs DonationHandler.
func NewDonationHandler(donations donationService) *DonationHandler {
	return &DonationHandler{donations: donations}
}

// Initialize godoc
// @Summary Start a donation checkout
// @Tags Donations
// @Accept json
// @Produce json
// @Param payload body service.InitializeDonationRequest true "Donation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /donations/initialize [post]
func (h *DonationHandler) Initialize(c *gin.Context) {
	var req service.InitializeDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid donation payload"))
		return
	}
	session, err := h.donations.Initialize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Payment initialized", session)
}

// Verify godoc
// @Summary Verify a donation
// @Description Fetches the authoritative charge from the gateway and reconciles the donation.
// @Tags Donations
// @Produce json
// @Param reference path string true "Donation reference"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /donations/verify/{reference} [get]
func (h *DonationHandler) Verify(c *gin.Context) {
	result, err := h.donations.Verify(c.Request.Context(), c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Successful() {
		response.Failure(c, http.StatusBadRequest, "Payment not successful", result.Payload)
		return
	}
	response.OK(c, "Payment verified successfully", result)
}

// List godoc
// @Summary List donations
// @Tags Donations
// @Produce json
// @Param status query string false "pending, success or failed"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /donations [get]
func (h *DonationHandler) List(c *gin.Context) {
	filter := models.DonationFilter{Status: models.DonationStatus(c.Query("status"))}
	donations, err := h.donations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, donations, len(donations))
}

// Export godoc
// @Summary Export donations as CSV
// @Tags Donations
// @Produce text/csv
// @Param status query string false "pending, success or failed"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /donations/export [get]
func (h *DonationHandler) Export(c *gin.Context) {
	filter := models.DonationFilter{Status: models.DonationStatus(c.Query("status"))}
	data, err := h.donations.ExportCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="donations.csv"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

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

type invoiceService interface {
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, error)
	ListBySponsor(ctx context.Context, sponsorID string) ([]models.InvoiceDetail, error)
	Get(ctx context.Context, id string) (*models.InvoiceDetail, error)
	InitializePayment(ctx context.Context, req service.InitializeInvoicePaymentRequest) (*service.InvoicePaymentSession, error)
	UpdateStatus(ctx context.Context, id string, req service.UpdateInvoiceStatusRequest) (*models.Invoice, error)
	RenderPDF(ctx context.Context, id string) ([]byte, string, error)
	CreatePDFLink(ctx context.Context, id string) (*service.InvoicePDFLink, error)
	RenderSharedPDF(ctx context.Context, token string) ([]byte, string, error)
}

// InvoiceHandler exposes invoice endpoints.
type InvoiceHandler struct {
	invoices invoiceService
}

// NewInvoiceHandler constructs InvoiceHandler.
func NewInvoiceHandler(invoices invoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param status query string false "draft, sent, paid or overdue"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.invoices.List(c.Request.Context(), models.InvoiceFilter{Status: models.InvoiceStatus(c.Query("status"))})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, invoices, len(invoices))
}

// ListBySponsor godoc
// @Summary List invoices of a sponsor
// @Tags Invoices
// @Produce json
// @Param id path string true "Sponsor ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/sponsor/{id} [get]
func (h *InvoiceHandler) ListBySponsor(c *gin.Context) {
	invoices, err := h.invoices.ListBySponsor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, invoices, len(invoices))
}

// Get godoc
// @Summary Get invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", invoice)
}

// InitializePayment godoc
// @Summary Start an invoice payment
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body service.InitializeInvoicePaymentRequest true "Invoice and optional payer email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/initialize-payment [post]
func (h *InvoiceHandler) InitializePayment(c *gin.Context) {
	var req service.InitializeInvoicePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	session, err := h.invoices.InitializePayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Invoice payment initialized", session)
}

// UpdateStatus godoc
// @Summary Update invoice status
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payload body service.UpdateInvoiceStatusRequest true "New status and optional payment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id}/status [put]
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	invoice, err := h.invoices.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Invoice status updated", invoice)
}

// PDF godoc
// @Summary Download invoice PDF
// @Tags Invoices
// @Produce application/pdf
// @Param id path string true "Invoice ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id}/pdf [get]
func (h *InvoiceHandler) PDF(c *gin.Context) {
	data, filename, err := h.invoices.RenderPDF(c.Request.Context(), c.Param("id"))
	writePDF(c, data, filename, err)
}

// PDFLink godoc
// @Summary Create a shareable invoice PDF link
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id}/pdf-link [post]
func (h *InvoiceHandler) PDFLink(c *gin.Context) {
	link, err := h.invoices.CreatePDFLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Invoice link created", link)
}

// SharedPDF godoc
// @Summary Download an invoice PDF through a shared link
// @Tags Invoices
// @Produce application/pdf
// @Param token path string true "Link token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /invoice-links/{token} [get]
func (h *InvoiceHandler) SharedPDF(c *gin.Context) {
	data, filename, err := h.invoices.RenderSharedPDF(c.Request.Context(), c.Param("token"))
	writePDF(c, data, filename, err)
}

func writePDF(c *gin.Context, data []byte, filename string, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", data)
}

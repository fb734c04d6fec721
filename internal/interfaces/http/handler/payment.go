package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	paymentapp "github.com/shoply/backend/internal/application/payment"
	"github.com/shoply/backend/internal/domain/payment"
)

// PaymentHandler exposes the payment invoice lifecycle and the provider
// callback entry point.
type PaymentHandler struct {
	BaseHandler
	invoiceService *paymentapp.InvoiceService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(invoiceService *paymentapp.InvoiceService) *PaymentHandler {
	return &PaymentHandler{invoiceService: invoiceService}
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("/invoices", h.CreateInvoice)
		payments.POST("/invoices/:id/retry", h.RetryInvoice)
		payments.POST("/invoices/:id/check", h.CheckInvoice)
		payments.GET("/orders/:order_id/invoices", h.ListOrderInvoices)
		payments.GET("/orders/:order_id/audit", h.ListOrderAudit)
		payments.POST("/callback/:provider", h.ProviderCallback)
	}
}

// CreateInvoiceRequest is the request body for creating a payment invoice
type CreateInvoiceRequest struct {
	Provider    string          `json:"provider" binding:"required"`
	ShopID      string          `json:"shop_id" binding:"required,uuid"`
	OrderID     string          `json:"order_id" binding:"required,uuid"`
	OrderCode   string          `json:"order_code" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
	CallbackURL string          `json:"callback_url" binding:"omitempty,url"`
}

// CreateInvoice opens a payment attempt against a provider
func (h *PaymentHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	provider := payment.Provider(req.Provider)
	if !provider.IsValid() {
		h.BadRequest(c, "unknown payment provider")
		return
	}

	invoice, err := h.invoiceService.CreatePaymentInvoice(c.Request.Context(), paymentapp.CreateInvoiceInput{
		Provider:    provider,
		ShopID:      uuid.MustParse(req.ShopID),
		OrderID:     uuid.MustParse(req.OrderID),
		OrderCode:   req.OrderCode,
		Amount:      req.Amount,
		Description: req.Description,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, paymentapp.ToInvoiceResponse(invoice))
}

// RetryInvoice re-runs the create cycle with a fresh bill number
func (h *PaymentHandler) RetryInvoice(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid invoice id")
		return
	}

	invoice, err := h.invoiceService.RetryPaymentInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, paymentapp.ToInvoiceResponse(invoice))
}

// CheckInvoice verifies settlement for one invoice by id
func (h *PaymentHandler) CheckInvoice(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid invoice id")
		return
	}

	invoice, err := h.invoiceService.CheckInvoice(c.Request.Context(), paymentapp.CheckInvoiceInput{
		InvoiceID: &invoiceID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, paymentapp.ToInvoiceResponse(invoice))
}

// ProviderCallbackRequest is the loose identification tuple providers post
// back. Any one identifier suffices.
type ProviderCallbackRequest struct {
	InvoiceNo string `json:"invoiceno" form:"invoiceno"`
	InvoiceID string `json:"invoice_id" form:"invoice_id" binding:"omitempty,uuid"`
	OrderID   string `json:"order_id" form:"order_id" binding:"omitempty,uuid"`
}

// ProviderCallback is the webhook endpoint providers call after a payment
// attempt. It never trusts the payload's verdict: it only identifies the
// invoice and runs a verifying check against the provider.
func (h *PaymentHandler) ProviderCallback(c *gin.Context) {
	provider := payment.Provider(c.Param("provider"))
	if !provider.IsValid() {
		h.BadRequest(c, "unknown payment provider")
		return
	}

	var req ProviderCallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	in := paymentapp.CheckInvoiceInput{
		Provider:  provider,
		InvoiceNo: req.InvoiceNo,
	}
	if req.InvoiceID != "" {
		id := uuid.MustParse(req.InvoiceID)
		in.InvoiceID = &id
	}
	if req.OrderID != "" {
		id := uuid.MustParse(req.OrderID)
		in.OrderID = &id
	}

	invoice, err := h.invoiceService.CheckInvoice(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"paid":   invoice.IsPaid(),
		"status": invoice.Status,
	})
}

// ListOrderInvoices lists all payment attempts for an order
func (h *PaymentHandler) ListOrderInvoices(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	invoices, err := h.invoiceService.InvoicesByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]*paymentapp.InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = paymentapp.ToInvoiceResponse(&invoices[i])
	}
	h.Success(c, responses)
}

// AuditEntryResponse is one masked outbound request record
type AuditEntryResponse struct {
	Provider  string `json:"provider"`
	Action    string `json:"action"`
	APIMethod string `json:"api_method"`
	APIURL    string `json:"api_url"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// ListOrderAudit lists the masked outbound request log for an order
func (h *PaymentHandler) ListOrderAudit(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	entries, err := h.invoiceService.AuditTrail(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]AuditEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = AuditEntryResponse{
			Provider:  entry.Provider.String(),
			Action:    entry.Action.String(),
			APIMethod: entry.APIMethod,
			APIURL:    entry.APIURL,
			Status:    string(entry.Status),
			CreatedAt: entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	h.Success(c, responses)
}

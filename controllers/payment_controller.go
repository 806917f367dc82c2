package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreatePaymentRequest represents the request body for recording a payment
type CreatePaymentRequest struct {
	Method    models.PaymentMethod `json:"method" binding:"required"`
	Amount    decimal.Decimal      `json:"amount"`
	Reference string               `json:"reference"`
	Notes     string               `json:"notes"`
}

// PaymentController serves the payment endpoints
type PaymentController struct {
	payments *services.PaymentService
	logger   *zap.Logger
}

// NewPaymentController creates a payment controller
func NewPaymentController(payments *services.PaymentService, logger *zap.Logger) *PaymentController {
	return &PaymentController{payments: payments, logger: logger}
}

// CreatePayment handles POST /api/v1/orders/:id/payments
func (ctl *PaymentController) CreatePayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	result, err := ctl.payments.CreatePayment(c.Request.Context(), p, orderID, services.PaymentInput{
		Method:    req.Method,
		Amount:    req.Amount,
		Reference: req.Reference,
		Notes:     req.Notes,
	})
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondCreated(c, result)
}

// GetOrderPayments handles GET /api/v1/orders/:id/payments
func (ctl *PaymentController) GetOrderPayments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	summary, err := ctl.payments.GetOrderPayments(c.Request.Context(), p, orderID)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, summary)
}

// GetPaymentSummary handles GET /api/v1/orders/:id/payment-summary
func (ctl *PaymentController) GetPaymentSummary(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	summary, err := ctl.payments.GetPaymentSummary(c.Request.Context(), p, orderID)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, summary)
}

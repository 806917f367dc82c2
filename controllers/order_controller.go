package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ItemRequest represents one order line in a request body
type ItemRequest struct {
	ProductName string          `json:"product_name" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Notes       string          `json:"notes"`
}

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	Channel models.Channel `json:"channel" binding:"required"`
	TableID *uint          `json:"table_id"`
	Notes   string         `json:"notes"`
	Items   []ItemRequest  `json:"items" binding:"required"`
}

// AddItemsRequest represents the request body for appending items
type AddItemsRequest struct {
	Items []ItemRequest `json:"items" binding:"required"`
}

// EditItemRequest represents the request body for editing an item; omitted fields are unchanged
type EditItemRequest struct {
	ProductName *string          `json:"product_name"`
	Quantity    *int             `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Notes       *string          `json:"notes"`
}

// ChangeStatusRequest represents the request body for a status change
type ChangeStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// CancelOrderRequest represents the request body for cancelling an order
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderController serves the order lifecycle endpoints
type OrderController struct {
	orders *services.OrderService
	logger *zap.Logger
}

// NewOrderController creates an order controller
func NewOrderController(orders *services.OrderService, logger *zap.Logger) *OrderController {
	return &OrderController{orders: orders, logger: logger}
}

// CreateOrder handles POST /api/v1/orders
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := ctl.orders.CreateOrder(c.Request.Context(), p, services.CreateOrderInput{
		Channel: req.Channel,
		TableID: req.TableID,
		Notes:   req.Notes,
		Items:   toItemInputs(req.Items),
	})
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondCreated(c, order)
}

// ListOrders handles GET /api/v1/orders
//
// Query parameters: status (repeatable or comma separated), channel, table_id,
// requested_bill, unpaid, limit.
func (ctl *OrderController) ListOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	filter, err := parseOrderFilter(c)
	if err != nil {
		respondValidation(c, err)
		return
	}

	orders, err := ctl.orders.ListOrders(c.Request.Context(), p, filter)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, orders)
}

// GetOrder handles GET /api/v1/orders/:id
func (ctl *OrderController) GetOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := ctl.orders.GetOrderByID(c.Request.Context(), p, orderID)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, order)
}

// GetOrderTotal handles GET /api/v1/orders/:id/total
func (ctl *OrderController) GetOrderTotal(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	total, err := ctl.orders.CalculateTotal(c.Request.Context(), p, orderID)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, gin.H{"order_id": orderID, "total": total})
}

// AddItems handles POST /api/v1/orders/:id/items
func (ctl *OrderController) AddItems(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req AddItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := ctl.orders.AddItems(c.Request.Context(), p, orderID, toItemInputs(req.Items))
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, order)
}

// EditItem handles PATCH /api/v1/orders/:id/items/:itemId
func (ctl *OrderController) EditItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}

	var req EditItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := ctl.orders.EditItem(c.Request.Context(), p, orderID, itemID, services.ItemPatch{
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Notes:       req.Notes,
	})
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, order)
}

// DeleteItem handles DELETE /api/v1/orders/:id/items/:itemId
func (ctl *OrderController) DeleteItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}

	order, err := ctl.orders.DeleteItem(c.Request.Context(), p, orderID, itemID)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, order)
}

// ChangeStatus handles PATCH /api/v1/orders/:id/status
func (ctl *OrderController) ChangeStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := ctl.orders.ChangeStatus(c.Request.Context(), p, orderID, req.Status)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, order)
}

// CancelOrder handles POST /api/v1/orders/:id/cancel
func (ctl *OrderController) CancelOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := ctl.orders.CancelOrder(c.Request.Context(), p, orderID, req.Reason)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, order)
}

// RequestBill handles POST /api/v1/orders/:id/request-bill
func (ctl *OrderController) RequestBill(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := ctl.orders.RequestBill(c.Request.Context(), p, orderID)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, order)
}

func toItemInputs(items []ItemRequest) []services.ItemInput {
	inputs := make([]services.ItemInput, 0, len(items))
	for _, it := range items {
		inputs = append(inputs, services.ItemInput{
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Notes:       it.Notes,
		})
	}
	return inputs
}

func parseOrderFilter(c *gin.Context) (services.OrderFilter, error) {
	var f services.OrderFilter

	for _, raw := range c.QueryArray("status") {
		for _, st := range strings.Split(raw, ",") {
			if st = strings.TrimSpace(st); st != "" {
				f.Statuses = append(f.Statuses, models.OrderStatus(st))
			}
		}
	}
	f.Channel = models.Channel(c.Query("channel"))

	if raw := c.Query("table_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return f, errors.New("table_id must be a number")
		}
		tableID := uint(id)
		f.TableID = &tableID
	}
	if raw := c.Query("requested_bill"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errors.New("requested_bill must be true or false")
		}
		f.RequestedBill = &v
	}
	if raw := c.Query("unpaid"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errors.New("unpaid must be true or false")
		}
		f.UnpaidOnly = v
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative number")
		}
		f.Limit = n
	}
	return f, nil
}

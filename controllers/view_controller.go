package controllers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/restaurant-pos-api/services"
	"go.uber.org/zap"
)

// ViewController serves the kitchen display, waiter and table board endpoints
type ViewController struct {
	views  *services.ViewService
	logger *zap.Logger
}

// NewViewController creates a view controller
func NewViewController(views *services.ViewService, logger *zap.Logger) *ViewController {
	return &ViewController{views: views, logger: logger}
}

// KitchenOrders handles GET /api/v1/kitchen/orders
func (ctl *ViewController) KitchenOrders(c *gin.Context) {
	ctl.list(c, ctl.views.KitchenQueue)
}

// ReadyOrders handles GET /api/v1/waiter/orders/ready
func (ctl *ViewController) ReadyOrders(c *gin.Context) {
	ctl.list(c, ctl.views.ReadyForDelivery)
}

// BillRequestedOrders handles GET /api/v1/waiter/orders/bill-requested
func (ctl *ViewController) BillRequestedOrders(c *gin.Context) {
	ctl.list(c, ctl.views.BillRequested)
}

// Tables handles GET /api/v1/tables
func (ctl *ViewController) Tables(c *gin.Context) {
	if _, ok := principal(c); !ok {
		return
	}

	tables, err := ctl.views.Tables(c.Request.Context())
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, tables)
}

func (ctl *ViewController) list(c *gin.Context, fetch func(ctx context.Context, p services.Principal) ([]*services.OrderView, error)) {
	p, ok := principal(c)
	if !ok {
		return
	}

	orders, err := fetch(c.Request.Context(), p)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, orders)
}

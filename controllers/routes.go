package controllers

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every controller mounted under /api/v1
type Handlers struct {
	Users    *UserController
	Orders   *OrderController
	Payments *PaymentController
	Sessions *CashSessionController
	Views    *ViewController
}

// Register mounts the API routes on v1. authenticate validates the caller's
// token; resolve maps it to a staff principal. Profile creation only needs the
// former since the profile does not exist yet.
func (h *Handlers) Register(v1 *gin.RouterGroup, authenticate, resolve gin.HandlerFunc) {
	users := v1.Group("/users", authenticate)
	{
		users.POST("", h.Users.CreateUser)
		users.GET("/me", h.Users.GetMyProfile)
	}

	staff := v1.Group("", authenticate, resolve)

	staff.GET("/tables", h.Views.Tables)

	orders := staff.Group("/orders")
	{
		orders.POST("", h.Orders.CreateOrder)
		orders.GET("", h.Orders.ListOrders)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.GET("/:id/total", h.Orders.GetOrderTotal)
		orders.POST("/:id/items", h.Orders.AddItems)
		orders.PATCH("/:id/items/:itemId", h.Orders.EditItem)
		orders.DELETE("/:id/items/:itemId", h.Orders.DeleteItem)
		orders.PATCH("/:id/status", h.Orders.ChangeStatus)
		orders.POST("/:id/cancel", h.Orders.CancelOrder)
		orders.POST("/:id/request-bill", h.Orders.RequestBill)

		orders.POST("/:id/payments", h.Payments.CreatePayment)
		orders.GET("/:id/payments", h.Payments.GetOrderPayments)
		orders.GET("/:id/payment-summary", h.Payments.GetPaymentSummary)
	}

	sessions := staff.Group("/cash-sessions")
	{
		sessions.POST("", h.Sessions.OpenSession)
		sessions.GET("", h.Sessions.ListSessions)
		sessions.GET("/active", h.Sessions.GetActiveSession)
		sessions.POST("/:id/close", h.Sessions.CloseSession)
	}

	staff.GET("/kitchen/orders", h.Views.KitchenOrders)
	staff.GET("/waiter/orders/ready", h.Views.ReadyOrders)
	staff.GET("/waiter/orders/bill-requested", h.Views.BillRequestedOrders)
}

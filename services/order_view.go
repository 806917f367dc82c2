package services

import (
	"time"

	"github.com/kendall-kelly/restaurant-pos-api/authz"
	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/shopspring/decimal"
)

// OrderItemView is an order line as a principal may see it.
// Price fields are nil for roles without the view-prices permission.
type OrderItemView struct {
	ID          uint             `json:"id"`
	ProductName string           `json:"product_name"`
	Quantity    int              `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Subtotal    *decimal.Decimal `json:"subtotal"`
	Notes       string           `json:"notes"`
}

// OrderView is an order as a principal may see it
type OrderView struct {
	ID            uint               `json:"id"`
	Channel       models.Channel     `json:"channel"`
	TableID       *uint              `json:"table_id"`
	Status        models.OrderStatus `json:"status"`
	RequestedBill bool               `json:"requested_bill"`
	IsPaid        bool               `json:"is_paid"`
	PaidAt        *time.Time         `json:"paid_at"`
	Notes         string             `json:"notes"`
	CreatedByID   uint               `json:"created_by_id"`
	Items         []OrderItemView    `json:"items"`
	Total         *decimal.Decimal   `json:"total"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// project is the only way an order leaves the service layer, so price
// suppression applies to every read and write path alike.
func (s *OrderService) project(p Principal, order *models.Order) *OrderView {
	return projectOrder(s.policy, p, order)
}

func projectOrder(policy *authz.Policy, p Principal, order *models.Order) *OrderView {
	showPrices := policy.HasPermission(p.Role, authz.ViewPrices)

	view := &OrderView{
		ID:            order.ID,
		Channel:       order.Channel,
		TableID:       order.TableID,
		Status:        order.Status,
		RequestedBill: order.RequestedBill,
		IsPaid:        order.IsPaid(),
		PaidAt:        order.PaidAt,
		Notes:         order.Notes,
		CreatedByID:   order.CreatedByID,
		Items:         make([]OrderItemView, 0, len(order.Items)),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}

	for _, item := range order.Items {
		iv := OrderItemView{
			ID:          item.ID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Notes:       item.Notes,
		}
		if showPrices {
			price := item.UnitPrice
			subtotal := item.Subtotal()
			iv.UnitPrice = &price
			iv.Subtotal = &subtotal
		}
		view.Items = append(view.Items, iv)
	}

	if showPrices {
		total := order.Total()
		view.Total = &total
	}
	return view
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel is where an order originates
type Channel string

const (
	ChannelTable    Channel = "table"
	ChannelCounter  Channel = "counter"
	ChannelDelivery Channel = "delivery"
)

// Valid reports whether c is a known channel
func (c Channel) Valid() bool {
	switch c {
	case ChannelTable, ChannelCounter, ChannelDelivery:
		return true
	}
	return false
}

// OrderStatus is the preparation/delivery stage of an order
type OrderStatus string

const (
	StatusReceived  OrderStatus = "received"
	StatusInPrep    OrderStatus = "in_prep"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// AllStatuses lists every order status in lifecycle order
var AllStatuses = []OrderStatus{StatusReceived, StatusInPrep, StatusReady, StatusDelivered, StatusCancelled}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Order represents one customer order.
// PaidAt is set exactly once, by the payment that completes the order total.
type Order struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Channel       Channel      `gorm:"type:varchar(20);not null" json:"channel"`
	TableID       *uint        `gorm:"index:idx_orders_open_table,unique,where:status <> 'delivered' AND status <> 'cancelled' AND paid_at IS NULL" json:"table_id"`
	Table         *DiningTable `gorm:"foreignKey:TableID" json:"-"`
	Status        OrderStatus  `gorm:"type:varchar(20);not null;default:'received';index" json:"status"`
	RequestedBill bool         `gorm:"not null;default:false" json:"requested_bill"`
	PaidAt        *time.Time   `json:"paid_at"`
	Notes         string       `gorm:"type:text" json:"notes"`
	CreatedByID   uint         `gorm:"not null;index" json:"created_by_id"`
	CreatedBy     User         `gorm:"foreignKey:CreatedByID" json:"-"`
	Items         []OrderItem  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsPaid reports whether the order has been fully paid
func (o *Order) IsPaid() bool {
	return o.PaidAt != nil
}

// Total is the sum of quantity x unit price over every item
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderItem is one line of an order
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	ProductName string          `gorm:"not null" json:"product_name"`
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal is quantity x unit price
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderCancellation records who cancelled an order and why
type OrderCancellation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	Reason        string    `gorm:"type:text;not null" json:"reason"`
	CancelledByID uint      `gorm:"not null" json:"cancelled_by_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderCancellation model
func (OrderCancellation) TableName() string {
	return "order_cancellations"
}

package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/store"
)

// TableOccupancy is a dining table and the open order sitting on it, if any
type TableOccupancy struct {
	Table       models.DiningTable `json:"table"`
	OpenOrderID *uint              `json:"open_order_id"`
}

// ViewService serves the read-only slices used by the kitchen display and
// the waiter app. All results go through the order projection.
type ViewService struct {
	orders *OrderService
	store  *store.Store
}

// NewViewService creates a view service over the order service
func NewViewService(orders *OrderService, st *store.Store) *ViewService {
	return &ViewService{orders: orders, store: st}
}

// KitchenQueue lists orders waiting for or in preparation, oldest first
func (s *ViewService) KitchenQueue(ctx context.Context, p Principal) ([]*OrderView, error) {
	return s.orders.ListOrders(ctx, p, OrderFilter{
		Statuses:    []models.OrderStatus{models.StatusReceived, models.StatusInPrep},
		OldestFirst: true,
	})
}

// ReadyForDelivery lists orders the kitchen has finished, oldest first
func (s *ViewService) ReadyForDelivery(ctx context.Context, p Principal) ([]*OrderView, error) {
	return s.orders.ListOrders(ctx, p, OrderFilter{
		Statuses:    []models.OrderStatus{models.StatusReady},
		OldestFirst: true,
	})
}

// BillRequested lists unpaid, non-cancelled orders whose bill was requested
func (s *ViewService) BillRequested(ctx context.Context, p Principal) ([]*OrderView, error) {
	requested := true
	return s.orders.ListOrders(ctx, p, OrderFilter{
		Statuses: []models.OrderStatus{
			models.StatusReceived, models.StatusInPrep, models.StatusReady, models.StatusDelivered,
		},
		RequestedBill: &requested,
		UnpaidOnly:    true,
		OldestFirst:   true,
	})
}

// Tables lists every dining table with the open order occupying it
func (s *ViewService) Tables(ctx context.Context) ([]TableOccupancy, error) {
	db := s.store.DB(ctx)

	var tables []models.DiningTable
	if err := db.Order("number ASC").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var open []models.Order
	err := db.Select("id", "table_id").
		Where("table_id IS NOT NULL").
		Where("status NOT IN ?", []string{string(models.StatusDelivered), string(models.StatusCancelled)}).
		Where("paid_at IS NULL").
		Find(&open).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}

	byTable := make(map[uint]uint, len(open))
	for _, o := range open {
		byTable[*o.TableID] = o.ID
	}

	out := make([]TableOccupancy, 0, len(tables))
	for _, t := range tables {
		occ := TableOccupancy{Table: t}
		if id, ok := byTable[t.ID]; ok {
			orderID := id
			occ.OpenOrderID = &orderID
		}
		out = append(out, occ)
	}
	return out, nil
}

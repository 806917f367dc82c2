package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/restaurant-pos-api/audit"
	"github.com/kendall-kelly/restaurant-pos-api/authz"
	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemInput describes a new order line
type ItemInput struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Notes       string
}

// ItemPatch holds the fields of an order line to change; nil fields are left as is
type ItemPatch struct {
	ProductName *string
	Quantity    *int
	UnitPrice   *decimal.Decimal
	Notes       *string
}

// CreateOrderInput describes a new order
type CreateOrderInput struct {
	Channel models.Channel
	TableID *uint
	Notes   string
	Items   []ItemInput
}

// OrderFilter narrows ListOrders
type OrderFilter struct {
	Statuses      []models.OrderStatus
	Channel       models.Channel
	TableID       *uint
	RequestedBill *bool
	UnpaidOnly    bool
	OldestFirst   bool
	Limit         int
}

// OrderService governs the order lifecycle: creation, item changes, status
// transitions, cancellation and bill requests.
type OrderService struct {
	store  *store.Store
	policy *authz.Policy
	audit  audit.Recorder
	logger *zap.Logger
	hooks  hooks
}

// hooks let a competing writer run at a fixed point of an operation. All nil
// outside tests.
type hooks struct {
	beforeStatusWrite  func()
	beforePaymentWrite func()
	afterItemClaim     func(tx *gorm.DB)
}

// NewOrderService creates an order service
func NewOrderService(st *store.Store, policy *authz.Policy, recorder audit.Recorder, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:  st,
		policy: policy,
		audit:  recorder,
		logger: logger.Named("orders"),
	}
}

// CreateOrder opens a new order in RECEIVED with at least one item
func (s *OrderService) CreateOrder(ctx context.Context, p Principal, in CreateOrderInput) (*OrderView, error) {
	if err := requirePermission(s.policy, p, authz.CreateOrder); err != nil {
		return nil, err
	}

	if !in.Channel.Valid() {
		return nil, validationError("invalid channel %q", in.Channel)
	}
	if in.Channel == models.ChannelTable && in.TableID == nil {
		return nil, validationError("table_id is required for table orders")
	}
	if in.Channel != models.ChannelTable && in.TableID != nil {
		return nil, validationError("table_id is only allowed for table orders")
	}

	items, err := buildItems(in.Items)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		Channel:     in.Channel,
		TableID:     in.TableID,
		Status:      models.StatusReceived,
		Notes:       strings.TrimSpace(in.Notes),
		CreatedByID: p.UserID,
		Items:       items,
	}

	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if in.TableID != nil {
			var table models.DiningTable
			if err := store.First(tx, &table, *in.TableID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return notFoundError("table %d not found", *in.TableID)
				}
				return err
			}

			occupied, err := tableHasOpenOrder(tx, *in.TableID)
			if err != nil {
				return err
			}
			if occupied {
				return conflictError("table %d is occupied by an open order", table.Number)
			}
		}

		if err := tx.Create(&order).Error; err != nil {
			if isUniqueViolation(err) {
				return conflictError("table %d is occupied by an open order", *in.TableID)
			}
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.String("channel", string(order.Channel)),
		zap.Uint("user_id", p.UserID))
	s.record(ctx, p, order.ID, audit.ActionOrderCreated, map[string]interface{}{
		"channel":    order.Channel,
		"table_id":   order.TableID,
		"item_count": len(order.Items),
	})

	return s.project(p, &order), nil
}

// AddItems appends items to an unpaid, non-cancelled order
func (s *OrderService) AddItems(ctx context.Context, p Principal, orderID uint, inputs []ItemInput) (*OrderView, error) {
	if err := requirePermission(s.policy, p, authz.AddItems); err != nil {
		return nil, err
	}

	items, err := buildItems(inputs)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		current, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := claimModifiable(tx, current); err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = orderID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to add items: %w", err)
		}

		order, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, p, orderID, audit.ActionItemsAdded, map[string]interface{}{"item_count": len(items)})
	return s.project(p, order), nil
}

// EditItem changes one line of an unpaid, non-cancelled order
func (s *OrderService) EditItem(ctx context.Context, p Principal, orderID, itemID uint, patch ItemPatch) (*OrderView, error) {
	if err := requirePermission(s.policy, p, authz.EditItems); err != nil {
		return nil, err
	}

	updates, err := patch.updates()
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		current, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if findItem(current, itemID) == nil {
			return notFoundError("item %d not found on order %d", itemID, orderID)
		}
		if err := claimModifiable(tx, current); err != nil {
			return err
		}

		if err := tx.Model(&models.OrderItem{}).
			Where("id = ? AND order_id = ?", itemID, orderID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		order, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, p, orderID, audit.ActionItemEdited, map[string]interface{}{
		"item_id": itemID,
		"changes": updates,
	})
	return s.project(p, order), nil
}

// DeleteItem removes one line of an unpaid, non-cancelled order. The last
// remaining line can never be deleted; the order has to be cancelled instead.
func (s *OrderService) DeleteItem(ctx context.Context, p Principal, orderID, itemID uint) (*OrderView, error) {
	var (
		order   *models.Order
		removed models.OrderItem
	)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		current, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		item := findItem(current, itemID)
		if item == nil {
			return notFoundError("item %d not found on order %d", itemID, orderID)
		}
		if len(current.Items) <= 1 {
			return stateError("cannot delete the last item of an order, cancel the order instead")
		}
		if err := requirePermission(s.policy, p, authz.DeleteItems); err != nil {
			return err
		}
		if err := claimModifiable(tx, current); err != nil {
			return err
		}
		if s.hooks.afterItemClaim != nil {
			s.hooks.afterItemClaim(tx)
		}

		// the claim holds the order row; count again so a concurrent
		// delete of the other last item is seen
		if current, err = loadOrder(tx, orderID); err != nil {
			return err
		}
		if item = findItem(current, itemID); item == nil {
			return notFoundError("item %d not found on order %d", itemID, orderID)
		}
		if len(current.Items) <= 1 {
			return stateError("cannot delete the last item of an order, cancel the order instead")
		}

		removed = *item
		if err := tx.Delete(&models.OrderItem{}, itemID).Error; err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}

		order, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, p, orderID, audit.ActionItemDeleted, map[string]interface{}{
		"item_id":      itemID,
		"product_name": removed.ProductName,
		"quantity":     removed.Quantity,
	})
	return s.project(p, order), nil
}

// ChangeStatus moves an order along the transition table. The write is a
// compare-and-swap on the status that was read; losing a race yields a
// concurrency error and the caller is expected to re-read and retry.
func (s *OrderService) ChangeStatus(ctx context.Context, p Principal, orderID uint, newStatus models.OrderStatus) (*OrderView, error) {
	if !newStatus.Valid() {
		return nil, validationError("invalid status %q", newStatus)
	}

	order, err := loadOrder(s.store.DB(ctx), orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status

	if order.IsPaid() && newStatus != models.StatusDelivered {
		return nil, stateError("cannot change the status of a paid order except to %s", models.StatusDelivered)
	}
	if !s.policy.IsValidTransition(from, newStatus) {
		return nil, validationError("invalid status transition from %s to %s", from, newStatus)
	}
	if !s.policy.CanRoleChangeStatus(p.Role, from, newStatus) {
		return nil, forbiddenError("role %q may not move an order from %s to %s", p.Role, from, newStatus)
	}
	if newStatus == models.StatusCancelled {
		return nil, validationError("orders are cancelled through the cancel operation, which requires a reason")
	}

	if s.hooks.beforeStatusWrite != nil {
		s.hooks.beforeStatusWrite()
	}

	conditions := []store.Condition{store.Eq("status", from)}
	if newStatus != models.StatusDelivered {
		conditions = append(conditions, store.IsNull("paid_at"))
	}

	var updated *models.Order
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		n, err := store.UpdateIf(tx, &models.Order{}, orderID, conditions, map[string]interface{}{
			"status": newStatus,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return concurrencyError("order status changed, retry")
		}

		updated, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		if IsKind(err, KindConcurrency) {
			s.logger.Info("Status change lost a race",
				zap.Uint("order_id", orderID),
				zap.String("from", string(from)),
				zap.String("to", string(newStatus)))
		}
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.Uint("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(newStatus)),
		zap.String("role", string(p.Role)))
	s.record(ctx, p, orderID, audit.ActionStatusChanged, map[string]interface{}{
		"from": from,
		"to":   newStatus,
	})
	return s.project(p, updated), nil
}

// CancelOrder cancels an unpaid, non-terminal order. The status change and the
// cancellation record commit together.
func (s *OrderService) CancelOrder(ctx context.Context, p Principal, orderID uint, reason string) (*OrderView, error) {
	if err := requirePermission(s.policy, p, authz.CancelOrder); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationError("a cancellation reason is required")
	}

	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		current, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		from = current.Status

		if current.IsPaid() {
			return stateError("cannot cancel a paid order")
		}
		if from == models.StatusCancelled {
			return stateError("order is already cancelled")
		}
		if !s.policy.IsValidTransition(from, models.StatusCancelled) {
			return stateError("cannot cancel an order in status %s", from)
		}

		n, err := store.UpdateIf(tx, &models.Order{}, orderID,
			[]store.Condition{store.Eq("status", from), store.IsNull("paid_at")},
			map[string]interface{}{"status": models.StatusCancelled})
		if err != nil {
			return err
		}
		if n == 0 {
			return concurrencyError("order status changed, retry")
		}

		cancellation := models.OrderCancellation{
			OrderID:       orderID,
			Reason:        reason,
			CancelledByID: p.UserID,
		}
		if err := tx.Create(&cancellation).Error; err != nil {
			return fmt.Errorf("failed to record cancellation: %w", err)
		}

		order, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled", zap.Uint("order_id", orderID), zap.String("from", string(from)))
	s.record(ctx, p, orderID, audit.ActionOrderCancelled, map[string]interface{}{
		"from":   from,
		"reason": reason,
	})
	return s.project(p, order), nil
}

// RequestBill flags an unpaid order as waiting for its bill. Repeating it is not an error.
func (s *OrderService) RequestBill(ctx context.Context, p Principal, orderID uint) (*OrderView, error) {
	if err := requirePermission(s.policy, p, authz.RequestBill); err != nil {
		return nil, err
	}

	order, err := loadOrder(s.store.DB(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return nil, stateError("order is already paid")
	}
	if order.Status == models.StatusCancelled {
		return nil, stateError("cannot request the bill of a cancelled order")
	}
	if order.RequestedBill {
		return s.project(p, order), nil
	}

	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		n, err := store.UpdateIf(tx, &models.Order{}, orderID,
			[]store.Condition{store.IsNull("paid_at"), store.Ne("status", models.StatusCancelled)},
			map[string]interface{}{"requested_bill": true})
		if err != nil {
			return err
		}
		if n == 0 {
			return concurrencyError("order changed, retry")
		}

		order, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, p, orderID, audit.ActionBillRequested, nil)
	return s.project(p, order), nil
}

// GetOrderByID returns one order as the principal may see it
func (s *OrderService) GetOrderByID(ctx context.Context, p Principal, orderID uint) (*OrderView, error) {
	order, err := loadOrder(s.store.DB(ctx), orderID)
	if err != nil {
		return nil, err
	}
	return s.project(p, order), nil
}

// ListOrders returns the orders matching f, newest first unless f.OldestFirst
func (s *OrderService) ListOrders(ctx context.Context, p Principal, f OrderFilter) ([]*OrderView, error) {
	q := s.store.DB(ctx).Model(&models.Order{}).Preload("Items", itemsByID)

	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			if !st.Valid() {
				return nil, validationError("invalid status %q", st)
			}
			statuses = append(statuses, string(st))
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.Channel != "" {
		if !f.Channel.Valid() {
			return nil, validationError("invalid channel %q", f.Channel)
		}
		q = q.Where("channel = ?", f.Channel)
	}
	if f.TableID != nil {
		q = q.Where("table_id = ?", *f.TableID)
	}
	if f.RequestedBill != nil {
		q = q.Where("requested_bill = ?", *f.RequestedBill)
	}
	if f.UnpaidOnly {
		q = q.Where("paid_at IS NULL")
	}
	if f.OldestFirst {
		q = q.Order("created_at ASC").Order("id ASC")
	} else {
		q = q.Order("created_at DESC").Order("id DESC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	views := make([]*OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, s.project(p, &orders[i]))
	}
	return views, nil
}

// CalculateTotal returns the sum of quantity x unit price of an order
func (s *OrderService) CalculateTotal(ctx context.Context, p Principal, orderID uint) (decimal.Decimal, error) {
	if err := requirePermission(s.policy, p, authz.ViewOrderTotal); err != nil {
		return decimal.Zero, err
	}

	order, err := loadOrder(s.store.DB(ctx), orderID)
	if err != nil {
		return decimal.Zero, err
	}
	return order.Total(), nil
}

func (s *OrderService) record(ctx context.Context, p Principal, orderID uint, action string, details map[string]interface{}) {
	id := orderID
	s.audit.Record(ctx, audit.NewEvent(ctx, p.UserID, &id, action, details))
}

func itemsByID(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id ASC")
}

func loadOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := tx.Preload("Items", itemsByID).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// tableHasOpenOrder reports whether the table has an order that is neither
// terminal nor paid
func tableHasOpenOrder(tx *gorm.DB, tableID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Order{}).
		Where("table_id = ?", tableID).
		Where("status NOT IN ?", []string{string(models.StatusDelivered), string(models.StatusCancelled)}).
		Where("paid_at IS NULL").
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check table occupancy: %w", err)
	}
	return count > 0, nil
}

// claimModifiable rejects paid and cancelled orders, then bumps the order row
// while it is still unpaid and not cancelled. A payment or cancellation that
// committed in between is reported as a state error; kitchen progress is not
// a conflict.
func claimModifiable(tx *gorm.DB, order *models.Order) error {
	if order.IsPaid() {
		return stateError("cannot modify a paid order")
	}
	if order.Status == models.StatusCancelled {
		return stateError("cannot modify a cancelled order")
	}

	n, err := store.UpdateIf(tx, &models.Order{}, order.ID,
		[]store.Condition{store.IsNull("paid_at"), store.Ne("status", models.StatusCancelled)},
		map[string]interface{}{"updated_at": time.Now().UTC()})
	if err != nil {
		return err
	}
	if n == 0 {
		return stateError("order was paid or cancelled meanwhile")
	}
	return nil
}

func findItem(order *models.Order, itemID uint) *models.OrderItem {
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return &order.Items[i]
		}
	}
	return nil
}

func buildItems(inputs []ItemInput) ([]models.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, validationError("at least one item is required")
	}

	items := make([]models.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.ProductName)
		if name == "" {
			return nil, validationError("item %d: product name is required", i+1)
		}
		if in.Quantity < 1 {
			return nil, validationError("item %d: quantity must be at least 1", i+1)
		}
		if in.UnitPrice.IsNegative() {
			return nil, validationError("item %d: price must not be negative", i+1)
		}
		items = append(items, models.OrderItem{
			ProductName: name,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Notes:       strings.TrimSpace(in.Notes),
		})
	}
	return items, nil
}

func (patch ItemPatch) updates() (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	if patch.ProductName != nil {
		name := strings.TrimSpace(*patch.ProductName)
		if name == "" {
			return nil, validationError("product name must not be empty")
		}
		updates["product_name"] = name
	}
	if patch.Quantity != nil {
		if *patch.Quantity < 1 {
			return nil, validationError("quantity must be at least 1")
		}
		updates["quantity"] = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		if patch.UnitPrice.IsNegative() {
			return nil, validationError("price must not be negative")
		}
		updates["unit_price"] = *patch.UnitPrice
	}
	if patch.Notes != nil {
		updates["notes"] = strings.TrimSpace(*patch.Notes)
	}
	if len(updates) == 0 {
		return nil, validationError("no item fields to update")
	}
	return updates, nil
}

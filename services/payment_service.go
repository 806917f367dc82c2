package services

import (
	"context"
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

// PaymentTolerance absorbs decimal rounding when comparing monetary sums
var PaymentTolerance = decimal.New(1, -2)

// PaymentInput describes a payment to apply to an order
type PaymentInput struct {
	Method    models.PaymentMethod
	Amount    decimal.Decimal
	Reference string
	Notes     string
}

// PaymentSummary is an order's total against what has been paid so far
type PaymentSummary struct {
	OrderID   uint             `json:"order_id"`
	Total     decimal.Decimal  `json:"total"`
	Paid      decimal.Decimal  `json:"paid"`
	Remaining decimal.Decimal  `json:"remaining"`
	IsPaid    bool             `json:"is_paid"`
	Payments  []models.Payment `json:"payments,omitempty"`
}

// PaymentResult is returned by CreatePayment
type PaymentResult struct {
	Payment   models.Payment  `json:"payment"`
	Order     *OrderView      `json:"order"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	IsPaid    bool            `json:"is_paid"`
}

// PaymentService records payments and detects when an order is fully paid
type PaymentService struct {
	store  *store.Store
	policy *authz.Policy
	audit  audit.Recorder
	logger *zap.Logger
	hooks  hooks
}

// NewPaymentService creates a payment service
func NewPaymentService(st *store.Store, policy *authz.Policy, recorder audit.Recorder, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		store:  st,
		policy: policy,
		audit:  recorder,
		logger: logger.Named("payments"),
	}
}

// CreatePayment applies a payment to an order. Reading prior payments,
// inserting the new one and setting paid_at run in one transaction that
// first claims the order row, so concurrent payments on the same order
// serialize and paid_at is set exactly once. The order counts as paid once
// the payments reach its total less PaymentTolerance.
func (s *PaymentService) CreatePayment(ctx context.Context, p Principal, orderID uint, in PaymentInput) (*PaymentResult, error) {
	if err := requirePermission(s.policy, p, authz.MarkPaid); err != nil {
		return nil, err
	}
	if !in.Method.Valid() {
		return nil, validationError("invalid payment method %q", in.Method)
	}
	if !in.Amount.IsPositive() {
		return nil, validationError("payment amount must be greater than zero")
	}

	current, err := loadOrder(s.store.DB(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(current); err != nil {
		return nil, err
	}
	if s.hooks.beforePaymentWrite != nil {
		s.hooks.beforePaymentWrite()
	}

	var (
		result     *PaymentResult
		markedPaid bool
	)
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		session, err := s.paymentSession(tx, p)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		n, err := store.UpdateIf(tx, &models.Order{}, orderID,
			[]store.Condition{store.IsNull("paid_at"), store.Ne("status", models.StatusCancelled)},
			map[string]interface{}{"updated_at": now})
		if err != nil {
			return err
		}

		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := checkPayable(order); err != nil {
			return err
		}
		if n == 0 {
			return concurrencyError("order changed, retry")
		}

		total := order.Total()
		paid, err := paidTotal(tx, orderID)
		if err != nil {
			return err
		}
		if paid.Add(in.Amount).GreaterThan(total.Add(PaymentTolerance)) {
			return validationError("payment of %s exceeds the remaining balance of %s",
				in.Amount.StringFixed(2), total.Sub(paid).StringFixed(2))
		}

		payment := models.Payment{
			OrderID:       orderID,
			CashierID:     p.UserID,
			CashSessionID: session.ID,
			Amount:        in.Amount,
			Method:        in.Method,
			Reference:     strings.TrimSpace(in.Reference),
			Notes:         strings.TrimSpace(in.Notes),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		updatedPaid := paid.Add(in.Amount)
		if updatedPaid.GreaterThanOrEqual(total.Sub(PaymentTolerance)) {
			n, err := store.UpdateIf(tx, &models.Order{}, orderID,
				[]store.Condition{store.IsNull("paid_at")},
				map[string]interface{}{"paid_at": now})
			if err != nil {
				return err
			}
			if n == 0 {
				return concurrencyError("order was paid concurrently, retry")
			}
			markedPaid = true

			if order, err = loadOrder(tx, orderID); err != nil {
				return err
			}
		}

		result = &PaymentResult{
			Payment:   payment,
			Order:     projectOrder(s.policy, p, order),
			Total:     total,
			Paid:      updatedPaid,
			Remaining: remaining(total, updatedPaid),
			IsPaid:    order.IsPaid(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment recorded",
		zap.Uint("order_id", orderID),
		zap.Uint("payment_id", result.Payment.ID),
		zap.String("amount", in.Amount.StringFixed(2)),
		zap.String("method", string(in.Method)),
		zap.Bool("order_paid", markedPaid))

	id := orderID
	s.audit.Record(ctx, audit.NewEvent(ctx, p.UserID, &id, audit.ActionPaymentCreated, map[string]interface{}{
		"payment_id": result.Payment.ID,
		"amount":     in.Amount,
		"method":     in.Method,
		"session_id": result.Payment.CashSessionID,
	}))
	if markedPaid {
		s.audit.Record(ctx, audit.NewEvent(ctx, p.UserID, &id, audit.ActionOrderMarkedPaid, map[string]interface{}{
			"total": result.Total,
		}))
	}
	return result, nil
}

// GetOrderPayments returns every payment of an order together with its summary
func (s *PaymentService) GetOrderPayments(ctx context.Context, p Principal, orderID uint) (*PaymentSummary, error) {
	if err := requirePermission(s.policy, p, authz.ViewPayments); err != nil {
		return nil, err
	}
	return s.summary(ctx, orderID, true)
}

// GetPaymentSummary returns an order's total, paid and remaining amounts
func (s *PaymentService) GetPaymentSummary(ctx context.Context, p Principal, orderID uint) (*PaymentSummary, error) {
	if err := requirePermission(s.policy, p, authz.ViewPaymentSummary); err != nil {
		return nil, err
	}
	return s.summary(ctx, orderID, false)
}

func (s *PaymentService) summary(ctx context.Context, orderID uint, withPayments bool) (*PaymentSummary, error) {
	db := s.store.DB(ctx)

	order, err := loadOrder(db, orderID)
	if err != nil {
		return nil, err
	}

	var payments []models.Payment
	if err := db.Where("order_id = ?", orderID).Order("id ASC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	total := order.Total()
	paid := sumPayments(payments)
	summary := &PaymentSummary{
		OrderID:   orderID,
		Total:     total,
		Paid:      paid,
		Remaining: remaining(total, paid),
		IsPaid:    order.IsPaid(),
	}
	if withPayments {
		summary.Payments = payments
	}
	return summary, nil
}

// paymentSession picks the session a new payment is booked against: the
// cashier's own open drawer, else any open drawer in the system
func (s *PaymentService) paymentSession(tx *gorm.DB, p Principal) (*models.CashSession, error) {
	session, err := activeSessionFor(tx, p.UserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		if session, err = anyActiveSession(tx); err != nil {
			return nil, err
		}
	}
	if session == nil {
		return nil, stateError("no active cash session")
	}
	return session, nil
}

func checkPayable(order *models.Order) error {
	if order.Status == models.StatusCancelled {
		return stateError("cannot pay a cancelled order")
	}
	if order.IsPaid() {
		return stateError("order is already paid")
	}
	return nil
}

func paidTotal(tx *gorm.DB, orderID uint) (decimal.Decimal, error) {
	var payments []models.Payment
	if err := tx.Select("amount").Where("order_id = ?", orderID).Find(&payments).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to load payments: %w", err)
	}
	return sumPayments(payments), nil
}

func sumPayments(payments []models.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, pay := range payments {
		sum = sum.Add(pay.Amount)
	}
	return sum
}

func remaining(total, paid decimal.Decimal) decimal.Decimal {
	r := total.Sub(paid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

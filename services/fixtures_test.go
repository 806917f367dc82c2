package services

import (
	"context"
	"sync"
	"testing"

	"github.com/kendall-kelly/restaurant-pos-api/audit"
	"github.com/kendall-kelly/restaurant-pos-api/authz"
	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/store"
	"github.com/kendall-kelly/restaurant-pos-api/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordingAudit keeps every event handed to it
type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Record(_ context.Context, event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	audit    *recordingAudit
	orders   *OrderService
	sessions *CashSessionService
	payments *PaymentService
	views    *ViewService

	cashier Principal
	waiter  Principal
	kitchen Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.OpenTestDB(t)
	st := store.New(db)
	policy := authz.DefaultPolicy()
	rec := &recordingAudit{}
	logger := zap.NewNop()

	orders := NewOrderService(st, policy, rec, logger)
	f := &fixture{
		db:       db,
		audit:    rec,
		orders:   orders,
		sessions: NewCashSessionService(st, policy, rec, logger),
		payments: NewPaymentService(st, policy, rec, logger),
		views:    NewViewService(orders, st),
	}

	f.cashier = principalFor(testutil.CreateUser(t, db, models.RoleCashier))
	f.waiter = principalFor(testutil.CreateUser(t, db, models.RoleWaiter))
	f.kitchen = principalFor(testutil.CreateUser(t, db, models.RoleKitchen))
	return f
}

func principalFor(u models.User) Principal {
	return Principal{UserID: u.ID, Role: u.Role}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func uintPtr(v uint) *uint {
	return &v
}

// standardItems is 2 x 10.00 plus 1 x 5.00, a total of 25.00
func standardItems() []ItemInput {
	return []ItemInput{
		{ProductName: "Burger", Quantity: 2, UnitPrice: dec("10.00")},
		{ProductName: "Fries", Quantity: 1, UnitPrice: dec("5.00"), Notes: "no salt"},
	}
}

func (f *fixture) tableOrder(t *testing.T, number int) *OrderView {
	t.Helper()

	table := testutil.CreateDiningTable(t, f.db, number)
	order, err := f.orders.CreateOrder(context.Background(), f.waiter, CreateOrderInput{
		Channel: models.ChannelTable,
		TableID: uintPtr(table.ID),
		Items:   standardItems(),
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) counterOrder(t *testing.T) *OrderView {
	t.Helper()

	order, err := f.orders.CreateOrder(context.Background(), f.cashier, CreateOrderInput{
		Channel: models.ChannelCounter,
		Items:   standardItems(),
	})
	require.NoError(t, err)
	return order
}

// advance walks an order forward through the given statuses as the cashier
func (f *fixture) advance(t *testing.T, orderID uint, statuses ...models.OrderStatus) {
	t.Helper()

	for _, st := range statuses {
		_, err := f.orders.ChangeStatus(context.Background(), f.cashier, orderID, st)
		require.NoError(t, err)
	}
}

func (f *fixture) openSession(t *testing.T) *models.CashSession {
	t.Helper()

	session, err := f.sessions.OpenSession(context.Background(), f.cashier, dec("50.00"), "")
	require.NoError(t, err)
	return session
}

func (f *fixture) payInFull(t *testing.T, orderID uint) *PaymentResult {
	t.Helper()

	result, err := f.payments.CreatePayment(context.Background(), f.cashier, orderID, PaymentInput{
		Method: models.PaymentCash,
		Amount: dec("25.00"),
	})
	require.NoError(t, err)
	return result
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()

	require.Error(t, err)
	got, ok := KindOf(err)
	require.True(t, ok, "expected a service error, got %v", err)
	require.Equal(t, kind, got, "unexpected error kind: %v", err)
}

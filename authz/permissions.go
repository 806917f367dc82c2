// Package authz holds the static authorization tables: which capabilities each
// role holds, and which order status moves are structurally legal.
// Both tables are built once and never mutated afterwards.
package authz

import (
	"fmt"

	"github.com/kendall-kelly/restaurant-pos-api/models"
)

// Permission is a single capability checked by exact lookup
type Permission string

const (
	CreateOrder          Permission = "order:create"
	AddItems             Permission = "order:add_items"
	EditItems            Permission = "order:edit_items"
	DeleteItems          Permission = "order:delete_items"
	CancelOrder          Permission = "order:cancel"
	RequestBill          Permission = "order:request_bill"
	ViewOrderTotal       Permission = "order:view_total"
	MarkPaid             Permission = "payment:create"
	ViewPayments         Permission = "payment:view"
	ViewPaymentSummary   Permission = "payment:view_summary"
	OpenCashSession      Permission = "cash_session:open"
	CloseCashSession     Permission = "cash_session:close"
	ViewPrices           Permission = "prices:view"
	ViewFinancialReports Permission = "reports:view_financial"
)

// TransitionPermission names the right to move an order from one status to another
func TransitionPermission(from, to models.OrderStatus) Permission {
	return Permission(fmt.Sprintf("status:%s->%s", from, to))
}

// Matrix maps each role to the exact set of permissions it holds.
// No permission implies another.
type Matrix struct {
	grants map[models.Role]map[Permission]struct{}
}

// NewMatrix builds a matrix from explicit grants
func NewMatrix(grants map[models.Role][]Permission) *Matrix {
	m := &Matrix{grants: make(map[models.Role]map[Permission]struct{}, len(grants))}
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		m.grants[role] = set
	}
	return m
}

// DefaultMatrix is the restaurant's role table
func DefaultMatrix() *Matrix {
	cashier := []Permission{
		CreateOrder, AddItems, EditItems, DeleteItems, CancelOrder, RequestBill,
		ViewOrderTotal, MarkPaid, ViewPayments, ViewPaymentSummary,
		OpenCashSession, CloseCashSession, ViewPrices, ViewFinancialReports,
	}
	// every structurally valid move
	for _, from := range models.AllStatuses {
		for _, to := range defaultEdges[from] {
			cashier = append(cashier, TransitionPermission(from, to))
		}
	}

	return NewMatrix(map[models.Role][]Permission{
		models.RoleCashier: cashier,
		models.RoleWaiter: {
			CreateOrder, AddItems, RequestBill, ViewOrderTotal, ViewPaymentSummary, ViewPrices,
			TransitionPermission(models.StatusReady, models.StatusDelivered),
		},
		models.RoleKitchen: {
			TransitionPermission(models.StatusReceived, models.StatusInPrep),
			TransitionPermission(models.StatusInPrep, models.StatusReady),
		},
	})
}

// HasPermission reports whether role holds exactly permission
func (m *Matrix) HasPermission(role models.Role, permission Permission) bool {
	perms, ok := m.grants[role]
	if !ok {
		return false
	}
	_, ok = perms[permission]
	return ok
}

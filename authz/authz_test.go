package authz

import (
	"testing"

	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/stretchr/testify/assert"
)

func TestTransitionTable_IsValidTransition(t *testing.T) {
	table := DefaultTransitionTable()

	valid := map[models.OrderStatus][]models.OrderStatus{
		models.StatusReceived: {models.StatusInPrep, models.StatusCancelled},
		models.StatusInPrep:   {models.StatusReady, models.StatusCancelled},
		models.StatusReady:    {models.StatusDelivered, models.StatusCancelled},
	}

	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			want := false
			for _, allowed := range valid[from] {
				if allowed == to {
					want = true
				}
			}
			assert.Equal(t, want, table.IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}

	assert.False(t, table.IsValidTransition("unknown", models.StatusInPrep))
	assert.Empty(t, table.Targets(models.StatusDelivered))
	assert.Empty(t, table.Targets(models.StatusCancelled))
	assert.Equal(t, []models.OrderStatus{models.StatusReady, models.StatusCancelled}, table.Targets(models.StatusInPrep))
}

func TestMatrix_RoleGrants(t *testing.T) {
	m := DefaultMatrix()

	tests := []struct {
		name       string
		role       models.Role
		permission Permission
		want       bool
	}{
		{"cashier creates orders", models.RoleCashier, CreateOrder, true},
		{"cashier edits items", models.RoleCashier, EditItems, true},
		{"cashier deletes items", models.RoleCashier, DeleteItems, true},
		{"cashier cancels", models.RoleCashier, CancelOrder, true},
		{"cashier takes payments", models.RoleCashier, MarkPaid, true},
		{"cashier opens drawer", models.RoleCashier, OpenCashSession, true},
		{"cashier views reports", models.RoleCashier, ViewFinancialReports, true},
		{"waiter creates orders", models.RoleWaiter, CreateOrder, true},
		{"waiter adds items", models.RoleWaiter, AddItems, true},
		{"waiter requests bill", models.RoleWaiter, RequestBill, true},
		{"waiter sees prices", models.RoleWaiter, ViewPrices, true},
		{"waiter cannot edit items", models.RoleWaiter, EditItems, false},
		{"waiter cannot delete items", models.RoleWaiter, DeleteItems, false},
		{"waiter cannot cancel", models.RoleWaiter, CancelOrder, false},
		{"waiter cannot take payments", models.RoleWaiter, MarkPaid, false},
		{"waiter cannot open drawer", models.RoleWaiter, OpenCashSession, false},
		{"kitchen cannot see prices", models.RoleKitchen, ViewPrices, false},
		{"kitchen cannot create orders", models.RoleKitchen, CreateOrder, false},
		{"kitchen cannot see totals", models.RoleKitchen, ViewOrderTotal, false},
		{"kitchen cannot see payment summary", models.RoleKitchen, ViewPaymentSummary, false},
		{"unknown role holds nothing", models.Role("manager"), CreateOrder, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.HasPermission(tt.role, tt.permission))
		})
	}
}

func TestPolicy_CanRoleChangeStatus(t *testing.T) {
	p := DefaultPolicy()
	table := DefaultTransitionTable()

	waiterEdges := map[[2]models.OrderStatus]bool{
		{models.StatusReady, models.StatusDelivered}: true,
	}
	kitchenEdges := map[[2]models.OrderStatus]bool{
		{models.StatusReceived, models.StatusInPrep}: true,
		{models.StatusInPrep, models.StatusReady}:    true,
	}

	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			edge := [2]models.OrderStatus{from, to}
			valid := table.IsValidTransition(from, to)

			assert.Equal(t, valid, p.CanRoleChangeStatus(models.RoleCashier, from, to), "cashier %s -> %s", from, to)
			assert.Equal(t, waiterEdges[edge], p.CanRoleChangeStatus(models.RoleWaiter, from, to), "waiter %s -> %s", from, to)
			assert.Equal(t, kitchenEdges[edge], p.CanRoleChangeStatus(models.RoleKitchen, from, to), "kitchen %s -> %s", from, to)
		}
	}
}

func TestPolicy_RequiresValidEdge(t *testing.T) {
	// a grant for an edge the table does not contain must not be honoured
	p := NewPolicy(
		NewMatrix(map[models.Role][]Permission{
			models.RoleKitchen: {TransitionPermission(models.StatusDelivered, models.StatusReceived)},
		}),
		DefaultTransitionTable(),
	)
	assert.True(t, p.HasPermission(models.RoleKitchen, TransitionPermission(models.StatusDelivered, models.StatusReceived)))
	assert.False(t, p.CanRoleChangeStatus(models.RoleKitchen, models.StatusDelivered, models.StatusReceived))
}

func TestTransitionPermission_Name(t *testing.T) {
	assert.Equal(t, Permission("status:ready->delivered"), TransitionPermission(models.StatusReady, models.StatusDelivered))
}

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedOrder(t *testing.T, db *gorm.DB) models.Order {
	user := testutil.CreateUser(t, db, models.RoleCashier)
	order := models.Order{Channel: models.ChannelCounter, Status: models.StatusReceived, CreatedByID: user.ID}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestUpdateIf_MatchingCondition(t *testing.T) {
	db := testutil.OpenTestDB(t)
	order := seedOrder(t, db)

	n, err := UpdateIf(db, &models.Order{}, order.ID,
		[]Condition{Eq("status", models.StatusReceived)},
		map[string]interface{}{"status": models.StatusInPrep})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.StatusInPrep, reloaded.Status)
}

func TestUpdateIf_StaleConditionMatchesNothing(t *testing.T) {
	db := testutil.OpenTestDB(t)
	order := seedOrder(t, db)

	n, err := UpdateIf(db, &models.Order{}, order.ID,
		[]Condition{Eq("status", models.StatusReady)},
		map[string]interface{}{"status": models.StatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.StatusReceived, reloaded.Status, "stale write must not overwrite")
}

func TestUpdateIf_IsNullGuard(t *testing.T) {
	db := testutil.OpenTestDB(t)
	order := seedOrder(t, db)

	first, err := UpdateIf(db, &models.Order{}, order.ID,
		[]Condition{IsNull("paid_at")},
		map[string]interface{}{"paid_at": gorm.Expr("CURRENT_TIMESTAMP")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := UpdateIf(db, &models.Order{}, order.ID,
		[]Condition{IsNull("paid_at")},
		map[string]interface{}{"paid_at": gorm.Expr("CURRENT_TIMESTAMP")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), second, "paid_at is set at most once")
}

func TestUpdateIf_NotEqualGuard(t *testing.T) {
	db := testutil.OpenTestDB(t)
	order := seedOrder(t, db)

	n, err := UpdateIf(db, &models.Order{}, order.ID,
		[]Condition{Ne("status", models.StatusReceived)},
		map[string]interface{}{"requested_bill": true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = UpdateIf(db, &models.Order{}, order.ID,
		[]Condition{Ne("status", models.StatusCancelled)},
		map[string]interface{}{"requested_bill": true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransaction_RollsBackAllWrites(t *testing.T) {
	db := testutil.OpenTestDB(t)
	order := seedOrder(t, db)
	s := New(db)

	boom := errors.New("boom")
	err := s.Transaction(context.Background(), func(tx *gorm.DB) error {
		if _, err := UpdateIf(tx, &models.Order{}, order.ID,
			[]Condition{Eq("status", models.StatusReceived)},
			map[string]interface{}{"status": models.StatusCancelled}); err != nil {
			return err
		}
		if err := tx.Create(&models.OrderCancellation{OrderID: order.ID, Reason: "test", CancelledByID: 1}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.StatusReceived, reloaded.Status)

	var count int64
	db.Model(&models.OrderCancellation{}).Count(&count)
	assert.Zero(t, count)
}

func TestFirst_NotFound(t *testing.T) {
	db := testutil.OpenTestDB(t)

	var order models.Order
	err := First(db, &order, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

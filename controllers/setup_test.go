package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/restaurant-pos-api/audit"
	"github.com/kendall-kelly/restaurant-pos-api/authz"
	"github.com/kendall-kelly/restaurant-pos-api/middleware"
	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/services"
	"github.com/kendall-kelly/restaurant-pos-api/store"
	"github.com/kendall-kelly/restaurant-pos-api/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	subjectHeader = "X-Test-Subject"
	roleHeader    = "X-Test-Role"
)

// mockAuthMiddleware stands in for EnsureValidToken: it sets the context
// exactly as the real middleware does, taking the subject and role claim from
// test headers instead of a signed token
func mockAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetHeader(subjectHeader)
		if subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "INVALID_TOKEN", "message": "Failed to validate JWT."},
			})
			return
		}

		c.Set("user_id", subject)
		c.Set("validated_claims", &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: subject},
			CustomClaims:     &middleware.CustomClaims{Role: c.GetHeader(roleHeader)},
		})
		c.Next()
	}
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine

	cashier models.User
	waiter  models.User
	kitchen models.User
}

func newTestEnv(t *testing.T, userInfo services.UserInfoProvider) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenTestDB(t)
	st := store.New(db)
	policy := authz.DefaultPolicy()
	logger := zap.NewNop()
	var recorder audit.Recorder = audit.Nop{}

	users := services.NewUserService(st, userInfo, logger)
	orders := services.NewOrderService(st, policy, recorder, logger)
	handlers := &Handlers{
		Users:    NewUserController(users, logger),
		Orders:   NewOrderController(orders, logger),
		Payments: NewPaymentController(services.NewPaymentService(st, policy, recorder, logger), logger),
		Sessions: NewCashSessionController(services.NewCashSessionService(st, policy, recorder, logger), logger),
		Views:    NewViewController(services.NewViewService(orders, st), logger),
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	handlers.Register(router.Group("/api/v1"), mockAuthMiddleware(), middleware.RequirePrincipal(users))

	return &testEnv{
		db:      db,
		router:  router,
		cashier: testutil.CreateUser(t, db, models.RoleCashier),
		waiter:  testutil.CreateUser(t, db, models.RoleWaiter),
		kitchen: testutil.CreateUser(t, db, models.RoleKitchen),
	}
}

// do sends a request as the given user (nil for anonymous) and decodes the envelope
func (e *testEnv) do(t *testing.T, method, path string, as *models.User, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	if as != nil {
		req.Header.Set(subjectHeader, as.Auth0ID)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return w.Code, response
}

func data(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", response)
	return d
}

func dataList(t *testing.T, response map[string]interface{}) []interface{} {
	t.Helper()
	d, ok := response["data"].([]interface{})
	require.True(t, ok, "response has no data list: %v", response)
	return d
}

func errorCode(response map[string]interface{}) string {
	e, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}

// createTableOrder creates a 25.00 order (2 x 10.00 + 1 x 5.00) on a new table as the waiter
func (e *testEnv) createTableOrder(t *testing.T, tableNumber int) uint {
	t.Helper()

	table := testutil.CreateDiningTable(t, e.db, tableNumber)
	status, response := e.do(t, http.MethodPost, "/api/v1/orders", &e.waiter, map[string]interface{}{
		"channel":  "table",
		"table_id": table.ID,
		"items": []map[string]interface{}{
			{"product_name": "Burger", "quantity": 2, "unit_price": "10.00"},
			{"product_name": "Fries", "quantity": 1, "unit_price": "5.00"},
		},
	})
	require.Equal(t, http.StatusCreated, status, "response: %v", response)
	return uint(data(t, response)["id"].(float64))
}

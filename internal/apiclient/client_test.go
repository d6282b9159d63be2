package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ordersync/internal/models"
	"ordersync/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, router *gin.Engine) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	actor := models.Actor{ID: 42, Name: "diner", Role: models.RoleUser}
	sess := session.New(actor, "test-token")
	return NewClient(srv.URL, 2*time.Second, sess, zap.NewNop()), srv
}

func upstream() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestListOrdersDecodesNumericAndStringStatus(t *testing.T) {
	router := upstream()
	router.GET("/api/Orders", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		// The upstream is inconsistent about status representation.
		c.String(http.StatusOK, `[
			{"id": 1, "userId": 42, "status": 1, "total": 500, "items": []},
			{"id": 2, "userId": 42, "status": "DELIVERED", "total": 900, "items": []},
			{"id": 3, "userId": 42, "status": "SHIPPED", "total": 100, "items": []}
		]`)
	})
	client, _ := newTestClient(t, router)

	orders, err := client.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, models.StatusPreparing, orders[0].Status)
	assert.Equal(t, models.StatusDelivered, orders[1].Status)
	assert.Equal(t, models.StatusUnknown, orders[2].Status)
}

func TestCreateOrderSendsAuthAndIdempotencyKey(t *testing.T) {
	var gotAuth, gotKey string
	router := upstream()
	router.POST("/api/Orders", func(c *gin.Context) {
		gotAuth = c.GetHeader("Authorization")
		gotKey = c.GetHeader("Idempotency-Key")

		var req CreateOrderRequest
		require.NoError(t, c.ShouldBindJSON(&req))
		require.Len(t, req.Items, 1)

		c.JSON(http.StatusCreated, models.Order{
			ID:     42,
			UserID: 42,
			Total:  1000,
			Status: models.StatusPending,
			Lines: []models.OrderLine{
				{ProductID: 1, Quantity: 2, UnitPrice: 500, LineTotal: 1000},
			},
			CreatedAt: time.Now(),
		})
	})
	client, _ := newTestClient(t, router)

	req := &CreateOrderRequest{Items: []CreateOrderItem{{ProductID: 1, Quantity: 2}}}
	order, err := client.CreateOrder(context.Background(), req, "key-123")
	require.NoError(t, err)

	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, int64(1000), order.Total)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "key-123", gotKey)
}

func TestErrorTaxonomyMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		expect error
	}{
		{"conflict is stale state", http.StatusConflict, models.ErrStaleState},
		{"not found", http.StatusNotFound, models.ErrNotFound},
		{"bad request is validation", http.StatusBadRequest, models.ErrValidation},
		{"unprocessable is validation", http.StatusUnprocessableEntity, models.ErrValidation},
		{"server error is transient", http.StatusInternalServerError, models.ErrTransient},
		{"bad gateway is transient", http.StatusBadGateway, models.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := upstream()
			router.DELETE("/api/Orders/:id", func(c *gin.Context) {
				c.String(tt.code, "nope")
			})
			client, _ := newTestClient(t, router)

			_, err := client.CancelOrder(context.Background(), 7)
			assert.ErrorIs(t, err, tt.expect)
		})
	}
}

func TestTransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(upstream())
	srv.Close() // connection refused from here on

	actor := models.Actor{ID: 42, Role: models.RoleUser}
	client := NewClient(srv.URL, time.Second, session.New(actor, ""), zap.NewNop())

	_, err := client.ListOrders(context.Background())
	assert.ErrorIs(t, err, models.ErrTransient)
}

func TestUpdateOrderStatusSendsCanonicalString(t *testing.T) {
	var body map[string]string
	router := upstream()
	router.PUT("/api/Orders/:id/status", func(c *gin.Context) {
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, models.Order{ID: 5, Status: models.StatusPreparing})
	})
	client, _ := newTestClient(t, router)

	order, err := client.UpdateOrderStatus(context.Background(), 5, models.StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, order.Status)
	assert.Equal(t, "PREPARING", body["status"])
}

func TestListProducts(t *testing.T) {
	router := upstream()
	router.GET("/api/Products", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.String(http.StatusOK, `[
			{"id": 1, "name": "Tacos", "price": 500, "stock": 10, "isActive": true, "category": 0},
			{"id": 2, "name": "Lemonade", "price": 250, "stock": 4, "isActive": true, "category": "DRINK"}
		]`)
	})
	client, _ := newTestClient(t, router)

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, models.CategoryFood, products[0].Category)
	assert.Equal(t, models.CategoryDrink, products[1].Category)
}

func TestGetProductNotFound(t *testing.T) {
	router := upstream()
	router.GET("/api/Products/:id", func(c *gin.Context) {
		c.String(http.StatusNotFound, "no such product")
	})
	client, _ := newTestClient(t, router)

	_, err := client.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"ordersync/internal/models"

	"go.uber.org/zap"
)

// CreateOrderRequest is the submission payload. The server re-prices the
// lines from the catalog; quantity and product are what the client decides.
type CreateOrderRequest struct {
	Items []CreateOrderItem `json:"items"`
}

type CreateOrderItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Comment   string `json:"comment,omitempty"`
}

// ListOrders fetches every order the session is authorized to see: all orders
// for staff, own orders otherwise. Scoping happens server-side.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/api/Orders", nil, &orders, nil); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder submits the draft and returns the server-assigned order. The
// idempotency key guards against double submission on retry.
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest, idempotencyKey string) (*models.Order, error) {
	var order models.Order
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	if err := c.do(ctx, http.MethodPost, "/api/Orders", req, &order, headers); err != nil {
		return nil, err
	}
	if err := order.Validate(); err != nil {
		c.logger.Warn("Upstream returned inconsistent order", zap.Error(err))
	}
	return &order, nil
}

// CancelOrder asks the server to cancel. A 409 means the order advanced
// concurrently and surfaces as ErrStaleState.
func (c *Client) CancelOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	path := fmt.Sprintf("/api/Orders/%d", id)
	if err := c.do(ctx, http.MethodDelete, path, nil, &order, nil); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus advances an order (staff operation) and returns the
// updated record.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status models.Status) (*models.Order, error) {
	var order models.Order
	path := fmt.Sprintf("/api/Orders/%d/status", id)
	body := map[string]models.Status{"status": status}
	if err := c.do(ctx, http.MethodPut, path, body, &order, nil); err != nil {
		return nil, err
	}
	return &order, nil
}

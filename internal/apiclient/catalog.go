package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"ordersync/internal/models"
)

// ListProducts fetches the catalog. Products are read-only input to cart
// construction; the catalog collaborator owns them.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/api/Products", nil, &products, nil); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches a single catalog record.
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/Products/%d", id), nil, &product, nil); err != nil {
		return nil, err
	}
	return &product, nil
}

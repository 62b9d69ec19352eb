package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"example.com/backstage/services/procurement/internal/models"
)

// UpsertPrice adds or updates a supplier price. Whether an existing window is
// replaced is decided by the backend.
func (c *Client) UpsertPrice(ctx context.Context, supplierID int64, req models.CreatePriceRequest) (*models.PriceResponse, error) {
	var price models.PriceResponse
	path := fmt.Sprintf("/api/v1/suppliers/%d/prices", supplierID)
	if err := c.doJSON(ctx, "upsert_price", http.MethodPost, path, nil, req, &price); err != nil {
		return nil, err
	}
	return &price, nil
}

// ListPrices lists a supplier's prices, optionally for a single product
func (c *Client) ListPrices(ctx context.Context, supplierID int64, productID *int64) ([]models.PriceResponse, error) {
	var query url.Values
	if productID != nil {
		query = url.Values{"productId": {strconv.FormatInt(*productID, 10)}}
	}

	var prices []models.PriceResponse
	path := fmt.Sprintf("/api/v1/suppliers/%d/prices", supplierID)
	if err := c.doJSON(ctx, "list_prices", http.MethodGet, path, query, nil, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// ListActivePrices lists the prices in effect today
func (c *Client) ListActivePrices(ctx context.Context, supplierID int64) ([]models.PriceResponse, error) {
	var prices []models.PriceResponse
	path := fmt.Sprintf("/api/v1/suppliers/%d/prices/active", supplierID)
	if err := c.doJSON(ctx, "list_active_prices", http.MethodGet, path, nil, nil, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// DeletePrice removes a supplier price
func (c *Client) DeletePrice(ctx context.Context, supplierID, priceID int64) error {
	path := fmt.Sprintf("/api/v1/suppliers/%d/prices/%d", supplierID, priceID)
	resp, err := c.do(ctx, "delete_price", http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

package client

import (
	"context"
	"fmt"
	"net/http"

	"example.com/backstage/services/procurement/internal/models"
)

// CreateDelivery records a new delivery; the backend prices the items
func (c *Client) CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (*models.DeliveryResponse, error) {
	var delivery models.DeliveryResponse
	if err := c.doJSON(ctx, "create_delivery", http.MethodPost, "/api/v1/deliveries", nil, req, &delivery); err != nil {
		return nil, err
	}
	return &delivery, nil
}

// GetDelivery fetches a delivery with its items
func (c *Client) GetDelivery(ctx context.Context, id int64) (*models.DeliveryResponse, error) {
	var delivery models.DeliveryResponse
	path := fmt.Sprintf("/api/v1/deliveries/%d", id)
	if err := c.doJSON(ctx, "get_delivery", http.MethodGet, path, nil, nil, &delivery); err != nil {
		return nil, err
	}
	return &delivery, nil
}

// ListDeliveries lists all deliveries
func (c *Client) ListDeliveries(ctx context.Context) ([]models.DeliveryListItem, error) {
	var deliveries []models.DeliveryListItem
	if err := c.doJSON(ctx, "list_deliveries", http.MethodGet, "/api/v1/deliveries", nil, nil, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

// ListDeliveriesBySupplier lists the deliveries of one supplier
func (c *Client) ListDeliveriesBySupplier(ctx context.Context, supplierID int64) ([]models.DeliveryListItem, error) {
	var deliveries []models.DeliveryListItem
	path := fmt.Sprintf("/api/v1/deliveries/supplier/%d", supplierID)
	if err := c.doJSON(ctx, "list_supplier_deliveries", http.MethodGet, path, nil, nil, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

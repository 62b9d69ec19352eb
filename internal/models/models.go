package models

import (
	"github.com/shopspring/decimal"
)

// DeliveryItemRequest is a single product line of a new delivery
type DeliveryItemRequest struct {
	ProductID int64   `json:"productId" validate:"gt=0"`
	Weight    float64 `json:"weight" validate:"gt=0.001"`
}

// CreateDeliveryRequest is the body of POST /api/v1/deliveries.
// DeliveryDate is a timezone-naive ISO timestamp; nil lets the backend stamp the delivery.
type CreateDeliveryRequest struct {
	SupplierID   int64                 `json:"supplierId" validate:"gt=0"`
	DeliveryDate *string               `json:"deliveryDate,omitempty"`
	Items        []DeliveryItemRequest `json:"items" validate:"min=1,dive"`
}

// DeliveryItemResponse is a priced delivery line computed by the backend
type DeliveryItemResponse struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	ProductType string          `json:"productType"`
	Variety     string          `json:"variety"`
	Weight      decimal.Decimal `json:"weight"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// DeliveryResponse is a delivery with its items and server-computed totals
type DeliveryResponse struct {
	ID             int64                  `json:"id"`
	DeliveryNumber string                 `json:"deliveryNumber"`
	SupplierID     int64                  `json:"supplierId"`
	SupplierName   string                 `json:"supplierName"`
	DeliveryDate   string                 `json:"deliveryDate"`
	Status         DeliveryStatus         `json:"status"`
	CreatedAt      string                 `json:"createdAt"`
	Items          []DeliveryItemResponse `json:"items"`
	TotalWeight    decimal.Decimal        `json:"totalWeight"`
	TotalCost      decimal.Decimal        `json:"totalCost"`
}

// DeliveryListItem is a delivery as returned by the list endpoints (no items)
type DeliveryListItem struct {
	ID             int64           `json:"id"`
	DeliveryNumber string          `json:"deliveryNumber"`
	SupplierID     int64           `json:"supplierId"`
	SupplierName   string          `json:"supplierName"`
	DeliveryDate   string          `json:"deliveryDate"`
	Status         DeliveryStatus  `json:"status"`
	CreatedAt      string          `json:"createdAt"`
	TotalWeight    decimal.Decimal `json:"totalWeight"`
	TotalCost      decimal.Decimal `json:"totalCost"`
}

// CreatePriceRequest is the body of POST /api/v1/suppliers/{supplierId}/prices.
// EffectiveTo is always sent; nil encodes as JSON null (open-ended price).
type CreatePriceRequest struct {
	ProductID     int64   `json:"productId" validate:"gt=0"`
	Price         float64 `json:"price" validate:"gt=0"`
	EffectiveFrom string  `json:"effectiveFrom" validate:"required"`
	EffectiveTo   *string `json:"effectiveTo"`
}

// PriceResponse is a supplier price with its effective window
type PriceResponse struct {
	ID            int64           `json:"id"`
	SupplierID    int64           `json:"supplierId"`
	ProductID     int64           `json:"productId"`
	ProductName   string          `json:"productName"`
	ProductType   string          `json:"productType"`
	Variety       string          `json:"variety"`
	Price         decimal.Decimal `json:"price"`
	EffectiveFrom string          `json:"effectiveFrom"`
	EffectiveTo   *string         `json:"effectiveTo"`
	CreatedAt     string          `json:"createdAt"`
}

// ErrorResponse is the error body returned by the backend on non-2xx responses.
// ValidationErrors is the key emitted by the backend's bean-validation handler.
type ErrorResponse struct {
	Message          string            `json:"message"`
	Errors           map[string]string `json:"errors,omitempty"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

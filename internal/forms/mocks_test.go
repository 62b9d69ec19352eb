package forms

import (
	"context"

	"example.com/backstage/services/procurement/internal/client"
	"example.com/backstage/services/procurement/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockDeliveryCreator struct {
	mock.Mock
}

func (m *MockDeliveryCreator) CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (*models.DeliveryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryResponse), args.Error(1)
}

type MockPriceService struct {
	mock.Mock
}

func (m *MockPriceService) UpsertPrice(ctx context.Context, supplierID int64, req models.CreatePriceRequest) (*models.PriceResponse, error) {
	args := m.Called(ctx, supplierID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PriceResponse), args.Error(1)
}

func (m *MockPriceService) ListPrices(ctx context.Context, supplierID int64, productID *int64) ([]models.PriceResponse, error) {
	args := m.Called(ctx, supplierID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PriceResponse), args.Error(1)
}

func (m *MockPriceService) ListActivePrices(ctx context.Context, supplierID int64) ([]models.PriceResponse, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PriceResponse), args.Error(1)
}

func (m *MockPriceService) DeletePrice(ctx context.Context, supplierID, priceID int64) error {
	args := m.Called(ctx, supplierID, priceID)
	return args.Error(0)
}

type MockReportGenerator struct {
	mock.Mock
}

func (m *MockReportGenerator) GenerateReport(ctx context.Context, params models.ReportParams) (*client.RawReport, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RawReport), args.Error(1)
}

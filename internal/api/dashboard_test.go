package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/client"
	"example.com/backstage/services/procurement/internal/forms"
	"example.com/backstage/services/procurement/internal/metrics"
	"example.com/backstage/services/procurement/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (*models.DeliveryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryResponse), args.Error(1)
}

func (m *MockBackend) GetDelivery(ctx context.Context, id int64) (*models.DeliveryResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryResponse), args.Error(1)
}

func (m *MockBackend) ListDeliveries(ctx context.Context) ([]models.DeliveryListItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.DeliveryListItem), args.Error(1)
}

func (m *MockBackend) ListDeliveriesBySupplier(ctx context.Context, supplierID int64) ([]models.DeliveryListItem, error) {
	args := m.Called(ctx, supplierID)
	return args.Get(0).([]models.DeliveryListItem), args.Error(1)
}

func (m *MockBackend) UpsertPrice(ctx context.Context, supplierID int64, req models.CreatePriceRequest) (*models.PriceResponse, error) {
	args := m.Called(ctx, supplierID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PriceResponse), args.Error(1)
}

func (m *MockBackend) ListPrices(ctx context.Context, supplierID int64, productID *int64) ([]models.PriceResponse, error) {
	args := m.Called(ctx, supplierID, productID)
	return args.Get(0).([]models.PriceResponse), args.Error(1)
}

func (m *MockBackend) ListActivePrices(ctx context.Context, supplierID int64) ([]models.PriceResponse, error) {
	args := m.Called(ctx, supplierID)
	return args.Get(0).([]models.PriceResponse), args.Error(1)
}

func (m *MockBackend) DeletePrice(ctx context.Context, supplierID, priceID int64) error {
	args := m.Called(ctx, supplierID, priceID)
	return args.Error(0)
}

func (m *MockBackend) GenerateReport(ctx context.Context, params models.ReportParams) (*client.RawReport, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RawReport), args.Error(1)
}

func newTestServer(t *testing.T, backend *MockBackend) (*Server, *metrics.Metrics) {
	t.Helper()
	cfg := config.Config{
		Server: config.ServerConfig{Address: "127.0.0.1:0", Mode: gin.TestMode},
		Forms:  config.FormsConfig{Timezone: "UTC"},
	}
	m := metrics.NewMetrics()
	return NewServer(cfg, Dependencies{Backend: backend, Metrics: m, Notifier: forms.LogNotifier{}}), m
}

func perform(server *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestListDeliveriesIsCached(t *testing.T) {
	backend := new(MockBackend)
	backend.On("ListDeliveries", mock.Anything).Return([]models.DeliveryListItem{
		{ID: 1, DeliveryNumber: "DLV-1", Status: models.StatusCancelled},
		{ID: 2, DeliveryNumber: "DLV-2", Status: "ON_HOLD"},
	}, nil).Once()
	server, _ := newTestServer(t, backend)

	for i := 0; i < 2; i++ {
		rec := perform(server, http.MethodGet, "/api/dashboard/deliveries", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var rows []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "Cancelled", rows[0]["statusLabel"])
		assert.Equal(t, "destructive", rows[0]["statusVariant"])
		assert.Equal(t, "ON_HOLD", rows[1]["statusLabel"])
		assert.Equal(t, "outline", rows[1]["statusVariant"])
	}
	backend.AssertExpectations(t)
	assert.NotEmpty(t, perform(server, http.MethodGet, "/health", "").Header().Get(client.RequestIDHeader))
}

func TestListDeliveriesBySupplier(t *testing.T) {
	backend := new(MockBackend)
	backend.On("ListDeliveriesBySupplier", mock.Anything, int64(3)).Return([]models.DeliveryListItem{}, nil)
	server, _ := newTestServer(t, backend)

	rec := perform(server, http.MethodGet, "/api/dashboard/deliveries?supplierId=3", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = perform(server, http.MethodGet, "/api/dashboard/deliveries?supplierId=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDeliveryNotFoundPassesThrough(t *testing.T) {
	backend := new(MockBackend)
	backend.On("GetDelivery", mock.Anything, int64(9)).Return(nil, &client.APIError{Status: http.StatusNotFound, Message: "Delivery not found"})
	server, _ := newTestServer(t, backend)

	rec := perform(server, http.MethodGet, "/api/dashboard/deliveries/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Delivery not found"}`, rec.Body.String())
}

func TestCreateDeliveryValidationFailure(t *testing.T) {
	backend := new(MockBackend)
	server, _ := newTestServer(t, backend)

	rec := perform(server, http.MethodPost, "/api/dashboard/deliveries", `{"supplierId":"","items":[{"productId":10,"weight":"0"}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body FormFailure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.FieldErrors, "supplierId")
	assert.Contains(t, body.FieldErrors, "item_0_weight")
	assert.Empty(t, body.Notifications)
	backend.AssertNotCalled(t, "CreateDelivery", mock.Anything, mock.Anything)
}

func TestCreateDeliveryWithoutItems(t *testing.T) {
	server, _ := newTestServer(t, new(MockBackend))

	rec := perform(server, http.MethodPost, "/api/dashboard/deliveries", `{"supplierId":1,"items":[]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"item_0_productId"`)
}

func TestCreateDeliverySuccess(t *testing.T) {
	backend := new(MockBackend)
	date := "2024-01-15T10:00:00.000"
	backend.On("CreateDelivery", mock.Anything, models.CreateDeliveryRequest{
		SupplierID:   1,
		DeliveryDate: &date,
		Items:        []models.DeliveryItemRequest{{ProductID: 10, Weight: 25.5}, {ProductID: 11, Weight: 2}},
	}).Return(&models.DeliveryResponse{ID: 42, Status: models.StatusCreated}, nil)
	server, _ := newTestServer(t, backend)

	rec := perform(server, http.MethodPost, "/api/dashboard/deliveries",
		`{"supplierId":1,"deliveryDate":"2024-01-15T10:00","items":[{"productId":10,"weight":25.5},{"productId":"11","weight":"2"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Redirect      string               `json:"redirect"`
		Notifications []forms.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/deliveries/42", body.Redirect)
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, forms.NotificationSuccess, body.Notifications[0].Kind)
	backend.AssertExpectations(t)
}

func TestCreatePriceServerFieldErrors(t *testing.T) {
	backend := new(MockBackend)
	backend.On("UpsertPrice", mock.Anything, int64(1), mock.Anything).Return(nil, &client.APIError{
		Status:  http.StatusUnprocessableEntity,
		Message: "invalid",
		Errors:  map[string]string{"price": "must be positive"},
	})
	server, _ := newTestServer(t, backend)

	rec := perform(server, http.MethodPost, "/api/dashboard/suppliers/1/prices",
		`{"productId":"5","price":"2.5","effectiveFrom":"2024-01-01","effectiveTo":null}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body FormFailure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, forms.FieldErrors{"price": "must be positive"}, body.FieldErrors)
	assert.Equal(t, "invalid", body.ServerError)
	assert.Equal(t, []forms.Notification{{Kind: forms.NotificationError, Message: "invalid"}}, body.Notifications)

	req := backend.Calls[0].Arguments.Get(2).(models.CreatePriceRequest)
	assert.Nil(t, req.EffectiveTo)
}

func TestDeletePriceRefreshesList(t *testing.T) {
	backend := new(MockBackend)
	backend.On("ListPrices", mock.Anything, int64(1), (*int64)(nil)).Return([]models.PriceResponse{{ID: 10}, {ID: 11}}, nil).Once()
	backend.On("ListPrices", mock.Anything, int64(1), (*int64)(nil)).Return([]models.PriceResponse{{ID: 11}}, nil).Once()
	backend.On("DeletePrice", mock.Anything, int64(1), int64(10)).Return(nil)
	server, _ := newTestServer(t, backend)

	rec := perform(server, http.MethodGet, "/api/dashboard/suppliers/1/prices", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = perform(server, http.MethodDelete, "/api/dashboard/suppliers/1/prices/10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Price deleted successfully.")

	rec = perform(server, http.MethodGet, "/api/dashboard/suppliers/1/prices", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var prices []models.PriceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prices))
	require.Len(t, prices, 1)
	assert.Equal(t, int64(11), prices[0].ID)
	backend.AssertExpectations(t)
}

func TestListPricesRejectsMissingSupplier(t *testing.T) {
	server, _ := newTestServer(t, new(MockBackend))

	rec := perform(server, http.MethodGet, "/api/dashboard/suppliers/0/prices", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateReportDownload(t *testing.T) {
	backend := new(MockBackend)
	backend.On("GenerateReport", mock.Anything, models.ReportParams{
		StartDate: "2024-01-01", EndDate: "2024-01-31", Detailed: false, Format: models.FormatPDF,
	}).Return(&client.RawReport{Format: models.FormatPDF, ContentType: "application/pdf", Body: []byte("%PDF-1.4")}, nil)
	server, _ := newTestServer(t, backend)

	rec := perform(server, http.MethodGet, "/api/dashboard/reports?startDate=2024-01-01&endDate=2024-01-31&detailed=false&format=pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report_2024-01-01_2024-01-31.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}

func TestGenerateReportJSON(t *testing.T) {
	report := models.NewSummaryReport("2024-01-01", "2024-01-31", []models.SummaryItem{
		{SupplierName: "Orchard", ProductType: "APPLE", TotalWeight: decimal.NewFromInt(10), TotalCost: decimal.NewFromInt(25)},
		{SupplierName: "Grove", ProductType: "APPLE", TotalWeight: decimal.NewFromInt(10), TotalCost: decimal.NewFromInt(15)},
	}, decimal.NewFromInt(20), decimal.NewFromInt(40))
	data, err := json.Marshal(report)
	require.NoError(t, err)

	backend := new(MockBackend)
	backend.On("GenerateReport", mock.Anything, mock.Anything).Return(&client.RawReport{Format: models.FormatJSON, Body: data}, nil)
	server, _ := newTestServer(t, backend)

	rec := perform(server, http.MethodGet, "/api/dashboard/reports?startDate=2024-01-01&endDate=2024-01-31", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Report  models.DeliveryReport `json:"report"`
		Summary ReportSummary         `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Report.Detailed)
	assert.Len(t, body.Report.SummaryItems, 2)
	assert.Equal(t, 2, body.Summary.SupplierCount)
	assert.Equal(t, 1, body.Summary.ProductTypeCount)
	assert.True(t, decimal.NewFromInt(2).Equal(body.Summary.AveragePrice))

	rec = perform(server, http.MethodGet, "/api/dashboard/reports?startDate=2024-01-01&endDate=2024-01-31&view=table", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Orchard")
}

func TestGenerateReportRejectsUnknownFormat(t *testing.T) {
	backend := new(MockBackend)
	server, _ := newTestServer(t, backend)

	rec := perform(server, http.MethodGet, "/api/dashboard/reports?format=xlsx", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"format"`)
	backend.AssertNotCalled(t, "GenerateReport", mock.Anything, mock.Anything)
}

func TestMetricsAndHealth(t *testing.T) {
	server, m := newTestServer(t, new(MockBackend))
	m.SetHealth("dashboard", true)

	rec := perform(server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = perform(server, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines")
	assert.Contains(t, m.GetTimers(), "http.GET /health")

	m.SetHealth("cache", false)
	rec = perform(server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRawValue(t *testing.T) {
	var draft PriceDraftRequest
	require.NoError(t, json.Unmarshal([]byte(`{"productId":5,"price":"2.50","effectiveFrom":"2024-01-01","effectiveTo":null}`), &draft))
	assert.Equal(t, RawValue("5"), draft.ProductID)
	assert.Equal(t, RawValue("2.50"), draft.Price)
	assert.Equal(t, RawValue(""), draft.EffectiveTo)
}

func TestFormStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, formStatus(forms.ErrInvalid))
	assert.Equal(t, http.StatusNotFound, formStatus(&client.APIError{Status: http.StatusNotFound}))
	assert.Equal(t, http.StatusBadGateway, formStatus(&client.APIError{Status: http.StatusInternalServerError}))
	assert.Equal(t, http.StatusBadGateway, formStatus(&client.APIError{Status: 0, Message: "connection refused"}))
}

func TestConcurrentDeliverySubmissionsAreIndependent(t *testing.T) {
	backend := new(MockBackend)
	backend.On("CreateDelivery", mock.Anything, mock.Anything).Return(&models.DeliveryResponse{ID: 7}, nil).Twice()
	server, _ := newTestServer(t, backend)

	body := `{"supplierId":1,"items":[{"productId":10,"weight":2}]}`
	results := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- perform(server, http.MethodPost, "/api/dashboard/deliveries", body).Code
		}()
	}
	assert.Equal(t, http.StatusCreated, <-results)
	assert.Equal(t, http.StatusCreated, <-results)
	backend.AssertExpectations(t)
}

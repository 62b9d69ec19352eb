package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/client"
	"example.com/backstage/services/procurement/internal/forms"
	"example.com/backstage/services/procurement/internal/models"
	"example.com/backstage/services/procurement/internal/tracing"
	"example.com/backstage/services/procurement/internal/views"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Backend is the procurement backend as the dashboard uses it
type Backend interface {
	forms.DeliveryCreator
	forms.PriceService
	forms.ReportGenerator
	GetDelivery(ctx context.Context, id int64) (*models.DeliveryResponse, error)
	ListDeliveries(ctx context.Context) ([]models.DeliveryListItem, error)
	ListDeliveriesBySupplier(ctx context.Context, supplierID int64) ([]models.DeliveryListItem, error)
}

// DashboardHandler exposes the console's screens and forms as JSON endpoints
type DashboardHandler struct {
	backend  Backend
	store    *cache.Store
	tracer   tracing.Tracer
	notifier forms.Notifier
	location *time.Location
}

// NewDashboardHandler creates a dashboard handler
func NewDashboardHandler(deps Dependencies, location *time.Location) *DashboardHandler {
	return &DashboardHandler{
		backend:  deps.Backend,
		store:    deps.Cache,
		tracer:   deps.Tracer,
		notifier: deps.Notifier,
		location: location,
	}
}

// RegisterRoutes registers the handler's routes
func (h *DashboardHandler) RegisterRoutes(router *gin.Engine) {
	dashboard := router.Group("/api/dashboard")
	{
		dashboard.GET("/deliveries", h.HandleListDeliveries)
		dashboard.GET("/deliveries/:id", h.HandleGetDelivery)
		dashboard.POST("/deliveries", h.HandleCreateDelivery)

		dashboard.GET("/suppliers/:supplierId/prices", h.HandleListPrices)
		dashboard.POST("/suppliers/:supplierId/prices", h.HandleCreatePrice)
		dashboard.GET("/suppliers/:supplierId/prices/active", h.HandleListActivePrices)
		dashboard.DELETE("/suppliers/:supplierId/prices/:priceId", h.HandleDeletePrice)

		dashboard.GET("/reports", h.HandleGenerateReport)
	}
}

// RawValue is a form field as typed. JSON numbers and strings are both
// accepted; null is blank.
type RawValue string

// UnmarshalJSON keeps the raw text of the value
func (v *RawValue) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	switch {
	case text == "null":
		*v = ""
	case strings.HasPrefix(text, `"`):
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return errors.Wrap(err, "invalid string value")
		}
		*v = RawValue(unquoted)
	default:
		*v = RawValue(text)
	}
	return nil
}

// DeliveryDraftRequest is the delivery form as submitted by the dashboard
type DeliveryDraftRequest struct {
	SupplierID   RawValue `json:"supplierId"`
	DeliveryDate RawValue `json:"deliveryDate"`
	Items        []struct {
		ProductID RawValue `json:"productId"`
		Weight    RawValue `json:"weight"`
	} `json:"items"`
}

// PriceDraftRequest is the price form as submitted by the dashboard
type PriceDraftRequest struct {
	ProductID     RawValue `json:"productId"`
	Price         RawValue `json:"price"`
	EffectiveFrom RawValue `json:"effectiveFrom"`
	EffectiveTo   RawValue `json:"effectiveTo"`
}

// FormFailure is the body of a rejected form submission
type FormFailure struct {
	FieldErrors   forms.FieldErrors    `json:"fieldErrors"`
	ServerError   string               `json:"serverError,omitempty"`
	Notifications []forms.Notification `json:"notifications"`
}

// DeliveryRow is a delivery list entry with its rendered status
type DeliveryRow struct {
	models.DeliveryListItem
	StatusLabel   string               `json:"statusLabel"`
	StatusVariant models.StatusVariant `json:"statusVariant"`
}

// ReportSummary carries the figures shown under a report table
type ReportSummary struct {
	AveragePrice     decimal.Decimal `json:"averagePrice"`
	SupplierCount    int             `json:"supplierCount"`
	ProductTypeCount int             `json:"productTypeCount"`
}

type reportQuery struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Detailed  *bool  `form:"detailed"`
	Format    string `form:"format"`
	View      string `form:"view"`
}

// deps builds per-request form dependencies; recorder collects the
// notifications the request raised
func (h *DashboardHandler) deps(navigate forms.NavigatorFunc) (forms.Deps, *forms.Recorder) {
	recorder := &forms.Recorder{}
	deps := forms.Deps{
		Cache:    h.store,
		Notifier: forms.MultiNotifier{recorder, h.notifier},
		Location: h.location,
	}
	if navigate != nil {
		deps.Navigator = navigate
	}
	return deps, recorder
}

// HandleListDeliveries lists deliveries, optionally of one supplier
func (h *DashboardHandler) HandleListDeliveries(c *gin.Context) {
	txn := h.tracer.StartTransaction("dashboard-list-deliveries")
	defer h.tracer.EndTransaction(txn)

	key := cache.DeliveriesKey()
	fetch := h.backend.ListDeliveries

	if raw := c.Query("supplierId"); raw != "" {
		supplierID, err := parseID(raw)
		if err != nil {
			h.abort(c, txn, http.StatusBadRequest, err)
			return
		}
		key = cache.SupplierDeliveriesKey(supplierID)
		fetch = func(ctx context.Context) ([]models.DeliveryListItem, error) {
			return h.backend.ListDeliveriesBySupplier(ctx, supplierID)
		}
	}

	deliveries, err := cache.Fetch(c.Request.Context(), h.store, key, fetch)
	if err != nil {
		h.abort(c, txn, backendStatus(err), err)
		return
	}

	rows := make([]DeliveryRow, len(deliveries))
	for i, d := range deliveries {
		rows[i] = DeliveryRow{
			DeliveryListItem: d,
			StatusLabel:      d.Status.Label(),
			StatusVariant:    d.Status.Variant(),
		}
	}
	c.JSON(http.StatusOK, rows)
}

// HandleGetDelivery returns one delivery with its items
func (h *DashboardHandler) HandleGetDelivery(c *gin.Context) {
	txn := h.tracer.StartTransaction("dashboard-get-delivery")
	defer h.tracer.EndTransaction(txn)

	id, err := parseID(c.Param("id"))
	if err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}
	h.tracer.AddAttribute(txn, "delivery_id", id)

	delivery, err := cache.Fetch(c.Request.Context(), h.store, cache.DeliveryKey(id), func(ctx context.Context) (*models.DeliveryResponse, error) {
		return h.backend.GetDelivery(ctx, id)
	})
	if err != nil {
		h.abort(c, txn, backendStatus(err), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"delivery":      delivery,
		"statusLabel":   delivery.Status.Label(),
		"statusVariant": delivery.Status.Variant(),
	})
}

// HandleCreateDelivery submits the delivery form
func (h *DashboardHandler) HandleCreateDelivery(c *gin.Context) {
	txn := h.tracer.StartTransaction("dashboard-create-delivery")
	defer h.tracer.EndTransaction(txn)

	var req DeliveryDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}

	var redirect string
	deps, recorder := h.deps(func(path string) { redirect = path })

	form := forms.NewDeliveryForm(h.backend, deps)
	form.SetSupplierID(string(req.SupplierID))
	form.SetDeliveryDate(string(req.DeliveryDate))
	for i, item := range req.Items {
		if i > 0 {
			form.AddItem()
		}
		form.UpdateItem(i, forms.ItemProductID, string(item.ProductID))
		form.UpdateItem(i, forms.ItemWeight, string(item.Weight))
	}
	if len(req.Items) == 0 {
		form.RemoveItem(0)
	}

	delivery, err := form.Submit(c.Request.Context())
	if err != nil {
		h.tracer.RecordError(txn, err)
		c.JSON(formStatus(err), FormFailure{
			FieldErrors:   form.FieldErrors(),
			ServerError:   form.ServerError(),
			Notifications: recorder.Notifications(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"delivery":      delivery,
		"redirect":      redirect,
		"notifications": recorder.Notifications(),
	})
}

// priceScope reads the supplier and optional product filter of a price route
func priceScope(c *gin.Context) (int64, *int64, error) {
	supplierID, err := parseID(c.Param("supplierId"))
	if err != nil {
		return 0, nil, err
	}

	raw := c.Query("productId")
	if raw == "" {
		return supplierID, nil, nil
	}
	productID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil, errors.Wrap(err, "invalid productId")
	}
	return supplierID, &productID, nil
}

// HandleListPrices lists a supplier's prices
func (h *DashboardHandler) HandleListPrices(c *gin.Context) {
	txn := h.tracer.StartTransaction("dashboard-list-prices")
	defer h.tracer.EndTransaction(txn)

	supplierID, productID, err := priceScope(c)
	if err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}

	deps, _ := h.deps(nil)
	list, err := forms.NewPriceList(h.backend, supplierID, productID, deps)
	if err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}

	prices, err := list.Load(c.Request.Context())
	if err != nil {
		h.abort(c, txn, backendStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

// HandleListActivePrices lists the prices a supplier has in effect today
func (h *DashboardHandler) HandleListActivePrices(c *gin.Context) {
	txn := h.tracer.StartTransaction("dashboard-list-active-prices")
	defer h.tracer.EndTransaction(txn)

	supplierID, err := parseID(c.Param("supplierId"))
	if err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}

	deps, _ := h.deps(nil)
	list, err := forms.NewPriceList(h.backend, supplierID, nil, deps)
	if err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}

	prices, err := list.LoadActive(c.Request.Context())
	if err != nil {
		h.abort(c, txn, backendStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

// HandleCreatePrice submits the price form
func (h *DashboardHandler) HandleCreatePrice(c *gin.Context) {
	txn := h.tracer.StartTransaction("dashboard-create-price")
	defer h.tracer.EndTransaction(txn)

	supplierID, productID, err := priceScope(c)
	if err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}

	var req PriceDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}

	deps, recorder := h.deps(nil)
	form, err := forms.NewPriceForm(h.backend, supplierID, productID, deps)
	if err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}
	form.Set(forms.PriceProductID, string(req.ProductID))
	form.Set(forms.PriceValue, string(req.Price))
	form.Set(forms.PriceEffectiveFrom, string(req.EffectiveFrom))
	form.Set(forms.PriceEffectiveTo, string(req.EffectiveTo))

	price, err := form.Submit(c.Request.Context())
	if err != nil {
		h.tracer.RecordError(txn, err)
		c.JSON(formStatus(err), FormFailure{
			FieldErrors:   form.FieldErrors(),
			ServerError:   form.ServerError(),
			Notifications: recorder.Notifications(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"price":         price,
		"notifications": recorder.Notifications(),
	})
}

// HandleDeletePrice deletes a price and invalidates the supplier's lists
func (h *DashboardHandler) HandleDeletePrice(c *gin.Context) {
	txn := h.tracer.StartTransaction("dashboard-delete-price")
	defer h.tracer.EndTransaction(txn)

	supplierID, productID, err := priceScope(c)
	if err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}
	priceID, err := parseID(c.Param("priceId"))
	if err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}

	deps, recorder := h.deps(nil)
	list, err := forms.NewPriceList(h.backend, supplierID, productID, deps)
	if err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}

	if err := list.Delete(c.Request.Context(), priceID); err != nil {
		h.tracer.RecordError(txn, err)
		c.JSON(backendStatus(err), gin.H{"notifications": recorder.Notifications()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": recorder.Notifications()})
}

// HandleGenerateReport generates a report. JSON reports are returned as
// data, or as a text table with view=table; PDF and CSV are sent as
// attachments.
func (h *DashboardHandler) HandleGenerateReport(c *gin.Context) {
	txn := h.tracer.StartTransaction("dashboard-generate-report")
	defer h.tracer.EndTransaction(txn)

	var query reportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.abort(c, txn, http.StatusBadRequest, err)
		return
	}

	deps, recorder := h.deps(nil)
	form := forms.NewReportForm(h.backend, nil, deps)
	if query.StartDate != "" {
		form.SetStartDate(query.StartDate)
	}
	if query.EndDate != "" {
		form.SetEndDate(query.EndDate)
	}
	if query.Detailed != nil {
		form.SetDetailed(*query.Detailed)
	}
	if query.Format != "" {
		format, err := models.ParseReportFormat(query.Format)
		if err != nil {
			format = models.ReportFormat(query.Format)
		}
		form.SetFormat(format)
	}

	outcome, err := form.Generate(c.Request.Context())
	if err != nil {
		h.tracer.RecordError(txn, err)
		c.JSON(formStatus(err), FormFailure{
			FieldErrors:   form.FieldErrors(),
			ServerError:   form.ServerError(),
			Notifications: recorder.Notifications(),
		})
		return
	}

	if download := outcome.Download; download != nil {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, download.FileName))
		c.Data(http.StatusOK, download.ContentType, download.Data)
		return
	}

	report := *outcome.Report
	if query.View == "table" {
		var buf bytes.Buffer
		if err := views.RenderReport(&buf, report); err != nil {
			h.abort(c, txn, http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report": report,
		"summary": ReportSummary{
			AveragePrice:     report.AveragePrice(),
			SupplierCount:    report.SupplierCount(),
			ProductTypeCount: report.ProductTypeCount(),
		},
		"notifications": recorder.Notifications(),
	})
}

// abort answers with an error body and records the error on the transaction
func (h *DashboardHandler) abort(c *gin.Context, txn *newrelic.Transaction, status int, err error) {
	h.tracer.RecordError(txn, err)
	log.Error().Err(err).Str("path", c.FullPath()).Int("status", status).Msg("Dashboard request failed")

	body := gin.H{"message": err.Error()}
	if apiErr, ok := client.AsAPIError(err); ok {
		body["message"] = apiErr.Message
		if apiErr.HasFieldErrors() {
			body["errors"] = apiErr.Errors
		}
	}
	c.AbortWithStatusJSON(status, body)
}

// parseID parses a positive whole identifier
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid id %q", raw)
	}
	if id <= 0 {
		return 0, errors.Errorf("id must be positive, got %d", id)
	}
	return id, nil
}

// backendStatus maps a backend failure to the dashboard's response status:
// client errors pass through, anything else is a bad gateway
func backendStatus(err error) int {
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

// formStatus maps a failed submission to a response status. Forms are built
// per request, so a submission is never already in flight.
func formStatus(err error) int {
	if errors.Is(err, forms.ErrInvalid) {
		return http.StatusUnprocessableEntity
	}
	return backendStatus(err)
}

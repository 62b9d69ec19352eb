package forms

import (
	"context"
	"strconv"
	"strings"
	"time"

	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/client"
	"example.com/backstage/services/procurement/internal/models"

	"github.com/pkg/errors"
)

var (
	// ErrInvalid is returned by Submit when local validation fails. No request
	// is sent in that case.
	ErrInvalid = errors.New("form has validation errors")
	// ErrSubmitting is returned when a submission is already in flight
	ErrSubmitting = errors.New("submission already in progress")
)

// FieldErrors maps a field key to a message. Local validation and the
// backend's field errors share this shape.
type FieldErrors map[string]string

func (e FieldErrors) clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// DeliveryCreator creates deliveries
type DeliveryCreator interface {
	CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (*models.DeliveryResponse, error)
}

// PriceService manages supplier prices
type PriceService interface {
	UpsertPrice(ctx context.Context, supplierID int64, req models.CreatePriceRequest) (*models.PriceResponse, error)
	ListPrices(ctx context.Context, supplierID int64, productID *int64) ([]models.PriceResponse, error)
	ListActivePrices(ctx context.Context, supplierID int64) ([]models.PriceResponse, error)
	DeletePrice(ctx context.Context, supplierID, priceID int64) error
}

// ReportGenerator requests reports
type ReportGenerator interface {
	GenerateReport(ctx context.Context, params models.ReportParams) (*client.RawReport, error)
}

// Navigator moves the console to another screen
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

// Navigate calls f(path)
func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

// DeliveryPath is the detail screen of a delivery
func DeliveryPath(id int64) string {
	return "/deliveries/" + strconv.FormatInt(id, 10)
}

// Deps are the collaborators shared by every controller. Zero values are
// replaced with working defaults.
type Deps struct {
	Cache     *cache.Store
	Notifier  Notifier
	Navigator Navigator
	// Location is where typed dates and "today" are interpreted
	Location *time.Location
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = LogNotifier{}
	}
	if d.Navigator == nil {
		d.Navigator = NavigatorFunc(func(string) {})
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) invalidate(ctx context.Context, keys ...string) {
	if d.Cache != nil {
		d.Cache.Invalidate(ctx, keys...)
	}
}

// invalidatePrices drops every price list of the supplier, filtered or not,
// together with its active prices
func (d Deps) invalidatePrices(ctx context.Context, supplierID int64) {
	if d.Cache != nil {
		patterns := append(cache.SupplierPricesPatterns(supplierID), cache.ActivePricesKey(supplierID))
		d.Cache.InvalidatePattern(ctx, patterns...)
	}
}

// failure is how a controller reacts to a failed call: the backend's
// field errors (if any) and the message to show
type failure struct {
	fieldErrors FieldErrors
	message     string
}

func describeFailure(err error) failure {
	apiErr, ok := client.AsAPIError(err)
	if !ok {
		return failure{}
	}

	f := failure{message: strings.TrimSpace(apiErr.Message)}
	if apiErr.HasFieldErrors() {
		f.fieldErrors = FieldErrors(apiErr.Errors).clone()
	}
	return f
}

func (f failure) messageOr(fallback string) string {
	if f.message != "" {
		return f.message
	}
	return fallback
}

// parseNumber coerces form input to a number: blank is 0, anything that is
// not a number is NaN
func parseNumber(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nan
	}
	return v
}

package forms

import (
	"context"
	"strings"
	"sync"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNoSupplier is returned when a price screen is opened without a supplier
var ErrNoSupplier = errors.New("supplier id must be positive")

// PriceField names an editable field of the price form
type PriceField string

// Price form fields
const (
	PriceProductID     PriceField = "productId"
	PriceValue         PriceField = "price"
	PriceEffectiveFrom PriceField = "effectiveFrom"
	PriceEffectiveTo   PriceField = "effectiveTo"
)

// normalizeFilter drops non-positive product filters
func normalizeFilter(productID *int64) *int64 {
	if productID == nil || *productID <= 0 {
		return nil
	}
	id := *productID
	return &id
}

// PriceForm adds or updates a price of one supplier
type PriceForm struct {
	prices        PriceService
	supplierID    int64
	productFilter *int64
	deps          Deps

	mu          sync.Mutex
	values      map[PriceField]string
	fieldErrors FieldErrors
	submitting  bool
	serverError string
}

// NewPriceForm creates a price form for supplierID. productFilter is the
// product the price list is filtered by, if any.
func NewPriceForm(prices PriceService, supplierID int64, productFilter *int64, deps Deps) (*PriceForm, error) {
	if supplierID <= 0 {
		return nil, ErrNoSupplier
	}
	return &PriceForm{
		prices:        prices,
		supplierID:    supplierID,
		productFilter: normalizeFilter(productFilter),
		deps:          deps.withDefaults(),
		values:        make(map[PriceField]string),
		fieldErrors:   FieldErrors{},
	}, nil
}

// Set sets a raw field value
func (f *PriceForm) Set(field PriceField, raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[field] = raw
}

// Value returns a raw field value
func (f *PriceForm) Value(field PriceField) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[field]
}

// FieldErrors returns a copy of the current field errors
func (f *PriceForm) FieldErrors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fieldErrors.clone()
}

// Submitting reports whether a submission is in flight
func (f *PriceForm) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// ServerError returns the message of the last failed submission
func (f *PriceForm) ServerError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.serverError
}

// ListKey is the cache key of the price list this form refreshes
func (f *PriceForm) ListKey() string {
	return cache.PricesKey(f.supplierID, f.productFilter)
}

// Validate checks the draft and replaces the field errors with the outcome.
// effectiveTo is optional and not checked.
func (f *PriceForm) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *PriceForm) validateLocked() bool {
	f.fieldErrors = validateInput(priceInput{
		ProductID:     parseNumber(f.values[PriceProductID]),
		Price:         parseNumber(f.values[PriceValue]),
		EffectiveFrom: strings.TrimSpace(f.values[PriceEffectiveFrom]),
	})
	return len(f.fieldErrors) == 0
}

func (f *PriceForm) requestLocked() models.CreatePriceRequest {
	req := models.CreatePriceRequest{
		ProductID:     int64(parseNumber(f.values[PriceProductID])),
		Price:         parseNumber(f.values[PriceValue]),
		EffectiveFrom: strings.TrimSpace(f.values[PriceEffectiveFrom]),
	}
	if to := strings.TrimSpace(f.values[PriceEffectiveTo]); to != "" {
		req.EffectiveTo = &to
	}
	return req
}

// Submit validates the draft and upserts the price. On success the form is
// reset and the price lists of the supplier are invalidated.
func (f *PriceForm) Submit(ctx context.Context) (*models.PriceResponse, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.serverError = ""
	if !f.validateLocked() {
		f.mu.Unlock()
		return nil, ErrInvalid
	}
	req := f.requestLocked()
	f.submitting = true
	f.mu.Unlock()

	price, err := f.prices.UpsertPrice(ctx, f.supplierID, req)

	f.mu.Lock()
	f.submitting = false
	var fail failure
	if err != nil {
		fail = describeFailure(err)
		if fail.fieldErrors != nil {
			f.fieldErrors = fail.fieldErrors
		}
		f.serverError = fail.messageOr("An unexpected error occurred.")
	} else {
		f.values = make(map[PriceField]string)
		f.fieldErrors = FieldErrors{}
	}
	f.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Int64("supplier_id", f.supplierID).Int64("product_id", req.ProductID).Msg("Failed to save price")
		f.deps.Notifier.Notify(ctx, failed(fail.messageOr("Failed to add price.")))
		return nil, err
	}

	log.Info().Int64("supplier_id", f.supplierID).Int64("price_id", price.ID).Msg("Price saved")
	f.deps.Notifier.Notify(ctx, success("Price added successfully!"))
	f.deps.invalidatePrices(ctx, f.supplierID)
	return price, nil
}

// PriceList shows and deletes the prices of one supplier
type PriceList struct {
	prices        PriceService
	store         *cache.Store
	supplierID    int64
	productFilter *int64
	deps          Deps

	mu       sync.Mutex
	deleting int64
}

// NewPriceList creates the price list of supplierID. A non-positive
// productFilter lists every product.
func NewPriceList(prices PriceService, supplierID int64, productFilter *int64, deps Deps) (*PriceList, error) {
	if supplierID <= 0 {
		return nil, ErrNoSupplier
	}
	deps = deps.withDefaults()
	store := deps.Cache
	if store == nil {
		store = cache.NewStore(config.CacheConfig{}, nil)
		deps.Cache = store
	}
	return &PriceList{
		prices:        prices,
		store:         store,
		supplierID:    supplierID,
		productFilter: normalizeFilter(productFilter),
		deps:          deps,
	}, nil
}

// Key is the cache key of the list
func (l *PriceList) Key() string {
	return cache.PricesKey(l.supplierID, l.productFilter)
}

// Load returns the prices through the cache
func (l *PriceList) Load(ctx context.Context) ([]models.PriceResponse, error) {
	return cache.Fetch(ctx, l.store, l.Key(), func(ctx context.Context) ([]models.PriceResponse, error) {
		return l.prices.ListPrices(ctx, l.supplierID, l.productFilter)
	})
}

// LoadActive returns the prices in effect today through the cache
func (l *PriceList) LoadActive(ctx context.Context) ([]models.PriceResponse, error) {
	return cache.Fetch(ctx, l.store, cache.ActivePricesKey(l.supplierID), func(ctx context.Context) ([]models.PriceResponse, error) {
		return l.prices.ListActivePrices(ctx, l.supplierID)
	})
}

// State returns the cache state of the list
func (l *PriceList) State() cache.State {
	return l.store.State(l.Key())
}

// Deleting returns the id of the price being deleted, 0 when none
func (l *PriceList) Deleting() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deleting
}

// Delete removes a price. On success every price list of the supplier is
// invalidated so the next Load refetches it.
func (l *PriceList) Delete(ctx context.Context, priceID int64) error {
	if priceID <= 0 {
		return errors.Wrapf(ErrInvalid, "price id %d", priceID)
	}

	l.mu.Lock()
	if l.deleting != 0 {
		l.mu.Unlock()
		return ErrSubmitting
	}
	l.deleting = priceID
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.deleting = 0
		l.mu.Unlock()
	}()

	if err := l.prices.DeletePrice(ctx, l.supplierID, priceID); err != nil {
		log.Error().Err(err).Int64("supplier_id", l.supplierID).Int64("price_id", priceID).Msg("Failed to delete price")
		l.deps.Notifier.Notify(ctx, failed(describeFailure(err).messageOr("Failed to delete price.")))
		return err
	}

	log.Info().Int64("supplier_id", l.supplierID).Int64("price_id", priceID).Msg("Price deleted")
	l.deps.Notifier.Notify(ctx, success("Price deleted successfully."))
	l.deps.invalidatePrices(ctx, l.supplierID)
	return nil
}

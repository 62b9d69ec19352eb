package forms

import (
	"context"
	"strings"
	"sync"
	"time"

	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/models"

	"github.com/rs/zerolog/log"
)

// deliveryDateLayout is the backend's timezone-naive LocalDateTime format
const deliveryDateLayout = "2006-01-02T15:04:05.000"

// Layouts accepted for a typed delivery date
var deliveryDateInputs = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ItemField names an editable field of a delivery item
type ItemField string

// Item fields
const (
	ItemProductID ItemField = "productId"
	ItemWeight    ItemField = "weight"
)

// ItemDraft is an item as typed. Values are already coerced: blank is 0 and
// non-numeric text is NaN.
type ItemDraft struct {
	ProductID float64 `json:"productId"`
	Weight    float64 `json:"weight"`
}

// DeliveryForm holds the draft of a new delivery and submits it
type DeliveryForm struct {
	creator DeliveryCreator
	deps    Deps

	mu           sync.Mutex
	supplierID   string
	deliveryDate string
	items        []ItemDraft
	fieldErrors  FieldErrors
	submitting   bool
	serverError  string
}

// NewDeliveryForm creates a form with one empty item
func NewDeliveryForm(creator DeliveryCreator, deps Deps) *DeliveryForm {
	return &DeliveryForm{
		creator:     creator,
		deps:        deps.withDefaults(),
		items:       []ItemDraft{{}},
		fieldErrors: FieldErrors{},
	}
}

// SetSupplierID sets the raw supplier id
func (f *DeliveryForm) SetSupplierID(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supplierID = raw
}

// SetDeliveryDate sets the raw delivery date; blank lets the backend stamp it
func (f *DeliveryForm) SetDeliveryDate(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveryDate = raw
}

// AddItem appends an empty item
func (f *DeliveryForm) AddItem() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, ItemDraft{})
}

// RemoveItem removes the item at index. The last remaining item cannot be
// removed, and an out of range index is ignored.
func (f *DeliveryForm) RemoveItem(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) <= 1 || index < 0 || index >= len(f.items) {
		return
	}
	f.items = append(f.items[:index:index], f.items[index+1:]...)
}

// UpdateItem coerces raw to a number and sets it on the item at index
func (f *DeliveryForm) UpdateItem(index int, field ItemField, raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if index < 0 || index >= len(f.items) {
		return
	}
	switch field {
	case ItemProductID:
		f.items[index].ProductID = parseNumber(raw)
	case ItemWeight:
		f.items[index].Weight = parseNumber(raw)
	}
}

// SupplierID returns the raw supplier id
func (f *DeliveryForm) SupplierID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.supplierID
}

// DeliveryDate returns the raw delivery date
func (f *DeliveryForm) DeliveryDate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deliveryDate
}

// Items returns a copy of the item drafts
func (f *DeliveryForm) Items() []ItemDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ItemDraft(nil), f.items...)
}

// FieldErrors returns a copy of the current field errors
func (f *DeliveryForm) FieldErrors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fieldErrors.clone()
}

// Submitting reports whether a submission is in flight
func (f *DeliveryForm) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// ServerError returns the message of the last failed submission
func (f *DeliveryForm) ServerError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.serverError
}

// Validate checks the draft and replaces the field errors with the outcome.
// It returns true when there are none.
func (f *DeliveryForm) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *DeliveryForm) validateLocked() bool {
	input := deliveryInput{
		SupplierID: parseNumber(f.supplierID),
		Items:      make([]itemInput, len(f.items)),
	}
	for i, item := range f.items {
		input.Items[i] = itemInput(item)
	}

	fieldErrors := validateInput(input)
	if _, err := f.parseDeliveryDate(); err != nil {
		fieldErrors["deliveryDate"] = fieldMessages["deliveryDate"]
	}

	f.fieldErrors = fieldErrors
	return len(fieldErrors) == 0
}

// parseDeliveryDate interprets the typed date as wall-clock time in the
// form's location. It returns nil for a blank date.
func (f *DeliveryForm) parseDeliveryDate() (*string, error) {
	raw := strings.TrimSpace(f.deliveryDate)
	if raw == "" {
		return nil, nil
	}

	var lastErr error
	for _, layout := range deliveryDateInputs {
		t, err := time.ParseInLocation(layout, raw, f.deps.Location)
		if err != nil {
			lastErr = err
			continue
		}
		formatted := t.UTC().Format(deliveryDateLayout)
		return &formatted, nil
	}
	return nil, lastErr
}

// Request builds the wire request from the current draft. It does not validate.
func (f *DeliveryForm) Request() models.CreateDeliveryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requestLocked()
}

func (f *DeliveryForm) requestLocked() models.CreateDeliveryRequest {
	req := models.CreateDeliveryRequest{
		SupplierID: int64(parseNumber(f.supplierID)),
		Items:      make([]models.DeliveryItemRequest, len(f.items)),
	}
	for i, item := range f.items {
		req.Items[i] = models.DeliveryItemRequest{
			ProductID: int64(item.ProductID),
			Weight:    item.Weight,
		}
	}
	if date, err := f.parseDeliveryDate(); err == nil {
		req.DeliveryDate = date
	}
	return req
}

// Submit validates the draft and creates the delivery. Invalid drafts return
// ErrInvalid without calling the backend. On success the delivery lists are
// invalidated and the console navigates to the new delivery.
func (f *DeliveryForm) Submit(ctx context.Context) (*models.DeliveryResponse, error) {
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

	delivery, err := f.creator.CreateDelivery(ctx, req)

	f.mu.Lock()
	f.submitting = false
	var fail failure
	if err != nil {
		fail = describeFailure(err)
		if fail.fieldErrors != nil {
			f.fieldErrors = fail.fieldErrors
		}
		f.serverError = fail.messageOr("An unexpected error occurred.")
	}
	f.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Int64("supplier_id", req.SupplierID).Msg("Failed to create delivery")
		f.deps.Notifier.Notify(ctx, failed(fail.messageOr("Failed to create delivery.")))
		return nil, err
	}

	log.Info().Int64("delivery_id", delivery.ID).Str("delivery_number", delivery.DeliveryNumber).Msg("Delivery created")
	f.deps.Notifier.Notify(ctx, success("Delivery created successfully!"))
	f.deps.invalidate(ctx, cache.DeliveriesKey(), cache.SupplierDeliveriesKey(req.SupplierID))
	f.deps.Navigator.Navigate(DeliveryPath(delivery.ID))
	return delivery, nil
}

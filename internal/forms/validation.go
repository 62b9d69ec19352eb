package forms

import (
	"fmt"
	"math"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var nan = math.NaN()

// maxIdentifier is the largest id a draft may carry, 2^53-1, so every
// accepted id converts to int64 exactly
const maxIdentifier = 1<<53 - 1

var validate *validator.Validate

var itemNamespace = regexp.MustCompile(`\.items\[(\d+)\]\.(\w+)$`)

var fieldMessages = map[string]string{
	"supplierId":    "Supplier ID is required and must be a positive whole number.",
	"deliveryDate":  "Delivery date must be a valid date and time.",
	"items":         "At least one item is required.",
	"productId":     "Product ID must be a positive whole number.",
	"weight":        "Weight must be a number greater than 0.001 kg.",
	"price":         "Price must be a number greater than 0.",
	"effectiveFrom": "Effective from date is required.",
	"startDate":     "Start date is required in YYYY-MM-DD format.",
	"endDate":       "End date is required in YYYY-MM-DD format.",
	"format":        "Format must be one of JSON, PDF or CSV.",
}

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("field"); name != "" {
			return name
		}
		return field.Name
	})
	_ = validate.RegisterValidation("whole", func(fl validator.FieldLevel) bool {
		v := fl.Field().Float()
		return !math.IsInf(v, 0) && v == math.Trunc(v) && v <= maxIdentifier
	})
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		v := fl.Field().Float()
		return !math.IsInf(v, 0) && !math.IsNaN(v)
	})
}

type deliveryInput struct {
	SupplierID float64     `field:"supplierId" validate:"gt=0,whole"`
	Items      []itemInput `field:"items" validate:"min=1,dive"`
}

type itemInput struct {
	ProductID float64 `field:"productId" validate:"gt=0,whole"`
	Weight    float64 `field:"weight" validate:"gt=0.001,finite"`
}

type priceInput struct {
	ProductID     float64 `field:"productId" validate:"gt=0,whole"`
	Price         float64 `field:"price" validate:"gt=0,finite"`
	EffectiveFrom string  `field:"effectiveFrom" validate:"required"`
}

type reportInput struct {
	StartDate string `field:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `field:"endDate" validate:"required,datetime=2006-01-02"`
	Format    string `field:"format" validate:"oneof=JSON PDF CSV"`
}

// validateInput runs struct validation and keys each failure the way the
// console's field errors are keyed
func validateInput(input interface{}) FieldErrors {
	fieldErrors := FieldErrors{}

	err := validate.Struct(input)
	if err == nil {
		return fieldErrors
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		fieldErrors["form"] = err.Error()
		return fieldErrors
	}

	for _, fe := range validationErrors {
		key := fieldKey(fe)
		if _, exists := fieldErrors[key]; exists {
			continue
		}
		fieldErrors[key] = fieldMessage(fe)
	}
	return fieldErrors
}

// fieldKey names item fields item_{index}_{field}
func fieldKey(fe validator.FieldError) string {
	if m := itemNamespace.FindStringSubmatch(fe.Namespace()); m != nil {
		return fmt.Sprintf("item_%s_%s", m[1], m[2])
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()]; ok {
		return msg
	}
	return fmt.Sprintf("%s failed the %s check.", fe.Field(), fe.Tag())
}

package models

// DeliveryStatus is the backend's delivery status. The set of values is open:
// anything the console does not recognise is rendered as-is.
type DeliveryStatus string

// Known delivery statuses
const (
	StatusCreated   DeliveryStatus = "CREATED"
	StatusDelivered DeliveryStatus = "DELIVERED"
	StatusCancelled DeliveryStatus = "CANCELLED"
)

// StatusVariant is the badge style a status is rendered with
type StatusVariant string

// Badge variants
const (
	VariantSecondary   StatusVariant = "secondary"
	VariantDefault     StatusVariant = "default"
	VariantDestructive StatusVariant = "destructive"
	VariantOutline     StatusVariant = "outline"
)

// Known reports whether the status is one the console has a label for
func (s DeliveryStatus) Known() bool {
	switch s {
	case StatusCreated, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Label returns the human readable status
func (s DeliveryStatus) Label() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	case "":
		return "unknown"
	default:
		return string(s)
	}
}

// Variant returns the badge variant for the status
func (s DeliveryStatus) Variant() StatusVariant {
	switch s {
	case StatusCreated:
		return VariantSecondary
	case StatusDelivered:
		return VariantDefault
	case StatusCancelled:
		return VariantDestructive
	default:
		return VariantOutline
	}
}

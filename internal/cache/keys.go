package cache

import "fmt"

// DeliveriesKey identifies the list of all deliveries
func DeliveriesKey() string {
	return "deliveries"
}

// DeliveryKey identifies a single delivery
func DeliveryKey(id int64) string {
	return fmt.Sprintf("delivery-%d", id)
}

// SupplierDeliveriesKey identifies a supplier's deliveries
func SupplierDeliveriesKey(supplierID int64) string {
	return fmt.Sprintf("deliveries-supplier-%d", supplierID)
}

// PricesKey identifies a supplier's price list. A nil or non-positive
// product filter means the unfiltered list.
func PricesKey(supplierID int64, productID *int64) string {
	if productID != nil && *productID > 0 {
		return fmt.Sprintf("prices-%d-%d", supplierID, *productID)
	}
	return fmt.Sprintf("prices-%d", supplierID)
}

// SupplierPricesPatterns match every price list of a supplier, filtered or
// not, in the glob syntax of InvalidatePattern
func SupplierPricesPatterns(supplierID int64) []string {
	base := PricesKey(supplierID, nil)
	return []string{base, base + "-*"}
}

// ActivePricesKey identifies the prices a supplier has in effect today
func ActivePricesKey(supplierID int64) string {
	return fmt.Sprintf("prices-active-%d", supplierID)
}

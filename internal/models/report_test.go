package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryReportFollowsResponseFlag(t *testing.T) {
	body := `{
		"startDate": "2024-01-01",
		"endDate": "2024-01-31",
		"detailed": false,
		"summaryItems": [
			{"supplierName": "Orchard", "productType": "APPLE", "variety": "Gala", "totalWeight": 100, "totalCost": 250},
			{"supplierName": "Grove", "productType": "PEAR", "variety": "Conference", "totalWeight": 0, "totalCost": 0}
		],
		"detailedItems": null,
		"totalWeight": 100,
		"totalCost": 250
	}`

	var wire DeliveryReport
	require.NoError(t, json.Unmarshal([]byte(body), &wire))

	report := wire.Report()
	assert.Equal(t, ReportSummary, report.Kind())

	items, ok := report.SummaryItems()
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, "2.5", items[0].AveragePrice().String())
	assert.True(t, items[1].AveragePrice().IsZero())

	_, ok = report.DetailedItems()
	assert.False(t, ok)
	assert.Equal(t, 2, report.SupplierCount())
	assert.Equal(t, 2, report.ProductTypeCount())
}

func TestDetailedReportWithNullItemsIsEmpty(t *testing.T) {
	wire := DeliveryReport{Detailed: true, TotalWeight: decimal.Zero, TotalCost: decimal.Zero}

	report := wire.Report()
	items, ok := report.DetailedItems()
	require.True(t, ok)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.True(t, report.AveragePrice().IsZero())
}

func TestReportMarshalPopulatesOneLayout(t *testing.T) {
	report := NewDetailedReport("2024-01-01", "2024-01-31", []DetailedItem{{
		SupplierName:   "Orchard",
		DeliveryNumber: "DLV-1",
		Weight:         decimal.RequireFromString("25.5"),
		UnitPrice:      decimal.RequireFromString("2"),
		TotalPrice:     decimal.RequireFromString("51"),
	}}, decimal.RequireFromString("25.5"), decimal.RequireFromString("51"))

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, true, raw["detailed"])
	assert.Nil(t, raw["summaryItems"])
	assert.Len(t, raw["detailedItems"], 1)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ReportDetailed, decoded.Kind())
	assert.Equal(t, 1, decoded.Len())
}

func TestParseReportFormat(t *testing.T) {
	f, err := ParseReportFormat(" pdf ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "pdf", f.Extension())
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseReportFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDeliveryStatusRendering(t *testing.T) {
	assert.Equal(t, "Delivered", StatusDelivered.Label())
	assert.Equal(t, VariantDestructive, StatusCancelled.Variant())

	unknown := DeliveryStatus("IN_TRANSIT")
	assert.False(t, unknown.Known())
	assert.Equal(t, "IN_TRANSIT", unknown.Label())
	assert.Equal(t, VariantOutline, unknown.Variant())
	assert.Equal(t, "unknown", DeliveryStatus("").Label())
}

func TestCreatePriceRequestEncodesNullEffectiveTo(t *testing.T) {
	data, err := json.Marshal(CreatePriceRequest{ProductID: 5, Price: 2.5, EffectiveFrom: "2024-01-01"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"productId":5,"price":2.5,"effectiveFrom":"2024-01-01","effectiveTo":null}`, string(data))
}

func TestCreateDeliveryRequestOmitsBlankDate(t *testing.T) {
	data, err := json.Marshal(CreateDeliveryRequest{
		SupplierID: 1,
		Items:      []DeliveryItemRequest{{ProductID: 10, Weight: 25.5}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"supplierId":1,"items":[{"productId":10,"weight":25.5}]}`, string(data))
}

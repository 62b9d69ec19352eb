package models

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DateLayout is the date-only format used by report and price dates
const DateLayout = "2006-01-02"

// ReportFormat selects the representation the backend renders a report in
type ReportFormat string

// Supported report formats
const (
	FormatJSON ReportFormat = "JSON"
	FormatPDF  ReportFormat = "PDF"
	FormatCSV  ReportFormat = "CSV"
)

// ErrUnknownFormat is returned for report formats other than JSON, PDF and CSV
var ErrUnknownFormat = errors.New("unknown report format")

// ParseReportFormat parses a report format case-insensitively
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToUpper(strings.TrimSpace(s))); f {
	case FormatJSON, FormatPDF, FormatCSV:
		return f, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
}

// Extension returns the file extension for downloads in this format
func (f ReportFormat) Extension() string {
	return strings.ToLower(string(f))
}

// ContentType returns the MIME type of the format
func (f ReportFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/json"
	}
}

// ReportParams are the query parameters of GET /api/v1/reports
type ReportParams struct {
	StartDate string       `json:"startDate" form:"startDate"`
	EndDate   string       `json:"endDate" form:"endDate"`
	Detailed  bool         `json:"detailed" form:"detailed"`
	Format    ReportFormat `json:"format" form:"format"`
}

// SummaryItem is one supplier/product type/variety group of a summary report
type SummaryItem struct {
	SupplierName string          `json:"supplierName"`
	ProductType  string          `json:"productType"`
	Variety      string          `json:"variety"`
	TotalWeight  decimal.Decimal `json:"totalWeight"`
	TotalCost    decimal.Decimal `json:"totalCost"`
}

// AveragePrice is the cost per kilogram of the group, zero when nothing was weighed
func (s SummaryItem) AveragePrice() decimal.Decimal {
	return averagePrice(s.TotalCost, s.TotalWeight)
}

// DetailedItem is one delivery line of a detailed report
type DetailedItem struct {
	SupplierName   string          `json:"supplierName"`
	DeliveryNumber string          `json:"deliveryNumber"`
	DeliveryDate   string          `json:"deliveryDate"`
	ProductName    string          `json:"productName"`
	ProductType    string          `json:"productType"`
	Variety        string          `json:"variety"`
	Weight         decimal.Decimal `json:"weight"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
}

// DeliveryReport is the JSON report as sent by the backend. Exactly one of
// SummaryItems and DetailedItems is populated, selected by Detailed.
type DeliveryReport struct {
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	Detailed      bool            `json:"detailed"`
	SummaryItems  []SummaryItem   `json:"summaryItems"`
	DetailedItems []DetailedItem  `json:"detailedItems"`
	TotalWeight   decimal.Decimal `json:"totalWeight"`
	TotalCost     decimal.Decimal `json:"totalCost"`
}

// ReportKind tells which layout a Report carries
type ReportKind int

// Report kinds
const (
	ReportSummary ReportKind = iota
	ReportDetailed
)

func (k ReportKind) String() string {
	if k == ReportDetailed {
		return "detailed"
	}
	return "summary"
}

// Report is a delivery report holding either summary or detailed rows, never both
type Report struct {
	StartDate   string
	EndDate     string
	TotalWeight decimal.Decimal
	TotalCost   decimal.Decimal

	kind     ReportKind
	summary  []SummaryItem
	detailed []DetailedItem
}

// NewSummaryReport builds a summary report
func NewSummaryReport(startDate, endDate string, items []SummaryItem, totalWeight, totalCost decimal.Decimal) Report {
	if items == nil {
		items = []SummaryItem{}
	}
	return Report{
		StartDate:   startDate,
		EndDate:     endDate,
		TotalWeight: totalWeight,
		TotalCost:   totalCost,
		kind:        ReportSummary,
		summary:     items,
	}
}

// NewDetailedReport builds a detailed report
func NewDetailedReport(startDate, endDate string, items []DetailedItem, totalWeight, totalCost decimal.Decimal) Report {
	if items == nil {
		items = []DetailedItem{}
	}
	return Report{
		StartDate:   startDate,
		EndDate:     endDate,
		TotalWeight: totalWeight,
		TotalCost:   totalCost,
		kind:        ReportDetailed,
		detailed:    items,
	}
}

// Report converts the wire report into its variant. The layout follows the
// response's detailed flag, not the flag the report was requested with.
func (r DeliveryReport) Report() Report {
	if r.Detailed {
		return NewDetailedReport(r.StartDate, r.EndDate, r.DetailedItems, r.TotalWeight, r.TotalCost)
	}
	return NewSummaryReport(r.StartDate, r.EndDate, r.SummaryItems, r.TotalWeight, r.TotalCost)
}

// Kind returns the layout of the report
func (r Report) Kind() ReportKind {
	return r.kind
}

// SummaryItems returns the summary rows; ok is false for detailed reports
func (r Report) SummaryItems() ([]SummaryItem, bool) {
	return r.summary, r.kind == ReportSummary
}

// DetailedItems returns the detailed rows; ok is false for summary reports
func (r Report) DetailedItems() ([]DetailedItem, bool) {
	return r.detailed, r.kind == ReportDetailed
}

// Len returns the number of rows
func (r Report) Len() int {
	if r.kind == ReportDetailed {
		return len(r.detailed)
	}
	return len(r.summary)
}

// AveragePrice is the overall cost per kilogram, zero for an empty report
func (r Report) AveragePrice() decimal.Decimal {
	return averagePrice(r.TotalCost, r.TotalWeight)
}

// SupplierCount returns the number of distinct suppliers in the report
func (r Report) SupplierCount() int {
	seen := make(map[string]struct{})
	for _, item := range r.summary {
		seen[item.SupplierName] = struct{}{}
	}
	for _, item := range r.detailed {
		seen[item.SupplierName] = struct{}{}
	}
	return len(seen)
}

// ProductTypeCount returns the number of distinct product types in the report
func (r Report) ProductTypeCount() int {
	seen := make(map[string]struct{})
	for _, item := range r.summary {
		seen[item.ProductType] = struct{}{}
	}
	for _, item := range r.detailed {
		seen[item.ProductType] = struct{}{}
	}
	return len(seen)
}

// Wire converts the report back to the backend's JSON shape
func (r Report) Wire() DeliveryReport {
	wire := DeliveryReport{
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Detailed:    r.kind == ReportDetailed,
		TotalWeight: r.TotalWeight,
		TotalCost:   r.TotalCost,
	}
	if wire.Detailed {
		wire.DetailedItems = r.detailed
	} else {
		wire.SummaryItems = r.summary
	}
	return wire
}

// MarshalJSON encodes the report in the backend's JSON shape
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Wire())
}

// UnmarshalJSON decodes a report from the backend's JSON shape
func (r *Report) UnmarshalJSON(data []byte) error {
	var wire DeliveryReport
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = wire.Report()
	return nil
}

func averagePrice(cost, weight decimal.Decimal) decimal.Decimal {
	if weight.IsZero() {
		return decimal.Zero
	}
	return cost.DivRound(weight, 2)
}

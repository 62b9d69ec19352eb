package views

import (
	"encoding/json"
	"fmt"
	"io"

	"example.com/backstage/services/procurement/internal/models"
)

// RenderReport writes the report table in the layout the report carries,
// followed by its totals
func RenderReport(w io.Writer, report models.Report) error {
	fmt.Fprintf(w, "Report %s to %s (%s)\n\n", report.StartDate, report.EndDate, report.Kind())

	if report.Len() == 0 {
		fmt.Fprintln(w, "No deliveries in this period.")
	} else {
		tw := newTable(w)
		if items, ok := report.DetailedItems(); ok {
			fmt.Fprintln(tw, "SUPPLIER\tDELIVERY\tDATE\tPRODUCT\tTYPE\tVARIETY\tWEIGHT\tUNIT PRICE\tTOTAL")
			for _, item := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					item.SupplierName,
					item.DeliveryNumber,
					FormatDateTime(item.DeliveryDate),
					item.ProductName,
					item.ProductType,
					item.Variety,
					FormatWeight(item.Weight),
					FormatMoney(item.UnitPrice),
					FormatMoney(item.TotalPrice),
				)
			}
		}
		if items, ok := report.SummaryItems(); ok {
			fmt.Fprintln(tw, "SUPPLIER\tTYPE\tVARIETY\tWEIGHT\tCOST\tAVG PRICE/KG")
			for _, item := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					item.SupplierName,
					item.ProductType,
					item.Variety,
					FormatWeight(item.TotalWeight),
					FormatMoney(item.TotalCost),
					FormatMoney(item.AveragePrice()),
				)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	tw := newTable(w)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Total weight\t%s\n", FormatWeight(report.TotalWeight))
	fmt.Fprintf(tw, "Total cost\t%s\n", FormatMoney(report.TotalCost))
	fmt.Fprintf(tw, "Average price/kg\t%s\n", FormatMoney(report.AveragePrice()))
	fmt.Fprintf(tw, "Suppliers\t%s\n", FormatCount(report.SupplierCount()))
	fmt.Fprintf(tw, "Product types\t%s\n", FormatCount(report.ProductTypeCount()))
	return tw.Flush()
}

// RenderRawJSON writes the report in the backend's JSON shape, indented
func RenderRawJSON(w io.Writer, report models.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

package views

import (
	"fmt"
	"io"
	"text/tabwriter"

	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/models"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Badge renders a delivery status label
func Badge(status models.DeliveryStatus) string {
	return fmt.Sprintf("[%s]", status.Label())
}

// RenderFetchState writes the loading or error line of a cache entry. It
// returns true when the entry holds data to render.
func RenderFetchState(w io.Writer, state cache.State) (bool, error) {
	switch {
	case state.IsLoading && state.Data == nil:
		_, err := fmt.Fprintln(w, "Loading...")
		return false, err
	case state.Err != nil:
		_, err := fmt.Fprintf(w, "Error: %v\n", state.Err)
		return state.Data != nil, err
	case state.Data == nil:
		_, err := fmt.Fprintln(w, "No data.")
		return false, err
	}
	return true, nil
}

// RenderDeliveryList writes the deliveries as a table
func RenderDeliveryList(w io.Writer, deliveries []models.DeliveryListItem) error {
	if len(deliveries) == 0 {
		_, err := fmt.Fprintln(w, "No deliveries yet.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNUMBER\tSUPPLIER\tDATE\tSTATUS\tWEIGHT\tCOST")
	for _, d := range deliveries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID,
			d.DeliveryNumber,
			d.SupplierName,
			FormatDateTime(d.DeliveryDate),
			Badge(d.Status),
			FormatWeight(d.TotalWeight),
			FormatMoney(d.TotalCost),
		)
	}
	return tw.Flush()
}

// RenderDelivery writes a delivery header followed by its items
func RenderDelivery(w io.Writer, d *models.DeliveryResponse) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Delivery\t%s\n", d.DeliveryNumber)
	fmt.Fprintf(tw, "Supplier\t%s (#%d)\n", d.SupplierName, d.SupplierID)
	fmt.Fprintf(tw, "Date\t%s\n", FormatDateTime(d.DeliveryDate))
	fmt.Fprintf(tw, "Status\t%s\n", Badge(d.Status))
	fmt.Fprintf(tw, "Total weight\t%s\n", FormatWeight(d.TotalWeight))
	fmt.Fprintf(tw, "Total cost\t%s\n", FormatMoney(d.TotalCost))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tTYPE\tVARIETY\tWEIGHT\tUNIT PRICE\tTOTAL")
	for _, item := range d.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			item.ProductName,
			item.ProductType,
			item.Variety,
			FormatWeight(item.Weight),
			FormatMoney(item.UnitPrice),
			FormatMoney(item.TotalPrice),
		)
	}
	fmt.Fprintf(tw, "\t\t\t\tTotal\t%s\n", FormatMoney(d.TotalCost))
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nCreated: %s\n", FormatDateTime(d.CreatedAt))
	return err
}

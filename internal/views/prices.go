package views

import (
	"fmt"
	"io"

	"example.com/backstage/services/procurement/internal/models"
)

// RenderPriceList writes a supplier's prices as a table
func RenderPriceList(w io.Writer, prices []models.PriceResponse) error {
	if len(prices) == 0 {
		_, err := fmt.Fprintln(w, "No prices found.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPRODUCT\tTYPE\tVARIETY\tPRICE\tFROM\tTO")
	for _, p := range prices {
		fmt.Fprintf(tw, "%d\t%s (#%d)\t%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			p.ProductName,
			p.ProductID,
			p.ProductType,
			p.Variety,
			FormatMoney(p.Price),
			FormatDate(&p.EffectiveFrom),
			FormatDate(p.EffectiveTo),
		)
	}
	return tw.Flush()
}

package cmd

import (
	"strconv"

	"example.com/backstage/services/procurement/internal/forms"
	"example.com/backstage/services/procurement/internal/models"
	"example.com/backstage/services/procurement/internal/views"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	priceSupplierID int64
	priceProductID  int64
	priceActive     bool
	priceValue      string
	priceFrom       string
	priceTo         string
	priceFilterID   int64
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Maintain supplier product prices",
}

var pricesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a supplier's prices",
	Args:  cobra.NoArgs,
	RunE:  runPricesList,
}

var pricesAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a supplier price with its effective window",
	Example: `  procurement prices add --supplier 1 --product 5 --price 120.50 --from 2024-01-01`,
	Args:    cobra.NoArgs,
	RunE:    runPricesAdd,
}

var pricesDeleteCmd = &cobra.Command{
	Use:   "delete PRICE_ID",
	Short: "Delete a supplier price",
	Args:  cobra.ExactArgs(1),
	RunE:  runPricesDelete,
}

func init() {
	pricesCmd.PersistentFlags().Int64Var(&priceSupplierID, "supplier", 0, "supplier id")

	pricesListCmd.Flags().Int64Var(&priceProductID, "product", 0, "only prices of this product")
	pricesListCmd.Flags().BoolVar(&priceActive, "active", false, "only prices in effect today")

	pricesAddCmd.Flags().Int64Var(&priceProductID, "product", 0, "product id")
	pricesAddCmd.Flags().StringVar(&priceValue, "price", "", "price per kilogram")
	pricesAddCmd.Flags().StringVar(&priceFrom, "from", "", "first day the price is effective, YYYY-MM-DD")
	pricesAddCmd.Flags().StringVar(&priceTo, "to", "", "last day the price is effective, YYYY-MM-DD (open-ended when omitted)")
	pricesAddCmd.Flags().Int64Var(&priceFilterID, "filter", 0, "product filter of the list to refresh")

	pricesCmd.AddCommand(pricesListCmd, pricesAddCmd, pricesDeleteCmd)
	rootCmd.AddCommand(pricesCmd)
}

// productFilter returns nil for an unset filter
func productFilter(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func runPricesList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := forms.NewPriceList(a.client, priceSupplierID, productFilter(priceProductID), a.deps(nil))
	if err != nil {
		return err
	}

	load := list.Load
	if priceActive {
		load = list.LoadActive
	}
	prices, err := load(cmd.Context())
	if err != nil {
		_, _ = views.RenderFetchState(cmd.OutOrStdout(), list.State())
		return err
	}
	return views.RenderPriceList(cmd.OutOrStdout(), prices)
}

func runPricesAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	form, err := forms.NewPriceForm(a.client, priceSupplierID, productFilter(priceFilterID), a.deps(nil))
	if err != nil {
		return err
	}
	if priceProductID != 0 {
		form.Set(forms.PriceProductID, strconv.FormatInt(priceProductID, 10))
	}
	form.Set(forms.PriceValue, priceValue)
	form.Set(forms.PriceEffectiveFrom, priceFrom)
	form.Set(forms.PriceEffectiveTo, priceTo)

	price, err := form.Submit(cmd.Context())
	if err != nil {
		if fieldErrors := form.FieldErrors(); len(fieldErrors) > 0 {
			cmd.PrintErrln("The price was not added:")
			printFieldErrors(cmd, fieldErrors)
		}
		return err
	}
	return views.RenderPriceList(cmd.OutOrStdout(), []models.PriceResponse{*price})
}

func runPricesDelete(cmd *cobra.Command, args []string) error {
	priceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || priceID <= 0 {
		return errors.Errorf("invalid price id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := forms.NewPriceList(a.client, priceSupplierID, nil, a.deps(nil))
	if err != nil {
		return err
	}
	return list.Delete(cmd.Context(), priceID)
}

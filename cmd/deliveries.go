package cmd

import (
	"context"
	"strconv"
	"strings"

	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/forms"
	"example.com/backstage/services/procurement/internal/models"
	"example.com/backstage/services/procurement/internal/views"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	deliverySupplierID int64
	deliveryDate       string
	deliveryItems      []string
)

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "List, inspect and record deliveries",
}

var deliveriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deliveries, optionally of one supplier",
	Args:  cobra.NoArgs,
	RunE:  runDeliveriesList,
}

var deliveriesGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a delivery with its items",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeliveriesGet,
}

var deliveriesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a new delivery",
	Long: `Record a new delivery. Every --item is PRODUCT_ID:WEIGHT, weight in
kilograms. Without --date the backend stamps the delivery with the current time.`,
	Example: `  procurement deliveries create --supplier 1 --date 2024-01-15T10:00 --item 10:25.5 --item 11:3`,
	Args:    cobra.NoArgs,
	RunE:    runDeliveriesCreate,
}

func init() {
	deliveriesListCmd.Flags().Int64Var(&deliverySupplierID, "supplier", 0, "only deliveries of this supplier")

	deliveriesCreateCmd.Flags().Int64Var(&deliverySupplierID, "supplier", 0, "supplier id")
	deliveriesCreateCmd.Flags().StringVar(&deliveryDate, "date", "", "delivery date, YYYY-MM-DDTHH:MM in the configured timezone")
	deliveriesCreateCmd.Flags().StringArrayVar(&deliveryItems, "item", nil, "delivered product as PRODUCT_ID:WEIGHT (repeatable)")

	deliveriesCmd.AddCommand(deliveriesListCmd, deliveriesGetCmd, deliveriesCreateCmd)
	rootCmd.AddCommand(deliveriesCmd)
}

func runDeliveriesList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	key := cache.DeliveriesKey()
	fetch := a.client.ListDeliveries
	if deliverySupplierID > 0 {
		supplierID := deliverySupplierID
		key = cache.SupplierDeliveriesKey(supplierID)
		fetch = func(ctx context.Context) ([]models.DeliveryListItem, error) {
			return a.client.ListDeliveriesBySupplier(ctx, supplierID)
		}
	}

	deliveries, err := cache.Fetch(cmd.Context(), a.store, key, fetch)
	if err != nil {
		_, _ = views.RenderFetchState(cmd.OutOrStdout(), a.store.State(key))
		return err
	}
	return views.RenderDeliveryList(cmd.OutOrStdout(), deliveries)
}

func runDeliveriesGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return errors.Errorf("invalid delivery id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	key := cache.DeliveryKey(id)
	delivery, err := cache.Fetch(cmd.Context(), a.store, key, func(ctx context.Context) (*models.DeliveryResponse, error) {
		return a.client.GetDelivery(ctx, id)
	})
	if err != nil {
		_, _ = views.RenderFetchState(cmd.OutOrStdout(), a.store.State(key))
		return err
	}
	return views.RenderDelivery(cmd.OutOrStdout(), delivery)
}

func runDeliveriesCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	form := forms.NewDeliveryForm(a.client, a.deps(func(path string) {
		cmd.Printf("Open %s\n", path)
	}))
	if err := fillDeliveryForm(form, deliverySupplierID, deliveryDate, deliveryItems); err != nil {
		return err
	}

	delivery, err := form.Submit(cmd.Context())
	if err != nil {
		if fieldErrors := form.FieldErrors(); len(fieldErrors) > 0 {
			cmd.PrintErrln("The delivery was not created:")
			printFieldErrors(cmd, fieldErrors)
		}
		return err
	}
	return views.RenderDelivery(cmd.OutOrStdout(), delivery)
}

// fillDeliveryForm copies the command line draft into the form
func fillDeliveryForm(form *forms.DeliveryForm, supplierID int64, date string, items []string) error {
	if supplierID != 0 {
		form.SetSupplierID(strconv.FormatInt(supplierID, 10))
	}
	form.SetDeliveryDate(date)

	for i, raw := range items {
		productID, weight, err := parseItem(raw)
		if err != nil {
			return err
		}
		if i > 0 {
			form.AddItem()
		}
		form.UpdateItem(i, forms.ItemProductID, productID)
		form.UpdateItem(i, forms.ItemWeight, weight)
	}
	return nil
}

// parseItem splits PRODUCT_ID:WEIGHT. The values stay raw; the form
// validates them.
func parseItem(raw string) (string, string, error) {
	productID, weight, ok := strings.Cut(raw, ":")
	if !ok {
		return "", "", errors.Errorf("invalid item %q, expected PRODUCT_ID:WEIGHT", raw)
	}
	return strings.TrimSpace(productID), strings.TrimSpace(weight), nil
}

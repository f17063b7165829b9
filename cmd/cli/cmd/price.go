// Package cmd - price command
package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CMDAEW/isokalk/internal/catalog"
	"github.com/CMDAEW/isokalk/internal/pricing"
)

var (
	priceComponent  string
	priceDN         string
	priceDA         string
	priceSize       string
	priceActivity   string
	priceSurcharges []string
	priceQuantity   string
)

// priceCmd resolves a single position against the current catalog.
var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price one position against the catalog",
	Long: `Resolve a single position without touching any invoice. Diameters
and the quantity accept a decimal comma.

Examples:
  isokalk price --component "Rohrleitung" --dn 50 --da 60,3 --size 30 --activity Montage --quantity 2,5
  isokalk price --component "Behälter" --size 30 --activity Demontage --surcharge Erschwernis`,
	RunE: runPrice,
}

func init() {
	priceCmd.Flags().StringVarP(&priceComponent, "component", "c", "", "component name")
	priceCmd.Flags().StringVar(&priceDN, "dn", "", "nominal diameter")
	priceCmd.Flags().StringVar(&priceDA, "da", "", "outer diameter")
	priceCmd.Flags().StringVarP(&priceSize, "size", "s", "", "insulation size")
	priceCmd.Flags().StringVarP(&priceActivity, "activity", "a", "", "activity, e.g. Montage or Demontage")
	priceCmd.Flags().StringSliceVar(&priceSurcharges, "surcharge", nil, "surcharge name, repeatable")
	priceCmd.Flags().StringVarP(&priceQuantity, "quantity", "q", "1", "quantity in the entry's unit")
	priceCmd.MarkFlagRequired("component") //nolint:errcheck
}

func runPrice(cmd *cobra.Command, args []string) error {
	sel := pricing.Selection{
		Component:  priceComponent,
		Size:       priceSize,
		Activity:   priceActivity,
		Surcharges: priceSurcharges,
	}

	var err error
	if sel.NominalDiameter, err = parseDiameterFlag("dn", priceDN); err != nil {
		return err
	}
	if sel.OuterDiameter, err = parseDiameterFlag("da", priceDA); err != nil {
		return err
	}
	if sel.Quantity, err = pricing.ParseQuantity(priceQuantity); err != nil {
		return fmt.Errorf("quantity %q is not a positive number", priceQuantity)
	}

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	store, err := catalog.Load(database)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	line, err := pricing.Resolve(store, sel)
	if errors.Is(err, pricing.ErrIncompleteSelection) {
		return errors.New("selection is incomplete, specify at least component, size and activity (plus dn and da for dimensioned components)")
	}
	if err != nil {
		return err
	}

	currency := "EUR"
	fmt.Printf("Position %s  %s\n", line.PositionCode, describeLine(line))
	fmt.Printf("%s %s per %s x %g %s = %s %s\n",
		pricing.FormatAmount(line.UnitPrice), currency, line.Unit,
		line.Quantity, line.Unit,
		pricing.FormatAmount(line.Subtotal), currency)
	return nil
}

func describeLine(line pricing.Line) string {
	parts := []string{line.Component}
	if line.NominalDiameter != nil {
		parts = append(parts, fmt.Sprintf("DN %g", *line.NominalDiameter))
	}
	if line.OuterDiameter != nil {
		parts = append(parts, fmt.Sprintf("DA %g", *line.OuterDiameter))
	}
	parts = append(parts, line.Size, line.Activity)
	if len(line.Surcharges) > 0 {
		parts = append(parts, "+"+strings.Join(line.Surcharges, " +"))
	}
	return strings.Join(parts, " ")
}

func parseDiameterFlag(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("--%s %q is not a number", name, raw)
	}
	return &v, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"roofing-estimator/internal/config"
	"roofing-estimator/internal/models"
	"roofing-estimator/internal/services"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// newRootCmd собирает дерево команд. Вывод идет в out, цены пакетов берутся из pricing.
func newRootCmd(out io.Writer, pricing *config.PricingConfig) *cobra.Command {
	engine := services.NewPricingService(pricing)

	root := &cobra.Command{
		Use:   "estimator",
		Short: "Roof replacement estimates for three material tiers",
		Long: `estimator prices a roof replacement from its measurements.

Examples:
  estimator quote --area 2000 --pitch 8
  estimator quote --area 2000 --pitch 8 --eave 180 --ridge 40 --format json
  estimator quote --area 2000 --pitch 8 --months 60
  estimator edges --area 2000
  estimator tiers`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(newQuoteCmd(engine, services.NewFinancingService()))
	root.AddCommand(newEdgesCmd())
	root.AddCommand(newTiersCmd(engine))

	return root
}

type quoteOptions struct {
	area   float64
	pitch  int
	eave   int
	ridge  int
	months int
	format string
}

func newQuoteCmd(engine *services.PricingService, financing *services.FinancingService) *cobra.Command {
	opts := &quoteOptions{}

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a roof for the good, better and best tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd.OutOrStdout(), engine, financing, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.area, "area", 0, "total roof area in square feet")
	cmd.Flags().IntVar(&opts.pitch, "pitch", 0, "average pitch in inches of rise per 12 inches")
	cmd.Flags().IntVar(&opts.eave, "eave", 0, "measured eave length in feet (estimated when omitted)")
	cmd.Flags().IntVar(&opts.ridge, "ridge", 0, "measured ridge/valley length in feet (estimated when omitted)")
	cmd.Flags().IntVar(&opts.months, "months", 0, "show monthly payments for a financing term")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "output format (text, json)")
	_ = cmd.MarkFlagRequired("area")

	return cmd
}

func runQuote(out io.Writer, engine *services.PricingService, financing *services.FinancingService, opts *quoteOptions) error {
	if opts.area < 0 {
		return fmt.Errorf("area must not be negative")
	}
	if opts.pitch < 0 || opts.eave < 0 || opts.ridge < 0 {
		return fmt.Errorf("pitch and edge lengths must not be negative")
	}
	if err := validateFormat(opts.format); err != nil {
		return err
	}

	quote := engine.Quote(models.RoofGeometry{
		TotalRoofArea:     opts.area,
		AveragePitch:      opts.pitch,
		EaveLength:        opts.eave,
		RidgeValleyLength: opts.ridge,
	})

	var plan *models.FinancingResponse
	if opts.months > 0 {
		var err error
		plan, err = financing.Options(quote.Estimate.Pricing, opts.months)
		if err != nil {
			return err
		}
	}

	if opts.format == formatJSON {
		return writeJSON(out, struct {
			models.Quote
			Financing *models.FinancingResponse `json:"financing,omitempty"`
		}{quote, plan})
	}

	b := quote.Breakdown
	fmt.Fprintf(out, "Roof area:     %s sq ft at %s\n", humanize.Comma(int64(services.RoundHalfUp(b.BaseArea))), b.Pitch)
	fmt.Fprintf(out, "Adjusted area: %s sq ft (%g squares)\n", humanize.Comma(b.AdjustedArea), b.Squares)
	if b.PitchSurchargePercent > 0 {
		fmt.Fprintf(out, "Pitch surcharge: %d%%\n", b.PitchSurchargePercent)
	}
	edges := "measured"
	if b.EdgeLengthsApproximated {
		edges = "approximated"
	}
	fmt.Fprintf(out, "Eaves: %d ft, ridges/valleys: %d ft (%s)\n\n", b.EaveLength, b.RidgeValleyLength, edges)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if plan != nil {
		fmt.Fprintf(tw, "TIER\tPRICE\tMONTHLY (%d mo, %.2f%% APR)\n", plan.Term.Months, plan.Term.APR)
		for i, card := range quote.Tiers {
			fmt.Fprintf(tw, "%s\t$%s\t$%s\n", card.Label, humanize.Comma(card.Price), plan.Options[i].MonthlyPayment)
		}
	} else {
		fmt.Fprintln(tw, "TIER\tPRICE")
		for _, card := range quote.Tiers {
			fmt.Fprintf(tw, "%s\t$%s\n", card.Label, humanize.Comma(card.Price))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s\n", quote.Disclaimer)
	return nil
}

func newEdgesCmd() *cobra.Command {
	var area float64
	var format string

	cmd := &cobra.Command{
		Use:   "edges",
		Short: "Estimate eave and ridge/valley lengths from roof area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if area < 0 {
				return fmt.Errorf("area must not be negative")
			}
			if err := validateFormat(format); err != nil {
				return err
			}
			edges := services.EstimateEdgeLengths(area)
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), edges)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Eaves: %d ft\nRidges/valleys: %d ft\n", edges.EaveLength, edges.RidgeValleyLength)
			return nil
		},
	}

	cmd.Flags().Float64Var(&area, "area", 0, "total roof area in square feet")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format (text, json)")
	_ = cmd.MarkFlagRequired("area")

	return cmd
}

func newTiersCmd(engine *services.PricingService) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tiers",
		Short: "List material tiers and their price per square",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			tiers := engine.Tiers()
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), tiers)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tPER SQUARE\tSHINGLE WARRANTY\tWIND")
			for _, t := range tiers {
				fmt.Fprintf(tw, "%s\t$%.0f\t%d years\t%d mph\n", t.Label, t.PricePerSquare, t.Warranty.ShingleYears, t.Warranty.WindSpeed)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format (text, json)")
	return cmd
}

func validateFormat(format string) error {
	if format != formatText && format != formatJSON {
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"milkledger/internal/core"
	"milkledger/internal/query"
	"milkledger/internal/report"
)

var (
	reportFormat string
	reportOut    string

	priceType        string
	priceFat         float64
	priceSNF         float64
	priceLitres      float64
	priceCowRate     float64
	priceBuffaloRate float64
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the report for the filtered records",
	Long: `Builds the ten-column report for the records matching the filters and
prints it as text, csv or json. With --out the report is written to a file;
pass --out with an empty base name ("-") to use milk_records.<format>.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Compute the price of a purchase without recording it",
	Args:  cobra.NoArgs,
	RunE:  runPrice,
}

func init() {
	registerFilterFlags(reportCmd)
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", report.FormatText, "output format: text, csv or json")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write to this file instead of stdout")

	priceCmd.Flags().StringVar(&priceType, "type", string(core.Cow), "milk type: cow or buffalo")
	priceCmd.Flags().Float64Var(&priceFat, "fat", 0, "fat percentage")
	priceCmd.Flags().Float64Var(&priceSNF, "snf", 0, "SNF percentage")
	priceCmd.Flags().Float64Var(&priceLitres, "litres", 1, "quantity in litres")
	priceCmd.Flags().Float64Var(&priceCowRate, "cow-rate", 0, "cow fat rate (default from config)")
	priceCmd.Flags().Float64Var(&priceBuffaloRate, "buffalo-rate", 0, "buffalo fat rate (default from config)")

	rootCmd.AddCommand(reportCmd, priceCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(reportFormat)
	switch format {
	case report.FormatText, report.FormatCSV, report.FormatJSON:
	default:
		return fmt.Errorf("%w: %q", report.ErrUnknownFormat, reportFormat)
	}
	criteria, err := parseCriteria(listVendor, listFrom, listTo)
	if err != nil {
		return err
	}

	res, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer res.Close()

	records, err := res.Store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}
	filtered := query.Filter(records, criteria)
	rep, err := report.Build(filtered.Matches, filtered.Total)
	if errors.Is(err, report.ErrEmptyReport) {
		fmt.Fprintln(cmd.OutOrStdout(), report.EmptyMessage)
		return nil
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, rep); err != nil {
		return err
	}
	if reportOut == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	path := reportOut
	if path == "-" {
		path = report.DefaultName + "." + format
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s (%s)\n", len(rep.Rows), path, humanize.Bytes(uint64(buf.Len())))
	return nil
}

func runPrice(cmd *cobra.Command, args []string) error {
	milkType := core.MilkType(strings.ToLower(priceType))
	if !milkType.Valid() {
		return core.ErrInvalidMilkType
	}
	rates := core.Rates{Cow: appConfig.DefaultCowRate, Buffalo: appConfig.DefaultBuffaloRate}
	if cmd.Flags().Changed("cow-rate") {
		rates.Cow = priceCowRate
	}
	if cmd.Flags().Changed("buffalo-rate") {
		rates.Buffalo = priceBuffaloRate
	}

	price := core.CalculatePrice(priceFat, priceSNF, milkType, priceLitres, rates.Cow, rates.Buffalo)
	fmt.Fprintln(cmd.OutOrStdout(), core.FormatPrice(price))
	return nil
}

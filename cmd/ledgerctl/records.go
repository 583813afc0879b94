package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"milkledger/internal/core"
	"milkledger/internal/query"
	"milkledger/internal/report"
)

// recordFlags are the record fields settable from the command line.
type recordFlags struct {
	date        string
	timeOfDay   string
	vendor      string
	litres      float64
	milkType    string
	fat         float64
	snf         float64
	cowRate     float64
	buffaloRate float64
}

func (f *recordFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.date, "date", "", "collection date, YYYY-MM-DD (default today)")
	fs.StringVar(&f.timeOfDay, "time", string(core.Morning), "time of day: morning or evening")
	fs.StringVar(&f.vendor, "vendor", "", "vendor name")
	fs.Float64Var(&f.litres, "litres", 0, "quantity in litres")
	fs.StringVar(&f.milkType, "type", string(core.Cow), "milk type: cow or buffalo")
	fs.Float64Var(&f.fat, "fat", 0, "fat percentage")
	fs.Float64Var(&f.snf, "snf", 0, "SNF percentage")
	fs.Float64Var(&f.cowRate, "cow-rate", 0, "cow fat rate (default from config)")
	fs.Float64Var(&f.buffaloRate, "buffalo-rate", 0, "buffalo fat rate (default from config)")
}

// apply overlays the flags the user set onto base. With all set, every
// flag value is used, including defaults, except the rates: an unset rate
// flag always keeps the rate from base.
func (f *recordFlags) apply(cmd *cobra.Command, base core.RecordInput, all bool) (core.RecordInput, error) {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }

	in := base
	if set("date") {
		if f.date == "" {
			now := time.Now()
			in.Date = core.NewDate(now.Year(), int(now.Month()), now.Day())
		} else {
			d, err := core.ParseDate(f.date)
			if err != nil {
				return core.RecordInput{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
			}
			in.Date = d
		}
	}
	if set("time") {
		in.TimeOfDay = core.TimeOfDay(strings.ToLower(f.timeOfDay))
	}
	if set("vendor") {
		in.VendorName = strings.TrimSpace(f.vendor)
	}
	if set("litres") {
		in.LitreQuantity = f.litres
	}
	if set("type") {
		in.MilkType = core.MilkType(strings.ToLower(f.milkType))
	}
	if set("fat") {
		in.Fat = f.fat
	}
	if set("snf") {
		in.SNF = f.snf
	}
	if cmd.Flags().Changed("cow-rate") {
		in.CowRate = f.cowRate
	}
	if cmd.Flags().Changed("buffalo-rate") {
		in.BuffaloRate = f.buffaloRate
	}
	return in, nil
}

var (
	addFlags  recordFlags
	editFlags recordFlags

	listVendor string
	listFrom   string
	listTo     string

	ifMatch string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a milk purchase record",
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List records with their ledger positions",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var editCmd = &cobra.Command{
	Use:   "edit INDEX",
	Short: "Change fields of the record at INDEX",
	Long: `Changes only the fields given as flags and recomputes the price.
INDEX is the position shown by list; pass --if-match with the version
printed by list to refuse the edit if the ledger changed in between.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete INDEX",
	Short: "Delete the record at INDEX",
	Long:  `Deletes one record. Every later record moves down by one position.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	addFlags.register(addCmd)
	editFlags.register(editCmd)
	registerFilterFlags(listCmd)
	for _, cmd := range []*cobra.Command{editCmd, deleteCmd} {
		cmd.Flags().StringVar(&ifMatch, "if-match", "", "ledger version the index was read from")
	}
	rootCmd.AddCommand(addCmd, listCmd, editCmd, deleteCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	base := core.RecordInput{
		CowRate:     appConfig.DefaultCowRate,
		BuffaloRate: appConfig.DefaultBuffaloRate,
	}
	in, err := addFlags.apply(cmd, base, true)
	if err != nil {
		return err
	}

	res, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer res.Close()

	rec, err := res.Store.Create(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("adding record: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s record for %s: %s\n",
		rec.MilkType.Label(), rec.VendorName, core.FormatPrice(rec.Price))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	criteria, err := parseCriteria(listVendor, listFrom, listTo)
	if err != nil {
		return err
	}

	res, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer res.Close()

	snap, err := res.Store.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}
	return writeList(cmd.OutOrStdout(), snap.Version, query.Filter(snap.Records, criteria))
}

func runEdit(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}

	res, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer res.Close()

	snap, err := res.Store.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}
	if ifMatch != "" && ifMatch != snap.Version {
		return fmt.Errorf("ledger is at version %s, not %s; list again and retry", snap.Version, ifMatch)
	}
	if index >= len(snap.Records) {
		return fmt.Errorf("no record at position %d (ledger has %d)", index, len(snap.Records))
	}

	in, err := editFlags.apply(cmd, snap.Records[index].Input(), false)
	if err != nil {
		return err
	}
	rec, err := res.Store.UpdateAt(cmd.Context(), snap.Version, index, in)
	if err != nil {
		return fmt.Errorf("editing record %d: %w", index, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated record %d: %s\n", index, core.FormatPrice(rec.Price))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}

	res, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer res.Close()

	removed, err := res.Store.DeleteAt(cmd.Context(), ifMatch, index)
	if err != nil {
		return fmt.Errorf("deleting record %d: %w", index, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %d (%s, %s)\n", index, removed.VendorName, removed.Date)
	return nil
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index %q: must be a non-negative integer", s)
	}
	return index, nil
}

func registerFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&listVendor, "vendor", "", "vendor name filter (case-insensitive substring)")
	cmd.Flags().StringVar(&listFrom, "from", "", "first date to include, YYYY-MM-DD")
	cmd.Flags().StringVar(&listTo, "to", "", "last date to include, YYYY-MM-DD")
}

func parseCriteria(vendor, from, to string) (query.Criteria, error) {
	start, err := core.ParseDate(from)
	if err != nil {
		return query.Criteria{}, fmt.Errorf("--from: %w", err)
	}
	end, err := core.ParseDate(to)
	if err != nil {
		return query.Criteria{}, fmt.Errorf("--to: %w", err)
	}
	return query.Criteria{Vendor: strings.TrimSpace(vendor), Start: start, End: end}, nil
}

// writeList prints matches with their ledger positions and the matching total.
func writeList(w io.Writer, version string, res query.Result) error {
	if len(res.Matches) == 0 {
		_, err := fmt.Fprintln(w, report.EmptyMessage)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "#")
	for _, h := range report.Header {
		fmt.Fprint(tw, "\t", h)
	}
	fmt.Fprintln(tw)
	for i, rec := range res.Matches {
		fmt.Fprint(tw, res.Positions[i])
		for _, cell := range report.BuildRow(rec) {
			fmt.Fprint(tw, "\t", cell)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s (%d records, version %s)\n", report.TotalLine(res.Total), len(res.Matches), version)
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rcourtman/energy-reports/internal/capture"
	"github.com/rcourtman/energy-reports/internal/controller"
	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/pkg/reporting"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// rangeFlags selects the year window; zero values mean the default window.
type rangeFlags struct {
	start, end int
	search     string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.start, "start", 0, "first year (default: four years ago)")
	cmd.Flags().IntVar(&f.end, "end", 0, "last year (default: next year)")
	cmd.Flags().StringVar(&f.search, "search", "", "only keep records whose year or value matches")
}

// load fetches the selected window into c.
func (f *rangeFlags) load(ctx context.Context, c *controller.Controller) error {
	c.SetSearch(f.search)
	if f.start == 0 && f.end == 0 {
		return c.Initialize(ctx)
	}
	def := controller.DefaultRange(nowFn())
	start, end := f.start, f.end
	if start == 0 {
		start = def.Start
	}
	if end == 0 {
		end = def.End
	}
	return c.FetchRange(ctx, start, end)
}

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the resource types",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, key := range a.registry.Keys() {
				cfg, err := a.registry.Get(key)
				if err != nil {
					continue
				}
				fmt.Fprintf(out, "%-12s %-20s %s\n", cfg.Key, cfg.DisplayName, cfg.Endpoint)
			}
		},
	}
}

func newFetchCmd(a *app) *cobra.Command {
	var (
		rf          rangeFlags
		showDeleted bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <type>",
		Short: "Show the records of a resource type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.factory.New(args[0])
			if err != nil {
				return err
			}
			if err := rf.load(cmd.Context(), c); err != nil {
				return err
			}
			snap := c.Snapshot()
			if snap.State == controller.StateError {
				return fmt.Errorf("%s", snap.Warning)
			}

			out := cmd.OutOrStdout()
			if snap.Warning != "" {
				fmt.Fprintf(out, "! %s\n", snap.Warning)
			}
			fmt.Fprintf(out, "%s %s\n", snap.Resource, snap.Range)
			printRecords(out, snap.Filtered())
			if showDeleted {
				if deleted := snap.Deleted(); len(deleted) > 0 {
					fmt.Fprintln(out, "Deleted:")
					printRecords(out, deleted)
				}
			}
			if projection := reporting.CurrentProjection(snap.Filtered()); projection != nil {
				fmt.Fprintf(out, "Current projection: %.2f GWh\n", *projection)
			}
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&showDeleted, "deleted", false, "also list soft-deleted records")
	return cmd
}

func printRecords(out io.Writer, records []models.GenerationRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "  (no records)")
		return
	}
	fmt.Fprintf(out, "  %-6s %14s  %s\n", "Year", "GWh", "Added")
	for _, r := range records {
		added := ""
		if !r.DateAdded.IsZero() {
			added = r.DateAdded.Format(reporting.DateLayout)
		}
		fmt.Fprintf(out, "  %-6d %14.2f  %s\n", r.Year, r.GenerationValue, added)
	}
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records as CSV or a PDF report",
	}
	cmd.AddCommand(
		newExportFormatCmd(a, reporting.FormatCSV),
		newExportFormatCmd(a, reporting.FormatPDF),
	)
	return cmd
}

func newExportFormatCmd(a *app, format reporting.ReportFormat) *cobra.Command {
	var (
		rf       rangeFlags
		all      bool
		chartURL string
		noChart  bool
	)
	cmd := &cobra.Command{
		Use:   string(format) + " [type]",
		Short: fmt.Sprintf("Export a %s file", format),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass exactly one resource type or --all")
			}
			sink, err := a.sink()
			if err != nil {
				return err
			}

			var controllers []*controller.Controller
			if all {
				controllers, err = a.factory.All()
			} else {
				var c *controller.Controller
				c, err = a.factory.New(args[0])
				controllers = append(controllers, c)
			}
			if err != nil {
				return err
			}

			paths := make([]string, len(controllers))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, c := range controllers {
				g.Go(func() error {
					if err := rf.load(ctx, c); err != nil {
						return err
					}
					artifact, err := exportOne(ctx, c, format, chartURL, noChart)
					if err != nil {
						return fmt.Errorf("%s: %w", c.Config().Key, err)
					}
					path, err := sink.Save(artifact.Name, artifact.ContentType, artifact.Data)
					if err != nil {
						return fmt.Errorf("%s: %w", c.Config().Key, err)
					}
					paths[i] = path
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "export every resource type")
	if format == reporting.FormatPDF {
		cmd.Flags().StringVar(&chartURL, "chart-url", "", "fetch the chart image from this URL instead of drawing it")
		cmd.Flags().BoolVar(&noChart, "no-chart", false, "leave the chart out of the report")
	}
	return cmd
}

func exportOne(ctx context.Context, c *controller.Controller, format reporting.ReportFormat, chartURL string, noChart bool) (controller.Artifact, error) {
	snap := c.Snapshot()
	if snap.State == controller.StateError {
		return controller.Artifact{}, fmt.Errorf("%s", snap.Warning)
	}
	if format == reporting.FormatCSV {
		return c.ExportCSV()
	}

	var chart capture.Ref
	switch {
	case noChart:
	case chartURL != "":
		chart = &capture.RemoteChart{URL: chartURL}
	default:
		chart = capture.NewSeriesChart(snap.Filtered(), c.Config().ThemeColor)
	}
	return c.ExportPDF(ctx, chart)
}

func newRecordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Create, update, remove and recover records",
	}
	cmd.AddCommand(
		newRecordsCreateCmd(a),
		newRecordsUpdateCmd(a),
		newRecordsDeleteCmd(a, "remove", "Soft-delete the record for a year", true),
		newRecordsDeleteCmd(a, "recover", "Restore a soft-deleted record", false),
	)
	return cmd
}

// draftFlags are the editable fields of a record.
type draftFlags struct {
	year         int
	value        float64
	nonRenewable float64
	population   float64
	gdp          float64
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.year, "year", 0, "year of the record")
	cmd.Flags().Float64Var(&f.value, "value", 0, "generation in GWh")
	cmd.Flags().Float64Var(&f.nonRenewable, "non-renewable", 0, "non-renewable energy")
	cmd.Flags().Float64Var(&f.population, "population", 0, "population")
	cmd.Flags().Float64Var(&f.gdp, "gdp", 0, "GDP")
}

func (f *draftFlags) draft(cmd *cobra.Command) models.Draft {
	d := models.Draft{Year: f.year, GenerationValue: f.value}
	if cmd.Flags().Changed("non-renewable") {
		d.NonRenewable = models.Float(f.nonRenewable)
	}
	if cmd.Flags().Changed("population") {
		d.Population = models.Float(f.population)
	}
	if cmd.Flags().Changed("gdp") {
		d.GDP = models.Float(f.gdp)
	}
	return d
}

func newRecordsCreateCmd(a *app) *cobra.Command {
	var df draftFlags
	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create (or overwrite) the record for a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.factory.New(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("year") {
				df.year = nowFn().Year()
			}
			d := df.draft(cmd)
			if err := c.Create(cmd.Context(), d); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %d: %.2f GWh\n", args[0], d.Year, d.GenerationValue)
			return nil
		},
	}
	df.register(cmd)
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newRecordsUpdateCmd(a *app) *cobra.Command {
	var df draftFlags
	cmd := &cobra.Command{
		Use:   "update <type> <year>",
		Short: "Change the record for a year",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[1])
			}
			c, err := a.factory.New(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("year") {
				df.year = year
			}
			if err := loadYears(cmd.Context(), c, year, df.year); err != nil {
				return err
			}
			d := df.draft(cmd)
			if err := c.Update(cmd.Context(), year, d); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %d: %.2f GWh\n", args[0], d.Year, d.GenerationValue)
			return nil
		},
	}
	df.register(cmd)
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newRecordsDeleteCmd(a *app, use, short string, deleted bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <type> <year>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[1])
			}
			c, err := a.factory.New(args[0])
			if err != nil {
				return err
			}
			if err := loadYears(cmd.Context(), c, year, year); err != nil {
				return err
			}
			if deleted {
				err = c.Remove(cmd.Context(), year)
			} else {
				err = c.Recover(cmd.Context(), year)
			}
			if err != nil {
				return userError(err)
			}
			verb := "Removed"
			if !deleted {
				verb = "Recovered"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d\n", verb, args[0], year)
			return nil
		},
	}
}

// loadYears fetches a window covering both years. Writes are refused on
// sample data, so a failed read is reported instead of silently falling back.
func loadYears(ctx context.Context, c *controller.Controller, a, b int) error {
	if err := c.FetchRange(ctx, min(a, b), max(a, b)); err != nil {
		return userError(err)
	}
	snap := c.Snapshot()
	if snap.Synthetic || snap.State == controller.StateError {
		return fmt.Errorf("%s", internalerrors.UserMessage(internalerrors.Network("fetch_range", snap.Resource, snap.Err)))
	}
	return nil
}

// userError turns a controller error into the message shown to the user.
func userError(err error) error {
	log.Debug().Err(err).Msg("Command failed")
	return errors.New(internalerrors.UserMessage(err))
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/ppe-coverage/internal/app"
	"github.com/mamadbah2/ppe-coverage/internal/config"
	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
	"github.com/mamadbah2/ppe-coverage/internal/geo"
	"github.com/mamadbah2/ppe-coverage/internal/service/reporting"
	"github.com/mamadbah2/ppe-coverage/pkg/logger"
)

type rootOptions struct {
	envFile  string
	logLevel string
	products []string
	regions  []string
	years    []int
}

func (o *rootOptions) filter() models.Filter {
	return models.Filter{Products: o.products, Regions: o.regions, Years: o.years}
}

// setup loads configuration and wires the application for a single command run.
func (o *rootOptions) setup(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	log, err := logger.New(level)
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "ppectl",
		Short:        "Inspect PPE stock coverage per region",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.envFile, "env", "", "Path to a .env file")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (overrides LOG_LEVEL)")
	flags.StringSliceVar(&opts.products, "product", nil, "Only include these products")
	flags.StringSliceVar(&opts.regions, "region", nil, "Only include these regions")
	flags.IntSliceVar(&opts.years, "year", nil, "Only include these manufacturing years")

	root.AddCommand(newSummaryCmd(opts), newExportCmd(opts), newGeoJSONCmd(opts), newSnapshotCmd(opts))
	return root
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the reconciled coverage table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, log, err := opts.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())
			defer func() { _ = log.Sync() }()

			report, err := a.Reports.BuildReport(cmd.Context(), opts.filter())
			if err != nil {
				return fmt.Errorf("building report: %w", err)
			}
			return printSummary(cmd.OutOrStdout(), cmd.ErrOrStderr(), report)
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the coverage table to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, log, err := opts.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())
			defer func() { _ = log.Sync() }()

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := a.Reports.ExportXLSX(cmd.Context(), opts.filter(), f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "ppe-coverage.xlsx", "Output workbook path")
	return cmd
}

func newGeoJSONCmd(opts *rootOptions) *cobra.Command {
	var metricName string

	cmd := &cobra.Command{
		Use:   "geojson",
		Short: "Print the boundary collection joined with a coverage metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			metric, err := geo.ParseMetric(metricName)
			if err != nil {
				return err
			}

			a, log, err := opts.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())
			defer func() { _ = log.Sync() }()

			fc, report, err := a.Reports.GeoJSON(cmd.Context(), opts.filter(), metric)
			if err != nil {
				return fmt.Errorf("joining boundaries: %w", err)
			}
			printWarnings(cmd.ErrOrStderr(), report)

			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(fc)
		},
	}

	cmd.Flags().StringVar(&metricName, "metric", string(geo.MetricCoverage), "Metric to inject: quantity, coverage or share")
	return cmd
}

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the latest stored KPI snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, log, err := opts.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())
			defer func() { _ = log.Sync() }()

			if a.Snapshots == nil {
				return errors.New("snapshot store is not configured, set MONGODB_URI")
			}
			snapshot, err := a.Snapshots.LatestSnapshot(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snapshot)
		},
	}
}

func printSummary(out, errOut io.Writer, report *reporting.Report) error {
	table := tablewriter.NewTable(out)
	table.Header("REGION", "REQUIRED", "AVAILABLE", "SHORTAGE", "SURPLUS", "COVERAGE", "TIER", "MAPPED")
	for _, row := range report.Table {
		if err := table.Append(
			row.Region,
			strconv.Itoa(row.TotalRequired),
			strconv.Itoa(row.TotalQuantity),
			strconv.Itoa(row.Shortage),
			strconv.Itoa(row.Surplus),
			fmt.Sprintf("%.1f%%", row.CoveragePercent),
			string(row.Tier),
			strconv.FormatBool(row.Mapped),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\ntotal available %d, total required %d, mean coverage %.1f%%\n",
		report.KPIs.TotalQuantity, report.KPIs.TotalRequired, report.KPIs.MeanCoverage)
	printWarnings(errOut, report)
	return nil
}

func printWarnings(w io.Writer, report *reporting.Report) {
	for _, d := range report.Diagnostics {
		fmt.Fprintln(w, formatDiagnostic(d))
	}
}

func formatDiagnostic(d models.Diagnostic) string {
	var where []string
	if d.Region != "" {
		where = append(where, "region "+d.Region)
	}
	if d.Row > 0 {
		where = append(where, "row "+strconv.Itoa(d.Row))
	}
	if d.Column != "" {
		where = append(where, "column "+d.Column)
	}
	if len(where) == 0 {
		return fmt.Sprintf("warning: %s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("warning: %s (%s): %s", d.Kind, strings.Join(where, ", "), d.Message)
}

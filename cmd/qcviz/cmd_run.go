package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"qcviz/internal/chart"
	"qcviz/internal/dataset"
	"qcviz/internal/qc"
	"qcviz/internal/qc/qartod"
	"qcviz/internal/session"
)

type runOptions struct {
	file        string
	testID      string
	variable    string
	timeColumn  string
	secondary   string
	params      []string
	qcConfig    string
	useDefaults bool
	example     bool
	out         string
	png         string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one QC test headlessly and print the flag counts",
		Long: `Loads a dataset, runs one QC test and prints how many rows fall into each
flag. The configuration comes from --qc-config, the bundled defaults
(--defaults), or the test's schema defaults overridden by --param.

Example:
  qcviz run --file water_level.csv --test spike_test --param fail_threshold=2.5 --out masked.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runQC(ctx, cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "CSV or NetCDF file to load")
	f.StringVarP(&opts.testID, "test", "t", qc.GrossRangeTest, "Test to run: "+strings.Join(qc.Tests(), ", "))
	f.StringVar(&opts.variable, "variable", "", "Measurement column (defaults.variable when empty)")
	f.StringVar(&opts.timeColumn, "time", "", "Time column")
	f.StringVar(&opts.secondary, "secondary", "", "Secondary (z) column")
	f.StringArrayVarP(&opts.params, "param", "p", nil, "Test parameter as field=value (repeatable)")
	f.StringVar(&opts.qcConfig, "qc-config", "", "QC configuration document (JSON or YAML)")
	f.BoolVar(&opts.useDefaults, "defaults", false, "Use the bundled default QC configuration")
	f.BoolVar(&opts.example, "example", false, "Use the bundled example dataset")
	f.StringVarP(&opts.out, "out", "o", "", "Write the annotated table (.csv or .xlsx)")
	f.StringVar(&opts.png, "png", "", "Write the chart as PNG")
	cmd.MarkFlagsMutuallyExclusive("file", "example")
	cmd.MarkFlagsMutuallyExclusive("qc-config", "defaults", "param")
	return cmd
}

func runQC(ctx context.Context, cmd *cobra.Command, opts *runOptions) error {
	qcCfg, err := opts.configuration()
	if err != nil {
		return err
	}

	loader := session.NewLoader(cfg.Server.MaxRows)
	var st *session.State
	switch {
	case opts.example:
		st, err = loader.Example()
	case opts.file != "":
		var data []byte
		data, err = os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", opts.file, err)
		}
		st, err = loader.Load(data, filepath.Base(opts.file))
	default:
		return errors.New("either --file or --example is required")
	}
	if err != nil {
		return err
	}

	vars := session.Variables{
		Variable:  opts.variable,
		Time:      opts.timeColumn,
		Secondary: opts.secondary,
	}.OrDefaults(defaultVariables())

	logger.Info("Running QC test",
		zap.String("test", opts.testID),
		zap.String("variable", vars.Variable),
		zap.String("time", vars.Time),
	)
	res, err := st.Run(ctx, qartod.New(), vars, opts.testID, qcCfg)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s - %s\n", vars.Variable, opts.testID)
	for _, t := range res.Masks.Tallies() {
		fmt.Fprintf(w, "%-8s %d\n", t.Label, t.Count)
	}
	fmt.Fprintf(w, "%-8s %d\n", "Total", res.Masks.Len())
	if values, err := st.Dataset(); err == nil {
		if obs, err := values.Floats(vars.Variable); err == nil {
			if sum, err := dataset.Summarize(obs); err == nil {
				fmt.Fprintf(w, "min %.3f  max %.3f  mean %.3f  std %.3f\n", sum.Min, sum.Max, sum.Mean, sum.Std)
			}
		}
	}
	logger.Debug("Effective QC configuration", zap.Any("config", qcCfg.ForTest(opts.testID)))

	if opts.out != "" {
		if err := writeTable(opts.out, res); err != nil {
			return err
		}
		logger.Info("Annotated table written", zap.String("path", opts.out))
	}
	if opts.png != "" {
		if err := writeChart(opts.png, res); err != nil {
			return err
		}
		logger.Info("Chart written", zap.String("path", opts.png))
	}
	return nil
}

// configuration resolves the QC configuration from the flags.
func (o *runOptions) configuration() (qc.Configuration, error) {
	switch {
	case o.qcConfig != "":
		f, err := os.Open(o.qcConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open qc config: %w", err)
		}
		defer f.Close()
		return qc.LoadConfiguration(f)
	case o.useDefaults:
		return qc.DefaultConfiguration()
	}

	schema, err := qc.SchemaFor(o.testID)
	if err != nil {
		return nil, err
	}
	fields := qc.FieldMap(schema.Defaults())
	for _, p := range o.params {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q: want field=value", p)
		}
		name = strings.TrimSpace(name)
		if _, known := fields[name]; !known {
			return nil, fmt.Errorf("invalid --param %q: %s has no field %q", p, o.testID, name)
		}
		fields[name] = value
	}
	return qc.FromForm(o.testID, fields)
}

func writeTable(path string, res *session.Result) error {
	table, err := res.Annotated.Table()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = table.WriteCSV(&buf)
	case ".xlsx":
		err = table.WriteXLSX(&buf, res.Masks.Tallies())
	default:
		return fmt.Errorf("unsupported output %q: use .csv or .xlsx", path)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func writeChart(path string, res *session.Result) error {
	plot, err := chart.NewPlot(res.Annotated.Source, res.Annotated, res.Masks)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	renderer := chart.PNGRenderer{Width: cfg.Chart.Width, Height: cfg.Chart.Height}
	if err := renderer.Render(&buf, plot); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

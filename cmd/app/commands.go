package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"edge-detection/internal/convolution"
	"edge-detection/internal/core"
	imageio "edge-detection/internal/io"
	"edge-detection/internal/kernels"
	"edge-detection/internal/metrics"
	"edge-detection/internal/pipeline"
	"edge-detection/internal/settings"
)

type app struct {
	debug        bool
	settingsPath string
	logger       *logrus.Logger
}

type applyOptions struct {
	kernel  string
	color   string
	workers int
	region  string
	last    bool
}

// request converts flag values into a pipeline request
func (o applyOptions) request() (pipeline.Request, error) {
	mode, err := convolution.ParseColorMode(o.color)
	if err != nil {
		return pipeline.Request{}, err
	}
	region, err := core.ParseRegion(o.region)
	if err != nil {
		return pipeline.Request{}, err
	}

	req := pipeline.Request{
		Mode:    pipeline.NonInteractive,
		Kernel:  o.kernel,
		Display: mode,
		Region:  region,
	}
	if o.last {
		req.Mode = pipeline.WithLastValues
	}
	return req, nil
}

func newRootCommand(out, logOut io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           AppName,
		Short:         "Detect edges in images with Sobel, Roberts or Prewitt kernels",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = initLogger(a.debug, logOut)
			a.logger.WithFields(logrus.Fields{
				"version":    AppVersion,
				"debug_mode": a.debug,
			}).Debug("Starting edge detection")
		},
	}
	root.SetOut(out)
	root.SetErr(logOut)
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug mode with verbose logging")
	root.PersistentFlags().StringVar(&a.settingsPath, "settings", "", "Settings file (default: user config dir)")

	root.AddCommand(newApplyCommand(a), newKernelsCommand(), newMetricsCommand())
	return root
}

func newApplyCommand(a *app) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply INPUT OUTPUT",
		Short: "Run edge detection on INPUT and write the result to OUTPUT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request()
			if err != nil {
				return a.fail(err)
			}

			store, err := settings.NewStore(a.settingsPath)
			if err != nil {
				return a.fail(err)
			}
			engine := convolution.NewEngine(convolution.WithWorkers(opts.workers))
			processor := pipeline.NewProcessor(engine, store, imageio.NewImageLoader(a.logger), a.logger)

			res, err := processor.ProcessFile(cmd.Context(), args[0], args[1], req)
			if err != nil {
				return a.fail(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (kernel %s, %s, %dms)\n",
				args[0], args[1], res.Settings.Kernel, res.Settings.Display.Label(), res.Duration.Milliseconds())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.kernel, "kernel", "k", kernels.Default(), "Kernel: "+strings.Join(kernels.Names(), ", "))
	flags.StringVarP(&opts.color, "color", "c", convolution.Grayscale.String(), "Color mode: grayscale|redblue (or 0|1)")
	flags.IntVarP(&opts.workers, "workers", "w", 1, "Rows processed concurrently")
	flags.StringVarP(&opts.region, "region", "r", "", "Only process x1,y1,x2,y2")
	flags.BoolVar(&opts.last, "last", false, "Reuse the kernel and color mode of the previous run")

	return cmd
}

func newKernelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kernels",
		Short: "List the available kernel pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writeKernels(cmd.OutOrStdout())
			return nil
		},
	}
}

func writeKernels(w io.Writer) {
	for _, name := range kernels.Names() {
		pair, _ := kernels.Lookup(name)
		fmt.Fprintf(w, "%s (%dx%d)\n", name, pair.X.Size(), pair.X.Size())
		for i := range pair.X {
			fmt.Fprintf(w, "  %s   %s\n", formatRow(pair.X[i]), formatRow(pair.Y[i]))
		}
	}
}

func newMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the statistics reported after each run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writeMetrics(cmd.OutOrStdout(), metrics.NewEvaluator())
			return nil
		},
	}
}

func writeMetrics(w io.Writer, e *metrics.Evaluator) {
	info := e.GetMetricInfo()
	for _, name := range e.Names() {
		m := info[name]
		fmt.Fprintf(w, "%-16s %s [%g, %g]\n  %s\n", name, m.Name, m.Range[0], m.Range[1], m.Description)
	}
}

func formatRow(row []int) string {
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = fmt.Sprintf("%3d", v)
	}
	return strings.Join(cells, "")
}

// fail logs err and returns it so cobra exits non-zero
func (a *app) fail(err error) error {
	a.logger.WithError(err).Error("Edge detection failed")
	return err
}

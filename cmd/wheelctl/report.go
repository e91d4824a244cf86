package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"finitefield.org/wheel-of-life/internal/chart"
	"finitefield.org/wheel-of-life/internal/raster"
	"finitefield.org/wheel-of-life/internal/report"
	"finitefield.org/wheel-of-life/internal/wheel"
)

type reportOptions struct {
	output  string
	noChart bool
}

func newReportCmd(root *rootOptions) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Render the PDF review report",
		Example: `  wheelctl report --state wheel.json -o wheel-of-life.pdf`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c := wheel.DefaultCatalog()
			s, err := loadState(ctx, cmd, root.state, c)
			if err != nil {
				return err
			}

			var r raster.Rasterizer
			if opts.noChart {
				r = raster.Func(func(context.Context, chart.Layout) (raster.Image, error) {
					return raster.Image{}, nil
				})
			} else if r, err = raster.NewVectorRasterizer(); err != nil {
				return err
			}

			out, err := openOutput(cmd, opts.output)
			if err != nil {
				return err
			}
			res, err := report.NewGenerator(c, r).Generate(ctx, out, s)
			if err := closeOutput(out, err); err != nil {
				return err
			}
			if !toStdout(opts.output) {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d pages, %d bytes)\n", opts.output, res.Pages, res.Bytes)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", report.FileName, "output file (- for stdout)")
	cmd.Flags().BoolVar(&opts.noChart, "no-chart", false, "leave the chart image out of the report")
	return cmd
}

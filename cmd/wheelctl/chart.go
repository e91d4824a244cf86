package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"finitefield.org/wheel-of-life/internal/chart"
	"finitefield.org/wheel-of-life/internal/raster"
	"finitefield.org/wheel-of-life/internal/wheel"
)

type chartOptions struct {
	size   int
	format string
	output string
	scale  float64
}

func newChartCmd(root *rootOptions) *cobra.Command {
	opts := &chartOptions{}
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the wheel chart as SVG or PNG",
		Example: `  wheelctl chart --state wheel.json --size 360 -o wheel.svg
  wheelctl chart --state wheel.json --format png -o wheel.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := strings.ToLower(opts.format)
			if format != "svg" && format != "png" {
				return fmt.Errorf("unsupported --format %q (want svg or png)", opts.format)
			}

			ctx := cmd.Context()
			c := wheel.DefaultCatalog()
			s, err := loadState(ctx, cmd, root.state, c)
			if err != nil {
				return err
			}
			size := float64(chart.ClampSize(opts.size))

			out, err := openOutput(cmd, opts.output)
			if err != nil {
				return err
			}
			return closeOutput(out, writeChart(ctx, out, format, c, s, size, opts.scale))
		},
	}
	cmd.Flags().IntVar(&opts.size, "size", chart.DefaultSize, fmt.Sprintf("chart size in pixels (%d-%d)", chart.MinSize, chart.MaxSize))
	cmd.Flags().StringVar(&opts.format, "format", "svg", "output format: svg or png")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().Float64Var(&opts.scale, "scale", raster.DefaultScale, "PNG pixel density multiplier")
	return cmd
}

func writeChart(ctx context.Context, w io.Writer, format string, c *wheel.Catalog, s wheel.State, size, scale float64) error {
	if format == "svg" {
		return chart.Compute(c.Categories, s.Scores, size).WriteSVG(w)
	}
	r, err := raster.NewVectorRasterizer(raster.WithScale(scale))
	if err != nil {
		return err
	}
	img, err := r.Rasterize(ctx, chart.Compute(c.Categories, s.Scores, size, chart.WithExport()))
	if err != nil {
		return fmt.Errorf("rasterise chart: %w", err)
	}
	_, err = w.Write(img.PNG)
	return err
}

package report

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"time"

	"go.uber.org/zap"

	"finitefield.org/wheel-of-life/internal/chart"
	"finitefield.org/wheel-of-life/internal/platform/observability"
	"finitefield.org/wheel-of-life/internal/raster"
	"finitefield.org/wheel-of-life/internal/wheel"
)

// Generator produces the review PDF for a wizard state.
type Generator struct {
	catalog   *wheel.Catalog
	raster    raster.Rasterizer
	cfg       Config
	chartSize float64
	now       func() time.Time
	metrics   *observability.Metrics
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithConfig replaces the page layout.
func WithConfig(cfg Config) GeneratorOption {
	return func(g *Generator) { g.cfg = cfg }
}

// WithChartSize sets the chart render size before rasterising.
func WithChartSize(size float64) GeneratorOption {
	return func(g *Generator) {
		if size > 0 {
			g.chartSize = size
		}
	}
}

// WithClock sets the source of the "Completed on" date.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithMetrics records generated reports and raster failures.
func WithMetrics(m *observability.Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator builds a Generator. A nil rasterizer produces text-only reports.
func NewGenerator(catalog *wheel.Catalog, r raster.Rasterizer, opts ...GeneratorOption) *Generator {
	if r == nil {
		r = raster.Unavailable{}
	}
	g := &Generator{
		catalog:   catalog,
		raster:    r,
		cfg:       DefaultConfig(),
		chartSize: chart.DefaultSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Result describes a generated document.
type Result struct {
	Pages     int
	Bytes     int64
	WithChart bool
}

// Generate writes the PDF for s to w. A chart that cannot be rasterised, or
// whose image is not a readable PNG, is logged and left out; only cancellation or a write failure is an error.
func (g *Generator) Generate(ctx context.Context, w io.Writer, s wheel.State) (Result, error) {
	logger := observability.FromContext(ctx)
	completed := g.now()

	layout := chart.Compute(g.catalog.Categories, s.Scores, g.chartSize, chart.WithExport())
	img, err := g.raster.Rasterize(ctx, layout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		logger.Warn("report: chart rasterisation unavailable", zap.Error(err))
		g.metrics.RasterFailed(ctx)
		img = raster.Image{}
	}
	if !img.Empty() {
		if _, err := png.DecodeConfig(bytes.NewReader(img.PNG)); err != nil {
			logger.Warn("report: discarding unreadable chart image", zap.Error(err), zap.Int("bytes", len(img.PNG)))
			g.metrics.RasterFailed(ctx)
			img = raster.Image{}
		}
	}

	surface := NewPDFSurface(g.cfg, completed)
	plan := Paginate(InputFrom(g.catalog, s, completed, img), g.cfg, surface)
	if err := surface.Draw(plan); err != nil {
		return Result{}, err
	}

	cw := &countingWriter{w: w}
	if err := surface.Output(cw); err != nil {
		return Result{}, err
	}

	res := Result{Pages: plan.Pages, Bytes: cw.n, WithChart: !img.Empty()}
	g.metrics.ReportGenerated(ctx, res.WithChart)
	logger.Info("report generated",
		zap.Int("pages", res.Pages),
		zap.Int64("bytes", res.Bytes),
		zap.Bool("chart", res.WithChart),
	)
	return res, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Package raster turns a chart layout into a bitmap for embedding in documents.
package raster

import (
	"context"
	"errors"

	"finitefield.org/wheel-of-life/internal/chart"
)

// ErrUnavailable reports that no drawing surface exists in this environment.
var ErrUnavailable = errors.New("raster: chart rasterisation unavailable")

// Image is a rasterised chart. Width and Height are in chart units (the size
// the image should be placed at before any document scaling); PNG holds the
// encoded pixels, which are denser by the rasterizer's scale factor.
type Image struct {
	Width  float64
	Height float64
	PNG    []byte
}

// Empty reports whether the image carries no pixel data.
func (i Image) Empty() bool { return len(i.PNG) == 0 || i.Width <= 0 || i.Height <= 0 }

// Rasterizer renders a chart layout to pixels. It is a single-shot operation.
type Rasterizer interface {
	Rasterize(ctx context.Context, layout chart.Layout) (Image, error)
}

// Unavailable is the rasterizer for contexts without a drawing surface.
type Unavailable struct{}

// Rasterize always fails with ErrUnavailable.
func (Unavailable) Rasterize(context.Context, chart.Layout) (Image, error) {
	return Image{}, ErrUnavailable
}

// Func adapts a plain function to Rasterizer.
type Func func(ctx context.Context, layout chart.Layout) (Image, error)

// Rasterize calls f.
func (f Func) Rasterize(ctx context.Context, layout chart.Layout) (Image, error) {
	return f(ctx, layout)
}

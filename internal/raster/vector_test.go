package raster

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/wheel-of-life/internal/chart"
	"finitefield.org/wheel-of-life/internal/wheel"
)

func TestUnavailableAlwaysFails(t *testing.T) {
	t.Parallel()

	img, err := Unavailable{}.Rasterize(context.Background(), chart.Layout{Size: 300})
	require.ErrorIs(t, err, ErrUnavailable)
	require.True(t, img.Empty())
}

func TestExportPadding(t *testing.T) {
	t.Parallel()

	small := ExportPadding(100)
	require.Equal(t, 28.0, small.Left)
	require.Equal(t, 28.0, small.Top)
	require.Equal(t, 49.0, small.Right)

	big := ExportPadding(400)
	require.InDelta(t, 56, big.Left, 1e-9)
	require.InDelta(t, 98, big.Right, 1e-9)
}

func TestVectorRasterizerProducesPaddedPNG(t *testing.T) {
	t.Parallel()

	r, err := NewVectorRasterizer(WithScale(1))
	require.NoError(t, err)

	cat := wheel.DefaultCatalog()
	scores := wheel.Scores{}.With("health", 8).With("career", 3)
	layout := chart.Compute(cat.Categories, scores, 300, chart.WithExport())

	img, err := r.Rasterize(context.Background(), layout)
	require.NoError(t, err)
	require.False(t, img.Empty())

	pad := ExportPadding(300)
	require.InDelta(t, 300+pad.Left+pad.Right, img.Width, 1e-9)
	require.InDelta(t, 300+pad.Top+pad.Bottom, img.Height, 1e-9)

	decoded, err := png.Decode(bytes.NewReader(img.PNG))
	require.NoError(t, err)
	b := decoded.Bounds()
	require.Equal(t, int(math.Round(img.Width)), b.Dx())
	require.Equal(t, int(math.Round(img.Height)), b.Dy())

	// Corners stay on the white background.
	cr, cg, cb, _ := decoded.At(0, 0).RGBA()
	require.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{cr, cg, cb})

	// The centre dot is painted.
	cx := int(math.Round(pad.Left + layout.Center))
	cy := int(math.Round(pad.Top + layout.Center))
	dr, _, _, _ := decoded.At(cx, cy).RGBA()
	require.Less(t, dr, uint32(0x8000))
}

func TestVectorRasterizerHonoursScale(t *testing.T) {
	t.Parallel()

	r, err := NewVectorRasterizer()
	require.NoError(t, err)

	layout := chart.Compute(wheel.DefaultCatalog().Categories, wheel.Scores{}, 220, chart.WithExport())
	img, err := r.Rasterize(context.Background(), layout)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(img.PNG))
	require.NoError(t, err)
	require.Equal(t, int(math.Round(img.Width*DefaultScale)), cfg.Width)
}

func TestVectorRasterizerRespectsContext(t *testing.T) {
	t.Parallel()

	r, err := NewVectorRasterizer()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Rasterize(ctx, chart.Compute(nil, wheel.Scores{}, 300))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestVectorRasterizerRejectsEmptyLayout(t *testing.T) {
	t.Parallel()

	r, err := NewVectorRasterizer()
	require.NoError(t, err)
	_, err = r.Rasterize(context.Background(), chart.Layout{})
	require.Error(t, err)
}

func TestParseHex(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint8(0x4f), parseHex("#4f46e5").R)
	require.Equal(t, uint8(0xff), parseHex("#fff").G)
	require.Equal(t, fallbackColor, parseHex("nope"))
	require.Equal(t, fallbackColor, parseHex("#zzzzzz"))
}

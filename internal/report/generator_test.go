package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/wheel-of-life/internal/chart"
	"finitefield.org/wheel-of-life/internal/platform/requestctx"
	"finitefield.org/wheel-of-life/internal/raster"
	"finitefield.org/wheel-of-life/internal/wheel"
)

func ratedState(t *testing.T, c *wheel.Catalog) wheel.State {
	t.Helper()
	s := wheel.NewState()
	for i, cat := range c.Categories {
		var err error
		s, err = s.SelectScore(c, cat.ID, i+2)
		require.NoError(t, err)
	}
	s, err := s.SetReflection(c, "strongest", "Relationships, and café mornings")
	require.NoError(t, err)
	return s
}

func TestGenerateWithoutRasterDegrades(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := requestctx.WithLogger(context.Background(), zap.New(core))

	c := wheel.DefaultCatalog()
	g := NewGenerator(c, raster.Unavailable{}, WithClock(func() time.Time { return completed }))

	var buf bytes.Buffer
	res, err := g.Generate(ctx, &buf, ratedState(t, c))
	require.NoError(t, err)
	require.False(t, res.WithChart)
	require.GreaterOrEqual(t, res.Pages, 1)
	require.Equal(t, int64(buf.Len()), res.Bytes)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	require.Equal(t, 1, logs.FilterMessage("report: chart rasterisation unavailable").Len())
}

func TestGenerateFailingRasterLogsWarning(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	ctx := requestctx.WithLogger(context.Background(), zap.New(core))

	broken := raster.Func(func(context.Context, chart.Layout) (raster.Image, error) {
		return raster.Image{}, errors.New("decode failed")
	})
	var buf bytes.Buffer
	res, err := NewGenerator(wheel.DefaultCatalog(), broken).Generate(ctx, &buf, wheel.NewState())
	require.NoError(t, err)
	require.False(t, res.WithChart)
	require.Equal(t, 1, logs.Len())
}

func TestGenerateDropsUnreadableImage(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	ctx := requestctx.WithLogger(context.Background(), zap.New(core))

	garbage := raster.Func(func(context.Context, chart.Layout) (raster.Image, error) {
		return raster.Image{Width: 300, Height: 300, PNG: []byte("not a png")}, nil
	})
	var buf bytes.Buffer
	res, err := NewGenerator(wheel.DefaultCatalog(), garbage).Generate(ctx, &buf, wheel.NewState())
	require.NoError(t, err)
	require.False(t, res.WithChart)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	require.Equal(t, 1, logs.FilterMessage("report: discarding unreadable chart image").Len())
}

func TestGenerateWithChart(t *testing.T) {
	t.Parallel()

	r, err := raster.NewVectorRasterizer(raster.WithScale(1))
	require.NoError(t, err)

	c := wheel.DefaultCatalog()
	var seen chart.Layout
	spy := raster.Func(func(ctx context.Context, l chart.Layout) (raster.Image, error) {
		seen = l
		return r.Rasterize(ctx, l)
	})

	var buf bytes.Buffer
	res, err := NewGenerator(c, spy, WithChartSize(240)).Generate(context.Background(), &buf, ratedState(t, c))
	require.NoError(t, err)
	require.True(t, res.WithChart)
	require.Equal(t, 240.0, seen.Size)
	require.Equal(t, []string{"Relationships"}, seen.Items[1].LabelLines, "export layout uses full labels")
	require.Greater(t, res.Bytes, int64(1000))
}

func TestGenerateHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := raster.Func(func(ctx context.Context, _ chart.Layout) (raster.Image, error) {
		return raster.Image{}, ctx.Err()
	})

	var buf bytes.Buffer
	_, err := NewGenerator(wheel.DefaultCatalog(), slow).Generate(ctx, &buf, wheel.NewState())
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, buf.Len())
}

func TestPDFSurfaceMeasuresAndDraws(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	s := NewPDFSurface(cfg, completed)

	regular := s.TextWidth("Scores & notes", Font{Style: Regular, Size: 11.5})
	bold := s.TextWidth("Scores & notes", Font{Style: Bold, Size: 11.5})
	require.Greater(t, regular, 0.0)
	require.Greater(t, bold, regular)
	require.InDelta(t, 2*regular, s.TextWidth("Scores & notes", Font{Style: Regular, Size: 23}), 1e-6)

	plan := Paginate(Input{Completed: completed, Categories: entries(12, "note")}, cfg, s)
	require.NoError(t, s.Draw(plan))
	require.Equal(t, plan.Pages, s.PageCount())

	var buf bytes.Buffer
	require.NoError(t, s.Output(&buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDFSurfaceRejectsUnknownOp(t *testing.T) {
	t.Parallel()

	s := NewPDFSurface(DefaultConfig(), completed)
	err := s.Draw(Plan{Ops: []Op{{Kind: OpKind(42)}}})
	require.ErrorContains(t, err, "op(42)")
}

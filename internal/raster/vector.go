package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"finitefield.org/wheel-of-life/internal/chart"
)

const (
	DefaultScale = 2.8

	maxPixels = 4096 * 4096
)

var (
	gridColor     = color.NRGBA{0xe2, 0xe8, 0xf0, 0xff}
	dividerColor  = color.NRGBA{0xd9, 0xe3, 0xf8, 0xff}
	backdropFill  = color.NRGBA{0xf3, 0xf5, 0xff, 0xff}
	backdropEdge  = color.NRGBA{0xc7, 0xd2, 0xfe, 0xff}
	sectorEdge    = color.NRGBA{0x1e, 0x29, 0x3b, 0x4d}
	labelColor    = color.NRGBA{0x1e, 0x29, 0x3b, 0xff}
	scoreColor    = color.NRGBA{0x47, 0x55, 0x69, 0xff}
	centerColor   = color.NRGBA{0x1f, 0x29, 0x37, 0xff}
	fallbackColor = color.NRGBA{0x94, 0xa3, 0xb8, 0xff}
)

// Padding is the white margin added around the chart in an exported image.
type Padding struct {
	Left, Right, Top, Bottom float64
}

// ExportPadding returns the margin used for a chart of the given size. The
// right side is wider so start-anchored labels are never clipped.
func ExportPadding(size float64) Padding {
	base := math.Max(28, size*0.14)
	return Padding{Left: base, Right: base * 1.75, Top: base, Bottom: base}
}

// VectorRasterizer draws chart layouts with anti-aliased vector fills and the
// Go fonts.
type VectorRasterizer struct {
	scale   float64
	regular *opentype.Font
	bold    *opentype.Font
}

// Option customises a VectorRasterizer.
type Option func(*VectorRasterizer)

// WithScale sets the pixel density multiplier.
func WithScale(scale float64) Option {
	return func(v *VectorRasterizer) {
		if scale > 0 {
			v.scale = scale
		}
	}
}

// NewVectorRasterizer parses the embedded fonts.
func NewVectorRasterizer(opts ...Option) (*VectorRasterizer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("raster: parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("raster: parse bold font: %w", err)
	}
	v := &VectorRasterizer{scale: DefaultScale, regular: regular, bold: bold}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Rasterize renders the layout on white with export padding and encodes it as PNG.
func (v *VectorRasterizer) Rasterize(ctx context.Context, l chart.Layout) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	if l.Size <= 0 {
		return Image{}, fmt.Errorf("raster: invalid chart size %v", l.Size)
	}

	pad := ExportPadding(l.Size)
	width := l.Size + pad.Left + pad.Right
	height := l.Size + pad.Top + pad.Bottom
	pw := int(math.Round(width * v.scale))
	ph := int(math.Round(height * v.scale))
	if pw <= 0 || ph <= 0 || pw*ph > maxPixels {
		return Image{}, fmt.Errorf("raster: image %dx%d out of bounds", pw, ph)
	}

	c := &canvas{
		dst:   image.NewRGBA(image.Rect(0, 0, pw, ph)),
		scale: v.scale,
		offX:  pad.Left,
		offY:  pad.Top,
	}
	draw.Draw(c.dst, c.dst.Bounds(), image.White, image.Point{}, draw.Src)

	if err := v.paint(c, l); err != nil {
		return Image{}, err
	}
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, c.dst); err != nil {
		return Image{}, fmt.Errorf("raster: encode png: %w", err)
	}
	return Image{Width: width, Height: height, PNG: buf.Bytes()}, nil
}

func (v *VectorRasterizer) paint(c *canvas, l chart.Layout) error {
	center := chart.Point{X: l.Center, Y: l.Center}
	full := 2 * math.Pi

	if len(l.Items) > 0 {
		backdrop := l.ValueMaxRadius + 6
		c.fill(backdropFill, c.arc(center, backdrop, 0, full))
		c.fill(backdropEdge, c.annulus(center, backdrop+0.5, backdrop-0.5, 0, full)...)
	}

	for k, r := range l.GridRadii {
		if k == len(l.GridRadii)-1 {
			c.fill(gridColor, c.annulus(center, r+0.8, r-0.8, 0, full)...)
			continue
		}
		c.dashedCircle(gridColor, center, r, 1, 6, 6)
	}

	for _, it := range l.Items {
		fill := withAlpha(parseHex(it.Category.Color), 0.35)
		c.fill(fill, c.annulus(center, l.OuterRadius, l.ValueMaxRadius+4, it.StartAngle, it.EndAngle)...)
	}
	for _, it := range l.Items {
		c.fill(dividerColor, c.segment(center, it.DividerEnd, 1))
	}
	for _, it := range l.Items {
		if it.Normalized <= 0 {
			continue
		}
		r := it.Normalized * l.ValueMaxRadius
		c.fill(withAlpha(parseHex(it.Category.Color), 0.55), c.pie(center, r, it.StartAngle, it.EndAngle))
		c.fill(sectorEdge, c.annulus(center, r+0.5, r-0.5, it.StartAngle, it.EndAngle)...)
	}

	labelFace, err := v.face(v.bold, l.LabelFontSize)
	if err != nil {
		return err
	}
	defer labelFace.Close()
	scoreFace, err := v.face(v.regular, l.ScoreFontSize)
	if err != nil {
		return err
	}
	defer scoreFace.Close()

	for _, it := range l.Items {
		if it.Marker != nil {
			m := it.Marker
			c.fill(color.NRGBA{0xff, 0xff, 0xff, 0xff}, c.arc(m.Center, m.Radius+0.75, 0, full))
			c.fill(parseHex(it.Category.Color), c.arc(m.Center, m.Radius-0.75, 0, full))
		}
		for j, line := range it.LabelLines {
			c.text(labelFace, labelColor, line, it.LabelPoints[j], it.Anchor)
		}
		c.text(scoreFace, scoreColor, it.ScoreLabel, it.ScorePoint, it.Anchor)
	}
	c.fill(centerColor, c.arc(center, 6, 0, full))
	return nil
}

func (v *VectorRasterizer) face(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size * v.scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("raster: font face: %w", err)
	}
	return face, nil
}

// canvas maps chart coordinates onto the padded, scaled pixel grid.
type canvas struct {
	dst   *image.RGBA
	scale float64
	offX  float64
	offY  float64
}

type pt struct{ x, y float32 }

func (c *canvas) px(p chart.Point) pt {
	return pt{
		x: float32((p.X + c.offX) * c.scale),
		y: float32((p.Y + c.offY) * c.scale),
	}
}

func (c *canvas) steps(radius, span float64) int {
	n := int(math.Ceil(math.Abs(span) * radius * c.scale / 3))
	if n < 8 {
		n = 8
	}
	return n
}

// arc approximates an arc as a polyline.
func (c *canvas) arc(center chart.Point, radius, from, to float64) []pt {
	n := c.steps(radius, to-from)
	out := make([]pt, 0, n+1)
	for i := 0; i <= n; i++ {
		a := from + (to-from)*float64(i)/float64(n)
		out = append(out, c.px(chart.Point{X: center.X + math.Cos(a)*radius, Y: center.Y + math.Sin(a)*radius}))
	}
	return out
}

func (c *canvas) pie(center chart.Point, radius, from, to float64) []pt {
	return append([]pt{c.px(center)}, c.arc(center, radius, from, to)...)
}

// annulus returns the band between two radii over an angular span as a single
// closed outline: outer arc forward, inner arc backward.
func (c *canvas) annulus(center chart.Point, outer, inner, from, to float64) [][]pt {
	if inner < 0 {
		inner = 0
	}
	o := c.arc(center, outer, from, to)
	in := c.arc(center, inner, from, to)
	for i, j := 0, len(in)-1; i < j; i, j = i+1, j-1 {
		in[i], in[j] = in[j], in[i]
	}
	return [][]pt{append(o, in...)}
}

func (c *canvas) segment(a, b chart.Point, width float64) []pt {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	return []pt{
		c.px(chart.Point{X: a.X + nx, Y: a.Y + ny}),
		c.px(chart.Point{X: b.X + nx, Y: b.Y + ny}),
		c.px(chart.Point{X: b.X - nx, Y: b.Y - ny}),
		c.px(chart.Point{X: a.X - nx, Y: a.Y - ny}),
	}
}

func (c *canvas) dashedCircle(col color.Color, center chart.Point, radius, width, dash, gap float64) {
	if radius <= 0 {
		return
	}
	circumference := 2 * math.Pi * radius
	period := dash + gap
	for start := 0.0; start < circumference; start += period {
		end := math.Min(start+dash, circumference)
		c.fill(col, c.annulus(center, radius+width/2, radius-width/2, start/radius, end/radius)...)
	}
}

func (c *canvas) fill(col color.Color, paths ...[]pt) {
	b := c.dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	drawn := false
	for _, path := range paths {
		if len(path) < 3 {
			continue
		}
		z.MoveTo(path[0].x, path[0].y)
		for _, p := range path[1:] {
			z.LineTo(p.x, p.y)
		}
		z.ClosePath()
		drawn = true
	}
	if !drawn {
		return
	}
	z.Draw(c.dst, b, image.NewUniform(col), image.Point{})
}

func (c *canvas) text(face font.Face, col color.Color, s string, at chart.Point, anchor chart.Anchor) {
	if s == "" {
		return
	}
	p := c.px(at)
	d := &font.Drawer{Dst: c.dst, Src: image.NewUniform(col), Face: face}
	w := d.MeasureString(s)
	x := fixed.Int26_6(math.Round(float64(p.x) * 64))
	switch anchor {
	case chart.AnchorMiddle:
		x -= w / 2
	case chart.AnchorEnd:
		x -= w
	}
	m := face.Metrics()
	y := fixed.Int26_6(math.Round(float64(p.y)*64)) + (m.Ascent-m.Descent)/2
	d.Dot = fixed.Point26_6{X: x, Y: y}
	d.DrawString(s)
}

func withAlpha(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * opacity))
	return c
}

// parseHex reads #rgb or #rrggbb; anything else falls back to slate grey.
func parseHex(s string) color.NRGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return fallbackColor
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallbackColor
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

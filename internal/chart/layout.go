// Package chart computes the radial "wheel" chart geometry for a set of
// categories and scores and serialises it as SVG.
package chart

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"finitefield.org/wheel-of-life/internal/wheel"
)

const (
	DefaultSize = 360
	MinSize     = 220
	MaxSize     = 420

	gridLevels        = 5
	compactBreakpoint = 280
	shortLabelSize    = 260
	labelLineFactor   = 1.12
	splitLabelRunes   = 12
	ringGap           = 4
	dividerOverhang   = 6
	minDotRadius      = 2.5
	maxDotRadius      = 5
	centerDotRadius   = 6
)

// Anchor is the horizontal text alignment of a label, in SVG text-anchor terms.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
	AnchorEnd    Anchor = "end"
)

// Point is a position in chart pixel space (origin top-left).
type Point struct {
	X, Y float64
}

// Marker is the score dot drawn on the mid-angle ray.
type Marker struct {
	Center Point
	Radius float64
}

// Item is the derived geometry for one category.
type Item struct {
	Category wheel.Category

	StartAngle float64
	EndAngle   float64
	MidAngle   float64
	Normalized float64
	Score      int
	Rated      bool

	ValuePath   string
	RingPath    string
	DividerEnd  Point
	LabelLines  []string
	LabelPoints []Point
	Anchor      Anchor
	ScoreLabel  string
	ScorePoint  Point
	Marker      *Marker
}

// Layout is the complete declarative description of one chart render.
type Layout struct {
	Size           float64
	Center         float64
	OuterRadius    float64
	RingThickness  float64
	ValueMaxRadius float64
	GridRadii      []float64
	LabelFontSize  float64
	ScoreFontSize  float64
	LabelLineStep  float64
	Items          []Item
}

type options struct {
	export    bool
	overrides map[string][]string
}

// Option tweaks a layout computation.
type Option func(*options)

// WithExport prepares the layout for rasterising into a document: full labels
// and label fonts reduced to 90%.
func WithExport() Option {
	return func(o *options) { o.export = true }
}

// WithLabelLines forces the label lines used for specific category ids.
func WithLabelLines(overrides map[string][]string) Option {
	return func(o *options) {
		if len(overrides) == 0 {
			return
		}
		if o.overrides == nil {
			o.overrides = make(map[string][]string, len(overrides))
		}
		for id, lines := range overrides {
			o.overrides[id] = append([]string(nil), lines...)
		}
	}
}

// ClampSize bounds a requested render size; non-positive selects the default.
func ClampSize(n int) int {
	switch {
	case n <= 0:
		return DefaultSize
	case n < MinSize:
		return MinSize
	case n > MaxSize:
		return MaxSize
	}
	return n
}

// Normalize maps a score onto [0,1].
func Normalize(score int) float64 {
	return float64(wheel.ClampScore(score)) / wheel.MaxScore
}

// SectorBounds returns the angular span of sector i of n. Sector 0 starts at
// twelve o'clock and sectors proceed clockwise.
func SectorBounds(i, n int) (start, end float64) {
	slice := 2 * math.Pi / float64(n)
	return slice*float64(i) - math.Pi/2, slice*float64(i+1) - math.Pi/2
}

// Compute derives the chart geometry. It is a pure function of its inputs.
func Compute(categories []wheel.Category, scores wheel.Scores, size float64, opts ...Option) Layout {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	m := metricsFor(size)
	if o.export {
		m.labelFont = math.Max(10, math.Round(m.labelFont*0.9*100)/100)
	}
	l := Layout{
		Size:           size,
		Center:         m.center,
		OuterRadius:    m.outerRadius,
		RingThickness:  m.ringThickness,
		ValueMaxRadius: m.valueMaxRadius,
		LabelFontSize:  m.labelFont,
		ScoreFontSize:  m.scoreFont,
		LabelLineStep:  m.labelFont * labelLineFactor,
	}
	if len(categories) == 0 {
		return l
	}

	l.GridRadii = make([]float64, gridLevels)
	for k := range l.GridRadii {
		l.GridRadii[k] = m.valueMaxRadius * float64(k+1) / gridLevels
	}

	n := len(categories)
	l.Items = make([]Item, 0, n)
	for i, cat := range categories {
		start, end := SectorBounds(i, n)
		mid := (start + end) / 2
		score, rated := scores.Get(cat.ID)
		normalized := Normalize(score)
		valueRadius := normalized * m.valueMaxRadius

		it := Item{
			Category:   cat,
			StartAngle: start,
			EndAngle:   end,
			MidAngle:   mid,
			Normalized: normalized,
			Score:      wheel.ClampScore(score),
			Rated:      rated,
			ValuePath:  sectorPath(m.center, valueRadius, start, end),
			RingPath:   ringPath(m.center, m.outerRadius, m.valueMaxRadius+ringGap, start, end),
			DividerEnd: polar(m.center, m.valueMaxRadius+dividerOverhang, start),
			Anchor:     anchorFor(mid),
			ScoreLabel: strconv.Itoa(wheel.ClampScore(score)) + "/10",
		}
		if normalized > 0 {
			it.Marker = &Marker{
				Center: polar(m.center, valueRadius, mid),
				Radius: math.Max(minDotRadius, normalized*maxDotRadius),
			}
		}

		it.LabelLines = labelLines(cat, size, o)
		base := polar(m.center, m.outerRadius+m.labelDistance, mid)
		extra := float64(len(it.LabelLines)-1) * l.LabelLineStep
		top := base.Y - m.labelOffset - extra/2
		it.LabelPoints = make([]Point, len(it.LabelLines))
		for j := range it.LabelLines {
			it.LabelPoints[j] = Point{X: base.X, Y: top + float64(j)*l.LabelLineStep}
		}
		it.ScorePoint = Point{X: base.X, Y: base.Y + m.scoreOffset + extra/2}

		l.Items = append(l.Items, it)
	}
	return l
}

type metrics struct {
	center         float64
	outerRadius    float64
	ringThickness  float64
	valueMaxRadius float64
	labelFont      float64
	scoreFont      float64
	labelOffset    float64
	scoreOffset    float64
	labelDistance  float64
}

func metricsFor(size float64) metrics {
	center := size / 2
	outer := center - math.Max(28, size*0.1)
	ring := math.Max(24, outer*0.24)
	m := metrics{
		center:         center,
		outerRadius:    outer,
		ringThickness:  ring,
		valueMaxRadius: outer - ring,
	}
	if size <= compactBreakpoint {
		m.labelFont = math.Round(math.Max(11, size*0.05))
		m.scoreFont = math.Round(math.Max(10, size*0.044))
		m.labelOffset = math.Max(10, size*0.034)
		m.scoreOffset = math.Max(12, size*0.04)
		m.labelDistance = math.Max(18, size*0.065)
	} else {
		m.labelFont = math.Round(math.Max(13, size*0.048))
		m.scoreFont = math.Round(math.Max(12, size*0.042))
		m.labelOffset = math.Max(14, size*0.038)
		m.scoreOffset = math.Max(18, size*0.044)
		m.labelDistance = math.Max(26, size*0.07)
	}
	return m
}

func anchorFor(mid float64) Anchor {
	h := math.Cos(mid)
	switch {
	case math.Abs(h) < 0.1:
		return AnchorMiddle
	case h > 0:
		return AnchorStart
	default:
		return AnchorEnd
	}
}

func labelLines(cat wheel.Category, size float64, o options) []string {
	if lines, ok := o.overrides[cat.ID]; ok && len(lines) > 0 {
		return append([]string(nil), lines...)
	}
	label := cat.Label
	if !o.export && size <= shortLabelSize && cat.ShortLabel != "" {
		return []string{cat.ShortLabel}
	}
	words := strings.Fields(label)
	if len(words) == 2 && utf8.RuneCountInString(label) > splitLabelRunes {
		return words
	}
	return []string{label}
}

func polar(center, radius, angle float64) Point {
	return Point{
		X: center + math.Cos(angle)*radius,
		Y: center + math.Sin(angle)*radius,
	}
}

func largeArc(start, end float64) int {
	if end-start > math.Pi {
		return 1
	}
	return 0
}

// sectorPath is the closed pie slice from the centre out to radius. A zero
// radius yields a degenerate path so every category keeps exactly one sector.
func sectorPath(center, radius, start, end float64) string {
	c := num(center)
	if radius <= 0 {
		return "M " + c + " " + c + " Z"
	}
	a := polar(center, radius, start)
	b := polar(center, radius, end)
	r := num(radius)
	var sb strings.Builder
	sb.WriteString("M " + c + " " + c)
	sb.WriteString(" L " + num(a.X) + " " + num(a.Y))
	sb.WriteString(" A " + r + " " + r + " 0 " + strconv.Itoa(largeArc(start, end)) + " 1 " + num(b.X) + " " + num(b.Y))
	sb.WriteString(" Z")
	return sb.String()
}

func ringPath(center, outer, inner, start, end float64) string {
	flag := strconv.Itoa(largeArc(start, end))
	os, oe := polar(center, outer, start), polar(center, outer, end)
	is, ie := polar(center, inner, start), polar(center, inner, end)
	ro, ri := num(outer), num(inner)
	var sb strings.Builder
	sb.WriteString("M " + num(os.X) + " " + num(os.Y))
	sb.WriteString(" A " + ro + " " + ro + " 0 " + flag + " 1 " + num(oe.X) + " " + num(oe.Y))
	sb.WriteString(" L " + num(ie.X) + " " + num(ie.Y))
	sb.WriteString(" A " + ri + " " + ri + " 0 " + flag + " 0 " + num(is.X) + " " + num(is.Y))
	sb.WriteString(" Z")
	return sb.String()
}

// num formats a coordinate with at most three decimals.
func num(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0 // normalise -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

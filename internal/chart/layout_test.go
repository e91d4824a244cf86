package chart

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/wheel-of-life/internal/wheel"
)

func categoriesN(n int) []wheel.Category {
	out := make([]wheel.Category, n)
	for i := range out {
		out[i] = wheel.Category{ID: string(rune('a' + i)), Label: "Cat", Color: "#000000"}
	}
	return out
}

func allScores(c []wheel.Category, v int) wheel.Scores {
	s := wheel.Scores{}
	for _, cat := range c {
		s = s.With(cat.ID, v)
	}
	return s
}

func TestSectorsPartitionCircle(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 12; n++ {
		l := Compute(categoriesN(n), wheel.Scores{}, DefaultSize)
		require.Len(t, l.Items, n)

		var total float64
		for i, it := range l.Items {
			wantStart := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
			wantEnd := 2*math.Pi*float64(i+1)/float64(n) - math.Pi/2
			require.InDelta(t, wantStart, it.StartAngle, 1e-12, "n=%d i=%d", n, i)
			require.InDelta(t, wantEnd, it.EndAngle, 1e-12, "n=%d i=%d", n, i)
			require.InDelta(t, (wantStart+wantEnd)/2, it.MidAngle, 1e-12)
			total += it.EndAngle - it.StartAngle
			if i > 0 {
				require.Equal(t, l.Items[i-1].EndAngle, it.StartAngle)
			}
		}
		require.InDelta(t, 2*math.Pi, total, 1e-9, "n=%d", n)
	}
}

func TestNormalizeClamps(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, Normalize(-3))
	require.Equal(t, 1.0, Normalize(15))
	for s := 0; s <= 10; s++ {
		require.InDelta(t, float64(s)/10, Normalize(s), 1e-12)
	}
}

func TestMarkerOnlyForPositiveScores(t *testing.T) {
	t.Parallel()

	cats := categoriesN(3)
	scores := wheel.Scores{}.With(cats[0].ID, 0).With(cats[1].ID, 4)
	l := Compute(cats, scores, DefaultSize)

	require.Nil(t, l.Items[0].Marker, "explicit zero")
	require.NotNil(t, l.Items[1].Marker)
	require.Nil(t, l.Items[2].Marker, "unset")

	require.True(t, l.Items[0].Rated)
	require.False(t, l.Items[2].Rated)
	require.Equal(t, "0/10", l.Items[2].ScoreLabel)
	require.InDelta(t, math.Max(2.5, 0.4*5), l.Items[1].Marker.Radius, 1e-12)
}

func TestZeroScoreKeepsDegenerateSector(t *testing.T) {
	t.Parallel()

	l := Compute(categoriesN(2), wheel.Scores{}, 300)
	for _, it := range l.Items {
		require.Equal(t, "M 150 150 Z", it.ValuePath)
	}
}

func TestEmptyCategoriesYieldEmptyChart(t *testing.T) {
	t.Parallel()

	l := Compute(nil, wheel.Scores{}, DefaultSize)
	require.Empty(t, l.Items)
	require.Empty(t, l.GridRadii)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(l.SVG()))
	require.NoError(t, err)
	require.Equal(t, 0, doc.Find("path").Length())
	require.Equal(t, 1, doc.Find("circle.center").Length())
}

func TestEightCategoryChartElementCounts(t *testing.T) {
	t.Parallel()

	cat := wheel.DefaultCatalog()
	for _, size := range []float64{220, 300, 360, 420} {
		l := Compute(cat.Categories, wheel.Scores{}.With("health", 3), size)
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(l.SVG()))
		require.NoError(t, err)

		require.Equal(t, 8, doc.Find("path.sector").Length(), "size=%v", size)
		require.Equal(t, 8, doc.Find("path.ring").Length())
		require.Equal(t, 8, doc.Find("line.divider").Length())
		require.Equal(t, 5, doc.Find("circle.grid").Length())
		require.Equal(t, 1, doc.Find("circle.dot").Length())
		require.Equal(t, 1, doc.Find(`circle.grid:not([stroke-dasharray])`).Length())
	}
}

func TestAllSevensAtDefaultSize(t *testing.T) {
	t.Parallel()

	cat := wheel.DefaultCatalog()
	l := Compute(cat.Categories, allScores(cat.Categories, 7), 360)

	require.Equal(t, 180.0, l.Center)
	require.InDelta(t, 144, l.OuterRadius, 1e-9)
	require.InDelta(t, 144*0.24, l.RingThickness, 1e-9)
	require.InDelta(t, 144-144*0.24, l.ValueMaxRadius, 1e-9)

	want := 0.7 * l.ValueMaxRadius
	for _, it := range l.Items {
		require.InDelta(t, math.Pi/4, it.EndAngle-it.StartAngle, 1e-12)
		require.InDelta(t, 0.7, it.Normalized, 1e-12)
		require.Equal(t, "7/10", it.ScoreLabel)
		require.Contains(t, it.ValuePath, "A "+num(want)+" "+num(want)+" 0 0 1")

		dx := it.Marker.Center.X - l.Center
		dy := it.Marker.Center.Y - l.Center
		require.InDelta(t, want, math.Hypot(dx, dy), 1e-9)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(l.SVG()))
	require.NoError(t, err)
	doc.Find("text.score").Each(func(_ int, s *goquery.Selection) {
		require.Equal(t, "7/10", s.Text())
	})
	require.Equal(t, 8, doc.Find("text.score").Length())
}

func TestAnchorsFollowHorizontalDirection(t *testing.T) {
	t.Parallel()

	single := Compute(categoriesN(1), wheel.Scores{}, DefaultSize)
	require.Equal(t, AnchorMiddle, single.Items[0].Anchor)

	cat := wheel.DefaultCatalog()
	l := Compute(cat.Categories, wheel.Scores{}, DefaultSize)
	for i, it := range l.Items {
		if i < 4 {
			require.Equal(t, AnchorStart, it.Anchor, "item %d", i)
		} else {
			require.Equal(t, AnchorEnd, it.Anchor, "item %d", i)
		}
	}
}

func TestLargeArcFlag(t *testing.T) {
	t.Parallel()

	one := Compute(categoriesN(1), wheel.Scores{}, DefaultSize)
	require.Contains(t, one.Items[0].RingPath, " 0 1 1 ")

	two := Compute(categoriesN(2), wheel.Scores{}, DefaultSize)
	require.Contains(t, two.Items[0].RingPath, " 0 0 1 ")
	require.Contains(t, two.Items[0].RingPath, " 0 0 0 ")
}

func TestLabelLines(t *testing.T) {
	t.Parallel()

	cat := wheel.DefaultCatalog()
	idx := func(l Layout, id string) Item {
		for _, it := range l.Items {
			if it.Category.ID == id {
				return it
			}
		}
		t.Fatalf("missing %s", id)
		return Item{}
	}

	big := Compute(cat.Categories, wheel.Scores{}, 360)
	growth := idx(big, "personal_growth")
	require.Equal(t, []string{"Personal", "Growth"}, growth.LabelLines)
	require.Len(t, growth.LabelPoints, 2)
	require.InDelta(t, big.LabelLineStep, growth.LabelPoints[1].Y-growth.LabelPoints[0].Y, 1e-9)
	require.InDelta(t, big.LabelFontSize*1.12, big.LabelLineStep, 1e-9)

	health := idx(big, "health")
	require.Equal(t, []string{"Health"}, health.LabelLines)
	require.Equal(t, []string{"Social Life"}, idx(big, "social_life").LabelLines)

	// The score label sits below the stacked label block.
	require.Greater(t, growth.ScorePoint.Y, growth.LabelPoints[1].Y)

	small := Compute(cat.Categories, wheel.Scores{}, 240)
	require.Equal(t, []string{"Growth"}, idx(small, "personal_growth").LabelLines)
	require.Equal(t, []string{"R/ships"}, idx(small, "relationships").LabelLines)

	export := Compute(cat.Categories, wheel.Scores{}, 240, WithExport())
	require.Equal(t, []string{"Personal", "Growth"}, idx(export, "personal_growth").LabelLines)
	require.Equal(t, []string{"Relationships"}, idx(export, "relationships").LabelLines)

	override := Compute(cat.Categories, wheel.Scores{}, 360, WithLabelLines(map[string][]string{"career": {"Work", "Life"}}))
	require.Equal(t, []string{"Work", "Life"}, idx(override, "career").LabelLines)
}

func TestFontBreakpoints(t *testing.T) {
	t.Parallel()

	compact := Compute(categoriesN(8), wheel.Scores{}, 240)
	require.Equal(t, 12.0, compact.LabelFontSize)
	require.Equal(t, 11.0, compact.ScoreFontSize)

	large := Compute(categoriesN(8), wheel.Scores{}, 420)
	require.Equal(t, 20.0, large.LabelFontSize)
	require.Equal(t, 18.0, large.ScoreFontSize)

	export := Compute(categoriesN(8), wheel.Scores{}, 420, WithExport())
	require.Equal(t, 18.0, export.LabelFontSize)

	tiny := Compute(categoriesN(8), wheel.Scores{}, 220, WithExport())
	require.Equal(t, 10.0, tiny.LabelFontSize, "export font never drops below 10")
}

func TestClampSize(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultSize, ClampSize(0))
	require.Equal(t, MinSize, ClampSize(10))
	require.Equal(t, MaxSize, ClampSize(4000))
	require.Equal(t, 300, ClampSize(300))
}

func TestSVGEscapesLabels(t *testing.T) {
	t.Parallel()

	cats := []wheel.Category{{ID: "x", Label: "Work & <Play>", Color: "#fff"}}
	svg := string(Compute(cats, wheel.Scores{}, DefaultSize).SVG())
	require.Contains(t, svg, "Work &amp; &lt;Play&gt;")
	require.False(t, strings.Contains(svg, "<Play>"))
}

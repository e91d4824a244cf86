package report

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/wheel-of-life/internal/raster"
	"finitefield.org/wheel-of-life/internal/wheel"
)

// fixedWidth measures every rune as 10 points regardless of font.
type fixedWidth struct{}

func (fixedWidth) TextWidth(text string, _ Font) float64 {
	return float64(len([]rune(text))) * 10
}

var completed = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func entries(n int, note string) []CategoryEntry {
	out := make([]CategoryEntry, n)
	for i := range out {
		out[i] = CategoryEntry{Label: fmt.Sprintf("Cat %d", i), Score: i % 11, Note: note}
	}
	return out
}

func indexOf(t *testing.T, p Plan, text string) int {
	t.Helper()
	for i, op := range p.Ops {
		if op.Kind == OpText && op.Text == text {
			return i
		}
	}
	t.Fatalf("text %q not in plan", text)
	return -1
}

func TestTitleBlock(t *testing.T) {
	t.Parallel()

	p := Paginate(Input{Completed: completed}, DefaultConfig(), fixedWidth{})
	require.Equal(t, 1, p.Pages)

	title := p.Ops[0]
	require.Equal(t, "Wheel of Life Review", title.Text)
	require.Equal(t, Font{Style: Bold, Size: 22}, title.Font)
	require.Equal(t, 60.0, title.Y)

	date := p.Ops[1]
	require.Equal(t, "Completed on 16/10/2026", date.Text)
	require.Equal(t, 78.0, date.Y)

	heading := p.Ops[2]
	require.Equal(t, "Scores & notes", heading.Text)
	require.Equal(t, 122.0, heading.Y, "no chart: body starts at margin+78")
}

func TestChartPlacement(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	img := raster.Image{Width: 500, Height: 400, PNG: []byte{1}}
	p := Paginate(Input{Completed: completed, Chart: img}, cfg, fixedWidth{})

	op := p.Ops[2]
	require.Equal(t, OpImage, op.Kind)
	require.InDelta(t, 447.28, op.Width, 1e-9)
	require.InDelta(t, 400*447.28/500, op.Height, 1e-9)
	require.InDelta(t, 74, op.X, 1e-9, "centred in the content width")
	require.Equal(t, 122.0, op.Y)

	heading := p.Ops[indexOf(t, p, "Scores & notes")]
	require.InDelta(t, 122+op.Height+40, heading.Y, 1e-9)
}

func TestNoImageWithoutChart(t *testing.T) {
	t.Parallel()

	p := Paginate(Input{Completed: completed, Categories: entries(3, "")}, DefaultConfig(), fixedWidth{})
	for _, op := range p.Ops {
		require.NotEqual(t, OpImage, op.Kind)
	}
	require.Contains(t, p.Texts(), "Score: 2/10")
}

func TestCategoryBlockRhythm(t *testing.T) {
	t.Parallel()

	in := Input{Completed: completed, Categories: []CategoryEntry{
		{Label: "Health", Score: 7, Note: "  walk more  "},
		{Label: "Career", Score: 4},
	}}
	p := Paginate(in, DefaultConfig(), fixedWidth{})

	label := p.Ops[indexOf(t, p, "Health")]
	require.Equal(t, 148.0, label.Y)
	require.Equal(t, Font{Style: Bold, Size: 12}, label.Font)
	require.Equal(t, 162.0, p.Ops[indexOf(t, p, "Score: 7/10")].Y)
	note := p.Ops[indexOf(t, p, "walk more")]
	require.Equal(t, 182.0, note.Y)
	require.Equal(t, Font{Style: Regular, Size: 11.5}, note.Font)

	// 182 + one note line (14) + block spacing (14).
	require.Equal(t, 210.0, p.Ops[indexOf(t, p, "Career")].Y)
	// Last block has no trailing spacing: 210 + 14 + 10, then the section gap.
	require.Equal(t, 266.0, p.Ops[indexOf(t, p, "Reflection prompts")].Y)
}

func TestSingleBreakWhenScoresOverflow(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	p := Paginate(Input{Completed: completed, Categories: entries(12, "note")}, cfg, fixedWidth{})

	breaks := p.Breaks()
	require.Len(t, breaks, 1)
	require.Equal(t, 2, p.Pages)

	// Blocks are 62pt tall from y=148; block 10 starts at 768 and would end
	// at 830, past the 797.89 bottom margin.
	before := p.Ops[breaks[0]-1]
	require.Equal(t, "note", before.Text)
	require.Equal(t, 1, before.Page)

	cont := p.Ops[breaks[0]+1]
	require.Equal(t, "Scores & notes (cont.)", cont.Text)
	require.Equal(t, cfg.Margin, cont.Y, "cursor resets to the top margin")
	require.Equal(t, 2, cont.Page)

	next := p.Ops[breaks[0]+2]
	require.Equal(t, "Cat 10", next.Text)
	require.Equal(t, cfg.Margin+cfg.HeadingSpacing, next.Y)

	assertFlow(t, p, cfg)
}

func TestPromptPlaceholderAndFonts(t *testing.T) {
	t.Parallel()

	in := Input{Completed: completed, Prompts: []PromptEntry{
		{Question: "What is strongest?", Answer: " \n\t "},
		{Question: "What is weakest?", Answer: "Money"},
	}}
	p := Paginate(in, DefaultConfig(), fixedWidth{})

	q := p.Ops[indexOf(t, p, "What is strongest?")]
	require.Equal(t, Font{Style: Bold, Size: 11.5}, q.Font)
	placeholder := p.Ops[indexOf(t, p, "(No notes yet)")]
	require.Equal(t, Font{Style: Regular, Size: 11.5}, placeholder.Font)
	require.Equal(t, q.Y+16, placeholder.Y)

	q2 := p.Ops[indexOf(t, p, "What is weakest?")]
	require.Equal(t, placeholder.Y+16+16, q2.Y)
	require.Contains(t, p.Texts(), "Money")
}

func TestPromptHeadingKeptWithFirstPrompt(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.PageHeight = 270 // bottom margin at 226
	in := Input{Completed: completed, Prompts: []PromptEntry{{Question: "Q", Answer: "A"}}}
	p := Paginate(in, cfg, fixedWidth{})

	// The heading alone (180+22) fits, the heading plus the prompt (180+70) does not.
	heading := indexOf(t, p, "Reflection prompts")
	require.Equal(t, OpPageBreak, p.Ops[heading-1].Kind)
	require.Equal(t, cfg.Margin, p.Ops[heading].Y)
	require.Equal(t, cfg.Margin+22, p.Ops[indexOf(t, p, "Q")].Y)
	require.Len(t, p.Breaks(), 1)
}

func TestOversizeBlockOverflows(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	huge := strings.TrimSpace(strings.Repeat("word\n", 80))
	p := Paginate(Input{Completed: completed, Categories: []CategoryEntry{{Label: "Big", Note: huge}}}, cfg, fixedWidth{})

	breaks := p.Breaks()
	require.NotEmpty(t, breaks)
	first := breaks[0]
	require.Equal(t, "Scores & notes (cont.)", p.Ops[first+1].Text)
	require.Equal(t, "Big", p.Ops[first+2].Text)

	var last Op
	for _, op := range p.Ops[first:] {
		if op.Kind == OpText && op.Text == "word" {
			last = op
		} else if op.Kind == OpPageBreak && last.Text != "" {
			break
		}
	}
	require.Greater(t, last.Y, cfg.PageHeight-cfg.Margin, "oversize block is placed, not split")
	require.Equal(t, 2, last.Page)
}

func TestOversizeFirstPromptKeepsHeading(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	huge := strings.TrimSpace(strings.Repeat("line\n", 60))
	in := Input{Completed: completed, Prompts: []PromptEntry{{Question: "Q1", Answer: huge}, {Question: "Q2", Answer: huge}}}
	p := Paginate(in, cfg, fixedWidth{})

	breaks := p.Breaks()
	require.Len(t, breaks, 2)
	// The heading moves with the first prompt, which then overflows in place.
	require.Equal(t, "Reflection prompts", p.Ops[breaks[0]+1].Text)
	require.Equal(t, "Q1", p.Ops[breaks[0]+2].Text)
	require.Equal(t, "Q2", p.Ops[breaks[1]+1].Text)
}

func TestDefaultCatalogReport(t *testing.T) {
	t.Parallel()

	c := wheel.DefaultCatalog()
	s := wheel.NewState()
	for _, cat := range c.Categories {
		var err error
		s, err = s.SelectScore(c, cat.ID, 7)
		require.NoError(t, err)
		s, err = s.SetReflection(c, cat.ID, "Some thoughts about "+cat.Label)
		require.NoError(t, err)
	}
	cfg := DefaultConfig()
	img := raster.Image{Width: 560, Height: 470, PNG: []byte{1}}
	p := Paginate(InputFrom(c, s, completed, img), cfg, fixedWidth{})

	texts := p.Texts()
	require.Contains(t, texts, "Personal Growth")
	require.Contains(t, texts, "(No notes yet)")
	require.GreaterOrEqual(t, p.Pages, 2)
	assertFlow(t, p, cfg)
}

// assertFlow checks the cursor invariants: one linear cursor per page, reset
// at each break, nothing below the bottom margin.
func assertFlow(t *testing.T, p Plan, cfg Config) {
	t.Helper()
	page, lastY := 1, 0.0
	for _, op := range p.Ops {
		switch op.Kind {
		case OpPageBreak:
			page++
			require.Equal(t, page, op.Page)
			lastY = 0
		case OpText:
			require.Equal(t, page, op.Page)
			require.GreaterOrEqual(t, op.Y, lastY)
			require.LessOrEqual(t, op.Y, cfg.PageHeight-cfg.Margin)
			lastY = op.Y
		case OpImage:
			require.LessOrEqual(t, op.Y+op.Height, cfg.PageHeight-cfg.Margin)
			lastY = op.Y + op.Height
		}
	}
	require.Equal(t, page, p.Pages)
}

func TestWrap(t *testing.T) {
	t.Parallel()

	measure := func(s string) float64 { return float64(len([]rune(s))) }

	require.Equal(t, []string{""}, Wrap("", 10, measure))
	require.Equal(t, []string{"one two", "three"}, Wrap("one   two three", 8, measure))
	require.Equal(t, []string{"a", "", "b"}, Wrap("a\r\n\nb", 8, measure))
	require.Equal(t, []string{"abcd", "efgh", "ij"}, Wrap("abcdefghij", 4, measure))
	require.Equal(t, []string{"xy", "abcd", "efg"}, Wrap("xy abcdefg", 4, measure))
}

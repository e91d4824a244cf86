// Package report lays out the Wheel of Life review document and renders it
// as a PDF.
package report

import (
	"strconv"
	"strings"
	"time"

	"finitefield.org/wheel-of-life/internal/raster"
	"finitefield.org/wheel-of-life/internal/wheel"
)

// FileName is the download name of the generated document.
const FileName = "wheel-of-life.pdf"

// Style selects the typeface weight.
type Style uint8

const (
	Regular Style = iota
	Bold
)

// Font is a text style used for both measuring and drawing.
type Font struct {
	Style Style
	Size  float64
}

// Measurer reports the rendered width of text in page units.
type Measurer interface {
	TextWidth(text string, font Font) float64
}

// Config holds the page geometry and the vertical rhythm of the document.
// All lengths are in PDF points.
type Config struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64

	Title       string
	TitleFont   Font
	TitleOffset float64
	DateFont    Font
	DateOffset  float64
	DateLayout  string
	BodyOffset  float64

	ChartPadding  float64
	ChartMinWidth float64
	ChartMaxWidth float64
	ChartGap      float64

	TextRightPadding float64
	MinLineWidth     float64

	HeadingFont      Font
	ScoresHeading    string
	ContinuedHeading string
	HeadingSpacing   float64

	LabelFont      Font
	BodyFont       Font
	LabelSpacing   float64
	ScoreSpacing   float64
	NoteGap        float64
	NoteLineHeight float64
	BlockSpacing   float64

	SectionGap            float64
	PromptsHeading        string
	PromptsHeadingSpacing float64
	PromptLineHeight      float64
	PromptGap             float64
	Placeholder           string
}

// DefaultConfig is an A4 portrait page with the standard review layout.
func DefaultConfig() Config {
	return Config{
		PageWidth:  595.28,
		PageHeight: 841.89,
		Margin:     44,

		Title:       "Wheel of Life Review",
		TitleFont:   Font{Style: Bold, Size: 22},
		TitleOffset: 16,
		DateFont:    Font{Style: Regular, Size: 11},
		DateOffset:  34,
		DateLayout:  "02/01/2006",
		BodyOffset:  78,

		ChartPadding:  60,
		ChartMinWidth: 240,
		ChartMaxWidth: 560,
		ChartGap:      40,

		TextRightPadding: 48,
		MinLineWidth:     280,

		HeadingFont:      Font{Style: Bold, Size: 14},
		ScoresHeading:    "Scores & notes",
		ContinuedHeading: "Scores & notes (cont.)",
		HeadingSpacing:   26,

		LabelFont:      Font{Style: Bold, Size: 12},
		BodyFont:       Font{Style: Regular, Size: 11.5},
		LabelSpacing:   14,
		ScoreSpacing:   10,
		NoteGap:        10,
		NoteLineHeight: 14,
		BlockSpacing:   14,

		SectionGap:            32,
		PromptsHeading:        "Reflection prompts",
		PromptsHeadingSpacing: 22,
		PromptLineHeight:      16,
		PromptGap:             16,
		Placeholder:           "(No notes yet)",
	}
}

// ContentWidth is the page width inside the side margins.
func (c Config) ContentWidth() float64 { return c.PageWidth - 2*c.Margin }

// LineWidth is the wrapping width for body text.
func (c Config) LineWidth() float64 {
	return max(c.ContentWidth()-c.TextRightPadding, c.MinLineWidth)
}

// ChartWidth is the width budget for the chart image.
func (c Config) ChartWidth() float64 {
	return min(max(c.ContentWidth()-c.ChartPadding, c.ChartMinWidth), c.ChartMaxWidth)
}

// bottom is the lowest y a block may reach.
func (c Config) bottom() float64 { return c.PageHeight - c.Margin }

// CategoryEntry is one rated category as it appears in the document.
type CategoryEntry struct {
	Label string
	Score int
	Note  string
}

// PromptEntry is one reflective question and the user's answer.
type PromptEntry struct {
	Question string
	Answer   string
}

// Input is everything the document shows. Chart may be empty, in which case
// the document is text only.
type Input struct {
	Completed  time.Time
	Chart      raster.Image
	Categories []CategoryEntry
	Prompts    []PromptEntry
}

// InputFrom collects the document content for a wizard state. Unset scores
// print as 0.
func InputFrom(c *wheel.Catalog, s wheel.State, completed time.Time, chart raster.Image) Input {
	in := Input{
		Completed:  completed,
		Chart:      chart,
		Categories: make([]CategoryEntry, 0, len(c.Categories)),
		Prompts:    make([]PromptEntry, 0, len(c.Prompts)),
	}
	for _, cat := range c.Categories {
		in.Categories = append(in.Categories, CategoryEntry{
			Label: cat.Label,
			Score: s.Scores.Value(cat.ID),
			Note:  s.Reflections.Get(cat.ID),
		})
	}
	for _, p := range c.Prompts {
		in.Prompts = append(in.Prompts, PromptEntry{
			Question: p.Question,
			Answer:   s.Reflections.Get(p.ID),
		})
	}
	return in
}

// OpKind discriminates draw operations.
type OpKind uint8

const (
	OpText OpKind = iota + 1
	OpImage
	OpPageBreak
)

func (k OpKind) String() string {
	switch k {
	case OpText:
		return "text"
	case OpImage:
		return "image"
	case OpPageBreak:
		return "page-break"
	}
	return "op(" + strconv.Itoa(int(k)) + ")"
}

// Op is one draw operation. Text ops are placed at their baseline.
type Op struct {
	Kind   OpKind
	Page   int
	X, Y   float64
	Text   string
	Font   Font
	Width  float64
	Height float64
	Image  raster.Image
}

// Plan is the ordered operation list for a whole document.
type Plan struct {
	Ops   []Op
	Pages int
}

// Texts returns the text of every text op, in order.
func (p Plan) Texts() []string {
	out := make([]string, 0, len(p.Ops))
	for _, op := range p.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// Breaks returns the indexes of the page-break ops.
func (p Plan) Breaks() []int {
	var out []int
	for i, op := range p.Ops {
		if op.Kind == OpPageBreak {
			out = append(out, i)
		}
	}
	return out
}

type flow struct {
	cfg    Config
	m      Measurer
	cursor float64
	page   int
	ops    []Op
}

func (f *flow) text(s string, font Font) {
	f.ops = append(f.ops, Op{Kind: OpText, Page: f.page, X: f.cfg.Margin, Y: f.cursor, Text: s, Font: font})
}

func (f *flow) lines(lines []string, font Font, step float64) {
	for i, line := range lines {
		f.ops = append(f.ops, Op{Kind: OpText, Page: f.page, X: f.cfg.Margin, Y: f.cursor + float64(i)*step, Text: line, Font: font})
	}
}

// ensure starts a new page when a block of height h would cross the bottom
// margin. A page that is still empty is kept, so an oversize block overflows
// instead of leaving blank pages behind.
func (f *flow) ensure(h float64) bool {
	if f.cursor+h <= f.cfg.bottom() || f.cursor <= f.cfg.Margin {
		return false
	}
	f.pageBreak()
	return true
}

func (f *flow) pageBreak() {
	f.page++
	f.ops = append(f.ops, Op{Kind: OpPageBreak, Page: f.page})
	f.cursor = f.cfg.Margin
}

func (f *flow) wrap(s string, font Font) []string {
	return Wrap(s, f.cfg.LineWidth(), func(line string) float64 { return f.m.TextWidth(line, font) })
}

// Paginate flows the document onto pages. A block is moved to a new page when
// it would cross the bottom margin; a block taller than a whole page is still
// placed and overflows.
func Paginate(in Input, cfg Config, m Measurer) Plan {
	f := &flow{cfg: cfg, m: m, page: 1}

	f.cursor = cfg.Margin + cfg.TitleOffset
	f.text(cfg.Title, cfg.TitleFont)
	f.cursor = cfg.Margin + cfg.DateOffset
	f.text("Completed on "+in.Completed.Format(cfg.DateLayout), cfg.DateFont)
	f.cursor = cfg.Margin + cfg.BodyOffset

	if !in.Chart.Empty() {
		w := cfg.ChartWidth()
		scale := w / in.Chart.Width
		h := in.Chart.Height * scale
		f.ops = append(f.ops, Op{
			Kind:   OpImage,
			Page:   f.page,
			X:      cfg.Margin + (cfg.ContentWidth()-w)/2,
			Y:      f.cursor,
			Width:  w,
			Height: h,
			Image:  in.Chart,
		})
		f.cursor += h + cfg.ChartGap
	}

	heading := func(title string) {
		f.text(title, cfg.HeadingFont)
		f.cursor += cfg.HeadingSpacing
	}
	heading(cfg.ScoresHeading)

	for i, entry := range in.Categories {
		note := strings.TrimSpace(entry.Note)
		var noteLines []string
		if note != "" {
			noteLines = f.wrap(note, cfg.BodyFont)
		}
		h := cfg.LabelSpacing + cfg.ScoreSpacing
		if len(noteLines) > 0 {
			h += cfg.NoteGap + float64(len(noteLines))*cfg.NoteLineHeight
		}
		trailing := 0.0
		if i < len(in.Categories)-1 {
			trailing = cfg.BlockSpacing
		}
		h += trailing

		if f.ensure(h) {
			heading(cfg.ContinuedHeading)
		}

		f.text(entry.Label, cfg.LabelFont)
		f.cursor += cfg.LabelSpacing
		f.text("Score: "+strconv.Itoa(wheel.ClampScore(entry.Score))+"/10", cfg.BodyFont)
		f.cursor += cfg.ScoreSpacing
		if len(noteLines) > 0 {
			f.cursor += cfg.NoteGap
			f.lines(noteLines, cfg.BodyFont, cfg.NoteLineHeight)
			f.cursor += float64(len(noteLines)) * cfg.NoteLineHeight
		}
		f.cursor += trailing
	}

	f.cursor += cfg.SectionGap

	type promptBlock struct {
		question []string
		answer   []string
		height   float64
	}
	blocks := make([]promptBlock, len(in.Prompts))
	for i, p := range in.Prompts {
		answer := strings.TrimSpace(p.Answer)
		if answer == "" {
			answer = cfg.Placeholder
		}
		b := promptBlock{
			question: f.wrap(p.Question, cfg.BodyFont),
			answer:   f.wrap(answer, cfg.BodyFont),
		}
		b.height = float64(len(b.question)+len(b.answer))*cfg.PromptLineHeight + cfg.PromptGap
		blocks[i] = b
	}

	// Keep the section heading with the first prompt.
	lead := cfg.PromptsHeadingSpacing
	if len(blocks) > 0 {
		lead += blocks[0].height
	}
	f.ensure(lead)
	f.text(cfg.PromptsHeading, cfg.HeadingFont)
	f.cursor += cfg.PromptsHeadingSpacing

	for i, b := range blocks {
		if i > 0 {
			f.ensure(b.height)
		}
		f.lines(b.question, Font{Style: Bold, Size: cfg.BodyFont.Size}, cfg.PromptLineHeight)
		f.cursor += float64(len(b.question)) * cfg.PromptLineHeight
		f.lines(b.answer, cfg.BodyFont, cfg.PromptLineHeight)
		f.cursor += float64(len(b.answer))*cfg.PromptLineHeight + cfg.PromptGap
	}

	return Plan{Ops: f.ops, Pages: f.page}
}

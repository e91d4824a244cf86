package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

// PDFSurface draws a Plan onto an A4 PDF document. It also measures text with
// the same core font metrics the document uses, so wrapping matches output.
type PDFSurface struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	images  int
	font    Font
	fontSet bool
}

// NewPDFSurface starts a document with one empty page.
func NewPDFSurface(cfg Config, created time.Time) *PDFSurface {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: cfg.PageWidth, Ht: cfg.PageHeight},
	})
	pdf.SetMargins(cfg.Margin, cfg.Margin, cfg.Margin)
	pdf.SetAutoPageBreak(false, cfg.Margin)
	pdf.SetTitle(cfg.Title, true)
	pdf.SetCreator("wheel-of-life", true)
	if !created.IsZero() {
		pdf.SetCreationDate(created)
		pdf.SetModificationDate(created)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if tr == nil {
		tr = func(s string) string { return s }
	}
	pdf.AddPage()
	return &PDFSurface{pdf: pdf, tr: tr}
}

// TextWidth implements Measurer.
func (s *PDFSurface) TextWidth(text string, font Font) float64 {
	s.setFont(font)
	return s.pdf.GetStringWidth(s.tr(text))
}

func (s *PDFSurface) setFont(font Font) {
	if s.fontSet && s.font == font {
		return
	}
	style := ""
	if font.Style == Bold {
		style = "B"
	}
	s.pdf.SetFont(fontFamily, style, font.Size)
	s.font, s.fontSet = font, true
}

// Draw executes the plan's operations in order.
func (s *PDFSurface) Draw(plan Plan) error {
	for _, op := range plan.Ops {
		switch op.Kind {
		case OpText:
			s.setFont(op.Font)
			s.pdf.Text(op.X, op.Y, s.tr(op.Text))
		case OpImage:
			if op.Image.Empty() {
				continue
			}
			s.images++
			name := "chart-" + strconv.Itoa(s.images)
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			s.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(op.Image.PNG))
			s.pdf.ImageOptions(name, op.X, op.Y, op.Width, op.Height, false, opts, 0, "")
		case OpPageBreak:
			s.pdf.AddPage()
		default:
			return fmt.Errorf("report: unknown draw operation %s", op.Kind)
		}
		if err := s.pdf.Error(); err != nil {
			return fmt.Errorf("report: draw %s: %w", op.Kind, err)
		}
	}
	return nil
}

// PageCount is the number of pages in the document so far.
func (s *PDFSurface) PageCount() int { return s.pdf.PageCount() }

// Output finalises the document and writes it to w.
func (s *PDFSurface) Output(w io.Writer) error {
	if err := s.pdf.Output(w); err != nil {
		return fmt.Errorf("report: write pdf: %w", err)
	}
	return nil
}

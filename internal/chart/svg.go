package chart

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

const (
	fontFamily    = "Helvetica, Arial, sans-serif"
	gridStroke    = "#e2e8f0"
	dividerStroke = "#d9e3f8"
	labelFill     = "#1e293b"
	scoreFill     = "#475569"
	centerFill    = "#1f2937"
)

// WriteSVG serialises the layout as a standalone SVG document.
func (l Layout) WriteSVG(w io.Writer) error {
	bw := bufio.NewWriter(w)
	size := num(l.Size)
	c := num(l.Center)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" role="img" aria-label="Wheel of Life chart" width="%s" height="%s" viewBox="0 0 %s %s" font-family="%s">`, size, size, size, size, fontFamily)
	bw.WriteString(`<defs><radialGradient id="wheel-center" cx="50%" cy="50%" r="60%"><stop offset="0%" stop-color="#ffffff"/><stop offset="100%" stop-color="#eef2ff"/></radialGradient></defs>`)

	if len(l.Items) > 0 {
		fmt.Fprintf(bw, `<circle class="backdrop" cx="%s" cy="%s" r="%s" fill="url(#wheel-center)" stroke="#c7d2fe" stroke-width="1"/>`, c, c, num(l.ValueMaxRadius+dividerOverhang))
	}
	for k, r := range l.GridRadii {
		if k == len(l.GridRadii)-1 {
			fmt.Fprintf(bw, `<circle class="grid" cx="%s" cy="%s" r="%s" fill="none" stroke="%s" stroke-width="1.6"/>`, c, c, num(r), gridStroke)
			continue
		}
		fmt.Fprintf(bw, `<circle class="grid" cx="%s" cy="%s" r="%s" fill="none" stroke="%s" stroke-width="1" stroke-dasharray="6 6"/>`, c, c, num(r), gridStroke)
	}
	for _, it := range l.Items {
		fmt.Fprintf(bw, `<path class="ring" data-category="%s" d="%s" fill="%s" opacity="0.35"/>`, escape(it.Category.ID), it.RingPath, escape(it.Category.Color))
	}
	for _, it := range l.Items {
		fmt.Fprintf(bw, `<line class="divider" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`, c, c, num(it.DividerEnd.X), num(it.DividerEnd.Y), dividerStroke)
	}
	for _, it := range l.Items {
		stroke := "1"
		if it.Normalized == 0 {
			stroke = "0"
		}
		fmt.Fprintf(bw, `<path class="sector" data-category="%s" d="%s" fill="%s" opacity="0.55" stroke="rgba(30, 41, 59, 0.3)" stroke-width="%s"/>`, escape(it.Category.ID), it.ValuePath, escape(it.Category.Color), stroke)
	}
	for _, it := range l.Items {
		fmt.Fprintf(bw, `<g class="label-group" data-category="%s">`, escape(it.Category.ID))
		if it.Marker != nil {
			fmt.Fprintf(bw, `<circle class="dot" cx="%s" cy="%s" r="%s" fill="%s" stroke="#fff" stroke-width="1.5"/>`, num(it.Marker.Center.X), num(it.Marker.Center.Y), num(it.Marker.Radius), escape(it.Category.Color))
		}
		for j, line := range it.LabelLines {
			p := it.LabelPoints[j]
			fmt.Fprintf(bw, `<text class="label" x="%s" y="%s" text-anchor="%s" font-size="%s" fill="%s" font-weight="600" dominant-baseline="middle">%s</text>`, num(p.X), num(p.Y), it.Anchor, num(l.LabelFontSize), labelFill, escape(line))
		}
		fmt.Fprintf(bw, `<text class="score" x="%s" y="%s" text-anchor="%s" font-size="%s" fill="%s" dominant-baseline="middle">%s</text>`, num(it.ScorePoint.X), num(it.ScorePoint.Y), it.Anchor, num(l.ScoreFontSize), scoreFill, escape(it.ScoreLabel))
		bw.WriteString(`</g>`)
	}
	fmt.Fprintf(bw, `<circle class="center" cx="%s" cy="%s" r="%d" fill="%s"/>`, c, c, centerDotRadius, centerFill)
	bw.WriteString(`</svg>`)
	return bw.Flush()
}

// SVG returns the serialised document.
func (l Layout) SVG() []byte {
	var buf bytes.Buffer
	_ = l.WriteSVG(&buf)
	return buf.Bytes()
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

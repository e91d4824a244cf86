package report

import "strings"

// Wrap breaks text into lines no wider than width as reported by measure.
// Explicit newlines start a new line, runs of whitespace collapse to one
// space, and a word wider than the line is broken between runes. The result
// always has at least one line.
func Wrap(text string, width float64, measure func(string) float64) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, w := range words {
			if line == "" {
				line = w
			} else if candidate := line + " " + w; measure(candidate) <= width {
				line = candidate
				continue
			} else {
				out = append(out, line)
				line = w
			}
			if measure(line) > width {
				pieces := breakWord(line, width, measure)
				out = append(out, pieces[:len(pieces)-1]...)
				line = pieces[len(pieces)-1]
			}
		}
		out = append(out, line)
	}
	return out
}

func breakWord(word string, width float64, measure func(string) float64) []string {
	var out []string
	runes := []rune(word)
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i-start > 1 && measure(string(runes[start:i])) > width {
			out = append(out, string(runes[start:i-1]))
			start = i - 1
		}
	}
	return append(out, string(runes[start:]))
}

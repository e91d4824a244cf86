package wheel

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// MinScore and MaxScore bound a satisfaction rating.
	MinScore = 0
	MaxScore = 10

	// MaxReflectionRunes caps a single reflection after normalisation.
	MaxReflectionRunes = 4000
)

// Scores maps category id to a rating. A missing id means "not yet rated",
// which is distinct from an explicit 0. Values are immutable; With returns a copy.
type Scores struct {
	values map[string]int
}

// NewScores builds Scores from a plain map, clamping every value into range.
func NewScores(m map[string]int) Scores {
	if len(m) == 0 {
		return Scores{}
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = ClampScore(v)
	}
	return Scores{values: out}
}

// Get returns the rating and whether one was set.
func (s Scores) Get(id string) (int, bool) {
	v, ok := s.values[id]
	return v, ok
}

// Value returns the rating, treating unset as 0.
func (s Scores) Value(id string) int {
	return s.values[id]
}

// IsSet reports whether id has been rated.
func (s Scores) IsSet(id string) bool {
	_, ok := s.values[id]
	return ok
}

// Len returns the number of rated categories.
func (s Scores) Len() int { return len(s.values) }

// With returns a copy of s with id set to v (clamped).
func (s Scores) With(id string, v int) Scores {
	out := make(map[string]int, len(s.values)+1)
	for k, old := range s.values {
		out[k] = old
	}
	out[id] = ClampScore(v)
	return Scores{values: out}
}

// Without returns a copy of s with id unset.
func (s Scores) Without(id string) Scores {
	if _, ok := s.values[id]; !ok {
		return s
	}
	out := make(map[string]int, len(s.values))
	for k, v := range s.values {
		if k != id {
			out[k] = v
		}
	}
	return Scores{values: out}
}

// Map returns a fresh copy of the underlying values.
func (s Scores) Map() map[string]int {
	out := make(map[string]int, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// ClampScore bounds v into [MinScore, MaxScore].
func ClampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// Reflections maps a category or prompt id to free text; missing means empty.
type Reflections struct {
	values map[string]string
}

// NewReflections builds Reflections from a plain map, normalising each entry.
func NewReflections(m map[string]string) Reflections {
	if len(m) == 0 {
		return Reflections{}
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v = NormalizeText(v); v != "" {
			out[k] = v
		}
	}
	return Reflections{values: out}
}

// Get returns the stored text or "".
func (r Reflections) Get(id string) string {
	return r.values[id]
}

// With returns a copy of r with id replaced by text. Empty text removes the entry.
func (r Reflections) With(id, text string) Reflections {
	text = NormalizeText(text)
	out := make(map[string]string, len(r.values)+1)
	for k, v := range r.values {
		out[k] = v
	}
	if text == "" {
		delete(out, id)
	} else {
		out[id] = text
	}
	return Reflections{values: out}
}

// Map returns a fresh copy of the underlying values.
func (r Reflections) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// NormalizeText converts user text to NFC, drops control characters other than
// newline and tab, unifies line endings and caps the length. Surrounding
// whitespace is preserved unless the text is blank.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if r == '\r' {
			r = '\n'
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		if n == MaxReflectionRunes {
			break
		}
		b.WriteRune(r)
		n++
	}
	out := b.String()
	if strings.TrimSpace(out) == "" {
		return ""
	}
	return out
}

package wheel

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownCategory = errors.New("wheel: unknown category")
	ErrUnknownPrompt   = errors.New("wheel: unknown reflection key")
	ErrScoreOutOfRange = errors.New("wheel: score out of range")
	ErrCannotContinue  = errors.New("wheel: active category has no score")
)

// State is the whole of a user's progress through the exercise. Every
// operation returns a new State; the receiver is never modified.
type State struct {
	Scores      Scores
	Reflections Reflections
	Step        int
}

// NewState returns the built-in defaults: nothing rated, no notes, first step.
func NewState() State {
	return State{}
}

// ClampStep bounds step into [0, n].
func ClampStep(step, n int) int {
	if step < 0 {
		return 0
	}
	if step > n {
		return n
	}
	return step
}

// SelectScore rates category id.
func (s State) SelectScore(c *Catalog, id string, v int) (State, error) {
	if !c.HasCategory(id) {
		return s, fmt.Errorf("%w: %q", ErrUnknownCategory, id)
	}
	if v < MinScore || v > MaxScore {
		return s, fmt.Errorf("%w: %d", ErrScoreOutOfRange, v)
	}
	s.Scores = s.Scores.With(id, v)
	return s, nil
}

// SetReflection replaces the note for a category or the answer for a prompt.
func (s State) SetReflection(c *Catalog, id, text string) (State, error) {
	if !c.IsReflectionKey(id) {
		return s, fmt.Errorf("%w: %q", ErrUnknownPrompt, id)
	}
	s.Reflections = s.Reflections.With(id, text)
	return s, nil
}

// Next advances one step. It is refused while the active category is unrated.
func (s State) Next(c *Catalog) (State, error) {
	if !s.CanContinue(c) {
		return s, ErrCannotContinue
	}
	s.Step = ClampStep(s.Step+1, c.Len())
	return s, nil
}

// Back returns to the previous step, stopping at the first.
func (s State) Back(c *Catalog) State {
	s.Step = ClampStep(s.Step-1, c.Len())
	return s
}

// IsComplete reports whether every category step has been passed.
func (s State) IsComplete(c *Catalog) bool {
	return s.Step >= c.Len()
}

// ActiveCategory returns the category for the current step; false once complete.
func (s State) ActiveCategory(c *Catalog) (Category, bool) {
	if s.Step < 0 || s.Step >= c.Len() {
		return Category{}, false
	}
	return c.Categories[s.Step], true
}

// CanContinue gates the "Continue" action on the active category being rated.
// An explicit 0 counts as rated.
func (s State) CanContinue(c *Catalog) bool {
	active, ok := s.ActiveCategory(c)
	if !ok {
		return false
	}
	return s.Scores.IsSet(active.ID)
}

// Progress is the completed share of category steps as a whole percentage.
func (s State) Progress(c *Catalog) int {
	n := c.Len()
	if n == 0 {
		return 100
	}
	done := ClampStep(s.Step, n)
	return int(math.Round(float64(done) / float64(n) * 100))
}

// Reset discards all progress.
func (s State) Reset() State {
	return NewState()
}

// Package state persists the wizard state as a single JSON blob per session.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"finitefield.org/wheel-of-life/internal/wheel"
)

// KeyPrefix namespaces every stored blob.
const KeyPrefix = "wheel-of-life-data"

var (
	// ErrCorrupt marks a blob that could not be read; the state falls back to defaults.
	ErrCorrupt = errors.New("state: corrupt blob")
	// ErrNotFound is returned by stores when no blob exists for a key.
	ErrNotFound = errors.New("state: not found")
)

// Key returns the storage key for a session.
func Key(session string) string {
	return KeyPrefix + ":" + session
}

// document is the wire shape. Scores hold null for "not yet rated".
type document struct {
	Scores      map[string]*int   `json:"scores"`
	Reflections map[string]string `json:"reflections"`
	Step        int               `json:"step"`
}

// Encode writes s with an entry for every catalog category and prompt, so the
// blob is complete even when nothing has been rated.
func Encode(s wheel.State, c *wheel.Catalog) ([]byte, error) {
	doc := document{
		Scores:      make(map[string]*int, len(c.Categories)),
		Reflections: make(map[string]string, len(c.Categories)+len(c.Prompts)),
		Step:        wheel.ClampStep(s.Step, c.Len()),
	}
	for _, cat := range c.Categories {
		if v, ok := s.Scores.Get(cat.ID); ok {
			doc.Scores[cat.ID] = &v
		} else {
			doc.Scores[cat.ID] = nil
		}
		doc.Reflections[cat.ID] = s.Reflections.Get(cat.ID)
	}
	for _, p := range c.Prompts {
		doc.Reflections[p.ID] = s.Reflections.Get(p.ID)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("state: encode: %w", err)
	}
	return data, nil
}

// Decode merges a stored blob onto the defaults. Unknown ids are dropped,
// scores are rounded and clamped into range and the step is clamped into
// [0, N]. A field with the wrong shape keeps its default. A blob that is not
// a JSON object yields the defaults and an error wrapping ErrCorrupt.
func Decode(data []byte, c *wheel.Catalog) (wheel.State, error) {
	s := wheel.NewState()

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		if err == nil {
			err = errors.New("top level is null")
		}
		return s, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var scores map[string]json.RawMessage
	if decodeField(top["scores"], &scores) {
		vals := make(map[string]int, len(scores))
		for id, raw := range scores {
			if !c.HasCategory(id) {
				continue
			}
			var f *float64
			if json.Unmarshal(raw, &f) != nil || f == nil || math.IsNaN(*f) {
				continue
			}
			vals[id] = clampFloat(*f)
		}
		s.Scores = wheel.NewScores(vals)
	}

	var reflections map[string]json.RawMessage
	if decodeField(top["reflections"], &reflections) {
		vals := make(map[string]string, len(reflections))
		for id, raw := range reflections {
			if !c.IsReflectionKey(id) {
				continue
			}
			var text string
			if json.Unmarshal(raw, &text) == nil {
				vals[id] = text
			}
		}
		s.Reflections = wheel.NewReflections(vals)
	}

	var step float64
	if decodeField(top["step"], &step) {
		s.Step = int(math.Min(math.Max(math.Floor(step), 0), float64(c.Len())))
	}
	return s, nil
}

func decodeField(raw json.RawMessage, v any) bool {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func clampFloat(f float64) int {
	r := math.Round(f)
	if r < wheel.MinScore {
		return wheel.MinScore
	}
	if r > wheel.MaxScore {
		return wheel.MaxScore
	}
	return int(r)
}

// Package tone is the catalog of stylistic registers toneshift can rewrite into.
//
// Every tone maps to a natural-language style description used when building
// prompts, and to a synthetic voice used when the rewritten text is spoken.
package tone

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Tone identifies a stylistic register applied to rewritten output.
type Tone string

const (
	Neutral    Tone = "neutral"
	Formal     Tone = "formal"
	Urgent     Tone = "urgent"
	Optimistic Tone = "optimistic"
	Sarcastic  Tone = "sarcastic"
)

// ErrUnknownTone is returned by Parse for identifiers outside the catalog.
var ErrUnknownTone = errors.New("unknown tone")

type entry struct {
	description string
	voice       string
}

var catalog = map[Tone]entry{
	Neutral:    {description: "neutral and objective", voice: "alloy"},
	Formal:     {description: "formal, professional, and polite", voice: "onyx"},
	Urgent:     {description: "urgent, concise, and commanding", voice: "echo"},
	Optimistic: {description: "optimistic, enthusiastic, and hopeful", voice: "nova"},
	Sarcastic:  {description: "sarcastic, dry, and skeptical", voice: "fable"},
}

// All returns every tone in display order.
func All() []Tone {
	return []Tone{Neutral, Formal, Urgent, Optimistic, Sarcastic}
}

// Parse converts an identifier into a Tone. Matching is case-insensitive.
func Parse(id string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(id)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTone, id)
	}
	return t, nil
}

// Valid reports whether t is a member of the catalog.
func (t Tone) Valid() bool {
	_, ok := catalog[t]
	return ok
}

func (t Tone) String() string { return string(t) }

// Describe returns the style description for t.
func Describe(t Tone) string {
	return lookup(t).description
}

// VoiceFor returns the default synthetic voice for t.
func VoiceFor(t Tone) string {
	return lookup(t).voice
}

// lookup falls back to the neutral entry for values that never went through Parse.
func lookup(t Tone) entry {
	if e, ok := catalog[t]; ok {
		return e
	}
	slog.Warn("tone not in catalog, falling back to neutral", "tone", string(t))
	return catalog[Neutral]
}

// Package language resolves the target language of a rewrite into the strict
// behavioral instruction given to the model.
//
// Tone and language are independent axes. Each language contributes one
// directive and, optionally, a per-tone cultural style note; the instruction
// is assembled from both so adding a tone or a language needs one new entry.
package language

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nadzzz/toneshift/internal/tone"
)

// Language is a target language for rewritten output.
type Language string

const (
	// English is the default language.
	English Language = "en"

	// Tagalog covers Tagalog and its natural code-mixed form, Taglish.
	Tagalog Language = "tl"
)

// Default is used when a request does not name a language.
const Default = English

// ErrUnknownLanguage is returned by Parse for unsupported identifiers.
var ErrUnknownLanguage = errors.New("unknown language")

var aliases = map[string]Language{
	"":         English,
	"en":       English,
	"english":  English,
	"tl":       Tagalog,
	"tagalog":  Tagalog,
	"taglish":  Tagalog,
	"fil":      Tagalog,
	"filipino": Tagalog,
}

// Parse converts an identifier (or alias) into a Language. Empty means Default.
func Parse(id string) (Language, error) {
	l, ok := aliases[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, id)
	}
	return l, nil
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	_, ok := profiles[l]
	return ok
}

func (l Language) String() string { return string(l) }

type profile struct {
	directive string
	// notes holds the cultural style note per tone, as templates over {{tone}}.
	// Nil for languages that need no localization beyond the directive.
	notes map[tone.Tone]string
}

var profiles = map[Language]profile{
	English: {
		directive: "You are a text-rewriting assistant. Respond ENTIRELY in English, even if the input " +
			"is written in Tagalog, Taglish, or any other language. Do NOT mix languages: no Taglish, " +
			"no code-switching, no untranslated words.",
	},
	Tagalog: {
		directive: "You are a bilingual Filipino text-rewriting assistant. Respond in Tagalog or in natural " +
			"Taglish (Filipino-English code-switching), the way a native speaker from Metro Manila actually " +
			"talks. Do NOT translate literally or word-for-word; rewrite the meaning so it sounds natural.",
		notes: map[tone.Tone]string{
			tone.Neutral: "Cultural style for a {{tone}} tone: use plain, conversational Tagalog without " +
				"heavy slang or overly deep (malalim) words.",
			tone.Formal: "Cultural style for a {{tone}} tone: use the respectful particles \"po\" and \"opo\" " +
				"and polite forms of address such as \"Ginoo\" or \"Ginang\". Avoid slang and casual contractions.",
			tone.Urgent: "Cultural style for a {{tone}} tone: use short imperatives and urgency markers such as " +
				"\"agad\", \"ngayon na\" and \"bilisan\". Drop filler words.",
			tone.Optimistic: "Cultural style for a {{tone}} tone: use encouraging expressions such as " +
				"\"kaya natin 'to\", \"laban lang\" and \"may pag-asa\".",
			tone.Sarcastic: "Cultural style for a {{tone}} tone: use colloquial internet slang markers such as " +
				"\"edi wow\", \"sana all\", \"charot\" and \"ay nako\". Keep it playful, not hurtful.",
		},
	},
}

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

func init() {
	// Every note template must render for every tone; a leftover placeholder is a defect.
	for l, p := range profiles {
		for _, t := range tone.All() {
			if _, err := compose(p, t); err != nil {
				panic(fmt.Sprintf("language %s, tone %s: %v", l, t, err))
			}
		}
	}
}

// Instruction returns the behavioral instruction for writing in l with tone t.
// The cultural note is present only for languages that define one.
func Instruction(l Language, t tone.Tone) string {
	p, ok := profiles[l]
	if !ok {
		slog.Warn("language has no profile, falling back to default", "language", string(l), "default", string(Default))
		p = profiles[Default]
	}
	text, err := compose(p, t)
	if err != nil {
		slog.Error("composing language instruction", "language", string(l), "tone", string(t), "error", err)
		return p.directive
	}
	return text
}

func compose(p profile, t tone.Tone) (string, error) {
	if p.notes == nil {
		return p.directive, nil
	}
	note, ok := p.notes[t]
	if !ok {
		slog.Warn("no cultural note for tone, using neutral", "tone", string(t))
		note = p.notes[tone.Neutral]
	}
	rendered, err := render(note, map[string]string{"tone": tone.Describe(t)})
	if err != nil {
		return "", err
	}
	return p.directive + "\n\n" + rendered, nil
}

// render fills {{name}} placeholders and fails if any is left unfilled.
func render(tmpl string, vars map[string]string) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := vars[key]; ok {
			return v
		}
		missing = append(missing, key)
		return m
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unfilled template variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

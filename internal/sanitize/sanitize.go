// Package sanitize strips boilerplate that generation backends prepend to
// their output.
package sanitize

import "strings"

// LeadIns are the known boilerplate openers, checked in order.
var LeadIns = []string{
	"Here is the rewritten text:",
	"Here's the rewritten text:",
	"Sure, here is the text:",
	"Here you go:",
}

// Clean trims raw and removes leading lead-in phrases, matched
// case-insensitively, until none remains. Text that does not start with a
// lead-in is only trimmed.
//
// Stacked lead-ins are all removed, so "Here you go: Here you go: x" becomes
// "x". Removing only the first would leave a lead-in at the front and make a
// second Clean change the result; Clean(Clean(s)) == Clean(s) holds for any s.
func Clean(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		lead, ok := leadIn(text)
		if !ok {
			return text
		}
		text = strings.TrimSpace(text[len(lead):])
	}
}

func leadIn(text string) (string, bool) {
	for _, lead := range LeadIns {
		if hasPrefixFold(text, lead) {
			return lead, true
		}
	}
	return "", false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

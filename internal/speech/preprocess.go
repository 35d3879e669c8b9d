package speech

import (
	"regexp"
	"strings"
)

var (
	reCOO      = regexp.MustCompile(`(?i)\bCOO\b`)
	reTrailing = regexp.MustCompile(`[.?]$`)
)

// Preprocess rewrites prompt text so synthesized speech sounds natural: the
// brand name is spelled as spoken, abbreviations are expanded and sentence
// ends become longer pauses.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "BAYB", "babe")
	text = reCOO.ReplaceAllString(text, "Chief Operating Officer")
	text = strings.ReplaceAll(text, "Perfect,", "Perfect")
	text = strings.ReplaceAll(text, "'.", ".")
	text = reTrailing.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "?", "?...")
	text = strings.ReplaceAll(text, ".", "...")
	return text
}

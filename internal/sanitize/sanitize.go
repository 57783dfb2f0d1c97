// Package sanitize cleans model-generated dialogue before it is served to
// MCP clients, where it lands in another agent's context. It strips
// control characters, markdown hierarchy markers, XML/HTML tags and
// code fences so a simulated actor cannot smuggle instructions into the
// reader's prompt, while keeping the words of the message.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxMessageLength bounds one sanitized dialogue message.
const MaxMessageLength = 4000

// MaxSpeakerLength bounds a sanitized speaker name.
const MaxSpeakerLength = 80

var (
	// reXMLTag matches XML/HTML tags including attributes, self-closing
	// tags and processing instructions.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	reMarkdownHeading   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reHorizontalRule    = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	reTripleBacktick    = regexp.MustCompile("```+")
	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)
	reSpaces            = regexp.MustCompile(`\s{2,}`)
)

// Message sanitizes one dialogue message. The pipeline runs in order:
//  1. Strip ASCII control characters except \n and \t
//  2. Strip XML/HTML tags
//  3. Replace markdown headings with list markers
//  4. Remove markdown horizontal rules
//  5. Collapse code fences to a single backtick
//  6. Collapse 3+ newlines to 2
//  7. Trim, then truncate to MaxMessageLength bytes on a rune boundary
func Message(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reMarkdownHeading.ReplaceAllString(s, "- ")
	s = reHorizontalRule.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	return truncate(s, MaxMessageLength, "...")
}

// Speaker sanitizes an actor name for display. Letters, digits, spaces
// and - _ . ' are kept; runs of whitespace collapse to one space.
func Speaker(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-', r == '_', r == '.', r == '\'':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	s := strings.TrimSpace(reSpaces.ReplaceAllString(b.String(), " "))
	return truncate(s, MaxSpeakerLength, "")
}

// stripControlChars removes ASCII control characters (0x00-0x1F and DEL)
// except newline and tab.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 && r != '\n' && r != '\t') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int, suffix string) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

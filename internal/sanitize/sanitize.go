// Package sanitize neutralizes untrusted booking fields before they are
// interpolated into outbound email or written to logs. Every function is pure.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// MaxInputLength caps generic free-text fields, in characters.
	MaxInputLength = 1000
	// MaxPhoneLength caps sanitized phone numbers, in characters.
	MaxPhoneLength = 20

	maxPasses = 8
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Elements whose content is dropped along with the tags.
var droppedContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Object:   true,
}

// Input strips all markup tags and attributes, keeping text content, and
// caps the result at MaxInputLength characters. Character references in
// text are kept as written, so markup-free input is only truncated.
func Input(s string) string {
	if s == "" {
		return ""
	}

	// Removing a tag can join its neighbours into a new one, so strip until
	// stable. Markup-free text is a fixed point.
	out := s
	for i := 0; i < maxPasses; i++ {
		next := stripTags(out)
		if next == out {
			break
		}
		out = next
	}

	return truncate(out, MaxInputLength)
}

// Email sanitizes, lower-cases and trims an address, then re-checks its
// syntax. An empty result means the address must be rejected.
func Email(s string) string {
	if s == "" {
		return ""
	}

	cleaned := strings.TrimSpace(strings.ToLower(Input(s)))
	if !emailPattern.MatchString(cleaned) {
		return ""
	}
	return cleaned
}

// Phone keeps digits, whitespace, '+', '-' and parentheses and caps the
// result at MaxPhoneLength characters.
func Phone(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '+', r == '-', r == '(', r == ')':
			b.WriteRune(r)
		}
	}
	return truncate(b.String(), MaxPhoneLength)
}

func stripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF once the input is consumed; a strings.Reader yields no other error.
			return b.String()
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Raw())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if droppedContent[atom.Lookup(name)] {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if droppedContent[atom.Lookup(name)] && skipDepth > 0 {
				skipDepth--
			}
		}
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

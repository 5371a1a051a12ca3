package outline

import (
	"regexp"
	"unicode"
)

// RedactedPlaceholder replaces every secret-shaped substring. It matches
// none of the rules below, so redaction is idempotent.
const RedactedPlaceholder = "[redacted]"

type redactRule struct {
	name    string
	pattern *regexp.Regexp
	// accept filters a match; nil accepts every match.
	accept func(string) bool
	// when gates the rule on the whole text; nil always applies.
	when func(string) bool
}

// Rules run in order; earlier rules see the text first.
var redactRules = []redactRule{
	{name: "url", pattern: regexp.MustCompile(`(?i)\b(?:https?|ftp)://[^\s<>"'()\[\]]*[^\s<>"'()\[\].,;:!?]|\bwww\.[^\s<>"'()\[\]]*[^\s<>"'()\[\].,;:!?]`)},
	{name: "email", pattern: regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
	{name: "api_key", pattern: regexp.MustCompile(`\b(?:sk|pk|rk)-[A-Za-z0-9_\-]{16,}`)},
	{name: "hex_secret", pattern: regexp.MustCompile(`\b[a-fA-F0-9]{32,128}\b`)},
	{name: "token", pattern: regexp.MustCompile(`\b[A-Za-z0-9_\-]{32,}\b`), accept: mixedToken},
	{name: "phone", pattern: regexp.MustCompile(`(?:\+|\b)\d[\d\- \t]{7,}\d\b`)},
	{name: "card", pattern: regexp.MustCompile(`\b(?:\d[ \-]?){12,18}\d\b`), when: manyDigits},
}

// cardMinDigits is how many digits a text needs before card numbers are
// scrubbed; shorter texts cannot hold one.
const cardMinDigits = 12

func manyDigits(s string) bool {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n >= cardMinDigits
}

// mixedToken accepts long runs that contain both letters and digits; long
// plain words and digit strings are left alone.
func mixedToken(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// Redact scrubs URLs, email addresses, token-shaped strings, phone numbers
// and card-like digit runs from s.
func Redact(s string) string {
	if s == "" {
		return s
	}
	for _, rule := range redactRules {
		if rule.when != nil && !rule.when(s) {
			continue
		}
		if rule.accept == nil {
			s = rule.pattern.ReplaceAllLiteralString(s, RedactedPlaceholder)
			continue
		}
		accept := rule.accept
		s = rule.pattern.ReplaceAllStringFunc(s, func(m string) string {
			if accept(m) {
				return RedactedPlaceholder
			}
			return m
		})
	}
	return s
}

// RedactBlocks returns a copy of blocks with every text field redacted.
func RedactBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		b.Text = Redact(b.Text)
		out[i] = b
	}
	return out
}

// RedactOutline redacts every text field of an outline. Code bullets keep
// their marker.
func RedactOutline(o Outline) Outline {
	slides := make([]Slide, len(o.Slides))
	for i, s := range o.Slides {
		bullets := make([]string, len(s.Bullets))
		for j, b := range s.Bullets {
			if IsCode(b) {
				bullets[j] = CodeBulletPrefix + Redact(CodeText(b))
				continue
			}
			bullets[j] = Redact(b)
		}
		slides[i] = Slide{
			Title:      Redact(s.Title),
			Bullets:    bullets,
			Notes:      Redact(s.Notes),
			LayoutHint: s.LayoutHint,
		}
	}
	return Outline{Slides: slides}
}

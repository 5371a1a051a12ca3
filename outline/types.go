// Package outline turns raw text or markdown into a bounded slide outline.
//
// The pipeline is Tokenize → Redact → Compile. Every stage is a pure
// function of its inputs and config.Limits; the compiler never fails and
// degrades by dropping or truncating content instead.
package outline

import (
	"fmt"
	"strings"
)

// BlockKind tags a tokenized block.
type BlockKind int

const (
	KindParagraph BlockKind = iota
	KindHeading
	KindListItem
	KindCodeFence
)

func (k BlockKind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindListItem:
		return "list_item"
	case KindCodeFence:
		return "code_fence"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Block is one unit of source text in document order.
type Block struct {
	Kind BlockKind
	Text string

	Level     int    // heading level 1-6
	Ordered   bool   // list item from an ordered list
	Depth     int    // list nesting, 0 for top level
	Quoted    bool   // paragraph came from a blockquote
	Continued bool   // paragraph line continues the previous source paragraph
	Lang      string // code fence info string
}

// LayoutHint tells the assembler what kind of slide layout to look for.
type LayoutHint int

const (
	HintTitleAndBullets LayoutHint = iota
	HintTitle
	HintSectionHeader
	HintQuote
	HintTwoColumn
)

var hintNames = map[LayoutHint]string{
	HintTitleAndBullets: "title_and_bullets",
	HintTitle:           "title",
	HintSectionHeader:   "section_header",
	HintQuote:           "quote",
	HintTwoColumn:       "two_column",
}

// hintAliases maps interchange spellings, including the layout names an
// LLM planner tends to produce, onto hints.
var hintAliases = map[string]LayoutHint{
	"title_and_bullets":    HintTitleAndBullets,
	"title and bullets":    HintTitleAndBullets,
	"title and content":    HintTitleAndBullets,
	"content with caption": HintTitleAndBullets,
	"picture with caption": HintTitleAndBullets,
	"auto":                 HintTitleAndBullets,
	"blank":                HintTitleAndBullets,
	"title":                HintTitle,
	"title slide":          HintTitle,
	"section_header":       HintSectionHeader,
	"section header":       HintSectionHeader,
	"section":              HintSectionHeader,
	"quote":                HintQuote,
	"two_column":           HintTwoColumn,
	"two column":           HintTwoColumn,
	"two content":          HintTwoColumn,
	"two-content":          HintTwoColumn,
}

func (h LayoutHint) String() string {
	if name, ok := hintNames[h]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(h))
}

// ParseLayoutHint maps a spelling onto a hint. Unknown names yield
// HintTitleAndBullets and false.
func ParseLayoutHint(s string) (LayoutHint, bool) {
	h, ok := hintAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return HintTitleAndBullets, false
	}
	return h, true
}

// MarshalText implements encoding.TextMarshaler.
func (h LayoutHint) MarshalText() ([]byte, error) {
	name, ok := hintNames[h]
	if !ok {
		return nil, fmt.Errorf("outline: invalid layout hint %d", int(h))
	}
	return []byte(name), nil
}

// UnmarshalText is lenient: unknown spellings decode as title_and_bullets.
func (h *LayoutHint) UnmarshalText(text []byte) error {
	*h, _ = ParseLayoutHint(string(text))
	return nil
}

// Slide is one outline entry. Every field is already clamped.
type Slide struct {
	Title      string     `json:"title"`
	Bullets    []string   `json:"bullets"`
	Notes      string     `json:"notes,omitempty"`
	LayoutHint LayoutHint `json:"layout_hint"`
}

// Outline is the ordered slide sequence handed to the assembler.
type Outline struct {
	Slides []Slide `json:"slides"`
}

const (
	// SubBulletPrefix marks a nested list item rendered one level down.
	SubBulletPrefix = "  • "
	// CodeBulletPrefix marks a bullet holding code fence content. Ordinary
	// bullets never contain newlines, so the marker is unambiguous.
	CodeBulletPrefix = "```\n"
)

// IsCode reports whether a bullet holds code.
func IsCode(bullet string) bool {
	return strings.HasPrefix(bullet, CodeBulletPrefix)
}

// CodeText returns the code held by a code bullet.
func CodeText(bullet string) string {
	return strings.TrimPrefix(bullet, CodeBulletPrefix)
}

// BulletLevel splits a bullet into its indentation level and display text.
func BulletLevel(bullet string) (int, string) {
	if strings.HasPrefix(bullet, SubBulletPrefix) {
		return 1, strings.TrimPrefix(bullet, SubBulletPrefix)
	}
	return 0, bullet
}

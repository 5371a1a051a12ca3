package pptx

import (
	"strings"

	"auto_ppt_generator/outline"
)

// Fonts is the theme's font scheme.
type Fonts struct {
	Major string `json:"major"`
	Minor string `json:"minor"`
}

// Color is one theme color slot, RGB as six hex digits.
type Color struct {
	Slot string `json:"slot"`
	RGB  string `json:"rgb"`
}

// colorSlots is the theme color scheme in document order.
var colorSlots = []string{
	"dk1", "lt1", "dk2", "lt2",
	"accent1", "accent2", "accent3", "accent4", "accent5", "accent6",
	"hlink", "folHlink",
}

// Capability is a set of layout capability tags.
type Capability uint16

const (
	CapTitle Capability = 1 << iota
	CapSubtitle
	CapBody
	CapTwoBody
	CapPicture
	CapTitleSlide
	CapSection
	CapQuote
	// CapContent marks a plain title-and-content layout.
	CapContent
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapTitle, "title"},
	{CapSubtitle, "subtitle"},
	{CapBody, "body"},
	{CapTwoBody, "two_body"},
	{CapPicture, "picture"},
	{CapTitleSlide, "title_slide"},
	{CapSection, "section"},
	{CapQuote, "quote"},
	{CapContent, "content"},
}

// Has reports whether every tag in want is present.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Tags lists the set's tag names in a fixed order.
func (c Capability) Tags() []string {
	var out []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			out = append(out, n.name)
		}
	}
	return out
}

func (c Capability) String() string {
	return strings.Join(c.Tags(), "|")
}

// Placeholder is a layout placeholder, identified by type and index.
type Placeholder struct {
	Type string `json:"type"`
	Idx  string `json:"idx,omitempty"`
	Name string `json:"name,omitempty"`
}

// Layout is a slide layout part and what it can hold.
type Layout struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         string        `json:"type,omitempty"`
	Capabilities Capability    `json:"-"`
	Tags         []string      `json:"capability_tags"`
	Placeholders []Placeholder `json:"placeholders"`
}

func (l Layout) placeholders(kinds ...string) []Placeholder {
	var out []Placeholder
	for _, ph := range l.Placeholders {
		for _, k := range kinds {
			if ph.Type == k {
				out = append(out, ph)
				break
			}
		}
	}
	return out
}

// TemplateProfile is everything the assembler needs from a template. It is
// built once per request and not modified afterwards; media bytes load
// lazily on first use.
type TemplateProfile struct {
	Fonts       Fonts    `json:"fonts"`
	Colors      []Color  `json:"colors"`
	Layouts     []Layout `json:"layouts"`
	Media       []*Media `json:"media"`
	SlideWidth  int64    `json:"slide_width"`
	SlideHeight int64    `json:"slide_height"`

	archive     *Archive
	theme       string
	notesMaster string
	potx        bool
}

// Color returns the RGB value of a theme slot.
func (p *TemplateProfile) Color(slot string) (string, bool) {
	for _, c := range p.Colors {
		if c.Slot == slot {
			return c.RGB, true
		}
	}
	return "", false
}

func (p *TemplateProfile) firstColor(slots ...string) string {
	for _, s := range slots {
		if rgb, ok := p.Color(s); ok {
			return rgb
		}
	}
	return ""
}

// hintCapability is the tag a layout needs to match a hint exactly.
func hintCapability(h outline.LayoutHint) Capability {
	switch h {
	case outline.HintTitle:
		return CapTitleSlide
	case outline.HintSectionHeader:
		return CapSection
	case outline.HintQuote:
		return CapQuote
	case outline.HintTwoColumn:
		return CapTwoBody
	default:
		return CapContent
	}
}

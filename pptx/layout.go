package pptx

import (
	"auto_ppt_generator/outline"
)

// SelectLayout picks the layout for a slide. The first layout, in declared
// order, that carries the hint's tag and has room for the slide's content
// is an exact match. Otherwise the most capable generic layout is used and
// fallback is true; ties go to the first declared.
func (p *TemplateProfile) SelectLayout(s outline.Slide) (Layout, bool) {
	want := hintCapability(s.LayoutHint)
	for _, l := range p.Layouts {
		if l.Capabilities.Has(want) && fits(l.Capabilities, s) {
			return l, false
		}
	}

	best, bestScore := 0, -1
	for i, l := range p.Layouts {
		if score := genericScore(l.Capabilities, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	return p.Layouts[best], true
}

// fits reports whether a layout has a title and, when the slide has
// bullets, somewhere to put them.
func fits(c Capability, s outline.Slide) bool {
	if !c.Has(CapTitle) {
		return false
	}
	return len(s.Bullets) == 0 || c&(CapBody|CapSubtitle) != 0
}

func genericScore(c Capability, s outline.Slide) int {
	score := 0
	if c.Has(CapTitle) {
		score += 4
	}
	if len(s.Bullets) > 0 {
		switch {
		case c.Has(CapBody):
			score += 4
		case c.Has(CapSubtitle):
			score += 2
		}
	}
	if c.Has(CapContent) {
		score++
	}
	return score
}

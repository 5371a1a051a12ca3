package outline

import (
	"regexp"
	"strings"
)

// Archetype is a named section skeleton for input without headings.
type Archetype struct {
	Name     string
	Sections []string
	triggers []*regexp.Regexp
}

func newArchetype(name string, triggers []string, sections ...string) Archetype {
	a := Archetype{Name: name, Sections: sections}
	for _, t := range triggers {
		// Match at a word start so "sop" does not fire inside "philosophy".
		a.triggers = append(a.triggers, regexp.MustCompile(`\b`+regexp.QuoteMeta(t)))
	}
	return a
}

// archetypes are checked in declaration order; the first match wins.
var archetypes = []Archetype{
	newArchetype("investor_pitch",
		[]string{"pitch", "investor"},
		"Problem", "Solution", "Market", "Product", "Moat", "Go-To-Market", "Traction",
		"Business Model", "Competition", "Team", "Financials", "Ask", "Roadmap"),
	newArchetype("sop",
		[]string{"sop", "runbook", "standard operating", "procedure"},
		"Purpose", "Scope", "Prerequisites", "Procedure", "Validation", "Rollback", "Contacts"),
	newArchetype("sales",
		[]string{"sales"},
		"Overview", "Value Proposition", "ROI", "Case Studies", "Pricing", "Call to Action"),
	newArchetype("research_talk",
		[]string{"research", "talk", "seminar", "conference", "paper"},
		"Background", "Methods", "Results", "Limitations", "Future Work", "Acknowledgements"),
	newArchetype("lesson",
		[]string{"lesson", "lecture", "quiz", "teaching"},
		"Objectives", "Key Concepts", "Examples", "Practice Questions", "Summary"),
}

// Archetypes lists the known archetypes in declaration order.
func Archetypes() []Archetype {
	out := make([]Archetype, len(archetypes))
	copy(out, archetypes)
	return out
}

// Classify maps guidance text onto an archetype. It returns false when no
// trigger phrase matches.
func Classify(guidance string) (Archetype, bool) {
	g := strings.ToLower(collapseSpace(guidance))
	if g == "" {
		return Archetype{}, false
	}
	for _, a := range archetypes {
		for _, re := range a.triggers {
			if re.MatchString(g) {
				return a, true
			}
		}
	}
	return Archetype{}, false
}

package outline

import (
	"fmt"

	"auto_ppt_generator/config"
)

// Normalize clamps an externally supplied outline with the same rules the
// compiler applies to its own output. Text is redacted first, slides that
// end up with neither a title nor bullets are dropped, and an empty result
// becomes a single "Overview" slide. Valid layout hints are kept as given.
func Normalize(o Outline, includeNotes bool, limits config.Limits) Outline {
	o = RedactOutline(o)
	slides := make([]Slide, 0, len(o.Slides))
	for _, s := range o.Slides {
		if len(slides) == limits.MaxTotalSlides {
			break
		}
		title := clampLine(s.Title, limits.MaxTitleChars)
		bullets := clampBullets(s.Bullets, limits)
		if title == "" && len(bullets) == 0 {
			continue
		}
		if title == "" {
			title = fmt.Sprintf("Slide %d", len(slides)+1)
		}
		hint := s.LayoutHint
		if _, ok := hintNames[hint]; !ok {
			hint = HintTitleAndBullets
		}
		out := Slide{Title: title, Bullets: bullets, LayoutHint: hint}
		if includeNotes {
			out.Notes = clampLine(s.Notes, limits.MaxNotesChars)
			if out.Notes == "" {
				out.Notes = notesFor(out, limits.MaxNotesChars)
			}
		}
		slides = append(slides, out)
	}
	if len(slides) == 0 {
		s := Slide{Title: "Overview", Bullets: []string{}, LayoutHint: HintTitle}
		if includeNotes {
			s.Notes = notesFor(s, limits.MaxNotesChars)
		}
		slides = append(slides, s)
	}
	return Outline{Slides: slides}
}

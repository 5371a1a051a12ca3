package planner

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	"auto_ppt_generator/outline"
)

var (
	errNoJSON   = errors.New("model output has no JSON object")
	errNoSlides = errors.New("model plan has no slides")
)

var reFence = regexp.MustCompile("(?is)^```(?:json)?\\s*|\\s*```$")

// PostProcess extracts the first JSON object from a model reply and reads
// it into an outline. Trailing commas and comments are tolerated, fields of
// the wrong type are skipped, and unknown layout names fall back to
// title_and_bullets. A non-empty deck title becomes a leading title slide.
// The result is not clamped; pass it through outline.Normalize.
func PostProcess(raw string, includeNotes bool) (outline.Outline, error) {
	s := reFence.ReplaceAllString(strings.TrimSpace(raw), "")
	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return outline.Outline{}, errNoJSON
	}
	doc := jsonc.ToJSON([]byte(s[start : end+1]))
	if !gjson.ValidBytes(doc) {
		return outline.Outline{}, errNoJSON
	}
	root := gjson.ParseBytes(doc)

	var o outline.Outline
	root.Get("slides").ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		slide := outline.Slide{Title: v.Get("title").String(), Bullets: []string{}}
		v.Get("bullets").ForEach(func(_, b gjson.Result) bool {
			if b.Type == gjson.String {
				slide.Bullets = append(slide.Bullets, b.Str)
			}
			return true
		})
		for _, key := range []string{"layout_hint", "layout"} {
			if l := v.Get(key); l.Type == gjson.String {
				slide.LayoutHint, _ = outline.ParseLayoutHint(l.Str)
				break
			}
		}
		if includeNotes {
			slide.Notes = v.Get("notes").String()
		}
		o.Slides = append(o.Slides, slide)
		return true
	})
	if len(o.Slides) == 0 {
		return outline.Outline{}, errNoSlides
	}

	deck := strings.TrimSpace(root.Get("title").String())
	first := o.Slides[0]
	if deck != "" && first.LayoutHint != outline.HintTitle && !strings.EqualFold(deck, strings.TrimSpace(first.Title)) {
		o.Slides = append([]outline.Slide{{Title: deck, Bullets: []string{}, LayoutHint: outline.HintTitle}}, o.Slides...)
	}
	return o, nil
}

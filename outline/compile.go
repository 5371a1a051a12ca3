package outline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"auto_ppt_generator/config"
)

const (
	// minChunkSlides is how many slides unheaded input is spread over
	// before groups start filling up to the bullet limit.
	minChunkSlides = 3
	// synthTitleChars caps titles built from a sentence clause.
	synthTitleChars = 60
	// sectionLineChars is the longest single line a section header carries.
	sectionLineChars = 60
	// notesPoints is how many bullets feed a speaker-notes summary.
	notesPoints = 3
)

// Options steers a compile run.
type Options struct {
	// Archetype, when set, names the slides built from unheaded input.
	Archetype *Archetype
	// IncludeNotes attaches a one-sentence summary to every slide.
	IncludeNotes bool
}

// draft is a slide before clamping.
type draft struct {
	title   string
	bullets []string
	quoted  bool
}

// Build runs the whole local pipeline: clamp, tokenize, redact, classify
// and compile.
func Build(raw, guidance string, includeNotes bool, limits config.Limits) Outline {
	blocks := RedactBlocks(Tokenize(ClampText(raw, limits.MaxTextChars)))
	opts := Options{IncludeNotes: includeNotes}
	if a, ok := Classify(guidance); ok {
		opts.Archetype = &a
	}
	return Compile(blocks, opts, limits)
}

// Compile turns blocks into a bounded outline. It never fails: oversized
// content is truncated or dropped from the tail, and empty input yields a
// single "Overview" slide.
func Compile(blocks []Block, opts Options, limits config.Limits) Outline {
	var drafts []draft
	first := -1
	for i, b := range blocks {
		if b.Kind == KindHeading {
			first = i
			break
		}
	}
	if first < 0 {
		drafts = chunk(blocks, opts.Archetype, limits)
	} else {
		if first > 0 {
			drafts = chunk(blocks[:first], nil, limits)
		}
		for i := first; i < len(blocks); {
			j := i + 1
			for j < len(blocks) && blocks[j].Kind != KindHeading {
				j++
			}
			drafts = append(drafts, section(blocks[i], blocks[i+1:j], limits))
			i = j
		}
	}
	if len(drafts) == 0 {
		drafts = []draft{{title: "Overview"}}
	}
	if len(drafts) > limits.MaxTotalSlides {
		drafts = drafts[:limits.MaxTotalSlides]
	}

	slides := make([]Slide, 0, len(drafts))
	for i, d := range drafts {
		slides = append(slides, finalize(d, i, opts.IncludeNotes, limits))
	}
	return Outline{Slides: slides}
}

// section builds the slide for one heading and the blocks up to the next
// heading.
func section(heading Block, body []Block, limits config.Limits) draft {
	d := draft{title: heading.Text}
	var para []string
	paragraphs, quotedParagraphs := 0, 0
	flush := func() {
		if len(para) == 0 {
			return
		}
		d.bullets = append(d.bullets, paragraphBullets(strings.Join(para, " "), limits.MaxBulletChars)...)
		para = nil
	}
	for _, b := range body {
		switch b.Kind {
		case KindParagraph:
			para = append(para, b.Text)
			paragraphs++
			if b.Quoted || isQuotedText(b.Text) {
				quotedParagraphs++
			}
		case KindListItem:
			flush()
			d.bullets = append(d.bullets, listBullet(b))
		case KindCodeFence:
			flush()
			d.bullets = append(d.bullets, CodeBulletPrefix+b.Text)
		case KindHeading:
			flush()
		}
	}
	flush()
	d.quoted = paragraphs > 0 && quotedParagraphs == paragraphs
	return d
}

// paragraphBullets keeps a paragraph as one bullet when it fits, otherwise
// packs whole sentences into bullets of at most max runes.
func paragraphBullets(text string, max int) []string {
	text = collapseSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}
	var out []string
	cur := ""
	for _, s := range splitSentences(text) {
		switch {
		case cur == "":
			cur = s
		case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(s) <= max:
			cur += " " + s
		default:
			out = append(out, cur)
			cur = s
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func listBullet(b Block) string {
	if b.Depth > 0 {
		return SubBulletPrefix + b.Text
	}
	return b.Text
}

type unit struct {
	text   string
	quoted bool
}

// units flattens blocks into sentence-level units: each paragraph is split
// into sentences, each list item and code fence is one unit.
func units(blocks []Block) []unit {
	var out []unit
	var para []string
	paraQuoted := false
	flush := func() {
		if len(para) == 0 {
			return
		}
		for _, s := range splitSentences(strings.Join(para, " ")) {
			out = append(out, unit{text: s, quoted: paraQuoted})
		}
		para = nil
	}
	for _, b := range blocks {
		switch b.Kind {
		case KindParagraph:
			if !b.Continued {
				flush()
				paraQuoted = b.Quoted || isQuotedText(b.Text)
			}
			para = append(para, b.Text)
		case KindListItem:
			flush()
			out = append(out, unit{text: listBullet(b), quoted: b.Quoted})
		case KindCodeFence:
			flush()
			out = append(out, unit{text: CodeBulletPrefix + b.Text})
		case KindHeading:
			flush()
		}
	}
	flush()
	return out
}

// chunk groups unheaded content into slides. With an archetype the groups
// take the archetype's section labels in order and fall back to "Slide N"
// once the labels run out; without one, titles come from the first clause
// of each group.
func chunk(blocks []Block, arch *Archetype, limits config.Limits) []draft {
	us := units(blocks)
	if len(us) == 0 {
		return nil
	}
	spread := minChunkSlides
	if arch != nil && len(arch.Sections) > 0 {
		spread = len(arch.Sections)
	}
	size := (len(us) + spread - 1) / spread
	if size < 1 {
		size = 1
	}
	if size > limits.MaxBulletsPerSlide {
		size = limits.MaxBulletsPerSlide
	}

	var drafts []draft
	for start, gi := 0, 0; start < len(us); start, gi = start+size, gi+1 {
		end := start + size
		if end > len(us) {
			end = len(us)
		}
		group := us[start:end]
		d := draft{quoted: true}
		for _, u := range group {
			d.bullets = append(d.bullets, u.text)
			d.quoted = d.quoted && u.quoted
		}
		switch {
		case arch != nil && gi < len(arch.Sections):
			d.title = arch.Sections[gi]
		case arch != nil:
			d.title = fmt.Sprintf("Slide %d", gi+1)
		default:
			d.title = synthTitle(group[0].text, gi)
		}
		drafts = append(drafts, d)
	}
	return drafts
}

func synthTitle(text string, index int) string {
	if IsCode(text) {
		return fmt.Sprintf("Slide %d", index+1)
	}
	_, text = BulletLevel(text)
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return fmt.Sprintf("Slide %d", index+1)
	}
	title := truncate(firstClause(sentences[0]), synthTitleChars)
	if title == "" {
		return fmt.Sprintf("Slide %d", index+1)
	}
	return title
}

// finalize clamps a draft and assigns its layout hint and notes.
func finalize(d draft, index int, includeNotes bool, limits config.Limits) Slide {
	title := clampLine(d.title, limits.MaxTitleChars)
	if title == "" {
		title = fmt.Sprintf("Slide %d", index+1)
	}
	bullets := clampBullets(d.bullets, limits)

	s := Slide{Title: title, Bullets: bullets, LayoutHint: hintFor(index, d.quoted, bullets)}
	if includeNotes {
		s.Notes = notesFor(s, limits.MaxNotesChars)
	}
	return s
}

// clampBullets cleans, truncates and de-duplicates bullets, then drops the
// tail beyond the per-slide limit.
func clampBullets(raw []string, limits config.Limits) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, b := range raw {
		var clamped string
		if IsCode(b) {
			clamped = clampCode(CodeText(b), limits.MaxBulletChars)
			if CodeText(clamped) == "" {
				continue
			}
		} else {
			level, txt := BulletLevel(b)
			if level > 0 {
				txt = clampLine(txt, limits.MaxBulletChars-utf8.RuneCountInString(SubBulletPrefix))
				if txt != "" {
					clamped = SubBulletPrefix + txt
				}
			} else {
				clamped = clampLine(txt, limits.MaxBulletChars)
			}
		}
		if clamped == "" || seen[clamped] {
			continue
		}
		seen[clamped] = true
		out = append(out, clamped)
		if len(out) == limits.MaxBulletsPerSlide {
			break
		}
	}
	return out
}

func hintFor(index int, quoted bool, bullets []string) LayoutHint {
	switch {
	case index == 0:
		return HintTitle
	case quoted && len(bullets) > 0:
		return HintQuote
	case len(bullets) == 0:
		return HintSectionHeader
	case len(bullets) == 1 && !IsCode(bullets[0]) && utf8.RuneCountInString(bullets[0]) <= sectionLineChars:
		return HintSectionHeader
	default:
		return HintTitleAndBullets
	}
}

// notesFor summarizes a slide in one sentence built from its own bullets,
// falling back to the title when it has none.
func notesFor(s Slide, limit int) string {
	var points []string
	for _, b := range s.Bullets {
		if IsCode(b) {
			continue
		}
		_, txt := BulletLevel(b)
		sentences := splitSentences(txt)
		if len(sentences) == 0 {
			continue
		}
		p := strings.TrimRight(strings.TrimSuffix(sentences[0], ellipsis), ".!?。！？ ")
		if p != "" {
			points = append(points, p)
		}
		if len(points) == notesPoints {
			break
		}
	}
	var summary string
	switch len(points) {
	case 0:
		summary = s.Title
	case 1:
		summary = points[0] + "."
	default:
		summary = "Key points: " + strings.Join(points, "; ") + "."
	}
	return clampLine(summary, limit)
}

package pptx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// Default slide size, 16:9 in EMU.
const (
	defaultSlideWidth  = 12192000
	defaultSlideHeight = 6858000
)

// Introspect reads the theme, layouts and media of a validated archive.
// Errors are *UnsafeArchiveError when a part fails its size check and
// *InvalidTemplateError when the theme or layout set cannot be used.
func Introspect(a *Archive) (*TemplateProfile, error) {
	p := &TemplateProfile{archive: a}

	ctData, err := a.ReadPart(partContentTypes)
	if err != nil {
		return nil, err
	}
	var ct contentTypes
	if err := xml.Unmarshal(ctData, &ct); err != nil {
		return nil, invalidTemplate("parse %s: %v", partContentTypes, err)
	}
	if typ, ok := ct.override(partPresentation); ok && typ == ctTemplate {
		p.potx = true
	}

	presData, err := a.ReadPart(partPresentation)
	if err != nil {
		return nil, err
	}
	var pres presentationXML
	if err := xml.Unmarshal(presData, &pres); err != nil {
		return nil, invalidTemplate("parse %s: %v", partPresentation, err)
	}
	p.SlideWidth, p.SlideHeight = pres.SlideSize.CX, pres.SlideSize.CY
	if p.SlideWidth <= 0 || p.SlideHeight <= 0 {
		p.SlideWidth, p.SlideHeight = defaultSlideWidth, defaultSlideHeight
	}

	presRels, err := a.readRels(partPresentation)
	if err != nil {
		return nil, err
	}
	masters := resolveRefs(partPresentation, presRels, pres.Masters)
	if len(masters) == 0 {
		masters = a.partsMatching("ppt/slideMasters/slideMaster")
	}
	if len(pres.NotesMasters) > 0 {
		if rel, ok := presRels.byID(pres.NotesMasters[0].rid()); ok {
			if name := resolveTarget(partPresentation, rel.Target); a.Has(name) {
				p.notesMaster = name
			}
		}
	}

	layoutParts, theme, err := a.walkMasters(masters)
	if err != nil {
		return nil, err
	}
	if len(layoutParts) == 0 {
		layoutParts = a.partsMatching("ppt/slideLayouts/slideLayout")
	}
	if theme == "" {
		if themes := a.partsMatching("ppt/theme/theme"); len(themes) > 0 {
			theme = themes[0]
		}
	}
	if theme == "" {
		return nil, invalidTemplate("no theme part")
	}
	p.theme = theme
	if err := p.readTheme(); err != nil {
		return nil, err
	}

	for _, part := range layoutParts {
		l, err := a.readLayout(part)
		if err != nil {
			var unsafe *UnsafeArchiveError
			if errors.As(err, &unsafe) {
				return nil, err
			}
			continue
		}
		p.Layouts = append(p.Layouts, l)
	}
	if len(p.Layouts) == 0 {
		return nil, invalidTemplate("no parseable slide layouts")
	}

	p.Media = collectMedia(a)
	return p, nil
}

func (a *Archive) readRels(part string) (*relationships, error) {
	data, err := a.readOptional(relsPath(part))
	if err != nil {
		return nil, err
	}
	rels, err := parseRels(data)
	if err != nil {
		return nil, invalidTemplate("parse %s: %v", relsPath(part), err)
	}
	return rels, nil
}

// resolveRefs maps r:id references onto existing part names, keeping order.
func resolveRefs(source string, rels *relationships, refs []relRef) []string {
	var out []string
	seen := make(map[string]bool)
	for _, ref := range refs {
		rel, ok := rels.byID(ref.rid())
		if !ok || rel.TargetMode == "External" {
			continue
		}
		name := resolveTarget(source, rel.Target)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// partsMatching returns .xml parts with the given prefix in natural order.
func (a *Archive) partsMatching(prefix string) []string {
	var out []string
	for _, n := range a.names {
		if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, ".xml") && !strings.Contains(n[len(prefix):], "/") {
			out = append(out, n)
		}
	}
	sortNatural(out)
	return out
}

// walkMasters collects layouts in the masters' declared order and the
// theme of the first master that names one.
func (a *Archive) walkMasters(masters []string) ([]string, string, error) {
	var layouts []string
	var theme string
	seen := make(map[string]bool)
	for _, master := range masters {
		if !a.Has(master) {
			continue
		}
		rels, err := a.readRels(master)
		if err != nil {
			return nil, "", err
		}
		if theme == "" {
			if rel, ok := rels.firstOfKind(relTheme); ok {
				if name := resolveTarget(master, rel.Target); a.Has(name) {
					theme = name
				}
			}
		}
		data, err := a.ReadPart(master)
		if err != nil {
			return nil, "", err
		}
		var mx masterXML
		if err := xml.Unmarshal(data, &mx); err != nil {
			return nil, "", invalidTemplate("parse %s: %v", master, err)
		}
		refs := resolveRefs(master, rels, mx.Layouts)
		if len(refs) == 0 {
			for _, rel := range rels.Rels {
				if relKind(rel.Type, relSlideLayout) {
					refs = append(refs, resolveTarget(master, rel.Target))
				}
			}
		}
		for _, name := range refs {
			if a.Has(name) && !seen[name] {
				seen[name] = true
				layouts = append(layouts, name)
			}
		}
	}
	return layouts, theme, nil
}

func (p *TemplateProfile) readTheme() error {
	data, err := p.archive.ReadPart(p.theme)
	if err != nil {
		return err
	}
	var th themeXML
	if err := xml.Unmarshal(data, &th); err != nil {
		return invalidTemplate("parse %s: %v", p.theme, err)
	}
	p.Fonts = Fonts{
		Major: strings.TrimSpace(th.FontScheme.Major.Latin.Typeface),
		Minor: strings.TrimSpace(th.FontScheme.Minor.Latin.Typeface),
	}
	if p.Fonts.Major == "" {
		p.Fonts.Major = p.Fonts.Minor
	}
	if p.Fonts.Minor == "" {
		p.Fonts.Minor = p.Fonts.Major
	}

	found := make(map[string]string, len(th.ColorScheme.Slots))
	for _, c := range th.ColorScheme.Slots {
		if rgb := c.rgb(); rgb != "" {
			found[c.XMLName.Local] = rgb
		}
	}
	for _, slot := range colorSlots {
		if rgb, ok := found[slot]; ok {
			p.Colors = append(p.Colors, Color{Slot: slot, RGB: rgb})
		}
	}
	if p.Fonts.Major == "" && len(p.Colors) == 0 {
		return invalidTemplate("%s has neither a font nor a color scheme", p.theme)
	}
	return nil
}

// readLayout streams a layout part, collecting its name, type and
// placeholders.
func (a *Archive) readLayout(part string) (Layout, error) {
	data, err := a.ReadPart(part)
	if err != nil {
		return Layout{}, err
	}
	l := Layout{ID: part}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Layout{}, invalidTemplate("parse %s: %v", part, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "sldLayout":
			l.Type = attr(start, "type")
		case "cSld":
			l.Name = attr(start, "name")
		case "cNvPr":
			// The placeholder, if any, follows its shape's cNvPr.
			l.Placeholders = append(l.Placeholders, Placeholder{Name: attr(start, "name"), Type: "-"})
		case "ph":
			typ := attr(start, "type")
			if typ == "" {
				typ = "obj"
			}
			ph := Placeholder{Type: typ, Idx: attr(start, "idx")}
			if n := len(l.Placeholders); n > 0 && l.Placeholders[n-1].Type == "-" {
				ph.Name = l.Placeholders[n-1].Name
				l.Placeholders[n-1] = ph
			} else {
				l.Placeholders = append(l.Placeholders, ph)
			}
		}
	}
	kept := l.Placeholders[:0]
	for _, ph := range l.Placeholders {
		if ph.Type != "-" {
			kept = append(kept, ph)
		}
	}
	l.Placeholders = kept
	if l.Name == "" {
		l.Name = strings.TrimSuffix(part[strings.LastIndex(part, "/")+1:], ".xml")
	}
	l.Capabilities = classifyLayout(l)
	l.Tags = l.Capabilities.Tags()
	return l, nil
}

func attr(start xml.StartElement, local string) string {
	for _, a := range start.Attr {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

// classifyLayout derives capability tags from placeholder types, the
// layout type and its name.
func classifyLayout(l Layout) Capability {
	var c Capability
	bodies := 0
	for _, ph := range l.Placeholders {
		switch ph.Type {
		case "title":
			c |= CapTitle
		case "ctrTitle":
			c |= CapTitle | CapTitleSlide
		case "subTitle":
			c |= CapSubtitle
		case "body", "obj":
			bodies++
		case "pic":
			c |= CapPicture
		}
	}
	if bodies > 0 {
		c |= CapBody
	}
	if bodies > 1 {
		c |= CapTwoBody
	}
	name := strings.ToLower(l.Name)
	if l.Type == "title" {
		c |= CapTitleSlide
	}
	if l.Type == "secHead" || strings.Contains(name, "section") {
		c |= CapSection
	}
	if strings.Contains(name, "quote") {
		c |= CapQuote
	}
	if c.Has(CapBody) && c&(CapTitleSlide|CapSection|CapQuote) == 0 {
		c |= CapContent
	}
	return c
}

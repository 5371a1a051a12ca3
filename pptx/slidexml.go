package pptx

import (
	"fmt"
	"strings"

	"auto_ppt_generator/outline"
)

// Font sizes in hundredths of a point.
const (
	titleSize = 3200
	bodySize  = 1800
	codeSize  = 1400

	monospaceFont = "Courier New"
	// twoColumnMin is the bullet count at which a layout with two body
	// placeholders gets its bullets split.
	twoColumnMin = 6
)

const slideNamespaces = `xmlns:a="` + nsDrawing + `" xmlns:r="` + nsOfficeRels + `" xmlns:p="` + nsPresentation + `"`

const spTreeHeader = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

// runStyle is the character formatting of one text run.
type runStyle struct {
	font   string
	color  string
	size   int
	italic bool
}

func (r runStyle) rPr() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<a:rPr lang="en-US" sz="%d"`, r.size)
	if r.italic {
		b.WriteString(` i="1"`)
	}
	b.WriteString(` dirty="0">`)
	if r.color != "" {
		fmt.Fprintf(&b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, r.color)
	}
	if r.font != "" {
		fmt.Fprintf(&b, `<a:latin typeface="%s"/>`, escapeAttr(r.font))
	}
	b.WriteString(`</a:rPr>`)
	return b.String()
}

type slideWriter struct {
	profile *TemplateProfile
	layout  Layout
	slide   outline.Slide
	picture *Media

	b      strings.Builder
	nextID int
}

func (w *slideWriter) titleStyle() runStyle {
	return runStyle{font: w.profile.Fonts.Major, color: w.profile.firstColor("accent1", "dk1"), size: titleSize}
}

func (w *slideWriter) bodyStyle() runStyle {
	return runStyle{
		font:   w.profile.Fonts.Minor,
		color:  w.profile.firstColor("dk1"),
		size:   bodySize,
		italic: w.slide.LayoutHint == outline.HintQuote,
	}
}

func (w *slideWriter) render() []byte {
	w.nextID = 2
	w.b.WriteString(xmlHeader)
	w.b.WriteString(`<p:sld ` + slideNamespaces + `><p:cSld><p:spTree>`)
	w.b.WriteString(spTreeHeader)

	titleRun := []string{paragraph(w.slide.Title, w.titleStyle(), 0)}
	if ph, ok := first(w.layout.placeholders("title", "ctrTitle")); ok {
		w.placeholderShape(ph, "Title", titleRun)
	} else {
		h := w.profile.SlideHeight
		w.textBox("Title", titleRun, w.profile.SlideWidth/20, h/20, w.profile.SlideWidth*9/10, h*3/20)
	}

	w.writeBullets()

	if w.picture != nil {
		if ph, ok := first(w.layout.placeholders("pic")); ok {
			w.pictureShape(ph)
		}
	}

	w.b.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return []byte(w.b.String())
}

// writeBullets fills the body placeholders, splitting across two of them
// for two-column slides or long lists. Without a body placeholder the
// bullets go to the subtitle, then to a free text box.
func (w *slideWriter) writeBullets() {
	bullets := w.slide.Bullets
	if len(bullets) == 0 {
		return
	}
	bodies := w.layout.placeholders("body", "obj")
	switch {
	case len(bodies) >= 2 && (w.slide.LayoutHint == outline.HintTwoColumn || len(bullets) >= twoColumnMin):
		half := (len(bullets) + 1) / 2
		w.placeholderShape(bodies[0], "Content", w.paragraphs(bullets[:half]))
		w.placeholderShape(bodies[1], "Content", w.paragraphs(bullets[half:]))
	case len(bodies) >= 1:
		w.placeholderShape(bodies[0], "Content", w.paragraphs(bullets))
	default:
		if ph, ok := first(w.layout.placeholders("subTitle")); ok {
			w.placeholderShape(ph, "Subtitle", w.paragraphs(bullets))
			return
		}
		wd, h := w.profile.SlideWidth, w.profile.SlideHeight
		w.textBox("Content", w.paragraphs(bullets), wd/20, h*11/50, wd*9/10, h*7/10)
	}
}

// paragraphs renders bullets as DrawingML paragraphs. Code bullets become
// one unbulleted monospace paragraph per line.
func (w *slideWriter) paragraphs(bullets []string) []string {
	style := w.bodyStyle()
	var out []string
	for _, bullet := range bullets {
		if outline.IsCode(bullet) {
			code := style
			code.font, code.size, code.italic = monospaceFont, codeSize, false
			for _, line := range strings.Split(outline.CodeText(bullet), "\n") {
				out = append(out, codeParagraph(line, code))
			}
			continue
		}
		level, text := outline.BulletLevel(bullet)
		out = append(out, paragraph(text, style, level))
	}
	return out
}

func paragraph(text string, style runStyle, level int) string {
	var b strings.Builder
	b.WriteString(`<a:p>`)
	if level > 0 {
		fmt.Fprintf(&b, `<a:pPr lvl="%d"/>`, level)
	}
	fmt.Fprintf(&b, `<a:r>%s<a:t>%s</a:t></a:r></a:p>`, style.rPr(), escapeText(text))
	return b.String()
}

func codeParagraph(line string, style runStyle) string {
	const pPr = `<a:pPr marL="0" indent="0"><a:buNone/></a:pPr>`
	if line == "" {
		return fmt.Sprintf(`<a:p>%s<a:endParaRPr lang="en-US" sz="%d" dirty="0"/></a:p>`, pPr, style.size)
	}
	return fmt.Sprintf(`<a:p>%s<a:r>%s<a:t>%s</a:t></a:r></a:p>`, pPr, style.rPr(), escapeText(line))
}

func (w *slideWriter) id() int {
	id := w.nextID
	w.nextID++
	return id
}

func (w *slideWriter) placeholderShape(ph Placeholder, label string, paras []string) {
	id := w.id()
	fmt.Fprintf(&w.b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s %d"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr>%s</p:nvPr></p:nvSpPr><p:spPr/>`,
		id, label, id-1, phElement(ph))
	w.b.WriteString(`<p:txBody><a:bodyPr><a:normAutofit/></a:bodyPr><a:lstStyle/>`)
	w.writeParagraphs(paras)
	w.b.WriteString(`</p:txBody></p:sp>`)
}

func (w *slideWriter) textBox(label string, paras []string, x, y, cx, cy int64) {
	id := w.id()
	fmt.Fprintf(&w.b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`, id, label, id-1)
	fmt.Fprintf(&w.b, `<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`, x, y, cx, cy)
	w.b.WriteString(`<p:txBody><a:bodyPr wrap="square" rtlCol="0"><a:normAutofit/></a:bodyPr><a:lstStyle/>`)
	w.writeParagraphs(paras)
	w.b.WriteString(`</p:txBody></p:sp>`)
}

func (w *slideWriter) writeParagraphs(paras []string) {
	if len(paras) == 0 {
		w.b.WriteString(`<a:p/>`)
		return
	}
	for _, p := range paras {
		w.b.WriteString(p)
	}
}

func (w *slideWriter) pictureShape(ph Placeholder) {
	id := w.id()
	fmt.Fprintf(&w.b, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr><a:picLocks noGrp="1" noChangeAspect="1"/></p:cNvPicPr><p:nvPr>%s</p:nvPr></p:nvPicPr>`,
		id, id-1, phElement(ph))
	fmt.Fprintf(&w.b, `<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr/></p:pic>`, w.picture.RelID)
}

// phElement mirrors the layout placeholder so the slide inherits its
// position and formatting. "obj" is the schema default and left implicit.
func phElement(ph Placeholder) string {
	var b strings.Builder
	b.WriteString(`<p:ph`)
	if ph.Type != "obj" {
		fmt.Fprintf(&b, ` type="%s"`, escapeAttr(ph.Type))
	}
	if ph.Idx != "" {
		fmt.Fprintf(&b, ` idx="%s"`, escapeAttr(ph.Idx))
	}
	b.WriteString(`/>`)
	return b.String()
}

func first(phs []Placeholder) (Placeholder, bool) {
	if len(phs) == 0 {
		return Placeholder{}, false
	}
	return phs[0], true
}

func notesSlideXML(notes string) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:notes ` + slideNamespaces + `><p:cSld><p:spTree>`)
	b.WriteString(spTreeHeader)
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr><a:spLocks noGrp="1" noRot="1" noChangeAspect="1"/></p:cNvSpPr><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr><p:spPr/></p:sp>`)
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/>`)
	b.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>`)
	for _, line := range strings.Split(notes, "\n") {
		fmt.Fprintf(&b, `<a:p><a:r><a:rPr lang="en-US" dirty="0"/><a:t>%s</a:t></a:r></a:p>`, escapeText(line))
	}
	b.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:notes>`)
	return []byte(b.String())
}

func notesMasterXML() []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:notesMaster ` + slideNamespaces + `><p:cSld>`)
	b.WriteString(`<p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>`)
	b.WriteString(spTreeHeader)
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr><a:spLocks noGrp="1" noRot="1" noChangeAspect="1"/></p:cNvSpPr><p:nvPr><p:ph type="sldImg" idx="2"/></p:nvPr></p:nvSpPr>`)
	b.WriteString(`<p:spPr><a:xfrm><a:off x="685800" y="1143000"/><a:ext cx="5486400" cy="3086100"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr></p:sp>`)
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" sz="quarter" idx="3"/></p:nvPr></p:nvSpPr>`)
	b.WriteString(`<p:spPr><a:xfrm><a:off x="685800" y="4400550"/><a:ext cx="5486400" cy="3600450"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`)
	b.WriteString(`<p:txBody><a:bodyPr vert="horz" lIns="91440" tIns="45720" rIns="91440" bIns="45720" rtlCol="0"/><a:lstStyle/><a:p><a:pPr lvl="0"/><a:r><a:rPr lang="en-US"/><a:t>Notes</a:t></a:r></a:p></p:txBody></p:sp>`)
	b.WriteString(`</p:spTree></p:cSld>`)
	b.WriteString(`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`)
	b.WriteString(`</p:notesMaster>`)
	return []byte(b.String())
}

package pptx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_ppt_generator/config"
	"auto_ppt_generator/outline"
)

func sampleOutline() outline.Outline {
	return outline.Outline{Slides: []outline.Slide{
		{Title: "Quarterly Review", Bullets: []string{"Prepared for the board"}, LayoutHint: outline.HintTitle},
		{
			Title:      "Highlights",
			Bullets:    []string{"Revenue up", outline.SubBulletPrefix + "EMEA led", outline.CodeBulletPrefix + "x := 1\ny := 2"},
			Notes:      "Mention EMEA & APAC.",
			LayoutHint: outline.HintTitleAndBullets,
		},
		{Title: "Risks", Bullets: []string{"Supply"}, LayoutHint: outline.HintTitleAndBullets},
		{Title: "Compare", Bullets: []string{"a1", "a2", "a3", "b1", "b2", "b3"}, LayoutHint: outline.HintTwoColumn},
		{Title: "Wisdom", Bullets: []string{"Stay curious"}, LayoutHint: outline.HintQuote},
		{Title: "Part Two", Bullets: []string{}, LayoutHint: outline.HintSectionHeader},
	}}
}

func assembleFixture(t *testing.T, f fixture, o outline.Outline) (*Result, *Archive) {
	t.Helper()
	a, err := Open(f.archive(t), config.DefaultLimits())
	require.NoError(t, err)
	p, err := Introspect(a)
	require.NoError(t, err)
	res, err := Assemble(o, p)
	require.NoError(t, err)
	out, err := Open(res.Data, config.DefaultLimits())
	require.NoError(t, err, "assembled deck must pass its own guard")
	return res, out
}

func partText(t *testing.T, a *Archive, name string) string {
	t.Helper()
	data, err := a.ReadPart(name)
	require.NoError(t, err, name)
	return string(data)
}

func wellFormed(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func TestAssembleSelectsLayouts(t *testing.T) {
	res, out := assembleFixture(t, newFixture(t), sampleOutline())

	assert.Equal(t, 6, res.Slides)
	assert.Equal(t, 1, res.Pictures, "the second image is a byte-identical copy")
	assert.Equal(t, []LayoutFallback{
		{Slide: 4, Hint: outline.HintQuote, Layout: "Picture with Caption"},
		{Slide: 5, Hint: outline.HintSectionHeader, Layout: "Picture with Caption"},
	}, res.Fallbacks)

	wantLayouts := []string{"slideLayout2", "slideLayout10", "slideLayout10", "slideLayout4", "slideLayout10", "slideLayout10"}
	for i, want := range wantLayouts {
		rels := partText(t, out, "ppt/slides/_rels/slide"+strconv.Itoa(i+1)+".xml.rels")
		assert.Contains(t, rels, `Target="../slideLayouts/`+want+`.xml"`, "slide %d", i+1)
	}
}

func TestAssembleWellFormedParts(t *testing.T) {
	_, out := assembleFixture(t, newFixture(t), sampleOutline())
	for _, name := range out.Names() {
		if !strings.HasSuffix(name, ".xml") && !strings.HasSuffix(name, ".rels") {
			continue
		}
		assert.NoError(t, wellFormed([]byte(partText(t, out, name))), name)
	}
}

func TestAssembleReplacesTemplateSlides(t *testing.T) {
	_, out := assembleFixture(t, newFixture(t), sampleOutline())

	for _, name := range out.Names() {
		assert.False(t, strings.HasPrefix(name, "ppt/comments/"), name)
		if strings.HasPrefix(name, "ppt/slides/") {
			assert.NotContains(t, partText(t, out, name), "OLD SLIDE", name)
		}
	}

	pres := partText(t, out, partPresentation)
	assert.Equal(t, 6, strings.Count(pres, "<p:sldId "))
	assert.Contains(t, pres, `<p:sldId id="256" r:id="rId4"/>`)
	assert.Contains(t, pres, `<p:sldId id="261" r:id="rId9"/>`)
	assert.Contains(t, pres, `<p:notesMasterIdLst><p:notesMasterId r:id="rId3"/></p:notesMasterIdLst>`)
	assert.Less(t, strings.Index(pres, "</p:sldMasterIdLst>"), strings.Index(pres, "<p:notesMasterIdLst>"))
	assert.Less(t, strings.Index(pres, "</p:sldIdLst>"), strings.Index(pres, "<p:sldSz"))

	presRels := partText(t, out, "ppt/_rels/presentation.xml.rels")
	assert.Contains(t, presRels, `Target="slides/slide6.xml"`)
	assert.Contains(t, presRels, `Target="notesMasters/notesMaster1.xml"`)
	assert.Equal(t, 6, strings.Count(presRels, relSlide+`"`))
}

func TestAssembleContentTypes(t *testing.T) {
	_, out := assembleFixture(t, newFixture(t), sampleOutline())
	ct := partText(t, out, partContentTypes)

	assert.Contains(t, ct, ctPresentation)
	assert.NotContains(t, ct, ctTemplate)
	assert.Equal(t, 6, strings.Count(ct, ctSlide+`"`))
	assert.Equal(t, 1, strings.Count(ct, ctNotesSlide))
	assert.Contains(t, ct, `PartName="/ppt/notesMasters/notesMaster1.xml"`)
	assert.Contains(t, ct, `PartName="/ppt/theme/theme2.xml"`)
	assert.Contains(t, ct, `Extension="png"`)
}

func TestAssembleNotes(t *testing.T) {
	_, out := assembleFixture(t, newFixture(t), sampleOutline())

	assert.True(t, out.Has("ppt/notesMasters/notesMaster1.xml"))
	assert.Equal(t, themeXMLFixture, partText(t, out, "ppt/theme/theme2.xml"))
	assert.Contains(t, partText(t, out, "ppt/notesMasters/_rels/notesMaster1.xml.rels"), `Target="../theme/theme2.xml"`)

	assert.Contains(t, partText(t, out, "ppt/notesSlides/notesSlide2.xml"), "Mention EMEA &amp; APAC.")
	notesRels := partText(t, out, "ppt/notesSlides/_rels/notesSlide2.xml.rels")
	assert.Contains(t, notesRels, `Target="../notesMasters/notesMaster1.xml"`)
	assert.Contains(t, notesRels, `Target="../slides/slide2.xml"`)
	assert.Contains(t, partText(t, out, "ppt/slides/_rels/slide2.xml.rels"), `Target="../notesSlides/notesSlide2.xml"`)

	assert.False(t, out.Has("ppt/notesSlides/notesSlide1.xml"))
}

func TestAssembleSlideText(t *testing.T) {
	_, out := assembleFixture(t, newFixture(t), sampleOutline())

	cover := partText(t, out, "ppt/slides/slide1.xml")
	assert.Contains(t, cover, `<p:ph type="ctrTitle"/>`)
	assert.Contains(t, cover, `<p:ph type="subTitle" idx="1"/>`)
	assert.Contains(t, cover, `<a:latin typeface="Georgia"/>`)
	assert.Contains(t, cover, `<a:srgbClr val="4472C4"/>`)
	assert.Contains(t, cover, `sz="3200"`)
	assert.Contains(t, cover, "Prepared for the board")

	highlights := partText(t, out, "ppt/slides/slide2.xml")
	assert.Contains(t, highlights, `<a:latin typeface="Verdana"/>`)
	assert.Contains(t, highlights, `<a:srgbClr val="000000"/>`)
	assert.Contains(t, highlights, `<a:pPr lvl="1"/>`)
	assert.Contains(t, highlights, ">EMEA led<")
	assert.Contains(t, highlights, `<a:latin typeface="Courier New"/>`)
	assert.Contains(t, highlights, "<a:buNone/>")
	assert.Contains(t, highlights, ">x := 1<")
	assert.Contains(t, highlights, ">y := 2<")
	assert.Contains(t, highlights, `r:embed="rIdImg1"`)
	assert.Contains(t, partText(t, out, "ppt/slides/_rels/slide2.xml.rels"), `Target="../media/image1.png"`)

	assert.NotContains(t, partText(t, out, "ppt/slides/slide3.xml"), "<p:pic>")

	compare := partText(t, out, "ppt/slides/slide4.xml")
	left := strings.Index(compare, `<p:ph idx="1"/>`)
	right := strings.Index(compare, `<p:ph idx="2"/>`)
	require.True(t, left >= 0 && right > left)
	assert.Less(t, strings.Index(compare, ">a3<"), right)
	assert.Greater(t, strings.Index(compare, ">b1<"), right)

	assert.Contains(t, partText(t, out, "ppt/slides/slide5.xml"), `i="1"`)
}

func TestAssembleWithoutNotes(t *testing.T) {
	o := outline.Outline{Slides: []outline.Slide{{Title: "Only", Bullets: []string{"one"}}}}
	res, out := assembleFixture(t, newFixture(t), o)

	assert.Equal(t, 1, res.Slides)
	assert.False(t, out.Has("ppt/notesMasters/notesMaster1.xml"))
	assert.False(t, out.Has("ppt/theme/theme2.xml"))
	assert.NotContains(t, partText(t, out, partPresentation), "notesMasterIdLst")
}

func TestAssembleReusesTemplateNotesMaster(t *testing.T) {
	f := newFixture(t)
	f["ppt/notesMasters/notesMaster1.xml"] = string(notesMasterXML())
	f["ppt/notesMasters/_rels/notesMaster1.xml.rels"] = rels("rId1", "theme", "../theme/theme1.xml")
	f["ppt/_rels/presentation.xml.rels"] = rels(
		"rId1", "slideMaster", "slideMasters/slideMaster1.xml",
		"rId2", "theme", "theme/theme1.xml",
		"rId7", "notesMaster", "notesMasters/notesMaster1.xml",
	)
	f["ppt/presentation.xml"] = strings.Replace(f["ppt/presentation.xml"], "</p:sldMasterIdLst>",
		`</p:sldMasterIdLst><p:notesMasterIdLst><p:notesMasterId r:id="rId7"/></p:notesMasterIdLst>`, 1)

	o := outline.Outline{Slides: []outline.Slide{{Title: "Only", Bullets: []string{"one"}, Notes: "say hi"}}}
	_, out := assembleFixture(t, f, o)

	assert.False(t, out.Has("ppt/theme/theme2.xml"))
	pres := partText(t, out, partPresentation)
	assert.Equal(t, 1, strings.Count(pres, "<p:notesMasterIdLst>"))
	assert.Contains(t, pres, `<p:sldId id="256" r:id="rId8"/>`)
	assert.Contains(t, partText(t, out, "ppt/notesSlides/_rels/notesSlide1.xml.rels"), `Target="../notesMasters/notesMaster1.xml"`)
}

func TestAssembleReplacesDanglingNotesMaster(t *testing.T) {
	f := newFixture(t)
	f["ppt/presentation.xml"] = strings.Replace(f["ppt/presentation.xml"], "</p:sldMasterIdLst>",
		`</p:sldMasterIdLst><p:notesMasterIdLst><p:notesMasterId r:id="rId9"/></p:notesMasterIdLst>`, 1)
	f["ppt/_rels/presentation.xml.rels"] = rels(
		"rId1", "slideMaster", "slideMasters/slideMaster1.xml",
		"rId2", "theme", "theme/theme1.xml",
		"rId9", "notesMaster", "notesMasters/missing.xml",
	)

	o := outline.Outline{Slides: []outline.Slide{{Title: "Only", Bullets: []string{"one"}, Notes: "say hi"}}}
	_, out := assembleFixture(t, f, o)

	pres := partText(t, out, partPresentation)
	assert.Equal(t, 1, strings.Count(pres, "<p:notesMasterIdLst>"))
	assert.NotContains(t, pres, `r:id="rId9"`)
	presRels := partText(t, out, "ppt/_rels/presentation.xml.rels")
	assert.NotContains(t, presRels, "missing.xml")
	assert.Contains(t, presRels, `Target="notesMasters/notesMaster1.xml"`)
	assert.True(t, out.Has("ppt/notesMasters/notesMaster1.xml"))
}

func TestAssembleDropsDanglingNotesMasterWithoutNotes(t *testing.T) {
	f := newFixture(t)
	f["ppt/presentation.xml"] = strings.Replace(f["ppt/presentation.xml"], "</p:sldMasterIdLst>",
		`</p:sldMasterIdLst><p:notesMasterIdLst><p:notesMasterId r:id="rId9"/></p:notesMasterIdLst>`, 1)

	o := outline.Outline{Slides: []outline.Slide{{Title: "Only", Bullets: []string{"one"}}}}
	_, out := assembleFixture(t, f, o)
	assert.NotContains(t, partText(t, out, partPresentation), "notesMasterIdLst")
}

func TestRewritePresentationKeepsResolvedNotesMaster(t *testing.T) {
	in := `<p:presentation ` + testNS + `><p:sldMasterIdLst></p:sldMasterIdLst>` +
		`<p:notesMasterIdLst><p:notesMasterId r:id="rId5"/></p:notesMasterIdLst><p:sldSz cx="1" cy="1"/></p:presentation>`

	kept, err := rewritePresentation([]byte(in), []string{"rId6"}, "", true)
	require.NoError(t, err)
	assert.Contains(t, string(kept), `<p:notesMasterId r:id="rId5"/>`)

	replaced, err := rewritePresentation([]byte(in), []string{"rId6"}, "rId7", false)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(replaced), "<p:notesMasterIdLst>"))
	assert.Contains(t, string(replaced), `<p:notesMasterId r:id="rId7"/>`)
	assert.NotContains(t, string(replaced), "rId5")
}

func TestAssembleIsDeterministic(t *testing.T) {
	data := newFixture(t).archive(t)
	build := func() []byte {
		a, err := Open(data, config.DefaultLimits())
		require.NoError(t, err)
		p, err := Introspect(a)
		require.NoError(t, err)
		res, err := Assemble(sampleOutline(), p)
		require.NoError(t, err)
		return res.Data
	}
	assert.Equal(t, build(), build())
}

func TestRelativeTarget(t *testing.T) {
	tests := []struct {
		source, target, want string
	}{
		{"ppt/presentation.xml", "ppt/slides/slide1.xml", "slides/slide1.xml"},
		{"ppt/slides/slide1.xml", "ppt/slideLayouts/slideLayout2.xml", "../slideLayouts/slideLayout2.xml"},
		{"ppt/slides/slide1.xml", "ppt/slides/slide2.xml", "slide2.xml"},
		{"ppt/notesMasters/notesMaster1.xml", "ppt/theme/theme2.xml", "../theme/theme2.xml"},
	}
	for _, tt := range tests {
		got := relativeTarget(tt.source, tt.target)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.target, resolveTarget(tt.source, got))
	}
}

func TestRewritePresentationDefaultNamespace(t *testing.T) {
	in := `<presentation xmlns="` + nsPresentation + `"><sldMasterIdLst/><sldIdLst><sldId id="300" r:id="rId9"/></sldIdLst><notesSz cx="1" cy="1"/></presentation>`
	out, err := rewritePresentation([]byte(in), []string{"rId4"}, "", false)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<sldIdLst xmlns:r="`+nsOfficeRels+`"><sldId id="256" r:id="rId4"/></sldIdLst><notesSz`)
	assert.NotContains(t, string(out), "rId9")
}

// Package testutil builds small presentation templates for tests in other
// packages.
//
// [Template] returns a valid .pptx with a theme, a title layout and a
// title-and-content layout. [TemplateParts] exposes the same parts so a
// test can swap or add parts before zipping them with [Zip]; the part
// builders ([Rels], [Layout], [Master], [ContentTypes]) keep the
// replacements short. Helpers call t.Fatalf on failure since test setup
// failures are not recoverable.
package testutil

import (
	"bytes"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	// NS declares the drawingml, relationship and presentationml prefixes.
	NS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
	// Header is the XML declaration every part starts with.
	Header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`

	// PresentationType and TemplateType are the main part content types of
	// a .pptx and a .potx.
	PresentationType = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	TemplateType     = "application/vnd.openxmlformats-officedocument.presentationml.template.main+xml"

	relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
)

// overrideTypes maps a part directory to its Override content type.
var overrideTypes = map[string]string{
	"slideMasters": "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml",
	"slideLayouts": "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml",
	"slides":       "application/vnd.openxmlformats-officedocument.presentationml.slide+xml",
	"theme":        "application/vnd.openxmlformats-officedocument.theme+xml",
	"notesMasters": "application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml",
	"notesSlides":  "application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml",
}

// defaultTypes maps non-XML extensions; anything else is octet-stream.
var defaultTypes = map[string]string{
	"png": "image/png",
	"gif": "image/gif",
	"emf": "image/x-emf",
}

// Fataler is the subset of testing.TB the helpers need.
type Fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Rels builds a relationships part from (id, kind, target) triples, kind
// being the last segment of the relationship type URI.
func Rels(triples ...string) string {
	var b strings.Builder
	b.WriteString(Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for i := 0; i+2 < len(triples); i += 3 {
		b.WriteString(`<Relationship Id="` + triples[i] + `" Type="` + relNS + triples[i+1] +
			`" Target="` + triples[i+2] + `"/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

// Layout builds a slide layout whose shapes hold the given p:ph elements.
// Shapes are numbered from 2 and named "Placeholder <id>".
func Layout(name, typ string, phs ...string) string {
	var b strings.Builder
	b.WriteString(Header + `<p:sldLayout ` + NS + ` type="` + typ + `"><p:cSld name="` + name + `"><p:spTree>`)
	b.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`)
	for i, ph := range phs {
		id := strconv.Itoa(i + 2)
		b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="` + id + `" name="Placeholder ` + id + `"/><p:cNvSpPr/><p:nvPr>` + ph +
			`</p:nvPr></p:nvSpPr><p:spPr/></p:sp>`)
	}
	b.WriteString(`</p:spTree></p:cSld></p:sldLayout>`)
	return b.String()
}

// Master builds a slide master declaring its layouts by relationship id,
// in the order given.
func Master(layoutRIDs ...string) string {
	var b strings.Builder
	b.WriteString(Header + `<p:sldMaster ` + NS + `><p:cSld><p:spTree/></p:cSld><p:sldLayoutIdLst>`)
	for i, rid := range layoutRIDs {
		b.WriteString(`<p:sldLayoutId id="` + strconv.Itoa(2147483649+i) + `" r:id="` + rid + `"/>`)
	}
	b.WriteString(`</p:sldLayoutIdLst></p:sldMaster>`)
	return b.String()
}

// ContentTypes builds [Content_Types].xml. XML parts get an Override by
// their directory; any other extension gets a Default.
func ContentTypes(mainType string, parts ...string) string {
	var b strings.Builder
	b.WriteString(Header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	seen := map[string]bool{}
	for _, p := range parts {
		ext := strings.TrimPrefix(path.Ext(p), ".")
		if ext == "xml" || seen[ext] {
			continue
		}
		seen[ext] = true
		typ, ok := defaultTypes[ext]
		if !ok {
			typ = "application/octet-stream"
		}
		b.WriteString(`<Default Extension="` + ext + `" ContentType="` + typ + `"/>`)
	}
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="` + mainType + `"/>`)
	for _, p := range parts {
		if path.Ext(p) != ".xml" {
			continue
		}
		dir := path.Base(path.Dir(p))
		if typ, ok := overrideTypes[dir]; ok {
			b.WriteString(`<Override PartName="/` + p + `" ContentType="` + typ + `"/>`)
		}
	}
	b.WriteString(`</Types>`)
	return b.String()
}

// TemplateParts returns the part map behind Template so tests can alter it
// before zipping with Zip.
func TemplateParts() map[string]string {
	return map[string]string{
		"[Content_Types].xml": ContentTypes(PresentationType,
			"ppt/slideMasters/slideMaster1.xml",
			"ppt/slideLayouts/slideLayout1.xml",
			"ppt/slideLayouts/slideLayout2.xml",
			"ppt/theme/theme1.xml",
		),
		"_rels/.rels": Rels("rId1", "officeDocument", "ppt/presentation.xml"),
		"ppt/presentation.xml": Header + `<p:presentation ` + NS + `>` +
			`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>` +
			`<p:sldSz cx="12192000" cy="6858000"/><p:notesSz cx="6858000" cy="9144000"/></p:presentation>`,
		"ppt/_rels/presentation.xml.rels": Rels(
			"rId1", "slideMaster", "slideMasters/slideMaster1.xml",
			"rId2", "theme", "theme/theme1.xml",
		),
		"ppt/slideMasters/slideMaster1.xml": Master("rId1", "rId2"),
		"ppt/slideMasters/_rels/slideMaster1.xml.rels": Rels(
			"rId1", "slideLayout", "../slideLayouts/slideLayout1.xml",
			"rId2", "slideLayout", "../slideLayouts/slideLayout2.xml",
			"rId3", "theme", "../theme/theme1.xml",
		),
		"ppt/slideLayouts/slideLayout1.xml": Layout("Title Slide", "title",
			`<p:ph type="ctrTitle"/>`, `<p:ph type="subTitle" idx="1"/>`),
		"ppt/slideLayouts/slideLayout2.xml": Layout("Title and Content", "obj",
			`<p:ph type="title"/>`, `<p:ph idx="1"/>`),
		"ppt/theme/theme1.xml": Header + `<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Plain"><a:themeElements>` +
			`<a:clrScheme name="Plain"><a:dk1><a:srgbClr val="111111"/></a:dk1><a:lt1><a:srgbClr val="FFFFFF"/></a:lt1>` +
			`<a:accent1><a:srgbClr val="336699"/></a:accent1></a:clrScheme>` +
			`<a:fontScheme name="Plain"><a:majorFont><a:latin typeface="Arial"/></a:majorFont><a:minorFont><a:latin typeface="Calibri"/></a:minorFont></a:fontScheme>` +
			`</a:themeElements></a:theme>`,
	}
}

// Zip writes parts into an archive in name order.
func Zip(t Fataler, parts map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(parts))
	for n := range parts {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
		if _, err := w.Write([]byte(parts[n])); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// Template returns a minimal valid presentation.
func Template(t Fataler) []byte {
	t.Helper()
	return Zip(t, TemplateParts())
}

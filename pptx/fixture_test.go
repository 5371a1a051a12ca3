package pptx

import (
	"archive/zip"
	"bytes"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"auto_ppt_generator/internal/testutil"
)

const testNS = testutil.NS

// fixture is a template under construction, part name to content.
type fixture map[string]string

func rels(triples ...string) string { return testutil.Rels(triples...) }

const themeXMLFixture = `<?xml version="1.0" encoding="UTF-8"?>
<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Test">
<a:themeElements>
<a:clrScheme name="Test">
<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>
<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>
<a:dk2><a:srgbClr val="44546A"/></a:dk2>
<a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>
<a:accent1><a:srgbClr val="4472c4"/></a:accent1>
<a:accent2><a:srgbClr val="ED7D31"/></a:accent2>
<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3>
<a:accent4><a:srgbClr val="FFC000"/></a:accent4>
<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5>
<a:accent6><a:srgbClr val="70AD47"/></a:accent6>
<a:hlink><a:srgbClr val="0563C1"/></a:hlink>
<a:folHlink><a:srgbClr val="954F72"/></a:folHlink>
</a:clrScheme>
<a:fontScheme name="Test">
<a:majorFont><a:latin typeface="Georgia"/><a:ea typeface=""/></a:majorFont>
<a:minorFont><a:latin typeface="Verdana"/><a:ea typeface=""/></a:minorFont>
</a:fontScheme>
</a:themeElements>
</a:theme>`

func tinyPNG(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.String()
}

// newFixture returns a .potx-style template with four layouts, declared by
// the master in the order Title Slide, Picture with Caption, Title and
// Content, Two Content. It carries one stale slide and a comment, two
// identical PNGs and a vector image. It starts from the shared test
// template and replaces or adds parts.
func newFixture(t *testing.T) fixture {
	t.Helper()
	pic := tinyPNG(t, color.RGBA{R: 200, A: 255})
	f := fixture(testutil.TemplateParts())

	f["[Content_Types].xml"] = testutil.ContentTypes(testutil.TemplateType,
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slides/slide1.xml",
		"ppt/theme/theme1.xml",
		"ppt/media/image3.emf",
	)
	f["ppt/presentation.xml"] = testutil.Header + `<p:presentation ` + testNS + `>` +
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>` +
		`<p:sldIdLst><p:sldId id="256" r:id="rId3"/></p:sldIdLst>` +
		`<p:sldSz cx="9144000" cy="6858000" type="screen4x3"/><p:notesSz cx="6858000" cy="9144000"/>` +
		`</p:presentation>`
	f["ppt/_rels/presentation.xml.rels"] = rels(
		"rId1", "slideMaster", "slideMasters/slideMaster1.xml",
		"rId2", "theme", "theme/theme1.xml",
		"rId3", "slide", "slides/slide1.xml",
	)

	f["ppt/slideMasters/slideMaster1.xml"] = testutil.Master("rId2", "rId3", "rId1", "rId4")
	f["ppt/slideMasters/_rels/slideMaster1.xml.rels"] = rels(
		"rId1", "slideLayout", "../slideLayouts/slideLayout1.xml",
		"rId2", "slideLayout", "../slideLayouts/slideLayout2.xml",
		"rId3", "slideLayout", "../slideLayouts/slideLayout10.xml",
		"rId4", "slideLayout", "../slideLayouts/slideLayout4.xml",
		"rId5", "theme", "../theme/theme1.xml",
	)
	f["ppt/slideLayouts/slideLayout1.xml"] = testutil.Layout("Title and Content", "obj",
		`<p:ph type="title"/>`, `<p:ph idx="1"/>`, `<p:ph type="dt" sz="half" idx="10"/>`)
	f["ppt/slideLayouts/slideLayout2.xml"] = testutil.Layout("Title Slide", "title",
		`<p:ph type="ctrTitle"/>`, `<p:ph type="subTitle" idx="1"/>`)
	f["ppt/slideLayouts/slideLayout10.xml"] = testutil.Layout("Picture with Caption", "picTx",
		`<p:ph type="title"/>`, `<p:ph type="pic" idx="1"/>`, `<p:ph type="body" sz="half" idx="2"/>`)
	f["ppt/slideLayouts/slideLayout4.xml"] = testutil.Layout("Two Content", "twoObj",
		`<p:ph type="title"/>`, `<p:ph sz="half" idx="1"/>`, `<p:ph sz="half" idx="2"/>`)

	f["ppt/theme/theme1.xml"] = themeXMLFixture
	f["ppt/media/image1.png"] = pic
	f["ppt/media/image2.png"] = pic
	f["ppt/media/image3.emf"] = "not a raster"
	f["ppt/slides/slide1.xml"] = testutil.Header + `<p:sld ` + testNS + `><p:cSld><p:spTree/></p:cSld><!-- OLD SLIDE --></p:sld>`
	f["ppt/slides/_rels/slide1.xml.rels"] = rels("rId1", "slideLayout", "../slideLayouts/slideLayout1.xml")
	f["ppt/comments/comment1.xml"] = `<p:cmLst ` + testNS + `/>`
	return f
}

// archive zips the fixture with deterministic member order.
func (f fixture) archive(t *testing.T) []byte {
	t.Helper()
	return testutil.Zip(t, f)
}

// rawMember is a zip entry written with caller-chosen header sizes.
type rawMember struct {
	name         string
	stored       []byte
	declaredSize uint64
}

// lyingZip writes stored members whose directory entries declare sizes
// that need not match the payload.
func lyingZip(t *testing.T, members ...rawMember) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               m.name,
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE(m.stored),
			CompressedSize64:   uint64(len(m.stored)),
			UncompressedSize64: m.declaredSize,
		})
		require.NoError(t, err)
		_, err = w.Write(m.stored)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

package pptx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

const (
	nsPackageRels  = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsDrawing      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsOfficeRels   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPresentation = "http://schemas.openxmlformats.org/presentationml/2006/main"

	relSlide       = nsOfficeRels + "/slide"
	relSlideLayout = nsOfficeRels + "/slideLayout"
	relNotesSlide  = nsOfficeRels + "/notesSlide"
	relNotesMaster = nsOfficeRels + "/notesMaster"
	relTheme       = nsOfficeRels + "/theme"
	relImage       = nsOfficeRels + "/image"

	ctPresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ctTemplate     = "application/vnd.openxmlformats-officedocument.presentationml.template.main+xml"
	ctSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctNotesSlide   = "application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"
	ctNotesMaster  = "application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml"
	ctTheme        = "application/vnd.openxmlformats-officedocument.theme+xml"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

type contentTypes struct {
	Defaults  []ctDefault  `xml:"Default"`
	Overrides []ctOverride `xml:"Override"`
}

type ctDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type ctOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

func (c *contentTypes) override(part string) (string, bool) {
	for _, o := range c.Overrides {
		if strings.TrimPrefix(o.PartName, "/") == part {
			return o.ContentType, true
		}
	}
	return "", false
}

func (c *contentTypes) hasDefault(ext string) bool {
	for _, d := range c.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return true
		}
	}
	return false
}

func (c *contentTypes) marshal() []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<Types xmlns="%s">`, nsContentTypes)
	for _, d := range c.Defaults {
		fmt.Fprintf(&b, `<Default Extension="%s" ContentType="%s"/>`, escapeAttr(d.Extension), escapeAttr(d.ContentType))
	}
	for _, o := range c.Overrides {
		fmt.Fprintf(&b, `<Override PartName="%s" ContentType="%s"/>`, escapeAttr(o.PartName), escapeAttr(o.ContentType))
	}
	b.WriteString(`</Types>`)
	return b.Bytes()
}

type relationships struct {
	Rels []relationship `xml:"Relationship"`
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// relKind matches a relationship type by its last path segment, so the
// strict and transitional namespaces both match.
func relKind(typ, want string) bool {
	i := strings.LastIndex(want, "/")
	return strings.HasSuffix(typ, want[i:])
}

func (r *relationships) byID(id string) (relationship, bool) {
	for _, rel := range r.Rels {
		if rel.ID == id {
			return rel, true
		}
	}
	return relationship{}, false
}

func (r *relationships) firstOfKind(kind string) (relationship, bool) {
	for _, rel := range r.Rels {
		if relKind(rel.Type, kind) && rel.TargetMode != "External" {
			return rel, true
		}
	}
	return relationship{}, false
}

// nextID returns an id not used by any relationship, numbered after the
// highest rIdN present.
func (r *relationships) nextID() string {
	max := 0
	for _, rel := range r.Rels {
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > max {
			max = n
		}
	}
	return "rId" + strconv.Itoa(max+1)
}

func (r *relationships) marshal() []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<Relationships xmlns="%s">`, nsPackageRels)
	for _, rel := range r.Rels {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"`, escapeAttr(rel.ID), escapeAttr(rel.Type), escapeAttr(rel.Target))
		if rel.TargetMode != "" {
			fmt.Fprintf(&b, ` TargetMode="%s"`, escapeAttr(rel.TargetMode))
		}
		b.WriteString(`/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

func parseRels(data []byte) (*relationships, error) {
	rels := &relationships{}
	if len(data) == 0 {
		return rels, nil
	}
	if err := xml.Unmarshal(data, rels); err != nil {
		return nil, err
	}
	return rels, nil
}

// relRef captures an element carrying an r:id attribute in either
// relationship namespace.
type relRef struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

func (r relRef) rid() string {
	for _, a := range r.Attrs {
		if a.Name.Local == "id" && a.Name.Space != "" {
			return a.Value
		}
	}
	return ""
}

type presentationXML struct {
	Masters      []relRef `xml:"sldMasterIdLst>sldMasterId"`
	NotesMasters []relRef `xml:"notesMasterIdLst>notesMasterId"`
	SlideSize    struct {
		CX int64 `xml:"cx,attr"`
		CY int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

type masterXML struct {
	Layouts []relRef `xml:"sldLayoutIdLst>sldLayoutId"`
}

type themeXML struct {
	ColorScheme struct {
		Slots []colorDef `xml:",any"`
	} `xml:"themeElements>clrScheme"`
	FontScheme struct {
		Major fontDef `xml:"majorFont"`
		Minor fontDef `xml:"minorFont"`
	} `xml:"themeElements>fontScheme"`
}

type fontDef struct {
	Latin struct {
		Typeface string `xml:"typeface,attr"`
	} `xml:"latin"`
}

type colorDef struct {
	XMLName xml.Name
	SRGB    *struct {
		Val string `xml:"val,attr"`
	} `xml:"srgbClr"`
	Sys *struct {
		Val     string `xml:"val,attr"`
		LastClr string `xml:"lastClr,attr"`
	} `xml:"sysClr"`
}

func (c colorDef) rgb() string {
	switch {
	case c.SRGB != nil:
		return normalizeHex(c.SRGB.Val)
	case c.Sys != nil && c.Sys.LastClr != "":
		return normalizeHex(c.Sys.LastClr)
	case c.Sys != nil && c.Sys.Val == "windowText":
		return "000000"
	case c.Sys != nil && c.Sys.Val == "window":
		return "FFFFFF"
	}
	return ""
}

func normalizeHex(s string) string {
	s = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if len(s) != 6 {
		return ""
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return ""
		}
	}
	return s
}

// escapeText escapes s for element content and drops runes XML 1.0 cannot
// carry.
func escapeText(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(stripInvalidXML(s)))
	return b.String()
}

func escapeAttr(s string) string {
	return escapeText(s)
}

func stripInvalidXML(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20, r == 0xFFFE, r == 0xFFFF, r == unicode.ReplacementChar:
			return -1
		case r >= 0xD800 && r <= 0xDFFF:
			return -1
		}
		return r
	}, s)
}

func sortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })
}

// naturalLess orders "slideLayout2.xml" before "slideLayout10.xml".
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		ad, bd := isDigit(a[0]), isDigit(b[0])
		switch {
		case ad && bd:
			an, arest := leadingNumber(a)
			bn, brest := leadingNumber(b)
			if an != bn {
				return an < bn
			}
			a, b = arest, brest
		case a[0] != b[0]:
			return a[0] < b[0]
		default:
			a, b = a[1:], b[1:]
		}
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func leadingNumber(s string) (int, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}

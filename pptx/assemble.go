package pptx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"

	"auto_ppt_generator/outline"
)

// Result is a finished deck.
type Result struct {
	Data      []byte
	Slides    int
	Pictures  int
	Fallbacks []LayoutFallback
}

// AssemblyState holds the counters of one assembly run.
type AssemblyState struct {
	nextMedia   int
	seen        map[[32]byte]bool
	LayoutUsage map[string]int
	Pictures    int
}

func newAssemblyState() *AssemblyState {
	return &AssemblyState{
		seen:        make(map[[32]byte]bool),
		LayoutUsage: make(map[string]int),
	}
}

// takePicture returns the first unused media item whose bytes decode and
// whose content has not been placed before. Images that fail to decode are
// skipped; a size mismatch aborts assembly.
func (st *AssemblyState) takePicture(media []*Media) (*Media, error) {
	for st.nextMedia < len(media) {
		m := media[st.nextMedia]
		st.nextMedia++
		data, err := m.Bytes()
		if err != nil {
			var unsafe *UnsafeArchiveError
			if errors.As(err, &unsafe) {
				return nil, err
			}
			continue
		}
		sum := blake3.Sum256(data)
		if st.seen[sum] {
			continue
		}
		st.seen[sum] = true
		st.Pictures++
		return m, nil
	}
	return nil, nil
}

// Parts the assembler replaces rather than copies.
var droppedPrefixes = []string{"ppt/slides/", "ppt/notesSlides/", "ppt/comments/"}

func dropped(name string) bool {
	for _, p := range droppedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

type part struct {
	name string
	data []byte
}

// Assemble renders the outline onto the template and returns the new
// archive. The template's existing slides are not carried over.
func Assemble(o outline.Outline, p *TemplateProfile) (*Result, error) {
	a := p.archive
	st := newAssemblyState()
	res := &Result{Slides: len(o.Slides)}

	ctData, err := a.ReadPart(partContentTypes)
	if err != nil {
		return nil, err
	}
	ct, err := unmarshalContentTypes(ctData)
	if err != nil {
		return nil, err
	}
	presRels, err := a.readRels(partPresentation)
	if err != nil {
		return nil, err
	}
	presData, err := a.ReadPart(partPresentation)
	if err != nil {
		return nil, err
	}

	keptRels := presRels.Rels[:0:0]
	for _, rel := range presRels.Rels {
		if relKind(rel.Type, relSlide) {
			continue
		}
		// A notes master reference that did not resolve is dropped with
		// its declaration below.
		if relKind(rel.Type, relNotesMaster) && p.notesMaster == "" {
			continue
		}
		keptRels = append(keptRels, rel)
	}
	presRels.Rels = keptRels

	keptOverrides := ct.Overrides[:0:0]
	for _, ov := range ct.Overrides {
		name := strings.TrimPrefix(ov.PartName, "/")
		if dropped(name) {
			continue
		}
		if name == partPresentation && ov.ContentType == ctTemplate {
			ov.ContentType = ctPresentation
		}
		keptOverrides = append(keptOverrides, ov)
	}
	ct.Overrides = keptOverrides

	needsNotes := false
	for _, s := range o.Slides {
		if s.Notes != "" {
			needsNotes = true
			break
		}
	}

	var extra []part
	notesMaster := p.notesMaster
	var notesMasterRID string
	if needsNotes && notesMaster == "" {
		parts, name, err := p.synthesizeNotesMaster(ct)
		if err != nil {
			return nil, err
		}
		extra = append(extra, parts...)
		notesMaster = name
		notesMasterRID = presRels.nextID()
		presRels.Rels = append(presRels.Rels, relationship{
			ID:     notesMasterRID,
			Type:   relNotesMaster,
			Target: relativeTarget(partPresentation, name),
		})
	}

	var slideRIDs []string
	for i, s := range o.Slides {
		layout, fallback := p.SelectLayout(s)
		if fallback {
			res.Fallbacks = append(res.Fallbacks, LayoutFallback{Slide: i, Hint: s.LayoutHint, Layout: layout.Name})
		}
		st.LayoutUsage[layout.ID]++

		slideName := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		rels := &relationships{Rels: []relationship{{
			ID:     "rId1",
			Type:   relSlideLayout,
			Target: relativeTarget(slideName, layout.ID),
		}}}

		var pic *Media
		if len(layout.placeholders("pic")) > 0 {
			pic, err = st.takePicture(p.Media)
			if err != nil {
				return nil, err
			}
			if pic != nil {
				rels.Rels = append(rels.Rels, relationship{
					ID:     pic.RelID,
					Type:   relImage,
					Target: relativeTarget(slideName, pic.Name),
				})
				ensureDefault(ct, pic.Ext(), pic.ContentType())
			}
		}

		if s.Notes != "" {
			notesName := fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", i+1)
			rels.Rels = append(rels.Rels, relationship{
				ID:     rels.nextID(),
				Type:   relNotesSlide,
				Target: relativeTarget(slideName, notesName),
			})
			notesRels := &relationships{Rels: []relationship{
				{ID: "rId1", Type: relNotesMaster, Target: relativeTarget(notesName, notesMaster)},
				{ID: "rId2", Type: relSlide, Target: relativeTarget(notesName, slideName)},
			}}
			extra = append(extra,
				part{notesName, notesSlideXML(s.Notes)},
				part{relsPath(notesName), notesRels.marshal()},
			)
			ct.Overrides = append(ct.Overrides, ctOverride{PartName: "/" + notesName, ContentType: ctNotesSlide})
		}

		w := slideWriter{profile: p, layout: layout, slide: s, picture: pic}
		extra = append(extra,
			part{slideName, w.render()},
			part{relsPath(slideName), rels.marshal()},
		)
		ct.Overrides = append(ct.Overrides, ctOverride{PartName: "/" + slideName, ContentType: ctSlide})

		rid := presRels.nextID()
		presRels.Rels = append(presRels.Rels, relationship{ID: rid, Type: relSlide, Target: relativeTarget(partPresentation, slideName)})
		slideRIDs = append(slideRIDs, rid)
	}
	res.Pictures = st.Pictures

	presOut, err := rewritePresentation(presData, slideRIDs, notesMasterRID, p.notesMaster != "")
	if err != nil {
		return nil, err
	}

	data, err := p.writeArchive(ct, presRels, presOut, extra)
	if err != nil {
		return nil, err
	}
	res.Data = data
	return res, nil
}

func unmarshalContentTypes(data []byte) (*contentTypes, error) {
	ct := &contentTypes{}
	if err := xml.Unmarshal(data, ct); err != nil {
		return nil, invalidTemplate("parse %s: %v", partContentTypes, err)
	}
	return ct, nil
}

func ensureDefault(ct *contentTypes, ext, contentType string) {
	if ext == "" || contentType == "" || ct.hasDefault(ext) {
		return
	}
	ct.Defaults = append(ct.Defaults, ctDefault{Extension: ext, ContentType: contentType})
}

// synthesizeNotesMaster adds a notes master bound to a copy of the
// template theme.
func (p *TemplateProfile) synthesizeNotesMaster(ct *contentTypes) ([]part, string, error) {
	a := p.archive
	master := freeName(a, "ppt/notesMasters/notesMaster", ".xml")
	theme := freeName(a, "ppt/theme/theme", ".xml")
	themeData, err := a.ReadPart(p.theme)
	if err != nil {
		return nil, "", err
	}
	rels := &relationships{Rels: []relationship{{ID: "rId1", Type: relTheme, Target: relativeTarget(master, theme)}}}
	ct.Overrides = append(ct.Overrides,
		ctOverride{PartName: "/" + master, ContentType: ctNotesMaster},
		ctOverride{PartName: "/" + theme, ContentType: ctTheme},
	)
	return []part{
		{master, notesMasterXML()},
		{relsPath(master), rels.marshal()},
		{theme, themeData},
	}, master, nil
}

// freeName returns prefix+N+suffix for the lowest N >= 1 not in the archive.
func freeName(a *Archive, prefix, suffix string) string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s%d%s", prefix, n, suffix)
		if !a.Has(name) {
			return name
		}
	}
}

// relativeTarget expresses target relative to the directory of source.
func relativeTarget(source, target string) string {
	from := strings.Split(path.Dir(source), "/")
	to := strings.Split(target, "/")
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	var b strings.Builder
	for j := i; j < len(from); j++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(to[i:], "/"))
	return b.String()
}

var rePresRoot = regexp.MustCompile(`<(?:(\w+):)?presentation[\s>]`)

// sectionList matches the section extension, whose entries name slide ids.
func sectionList(pfx string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)<` + pfx + `ext uri="\{521415D9-36F7-43E2-AB2F-B90AF26B5E84\}">.*?</` + pfx + `ext>`)
}

// rewritePresentation replaces the slide id list and, when a notes master
// was added, declares it. An existing notes master list is kept only when
// keepNotesMaster is set; otherwise it is removed so at most one remains.
func rewritePresentation(data []byte, slideRIDs []string, notesMasterRID string, keepNotesMaster bool) ([]byte, error) {
	doc := string(data)
	m := rePresRoot.FindStringSubmatch(doc)
	if m == nil {
		return nil, invalidTemplate("%s has no presentation element", partPresentation)
	}
	pfx := ""
	if m[1] != "" {
		pfx = m[1] + ":"
	}
	lists := []string{"sldIdLst", "custShowLst"}
	if !keepNotesMaster {
		lists = append(lists, "notesMasterIdLst")
	}
	for _, el := range lists {
		re := regexp.MustCompile(`(?s)<` + pfx + el + `\b[^>]*/>|<` + pfx + el + `\b.*?</` + pfx + el + `>`)
		doc = re.ReplaceAllString(doc, "")
	}
	doc = sectionList(pfx).ReplaceAllString(doc, "")

	rns := ""
	if !strings.Contains(doc, `xmlns:r="`+nsOfficeRels+`"`) {
		rns = ` xmlns:r="` + nsOfficeRels + `"`
	}

	if notesMasterRID != "" {
		list := fmt.Sprintf(`<%snotesMasterIdLst%s><%snotesMasterId r:id="%s"/></%snotesMasterIdLst>`,
			pfx, rns, pfx, notesMasterRID, pfx)
		end := "</" + pfx + "sldMasterIdLst>"
		i := strings.Index(doc, end)
		if i < 0 {
			return nil, invalidTemplate("%s has no slide master list", partPresentation)
		}
		i += len(end)
		doc = doc[:i] + list + doc[i:]
	}

	if len(slideRIDs) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, `<%ssldIdLst%s>`, pfx, rns)
		for i, rid := range slideRIDs {
			fmt.Fprintf(&b, `<%ssldId id="%d" r:id="%s"/>`, pfx, 256+i, rid)
		}
		fmt.Fprintf(&b, `</%ssldIdLst>`, pfx)
		at := -1
		for _, anchor := range []string{"<" + pfx + "sldSz", "<" + pfx + "notesSz"} {
			if at = strings.Index(doc, anchor); at >= 0 {
				break
			}
		}
		if at < 0 {
			return nil, invalidTemplate("%s has no notes size", partPresentation)
		}
		doc = doc[:at] + b.String() + doc[at:]
	}
	return []byte(doc), nil
}

// writeArchive copies every kept template part, re-reading each through
// its size check, then adds the generated parts.
func (p *TemplateProfile) writeArchive(ct *contentTypes, presRels *relationships, pres []byte, extra []part) ([]byte, error) {
	a := p.archive
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	put := func(name string, data []byte) error {
		method := zip.Deflate
		if _, ok := rasterTypes[strings.ToLower(path.Ext(name))]; ok {
			method = zip.Store
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}

	if err := put(partContentTypes, ct.marshal()); err != nil {
		return nil, err
	}
	presRelsName := relsPath(partPresentation)
	for _, name := range a.names {
		switch {
		case strings.HasSuffix(name, "/"), dropped(name), name == partContentTypes:
			continue
		case name == partPresentation:
			if err := put(name, pres); err != nil {
				return nil, err
			}
			continue
		case name == presRelsName:
			continue
		}
		data, err := a.ReadPart(name)
		if err != nil {
			return nil, err
		}
		if err := put(name, data); err != nil {
			return nil, err
		}
	}
	if err := put(presRelsName, presRels.marshal()); err != nil {
		return nil, err
	}
	for _, pt := range extra {
		if err := put(pt.name, pt.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Package pptx reads untrusted presentation templates and writes decks.
//
// Reading is two-phase. Open validates the zip central directory without
// inflating any member; Introspect then reads the few XML parts it needs,
// each bounded by its declared size. Assemble writes a new archive that
// keeps the template's masters, layouts, theme and media.
package pptx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"auto_ppt_generator/config"
)

const (
	partContentTypes = "[Content_Types].xml"
	partPresentation = "ppt/presentation.xml"
)

var requiredParts = []string{partContentTypes, partPresentation}

// Archive is a template whose directory passed every structural check.
// It is read-only and scoped to one request.
type Archive struct {
	reader  *zip.Reader
	files   map[string]*zip.File
	names   []string
	limits  config.Limits
	totalIn uint64
}

// Open validates the archive's envelope from its central directory alone.
// No member is decompressed here.
func Open(data []byte, limits config.Limits) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, unsafeArchive("format", "not a zip archive: %v", err)
	}
	if n := len(zr.File); n > limits.MaxZipEntries {
		return nil, unsafeArchive("entries", "%d entries exceeds limit %d", n, limits.MaxZipEntries)
	}

	a := &Archive{
		reader: zr,
		files:  make(map[string]*zip.File, len(zr.File)),
		limits: limits,
	}
	memberLimit := limits.MemberLimitBytes()
	totalLimit := limits.TotalLimitBytes()
	for _, f := range zr.File {
		if !safeName(f.Name) {
			return nil, unsafeArchive("entry_name", "unsafe entry name %q", f.Name)
		}
		if _, dup := a.files[f.Name]; dup {
			return nil, unsafeArchive("entry_name", "duplicate entry %q", f.Name)
		}
		if f.UncompressedSize64 > memberLimit {
			return nil, unsafeArchive("member_size", "%s declares %d bytes, limit %d",
				f.Name, f.UncompressedSize64, memberLimit)
		}
		a.totalIn += f.UncompressedSize64
		if a.totalIn > totalLimit {
			return nil, unsafeArchive("total_size", "declared sizes exceed %d bytes", totalLimit)
		}
		a.files[f.Name] = f
		a.names = append(a.names, f.Name)
	}
	for _, name := range requiredParts {
		if _, ok := a.files[name]; !ok {
			return nil, unsafeArchive("required_part", "missing %s", name)
		}
	}
	sort.Strings(a.names)
	return a, nil
}

// safeName rejects absolute paths, backslashes and parent references.
func safeName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return false
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// Has reports whether the archive holds a part.
func (a *Archive) Has(name string) bool {
	_, ok := a.files[name]
	return ok
}

// Names returns part names in lexical order, directories included.
func (a *Archive) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// DeclaredSize returns the uncompressed size recorded in the directory.
func (a *Archive) DeclaredSize(name string) (uint64, bool) {
	f, ok := a.files[name]
	if !ok {
		return 0, false
	}
	return f.UncompressedSize64, true
}

var errPartNotFound = errors.New("part not found")

// ReadPart inflates one member. At most declared+1 bytes are read, and any
// divergence from the declared size fails with an UnsafeArchiveError.
func (a *Archive) ReadPart(name string) ([]byte, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errPartNotFound)
	}
	declared := f.UncompressedSize64
	rc, err := f.Open()
	if err != nil {
		return nil, unsafeArchive("declared_size", "%s: %v", name, err)
	}
	defer rc.Close()

	buf := bytes.NewBuffer(make([]byte, 0, int(declared)))
	n, err := io.Copy(buf, io.LimitReader(rc, int64(declared)+1))
	if err != nil {
		// The zip reader reports a checksum or size mismatch here.
		return nil, unsafeArchive("declared_size", "%s: %v", name, err)
	}
	if uint64(n) != declared {
		return nil, unsafeArchive("declared_size", "%s inflated to at least %d bytes, declared %d", name, n, declared)
	}
	return buf.Bytes(), nil
}

// readOptional returns nil when the part is absent.
func (a *Archive) readOptional(name string) ([]byte, error) {
	if !a.Has(name) {
		return nil, nil
	}
	return a.ReadPart(name)
}

// files under dir, in lexical order.
func (a *Archive) under(dir string) []string {
	var out []string
	for _, n := range a.names {
		if strings.HasPrefix(n, dir) && !strings.HasSuffix(n, "/") {
			out = append(out, n)
		}
	}
	return out
}

// relsPath returns the relationship part for a source part.
func relsPath(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

// resolveTarget resolves a relationship target relative to its source.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(source), target))
}

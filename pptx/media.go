package pptx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// rasterTypes are the media extensions a slide picture may reuse.
var rasterTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// Media is a template image. Its bytes are read from the archive on first
// use and cached; the read happens at most once.
type Media struct {
	RelID string `json:"relationship_id"`
	Name  string `json:"name"`
	Size  uint64 `json:"size"`

	archive *Archive
	once    sync.Once
	data    []byte
	width   int
	height  int
	err     error
}

// Ext returns the lower-cased file extension without the dot.
func (m *Media) Ext() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(m.Name)), ".")
}

// ContentType returns the image MIME type.
func (m *Media) ContentType() string {
	return rasterTypes["."+m.Ext()]
}

// Bytes inflates the image and checks that its header decodes.
func (m *Media) Bytes() ([]byte, error) {
	m.once.Do(func() {
		data, err := m.archive.ReadPart(m.Name)
		if err != nil {
			m.err = err
			return
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			m.err = fmt.Errorf("%s: decode image header: %w", m.Name, err)
			return
		}
		m.data, m.width, m.height = data, cfg.Width, cfg.Height
	})
	return m.data, m.err
}

// Dimensions returns the pixel size once Bytes has succeeded.
func (m *Media) Dimensions() (int, int) {
	return m.width, m.height
}

// collectMedia lists raster parts under ppt/media/ in natural order,
// skipping oversize images and stopping at the image cap.
func collectMedia(a *Archive) []*Media {
	limit := a.limits.ImageLimitBytes()
	names := a.under("ppt/media/")
	sortNatural(names)

	var out []*Media
	for _, name := range names {
		if len(out) >= a.limits.MaxTemplateImages {
			break
		}
		if _, ok := rasterTypes[strings.ToLower(path.Ext(name))]; !ok {
			continue
		}
		size, _ := a.DeclaredSize(name)
		if size == 0 || size > limit {
			continue
		}
		out = append(out, &Media{
			RelID:   fmt.Sprintf("rIdImg%d", len(out)+1),
			Name:    name,
			Size:    size,
			archive: a,
		})
	}
	return out
}

package outline

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// The goldmark parser configuration never changes and parsing keeps its
// state per call, so one instance serves every request.
var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// ClampText silently truncates raw input to maxChars runes.
func ClampText(raw string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= maxChars {
		return raw
	}
	n := 0
	for i := range raw {
		if n == maxChars {
			return raw[:i]
		}
		n++
	}
	return raw
}

// Tokenize splits markdown into blocks in source order. Blank lines are
// separators and never produce blocks; each paragraph line becomes its own
// Paragraph block. Images and raw HTML are dropped, link labels kept.
func Tokenize(raw string) []Block {
	source := []byte(strings.ReplaceAll(raw, "\r\n", "\n"))
	doc := parser().Parser().Parse(text.NewReader(source))
	t := &tokenizer{source: source}
	t.walkBlocks(doc, false)
	return t.blocks
}

type tokenizer struct {
	source []byte
	blocks []Block
}

func (t *tokenizer) walkBlocks(parent ast.Node, quoted bool) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if txt := collapseSpace(t.inline(node)); txt != "" {
				t.blocks = append(t.blocks, Block{Kind: KindHeading, Level: node.Level, Text: txt})
			}
		case *ast.List:
			t.walkList(node, 0, quoted)
		case *ast.FencedCodeBlock:
			t.emitCode(node, string(node.Language(t.source)))
		case *ast.CodeBlock:
			t.emitCode(node, "")
		case *ast.Blockquote:
			t.walkBlocks(node, true)
		case *ast.Paragraph, *ast.TextBlock:
			t.emitParagraphLines(t.inline(node), quoted)
		case *extast.Table:
			t.walkTable(node, quoted)
		case *ast.ThematicBreak, *ast.HTMLBlock:
		default:
			if node.HasChildren() {
				t.walkBlocks(node, quoted)
			}
		}
	}
}

func (t *tokenizer) walkList(list *ast.List, depth int, quoted bool) {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []*ast.List
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch child := c.(type) {
			case *ast.List:
				nested = append(nested, child)
			case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
				parts = append(parts, t.inline(child))
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				parts = append(parts, t.lines(child))
			}
		}
		if txt := collapseSpace(strings.Join(parts, " ")); txt != "" {
			t.blocks = append(t.blocks, Block{
				Kind:    KindListItem,
				Text:    txt,
				Ordered: list.IsOrdered(),
				Depth:   depth,
				Quoted:  quoted,
			})
		}
		for _, sub := range nested {
			t.walkList(sub, depth+1, quoted)
		}
	}
}

func (t *tokenizer) walkTable(table *extast.Table, quoted bool) {
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if txt := collapseSpace(t.inline(cell)); txt != "" {
				cells = append(cells, txt)
			}
		}
		if len(cells) > 0 {
			t.blocks = append(t.blocks, Block{Kind: KindParagraph, Text: strings.Join(cells, " | "), Quoted: quoted})
		}
	}
}

func (t *tokenizer) emitCode(node ast.Node, lang string) {
	code := strings.TrimRight(t.lines(node), "\n")
	if strings.TrimSpace(code) == "" {
		return
	}
	t.blocks = append(t.blocks, Block{Kind: KindCodeFence, Text: code, Lang: strings.TrimSpace(lang)})
}

func (t *tokenizer) emitParagraphLines(content string, quoted bool) {
	continued := false
	for _, line := range strings.Split(content, "\n") {
		if line = collapseSpace(line); line != "" {
			t.blocks = append(t.blocks, Block{Kind: KindParagraph, Text: line, Quoted: quoted, Continued: continued})
			continued = true
		}
	}
}

// lines returns the raw source lines of a block node.
func (t *tokenizer) lines(node ast.Node) string {
	var b strings.Builder
	segs := node.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(t.source))
	}
	return b.String()
}

// inline flattens the inline children of node into plain text, keeping
// soft and hard line breaks as newlines.
func (t *tokenizer) inline(node ast.Node) string {
	var b strings.Builder
	t.writeInline(&b, node)
	return b.String()
}

func (t *tokenizer) writeInline(b *strings.Builder, node ast.Node) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(t.source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(t.source))
		case *ast.Image, *ast.RawHTML, *extast.TaskCheckBox:
		default:
			t.writeInline(b, c)
		}
	}
}

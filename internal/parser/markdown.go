package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docseg/internal/pandoc"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark with the GFM and
// definition list extensions.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*pandoc.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM, extension.DefinitionList))
	root := md.Parser().Parse(text.NewReader(src))

	c := &mdConverter{src: src}
	return newDocument(BaseTitle(filename), c.blocks(root)), nil
}

type mdConverter struct {
	src []byte
}

// blocks converts the block children of n.
func (c *mdConverter) blocks(n ast.Node) []pandoc.Block {
	var out []pandoc.Block
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if b := c.block(child); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (c *mdConverter) block(n ast.Node) pandoc.Block {
	switch node := n.(type) {
	case *ast.Heading:
		return &pandoc.Header{Level: node.Level, Inlines: c.inlines(node)}
	case *ast.Paragraph:
		return &pandoc.Para{Inlines: c.inlines(node)}
	case *ast.TextBlock:
		return &pandoc.Plain{Inlines: c.inlines(node)}
	case *ast.ThematicBreak:
		return &pandoc.HorizontalRule{}
	case *ast.FencedCodeBlock:
		cb := &pandoc.CodeBlock{Text: c.lines(node)}
		if lang := node.Language(c.src); len(lang) > 0 {
			cb.Classes = []string{string(lang)}
		}
		return cb
	case *ast.CodeBlock:
		return &pandoc.CodeBlock{Text: c.lines(node)}
	case *ast.HTMLBlock:
		raw := c.lines(node)
		if node.HasClosure() {
			raw += "\n" + strings.TrimRight(string(node.ClosureLine.Value(c.src)), "\n")
		}
		return &pandoc.RawBlock{Format: "html", Text: raw}
	case *ast.Blockquote:
		return &pandoc.BlockQuote{Blocks: c.blocks(node)}
	case *ast.List:
		items := make([][]pandoc.Block, 0, node.ChildCount())
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			items = append(items, c.blocks(item))
		}
		if !node.IsOrdered() {
			return &pandoc.BulletList{Items: items}
		}
		delim := "Period"
		if node.Marker == ')' {
			delim = "OneParen"
		}
		return &pandoc.OrderedList{
			ListAttrs: pandoc.ListAttrs{Start: node.Start, Style: "Decimal", Delimiter: delim},
			Items:     items,
		}
	case *extast.DefinitionList:
		dl := &pandoc.DefinitionList{}
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *extast.DefinitionTerm:
				dl.Items = append(dl.Items, pandoc.Definition{Term: c.inlines(child)})
			case *extast.DefinitionDescription:
				if len(dl.Items) == 0 {
					dl.Items = append(dl.Items, pandoc.Definition{})
				}
				last := &dl.Items[len(dl.Items)-1]
				last.Definitions = append(last.Definitions, c.blocks(child))
			}
		}
		return dl
	case *extast.Table:
		// Table contents are not part of the segmentable text.
		return &pandoc.Table{}
	}
	return nil
}

// lines joins the raw source lines of a block, without the final newline.
func (c *mdConverter) lines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(c.src))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// inlines converts the inline children of a block.
func (c *mdConverter) inlines(n ast.Node) []pandoc.Inline {
	var b inlineBuilder
	c.collect(&b, n)
	return b.trimmed()
}

func (c *mdConverter) nested(n ast.Node) []pandoc.Inline {
	var b inlineBuilder
	c.collect(&b, n)
	return b.inlines()
}

func (c *mdConverter) collect(b *inlineBuilder, n ast.Node) {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch node := child.(type) {
		case *ast.Text:
			b.text(string(node.Segment.Value(c.src)))
			switch {
			case node.HardLineBreak():
				b.add(&pandoc.LineBreak{})
			case node.SoftLineBreak():
				b.text("\n")
			}
		case *ast.String:
			b.text(string(node.Value))
		case *ast.Emphasis:
			children := c.nested(node)
			if node.Level >= 2 {
				b.add(&pandoc.Strong{Inlines: children})
			} else {
				b.add(&pandoc.Emph{Inlines: children})
			}
		case *extast.Strikethrough:
			b.add(&pandoc.Strikeout{Inlines: c.nested(node)})
		case *ast.CodeSpan:
			b.add(&pandoc.Code{Text: c.rawText(node)})
		case *ast.Link:
			b.add(&pandoc.Link{
				Inlines: c.nested(node),
				Target:  pandoc.Target{URL: string(node.Destination), Title: string(node.Title)},
			})
		case *ast.Image:
			b.add(&pandoc.Image{
				Inlines: c.nested(node),
				Target:  pandoc.Target{URL: string(node.Destination), Title: string(node.Title)},
			})
		case *ast.AutoLink:
			url := string(node.URL(c.src))
			b.add(&pandoc.Link{
				Inlines: []pandoc.Inline{&pandoc.Str{Text: string(node.Label(c.src))}},
				Target:  pandoc.Target{URL: url},
			})
		case *ast.RawHTML:
			var raw bytes.Buffer
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				raw.Write(seg.Value(c.src))
			}
			b.add(&pandoc.RawInline{Format: "html", Text: raw.String()})
		case *extast.TaskCheckBox:
			if node.IsChecked {
				b.text("☒ ")
			} else {
				b.text("☐ ")
			}
		default:
			c.collect(b, child)
		}
	}
}

// rawText returns the verbatim text under n.
func (c *mdConverter) rawText(n ast.Node) string {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch node := child.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(c.src))
		case *ast.String:
			buf.Write(node.Value)
		default:
			buf.WriteString(c.rawText(child))
		}
	}
	return buf.String()
}

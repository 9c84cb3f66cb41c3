package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docseg/internal/pandoc"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Sectioning elements (div, section,
// article, main) are flattened so headings inside them stay top-level.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*pandoc.Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := BaseTitle(filename)
	if t := findTitle(doc); t != "" {
		title = t
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	return newDocument(title, htmlBlocks(root)), nil
}

var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "br": true,
	"cite": true, "code": true, "data": true, "del": true, "dfn": true, "em": true,
	"i": true, "img": true, "ins": true, "kbd": true, "label": true, "mark": true,
	"q": true, "s": true, "samp": true, "small": true, "span": true, "strike": true,
	"strong": true, "sub": true, "sup": true, "time": true, "tt": true, "u": true,
	"var": true, "wbr": true,
}

func isInlineNode(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return true
	case html.ElementNode:
		return inlineElements[n.Data]
	}
	return false
}

// htmlBlocks converts the children of n. Runs of loose inline content
// become Plain blocks.
func htmlBlocks(n *html.Node) []pandoc.Block {
	var (
		out   []pandoc.Block
		loose inlineBuilder
	)
	flushLoose := func() {
		if inlines := loose.trimmed(); len(inlines) > 0 {
			out = append(out, &pandoc.Plain{Inlines: inlines})
		}
		loose.reset()
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isInlineNode(c) {
			htmlInline(&loose, c)
			continue
		}
		if c.Type != html.ElementNode {
			continue
		}
		flushLoose()
		out = append(out, htmlBlock(c)...)
	}
	flushLoose()
	return out
}

func htmlBlock(n *html.Node) []pandoc.Block {
	if level := headingLevel(n.Data); level > 0 {
		return []pandoc.Block{&pandoc.Header{Level: level, Attr: pandoc.Attr{ID: attr(n, "id")}, Inlines: htmlInlines(n)}}
	}

	switch n.Data {
	case "script", "style", "nav", "footer", "header", "head", "template", "noscript":
		// Skip non-content elements.
		return nil
	case "p":
		return []pandoc.Block{&pandoc.Para{Inlines: htmlInlines(n)}}
	case "pre":
		cb := &pandoc.CodeBlock{Text: strings.TrimSuffix(rawTextContent(n), "\n")}
		if code := firstElement(n, "code"); code != nil {
			for _, class := range strings.Fields(attr(code, "class")) {
				if lang, ok := strings.CutPrefix(class, "language-"); ok {
					cb.Classes = []string{lang}
				}
			}
		}
		return []pandoc.Block{cb}
	case "blockquote":
		return []pandoc.Block{&pandoc.BlockQuote{Blocks: htmlBlocks(n)}}
	case "ul", "ol":
		var items [][]pandoc.Block
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "li" {
				items = append(items, htmlBlocks(c))
			}
		}
		if n.Data == "ul" {
			return []pandoc.Block{&pandoc.BulletList{Items: items}}
		}
		start := 1
		if v, err := strconv.Atoi(attr(n, "start")); err == nil {
			start = v
		}
		return []pandoc.Block{&pandoc.OrderedList{
			ListAttrs: pandoc.ListAttrs{Start: start, Style: "Decimal", Delimiter: "Period"},
			Items:     items,
		}}
	case "dl":
		dl := &pandoc.DefinitionList{}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "dt":
				dl.Items = append(dl.Items, pandoc.Definition{Term: htmlInlines(c)})
			case "dd":
				if len(dl.Items) == 0 {
					dl.Items = append(dl.Items, pandoc.Definition{})
				}
				last := &dl.Items[len(dl.Items)-1]
				last.Definitions = append(last.Definitions, htmlBlocks(c))
			}
		}
		return []pandoc.Block{dl}
	case "hr":
		return []pandoc.Block{&pandoc.HorizontalRule{}}
	case "table":
		return []pandoc.Block{&pandoc.Table{Attr: pandoc.Attr{ID: attr(n, "id")}}}
	}
	// Any other container contributes its children in place.
	return htmlBlocks(n)
}

// htmlInlines converts the content of a block element to trimmed inlines.
func htmlInlines(n *html.Node) []pandoc.Inline {
	var b inlineBuilder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		htmlInline(&b, c)
	}
	return b.trimmed()
}

func htmlNested(n *html.Node) []pandoc.Inline {
	var b inlineBuilder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		htmlInline(&b, c)
	}
	return b.inlines()
}

func htmlInline(b *inlineBuilder, n *html.Node) {
	if n.Type == html.TextNode {
		b.text(n.Data)
		return
	}
	if n.Type != html.ElementNode {
		return
	}
	switch n.Data {
	case "em", "i", "cite", "dfn", "var":
		b.add(&pandoc.Emph{Inlines: htmlNested(n)})
	case "strong", "b":
		b.add(&pandoc.Strong{Inlines: htmlNested(n)})
	case "u", "ins":
		b.add(&pandoc.Underline{Inlines: htmlNested(n)})
	case "s", "del", "strike":
		b.add(&pandoc.Strikeout{Inlines: htmlNested(n)})
	case "sup":
		b.add(&pandoc.Superscript{Inlines: htmlNested(n)})
	case "sub":
		b.add(&pandoc.Subscript{Inlines: htmlNested(n)})
	case "code", "kbd", "samp", "tt":
		b.add(&pandoc.Code{Text: rawTextContent(n)})
	case "q":
		b.add(&pandoc.Quoted{Type: pandoc.DoubleQuote, Inlines: htmlNested(n)})
	case "a":
		b.add(&pandoc.Link{
			Inlines: htmlNested(n),
			Target:  pandoc.Target{URL: attr(n, "href"), Title: attr(n, "title")},
		})
	case "img":
		b.add(&pandoc.Image{
			Inlines: words(attr(n, "alt")),
			Target:  pandoc.Target{URL: attr(n, "src"), Title: attr(n, "title")},
		})
	case "br":
		b.add(&pandoc.LineBreak{})
	case "script", "style":
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			htmlInline(b, c)
		}
	}
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
}

// rawTextContent returns all text under n without trimming.
func rawTextContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return strings.TrimSpace(rawTextContent(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

package render

import (
	"strconv"
	"strings"

	"github.com/dgallion1/docseg/internal/pandoc"
)

// Renderer converts nodes to strings under one Style. It holds no mutable
// state, so a Renderer is safe for concurrent use.
type Renderer struct {
	style Style
}

// New returns a Renderer for the given style.
func New(style Style) Renderer {
	return Renderer{style: style}
}

var (
	// Flat extracts plain text.
	Flat = New(FlatStyle)
	// Display renders Markdown-like text.
	Display = New(DisplayStyle)
)

// Style reports the style the renderer was built with.
func (r Renderer) Style() Style { return r.style }

// Plain renders a block with the Flat renderer.
func Plain(b pandoc.Block) string { return Flat.Block(b) }

// PlainInline renders an inline with the Flat renderer.
func PlainInline(in pandoc.Inline) string { return Flat.Inline(in) }

// Markdown renders a block sequence with the Display renderer.
func Markdown(blocks []pandoc.Block) string { return Display.Blocks(blocks) }

// Inlines concatenates the rendering of each inline.
func (r Renderer) Inlines(inlines []pandoc.Inline) string {
	var sb strings.Builder
	for _, in := range inlines {
		sb.WriteString(r.Inline(in))
	}
	return sb.String()
}

// Inline renders one inline node. Variants without a rule render as "".
func (r Renderer) Inline(in pandoc.Inline) string {
	s := r.style
	switch in := in.(type) {
	case *pandoc.Str:
		return in.Text
	case *pandoc.Space:
		return " "
	case *pandoc.SoftBreak, *pandoc.LineBreak:
		return "\n"
	case *pandoc.Emph:
		return s.Emph.wrap(r.Inlines(in.Inlines))
	case *pandoc.Underline:
		return s.Underline.wrap(r.Inlines(in.Inlines))
	case *pandoc.Strong:
		return s.Strong.wrap(r.Inlines(in.Inlines))
	case *pandoc.Strikeout:
		return s.Strikeout.wrap(r.Inlines(in.Inlines))
	case *pandoc.Superscript:
		return s.Superscript.wrap(r.Inlines(in.Inlines))
	case *pandoc.Subscript:
		return s.Subscript.wrap(r.Inlines(in.Inlines))
	case *pandoc.SmallCaps:
		return s.SmallCaps.wrap(r.Inlines(in.Inlines))
	case *pandoc.Quoted:
		if in.Type == pandoc.SingleQuote {
			return s.SingleQuote.wrap(r.Inlines(in.Inlines))
		}
		return s.DoubleQuote.wrap(r.Inlines(in.Inlines))
	case *pandoc.Cite:
		return r.Inlines(in.Inlines)
	case *pandoc.Span:
		return r.Inlines(in.Inlines)
	case *pandoc.Link:
		text := r.Inlines(in.Inlines)
		if s.Links {
			return "[" + text + "](" + in.Target.URL + ")"
		}
		return text
	case *pandoc.Image:
		text := r.Inlines(in.Inlines)
		if s.Links {
			return "![" + text + "](" + in.Target.URL + ")"
		}
		return text
	case *pandoc.Code:
		return s.Code.wrap(in.Text)
	case *pandoc.Math:
		if in.Type == pandoc.DisplayMath {
			return s.DisplayMath.wrap(in.Text)
		}
		return s.InlineMath.wrap(in.Text)
	case *pandoc.RawInline:
		return in.Text
	case *pandoc.Note:
		parts := make([]string, 0, len(in.Blocks))
		for _, b := range in.Blocks {
			parts = append(parts, r.Block(b))
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

// Blocks renders a block sequence, joining siblings with the style's BlockSep.
func (r Renderer) Blocks(blocks []pandoc.Block) string {
	if r.style.BlockSep == "" {
		var sb strings.Builder
		for _, b := range blocks {
			sb.WriteString(r.Block(b))
		}
		return sb.String()
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if text := r.Block(b); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, r.style.BlockSep)
}

// Block renders one block node. Tables, figures, Null and unknown variants
// render as "".
func (r Renderer) Block(b pandoc.Block) string {
	s := r.style
	switch b := b.(type) {
	case *pandoc.Plain:
		return r.Inlines(b.Inlines)
	case *pandoc.Para:
		return r.Inlines(b.Inlines)
	case *pandoc.Header:
		text := r.Inlines(b.Inlines)
		if s.HeaderMarks {
			return strings.Repeat("#", max(b.Level, 1)) + " " + text
		}
		return text
	case *pandoc.LineBlock:
		lines := make([]string, 0, len(b.Lines))
		for _, line := range b.Lines {
			lines = append(lines, r.Inlines(line))
		}
		return strings.Join(lines, "\n")
	case *pandoc.CodeBlock:
		if s.FenceCode {
			lang := ""
			if len(b.Classes) > 0 {
				lang = b.Classes[0]
			}
			return "```" + lang + "\n" + b.Text + "\n```"
		}
		return b.Text
	case *pandoc.RawBlock:
		return b.Text
	case *pandoc.BlockQuote:
		return prefixLines(r.Blocks(b.Blocks), s.QuotePrefix, s.QuotePrefix)
	case *pandoc.Div:
		return r.Blocks(b.Blocks)
	case *pandoc.BulletList:
		return r.list(b.Items, func(int) string { return s.Bullet })
	case *pandoc.OrderedList:
		start := b.Start
		if start == 0 {
			start = 1
		}
		return r.list(b.Items, func(i int) string {
			if s.NumberItems {
				return strconv.Itoa(start+i) + ". "
			}
			return s.Bullet
		})
	case *pandoc.DefinitionList:
		groups := make([]string, 0, len(b.Items))
		for _, item := range b.Items {
			defs := make([]string, 0, len(item.Definitions))
			for _, def := range item.Definitions {
				defs = append(defs, s.DefinitionPrefix+r.Blocks(def))
			}
			groups = append(groups, r.Inlines(item.Term)+"\n"+strings.Join(defs, "\n"))
		}
		return strings.Join(groups, s.DefinitionSep)
	case *pandoc.HorizontalRule:
		return s.Rule
	}
	return ""
}

// list renders items with a per-item marker; continuation lines are indented
// to the marker's width.
func (r Renderer) list(items [][]pandoc.Block, marker func(int) string) string {
	out := make([]string, 0, len(items))
	for i, item := range items {
		m := marker(i)
		out = append(out, prefixLines(r.Blocks(item), m, strings.Repeat(" ", len(m))))
	}
	return strings.Join(out, r.style.ItemSep)
}

// prefixLines puts first before the first line and rest before every later
// non-empty line. Empty prefixes leave text untouched.
func prefixLines(text, first, rest string) string {
	if first == "" && rest == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case i == 0:
			lines[i] = first + line
		case line == "":
			lines[i] = strings.TrimRight(rest, " ")
		default:
			lines[i] = rest + line
		}
	}
	return strings.Join(lines, "\n")
}

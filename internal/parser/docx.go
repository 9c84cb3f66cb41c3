package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/docseg/internal/pandoc"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading styles become headers, numbered
// or list-styled paragraphs become bullet list items, and bold or italic
// runs keep their emphasis.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*pandoc.Document, error) {
	// go-docx needs a ReaderAt+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docseg-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	title := BaseTitle(filename)
	var (
		blocks []pandoc.Block
		list   *pandoc.BulletList
	)
	closeList := func() {
		if list != nil {
			blocks = append(blocks, list)
			list = nil
		}
	}

	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			inlines := docxInlines(it)
			if len(inlines) == 0 {
				continue
			}
			style := docxStyle(it)
			switch {
			case strings.EqualFold(style, "Title"):
				closeList()
				title = docxPlainText(it)
			case docxHeadingLevel(style) > 0:
				closeList()
				blocks = append(blocks, &pandoc.Header{Level: docxHeadingLevel(style), Inlines: inlines})
			case docxIsListItem(it, style):
				if list == nil {
					list = &pandoc.BulletList{}
				}
				list.Items = append(list.Items, []pandoc.Block{&pandoc.Plain{Inlines: inlines}})
			default:
				closeList()
				blocks = append(blocks, &pandoc.Para{Inlines: inlines})
			}
		case *docx.Table:
			closeList()
			blocks = append(blocks, &pandoc.Table{})
		}
	}
	closeList()

	return newDocument(title, blocks), nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if len(s) == len("heading")+1 && strings.HasPrefix(s, "heading") {
		if d := s[len(s)-1]; d >= '1' && d <= '6' {
			return int(d - '0')
		}
	}
	return 0
}

func docxIsListItem(para *docx.Paragraph, style string) bool {
	if para.Properties != nil && para.Properties.NumProperties != nil {
		return true
	}
	return strings.EqualFold(strings.ReplaceAll(style, " ", ""), "ListParagraph")
}

// docxRuns returns the runs of a paragraph, including those nested in
// hyperlinks.
func docxRuns(para *docx.Paragraph) []*docx.Run {
	var runs []*docx.Run
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			runs = append(runs, c)
		case *docx.Hyperlink:
			runs = append(runs, &c.Run)
		}
	}
	return runs
}

func docxRunText(run *docx.Run) string {
	var buf strings.Builder
	for _, rc := range run.Children {
		switch t := rc.(type) {
		case *docx.Text:
			buf.WriteString(t.Text)
		case *docx.Tab:
			buf.WriteString(" ")
		case *docx.BarterRabbet:
			buf.WriteString("\n")
		}
	}
	return buf.String()
}

func docxPlainText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, run := range docxRuns(para) {
		buf.WriteString(docxRunText(run))
	}
	return strings.TrimSpace(buf.String())
}

func docxInlines(para *docx.Paragraph) []pandoc.Inline {
	var b inlineBuilder
	for _, run := range docxRuns(para) {
		text := docxRunText(run)
		if text == "" {
			continue
		}
		props := run.RunProperties
		if props == nil || (props.Bold == nil && props.Italic == nil) {
			b.text(text)
			continue
		}
		core := strings.TrimSpace(text)
		if core == "" {
			b.text(text)
			continue
		}
		// Blanks around an emphasized run belong to the surrounding text.
		lead := text[:strings.Index(text, core)]
		trail := text[len(lead)+len(core):]

		inner := words(core)
		var in pandoc.Inline
		if props.Italic != nil {
			in = &pandoc.Emph{Inlines: inner}
			inner = []pandoc.Inline{in}
		}
		if props.Bold != nil {
			in = &pandoc.Strong{Inlines: inner}
		}
		b.text(lead)
		b.add(in)
		b.text(trail)
	}
	return b.trimmed()
}

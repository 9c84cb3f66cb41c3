package pandoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed reports a document whose JSON does not match the pandoc AST shape.
var ErrMalformed = errors.New("malformed pandoc document")

type element struct {
	T Tag             `json:"t"`
	C json.RawMessage `json:"c"`
}

type rawDocument struct {
	APIVersion []int              `json:"pandoc-api-version"`
	Meta       json.RawMessage    `json:"meta"`
	Blocks     *[]json.RawMessage `json:"blocks"`
}

// Decode reads a pandoc JSON document (as produced by `pandoc -t json`).
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Unmarshal(data)
}

// Unmarshal parses a pandoc JSON document held in memory.
func Unmarshal(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Blocks == nil {
		return nil, fmt.Errorf("%w: missing blocks", ErrMalformed)
	}
	blocks, err := decodeBlockList(*raw.Blocks)
	if err != nil {
		return nil, err
	}
	return &Document{
		APIVersion: raw.APIVersion,
		Meta:       raw.Meta,
		Blocks:     blocks,
	}, nil
}

// TitleInlines returns the document title from metadata, or nil.
func (d *Document) TitleInlines() []Inline {
	if len(d.Meta) == 0 {
		return nil
	}
	var meta map[string]element
	if err := json.Unmarshal(d.Meta, &meta); err != nil {
		return nil
	}
	title, ok := meta["title"]
	if !ok {
		return nil
	}
	switch title.T {
	case "MetaInlines":
		inlines, err := decodeInlines(title.C)
		if err != nil {
			return nil
		}
		return inlines
	case "MetaString":
		var s string
		if err := json.Unmarshal(title.C, &s); err != nil {
			return nil
		}
		return Words(s)
	}
	return nil
}

func malformed(tag Tag, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, tag, err)
}

// tuple splits a JSON array into exactly n raw members.
func tuple(c json.RawMessage, n int) ([]json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(c, &parts); err != nil {
		return nil, err
	}
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d fields, got %d", n, len(parts))
	}
	return parts, nil
}

func decodeBlockList(raw []json.RawMessage) ([]Block, error) {
	blocks := make([]Block, 0, len(raw))
	for _, r := range raw {
		b, err := decodeBlock(r)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func decodeBlocks(c json.RawMessage) ([]Block, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(c, &raw); err != nil {
		return nil, err
	}
	return decodeBlockList(raw)
}

func decodeBlockLists(c json.RawMessage) ([][]Block, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(c, &raw); err != nil {
		return nil, err
	}
	items := make([][]Block, 0, len(raw))
	for _, r := range raw {
		item, err := decodeBlocks(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeInlines(c json.RawMessage) ([]Inline, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(c, &raw); err != nil {
		return nil, err
	}
	inlines := make([]Inline, 0, len(raw))
	for _, r := range raw {
		in, err := decodeInline(r)
		if err != nil {
			return nil, err
		}
		inlines = append(inlines, in)
	}
	return inlines, nil
}

func decodeAttr(c json.RawMessage) (Attr, error) {
	parts, err := tuple(c, 3)
	if err != nil {
		return Attr{}, err
	}
	var attr Attr
	if err := json.Unmarshal(parts[0], &attr.ID); err != nil {
		return Attr{}, err
	}
	if err := json.Unmarshal(parts[1], &attr.Classes); err != nil {
		return Attr{}, err
	}
	if err := json.Unmarshal(parts[2], &attr.KVs); err != nil {
		return Attr{}, err
	}
	return attr, nil
}

// attrAndText decodes the common [Attr, String] payload.
func attrAndText(c json.RawMessage) (Attr, string, error) {
	parts, err := tuple(c, 2)
	if err != nil {
		return Attr{}, "", err
	}
	attr, err := decodeAttr(parts[0])
	if err != nil {
		return Attr{}, "", err
	}
	var text string
	if err := json.Unmarshal(parts[1], &text); err != nil {
		return Attr{}, "", err
	}
	return attr, text, nil
}

// formatAndText decodes the common [Format, String] payload.
func formatAndText(c json.RawMessage) (string, string, error) {
	var pair [2]string
	if err := json.Unmarshal(c, &pair); err != nil {
		return "", "", err
	}
	return pair[0], pair[1], nil
}

// tagAndInlines decodes [{"t":X}, [Inline]] payloads (Quoted).
func tagAndInlines(c json.RawMessage) (Tag, []Inline, error) {
	parts, err := tuple(c, 2)
	if err != nil {
		return "", nil, err
	}
	var kind element
	if err := json.Unmarshal(parts[0], &kind); err != nil {
		return "", nil, err
	}
	inlines, err := decodeInlines(parts[1])
	return kind.T, inlines, err
}

func decodeLinkLike(c json.RawMessage) (Attr, []Inline, Target, error) {
	parts, err := tuple(c, 3)
	if err != nil {
		return Attr{}, nil, Target{}, err
	}
	attr, err := decodeAttr(parts[0])
	if err != nil {
		return Attr{}, nil, Target{}, err
	}
	inlines, err := decodeInlines(parts[1])
	if err != nil {
		return Attr{}, nil, Target{}, err
	}
	var target [2]string
	if err := json.Unmarshal(parts[2], &target); err != nil {
		return Attr{}, nil, Target{}, err
	}
	return attr, inlines, Target{URL: target[0], Title: target[1]}, nil
}

func decodeCitations(c json.RawMessage) ([]Citation, error) {
	var raw []struct {
		ID      string  `json:"citationId"`
		Mode    element `json:"citationMode"`
		NoteNum int     `json:"citationNoteNum"`
	}
	if err := json.Unmarshal(c, &raw); err != nil {
		return nil, err
	}
	cites := make([]Citation, 0, len(raw))
	for _, r := range raw {
		cites = append(cites, Citation{ID: r.ID, Mode: string(r.Mode.T), NoteNum: r.NoteNum})
	}
	return cites, nil
}

func decodeInline(data json.RawMessage) (Inline, error) {
	var el element
	if err := json.Unmarshal(data, &el); err != nil {
		return nil, fmt.Errorf("%w: inline: %v", ErrMalformed, err)
	}

	var (
		in  Inline
		err error
	)
	switch el.T {
	case StrTag:
		var s string
		err = json.Unmarshal(el.C, &s)
		in = &Str{Text: s}
	case SpaceTag:
		in = &Space{}
	case SoftBreakTag:
		in = &SoftBreak{}
	case LineBreakTag:
		in = &LineBreak{}
	case EmphTag, UnderlineTag, StrongTag, StrikeoutTag, SuperscriptTag, SubscriptTag, SmallCapsTag:
		var children []Inline
		children, err = decodeInlines(el.C)
		in = containerInline(el.T, children)
	case QuotedTag:
		var kind Tag
		var children []Inline
		kind, children, err = tagAndInlines(el.C)
		in = &Quoted{Type: QuoteType(kind), Inlines: children}
	case CiteTag:
		var parts []json.RawMessage
		if parts, err = tuple(el.C, 2); err == nil {
			cite := &Cite{}
			if cite.Citations, err = decodeCitations(parts[0]); err == nil {
				cite.Inlines, err = decodeInlines(parts[1])
			}
			in = cite
		}
	case CodeTag:
		var attr Attr
		var text string
		attr, text, err = attrAndText(el.C)
		in = &Code{Attr: attr, Text: text}
	case MathTag:
		var parts []json.RawMessage
		if parts, err = tuple(el.C, 2); err == nil {
			var kind element
			var text string
			if err = json.Unmarshal(parts[0], &kind); err == nil {
				err = json.Unmarshal(parts[1], &text)
			}
			in = &Math{Type: MathType(kind.T), Text: text}
		}
	case RawInlineTag:
		var format, text string
		format, text, err = formatAndText(el.C)
		in = &RawInline{Format: format, Text: text}
	case LinkTag:
		var attr Attr
		var children []Inline
		var target Target
		attr, children, target, err = decodeLinkLike(el.C)
		in = &Link{Attr: attr, Inlines: children, Target: target}
	case ImageTag:
		var attr Attr
		var children []Inline
		var target Target
		attr, children, target, err = decodeLinkLike(el.C)
		in = &Image{Attr: attr, Inlines: children, Target: target}
	case NoteTag:
		var blocks []Block
		blocks, err = decodeBlocks(el.C)
		in = &Note{Blocks: blocks}
	case SpanTag:
		var parts []json.RawMessage
		if parts, err = tuple(el.C, 2); err == nil {
			span := &Span{}
			if span.Attr, err = decodeAttr(parts[0]); err == nil {
				span.Inlines, err = decodeInlines(parts[1])
			}
			in = span
		}
	case "":
		return nil, fmt.Errorf("%w: inline without tag", ErrMalformed)
	default:
		in = &UnknownInline{T: el.T, Raw: el.C}
	}
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			return nil, err
		}
		return nil, malformed(el.T, err)
	}
	return in, nil
}

func containerInline(t Tag, children []Inline) Inline {
	switch t {
	case EmphTag:
		return &Emph{Inlines: children}
	case UnderlineTag:
		return &Underline{Inlines: children}
	case StrongTag:
		return &Strong{Inlines: children}
	case StrikeoutTag:
		return &Strikeout{Inlines: children}
	case SuperscriptTag:
		return &Superscript{Inlines: children}
	case SubscriptTag:
		return &Subscript{Inlines: children}
	default:
		return &SmallCaps{Inlines: children}
	}
}

func decodeBlock(data json.RawMessage) (Block, error) {
	var el element
	if err := json.Unmarshal(data, &el); err != nil {
		return nil, fmt.Errorf("%w: block: %v", ErrMalformed, err)
	}

	var (
		b   Block
		err error
	)
	switch el.T {
	case PlainTag:
		var inlines []Inline
		inlines, err = decodeInlines(el.C)
		b = &Plain{Inlines: inlines}
	case ParaTag:
		var inlines []Inline
		inlines, err = decodeInlines(el.C)
		b = &Para{Inlines: inlines}
	case LineBlockTag:
		var raw []json.RawMessage
		if err = json.Unmarshal(el.C, &raw); err == nil {
			lb := &LineBlock{Lines: make([][]Inline, 0, len(raw))}
			for _, r := range raw {
				var line []Inline
				if line, err = decodeInlines(r); err != nil {
					break
				}
				lb.Lines = append(lb.Lines, line)
			}
			b = lb
		}
	case CodeBlockTag:
		var attr Attr
		var text string
		attr, text, err = attrAndText(el.C)
		b = &CodeBlock{Attr: attr, Text: text}
	case RawBlockTag:
		var format, text string
		format, text, err = formatAndText(el.C)
		b = &RawBlock{Format: format, Text: text}
	case BlockQuoteTag:
		var blocks []Block
		blocks, err = decodeBlocks(el.C)
		b = &BlockQuote{Blocks: blocks}
	case OrderedListTag:
		var parts []json.RawMessage
		if parts, err = tuple(el.C, 2); err == nil {
			ol := &OrderedList{}
			if ol.ListAttrs, err = decodeListAttrs(parts[0]); err == nil {
				ol.Items, err = decodeBlockLists(parts[1])
			}
			b = ol
		}
	case BulletListTag:
		var items [][]Block
		items, err = decodeBlockLists(el.C)
		b = &BulletList{Items: items}
	case DefinitionListTag:
		var items []Definition
		items, err = decodeDefinitions(el.C)
		b = &DefinitionList{Items: items}
	case HeaderTag:
		var parts []json.RawMessage
		if parts, err = tuple(el.C, 3); err == nil {
			h := &Header{}
			if err = json.Unmarshal(parts[0], &h.Level); err == nil {
				if h.Attr, err = decodeAttr(parts[1]); err == nil {
					h.Inlines, err = decodeInlines(parts[2])
				}
			}
			b = h
		}
	case HorizontalRuleTag:
		b = &HorizontalRule{}
	case TableTag:
		b = &Table{Attr: leadingAttr(el.C), Raw: el.C}
	case FigureTag:
		b = &Figure{Attr: leadingAttr(el.C), Raw: el.C}
	case DivTag:
		var parts []json.RawMessage
		if parts, err = tuple(el.C, 2); err == nil {
			div := &Div{}
			if div.Attr, err = decodeAttr(parts[0]); err == nil {
				div.Blocks, err = decodeBlocks(parts[1])
			}
			b = div
		}
	case NullTag:
		b = &Null{}
	case "":
		return nil, fmt.Errorf("%w: block without tag", ErrMalformed)
	default:
		b = &UnknownBlock{T: el.T, Raw: el.C}
	}
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			return nil, err
		}
		return nil, malformed(el.T, err)
	}
	return b, nil
}

func decodeListAttrs(c json.RawMessage) (ListAttrs, error) {
	parts, err := tuple(c, 3)
	if err != nil {
		return ListAttrs{}, err
	}
	var attrs ListAttrs
	var style, delim element
	if err := json.Unmarshal(parts[0], &attrs.Start); err != nil {
		return ListAttrs{}, err
	}
	if err := json.Unmarshal(parts[1], &style); err != nil {
		return ListAttrs{}, err
	}
	if err := json.Unmarshal(parts[2], &delim); err != nil {
		return ListAttrs{}, err
	}
	attrs.Style = string(style.T)
	attrs.Delimiter = string(delim.T)
	return attrs, nil
}

func decodeDefinitions(c json.RawMessage) ([]Definition, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(c, &raw); err != nil {
		return nil, err
	}
	items := make([]Definition, 0, len(raw))
	for _, r := range raw {
		parts, err := tuple(r, 2)
		if err != nil {
			return nil, err
		}
		term, err := decodeInlines(parts[0])
		if err != nil {
			return nil, err
		}
		defs, err := decodeBlockLists(parts[1])
		if err != nil {
			return nil, err
		}
		items = append(items, Definition{Term: term, Definitions: defs})
	}
	return items, nil
}

// leadingAttr reads the Attr that opens Table and Figure payloads.
// The rest of the payload is kept raw; a bad Attr yields the zero value.
func leadingAttr(c json.RawMessage) Attr {
	var parts []json.RawMessage
	if err := json.Unmarshal(c, &parts); err != nil || len(parts) == 0 {
		return Attr{}
	}
	attr, err := decodeAttr(parts[0])
	if err != nil {
		return Attr{}
	}
	return attr
}

// Package pandoc models the pandoc document AST consumed by the renderers
// and the segmenter: a closed set of inline and block variants, each a
// pointer struct carrying its pandoc tag.
package pandoc

import "encoding/json"

// Tag is the pandoc constructor name of a node ("Str", "Para", ...).
type Tag string

func (t Tag) String() string { return string(t) }

// Inline is a text-level node.
type Inline interface {
	Tag() Tag
	inline()
}

// Block is a structural node.
type Block interface {
	Tag() Tag
	block()
}

// Document is a parsed pandoc document.
type Document struct {
	APIVersion []int
	Meta       json.RawMessage
	Blocks     []Block
}

// Attr is the (identifier, classes, key-value pairs) triple attached to many nodes.
type Attr struct {
	ID      string
	Classes []string
	KVs     [][2]string
}

// Target is a link or image destination.
type Target struct {
	URL   string
	Title string
}

// Inline tags.
const (
	StrTag         Tag = "Str"
	EmphTag        Tag = "Emph"
	UnderlineTag   Tag = "Underline"
	StrongTag      Tag = "Strong"
	StrikeoutTag   Tag = "Strikeout"
	SuperscriptTag Tag = "Superscript"
	SubscriptTag   Tag = "Subscript"
	SmallCapsTag   Tag = "SmallCaps"
	QuotedTag      Tag = "Quoted"
	CiteTag        Tag = "Cite"
	CodeTag        Tag = "Code"
	SpaceTag       Tag = "Space"
	SoftBreakTag   Tag = "SoftBreak"
	LineBreakTag   Tag = "LineBreak"
	MathTag        Tag = "Math"
	RawInlineTag   Tag = "RawInline"
	LinkTag        Tag = "Link"
	ImageTag       Tag = "Image"
	NoteTag        Tag = "Note"
	SpanTag        Tag = "Span"
)

// Block tags.
const (
	PlainTag          Tag = "Plain"
	ParaTag           Tag = "Para"
	LineBlockTag      Tag = "LineBlock"
	CodeBlockTag      Tag = "CodeBlock"
	RawBlockTag       Tag = "RawBlock"
	BlockQuoteTag     Tag = "BlockQuote"
	OrderedListTag    Tag = "OrderedList"
	BulletListTag     Tag = "BulletList"
	DefinitionListTag Tag = "DefinitionList"
	HeaderTag         Tag = "Header"
	HorizontalRuleTag Tag = "HorizontalRule"
	TableTag          Tag = "Table"
	FigureTag         Tag = "Figure"
	DivTag            Tag = "Div"
	NullTag           Tag = "Null"
)

// Str is a run of text.
type Str struct{ Text string }

func (*Str) Tag() Tag { return StrTag }
func (*Str) inline()  {}

// Space is an inter-word space.
type Space struct{}

func (*Space) Tag() Tag { return SpaceTag }
func (*Space) inline()  {}

// SoftBreak is a line ending inside a paragraph.
type SoftBreak struct{}

func (*SoftBreak) Tag() Tag { return SoftBreakTag }
func (*SoftBreak) inline()  {}

// LineBreak is a hard line break.
type LineBreak struct{}

func (*LineBreak) Tag() Tag { return LineBreakTag }
func (*LineBreak) inline()  {}

// Emph is emphasized text.
type Emph struct{ Inlines []Inline }

func (*Emph) Tag() Tag { return EmphTag }
func (*Emph) inline()  {}

// Underline is underlined text.
type Underline struct{ Inlines []Inline }

func (*Underline) Tag() Tag { return UnderlineTag }
func (*Underline) inline()  {}

// Strong is strongly emphasized text.
type Strong struct{ Inlines []Inline }

func (*Strong) Tag() Tag { return StrongTag }
func (*Strong) inline()  {}

// Strikeout is struck-through text.
type Strikeout struct{ Inlines []Inline }

func (*Strikeout) Tag() Tag { return StrikeoutTag }
func (*Strikeout) inline()  {}

// Superscript is raised text.
type Superscript struct{ Inlines []Inline }

func (*Superscript) Tag() Tag { return SuperscriptTag }
func (*Superscript) inline()  {}

// Subscript is lowered text.
type Subscript struct{ Inlines []Inline }

func (*Subscript) Tag() Tag { return SubscriptTag }
func (*Subscript) inline()  {}

// SmallCaps is small-caps text.
type SmallCaps struct{ Inlines []Inline }

func (*SmallCaps) Tag() Tag { return SmallCapsTag }
func (*SmallCaps) inline()  {}

// QuoteType selects single or double quotation marks.
type QuoteType string

const (
	SingleQuote QuoteType = "SingleQuote"
	DoubleQuote QuoteType = "DoubleQuote"
)

// Quoted is text in quotation marks.
type Quoted struct {
	Type    QuoteType
	Inlines []Inline
}

func (*Quoted) Tag() Tag { return QuotedTag }
func (*Quoted) inline()  {}

// Citation is one reference inside a Cite.
type Citation struct {
	ID      string
	Mode    string
	NoteNum int
}

// Cite is a citation with its rendered text.
type Cite struct {
	Citations []Citation
	Inlines   []Inline
}

func (*Cite) Tag() Tag { return CiteTag }
func (*Cite) inline()  {}

// Code is inline code.
type Code struct {
	Attr
	Text string
}

func (*Code) Tag() Tag { return CodeTag }
func (*Code) inline()  {}

// MathType selects inline or display math.
type MathType string

const (
	InlineMath  MathType = "InlineMath"
	DisplayMath MathType = "DisplayMath"
)

// Math is a TeX math fragment.
type Math struct {
	Type MathType
	Text string
}

func (*Math) Tag() Tag { return MathTag }
func (*Math) inline()  {}

// RawInline is passthrough content in a named format.
type RawInline struct {
	Format string
	Text   string
}

func (*RawInline) Tag() Tag { return RawInlineTag }
func (*RawInline) inline()  {}

// Link is a hyperlink.
type Link struct {
	Attr
	Inlines []Inline
	Target  Target
}

func (*Link) Tag() Tag { return LinkTag }
func (*Link) inline()  {}

// Image is an image with alt text.
type Image struct {
	Attr
	Inlines []Inline
	Target  Target
}

func (*Image) Tag() Tag { return ImageTag }
func (*Image) inline()  {}

// Note is a footnote.
type Note struct{ Blocks []Block }

func (*Note) Tag() Tag { return NoteTag }
func (*Note) inline()  {}

// Span is a generic inline container.
type Span struct {
	Attr
	Inlines []Inline
}

func (*Span) Tag() Tag { return SpanTag }
func (*Span) inline()  {}

// UnknownInline keeps an inline variant this package does not model.
type UnknownInline struct {
	T   Tag
	Raw json.RawMessage
}

func (u *UnknownInline) Tag() Tag { return u.T }
func (*UnknownInline) inline()    {}

// Plain is text not wrapped in a paragraph (tight list items, table cells).
type Plain struct{ Inlines []Inline }

func (*Plain) Tag() Tag { return PlainTag }
func (*Plain) block()   {}

// Para is a paragraph.
type Para struct{ Inlines []Inline }

func (*Para) Tag() Tag { return ParaTag }
func (*Para) block()   {}

// LineBlock is a sequence of lines whose breaks are significant.
type LineBlock struct{ Lines [][]Inline }

func (*LineBlock) Tag() Tag { return LineBlockTag }
func (*LineBlock) block()   {}

// CodeBlock is a literal code block.
type CodeBlock struct {
	Attr
	Text string
}

func (*CodeBlock) Tag() Tag { return CodeBlockTag }
func (*CodeBlock) block()   {}

// RawBlock is passthrough block content in a named format.
type RawBlock struct {
	Format string
	Text   string
}

func (*RawBlock) Tag() Tag { return RawBlockTag }
func (*RawBlock) block()   {}

// BlockQuote is a quoted run of blocks.
type BlockQuote struct{ Blocks []Block }

func (*BlockQuote) Tag() Tag { return BlockQuoteTag }
func (*BlockQuote) block()   {}

// ListAttrs describes ordered list numbering.
type ListAttrs struct {
	Start     int
	Style     string
	Delimiter string
}

// OrderedList is a numbered list; each item is a block sequence.
type OrderedList struct {
	ListAttrs
	Items [][]Block
}

func (*OrderedList) Tag() Tag { return OrderedListTag }
func (*OrderedList) block()   {}

// BulletList is an unnumbered list; each item is a block sequence.
type BulletList struct{ Items [][]Block }

func (*BulletList) Tag() Tag { return BulletListTag }
func (*BulletList) block()   {}

// Definition is one term of a definition list with its definitions.
type Definition struct {
	Term        []Inline
	Definitions [][]Block
}

// DefinitionList is a list of terms and their definitions.
type DefinitionList struct{ Items []Definition }

func (*DefinitionList) Tag() Tag { return DefinitionListTag }
func (*DefinitionList) block()   {}

// Header is a heading.
type Header struct {
	Attr
	Level   int
	Inlines []Inline
}

func (*Header) Tag() Tag { return HeaderTag }
func (*Header) block()   {}

// HorizontalRule is a thematic break.
type HorizontalRule struct{}

func (*HorizontalRule) Tag() Tag { return HorizontalRuleTag }
func (*HorizontalRule) block()   {}

// Table keeps only its attributes; cell content is not rendered.
type Table struct {
	Attr
	Raw json.RawMessage
}

func (*Table) Tag() Tag { return TableTag }
func (*Table) block()   {}

// Figure keeps only its attributes; content is not rendered.
type Figure struct {
	Attr
	Raw json.RawMessage
}

func (*Figure) Tag() Tag { return FigureTag }
func (*Figure) block()   {}

// Div is a generic block container.
type Div struct {
	Attr
	Blocks []Block
}

func (*Div) Tag() Tag { return DivTag }
func (*Div) block()   {}

// Null is an empty block.
type Null struct{}

func (*Null) Tag() Tag { return NullTag }
func (*Null) block()   {}

// UnknownBlock keeps a block variant this package does not model.
type UnknownBlock struct {
	T   Tag
	Raw json.RawMessage
}

func (u *UnknownBlock) Tag() Tag { return u.T }
func (*UnknownBlock) block()     {}

// Package render turns pandoc nodes into text. A single traversal is
// parameterized by a Style: FlatStyle strips all formatting for plain text
// extraction, DisplayStyle reproduces lightweight Markdown.
package render

// Marker is an opening/closing pair wrapped around rendered content.
type Marker struct {
	Open  string
	Close string
}

func (m Marker) wrap(s string) string {
	if m.Open == "" && m.Close == "" {
		return s
	}
	return m.Open + s + m.Close
}

// Style holds every choice that differs between rendering modes.
type Style struct {
	Name string

	Emph        Marker
	Underline   Marker
	Strong      Marker
	Strikeout   Marker
	Superscript Marker
	Subscript   Marker
	SmallCaps   Marker
	SingleQuote Marker
	DoubleQuote Marker
	Code        Marker
	InlineMath  Marker
	DisplayMath Marker

	// Links renders link and image targets in Markdown form.
	Links bool
	// HeaderMarks prefixes headings with one '#' per level.
	HeaderMarks bool
	// FenceCode wraps code blocks in ``` fences.
	FenceCode bool

	// BlockSep joins sibling blocks inside quotes, divs and list items.
	BlockSep string
	// QuotePrefix starts every line of a block quote.
	QuotePrefix string
	// Bullet starts every bullet list item; ordered items are numbered
	// when NumberItems is set and use Bullet otherwise.
	Bullet      string
	NumberItems bool
	// ItemSep joins list items.
	ItemSep string

	// DefinitionPrefix starts every definition under a term.
	DefinitionPrefix string
	// DefinitionSep joins term/definition groups.
	DefinitionSep string

	// Rule is the text of a horizontal rule.
	Rule string
}

// FlatStyle drops formatting markers, link targets and separators.
var FlatStyle = Style{
	Name:          "flat",
	ItemSep:       "\n",
	DefinitionSep: "\n",
}

// DisplayStyle renders Markdown-like text for people to read.
var DisplayStyle = Style{
	Name:        "display",
	Emph:        Marker{"*", "*"},
	Underline:   Marker{"_", "_"},
	Strong:      Marker{"**", "**"},
	Strikeout:   Marker{"~~", "~~"},
	Superscript: Marker{"^", "^"},
	Subscript:   Marker{"~", "~"},
	SingleQuote: Marker{"'", "'"},
	DoubleQuote: Marker{"\"", "\""},
	Code:        Marker{"`", "`"},
	InlineMath:  Marker{"$", "$"},
	DisplayMath: Marker{"$$", "$$"},

	Links:       true,
	HeaderMarks: true,
	FenceCode:   true,

	BlockSep:    "\n\n",
	QuotePrefix: "> ",
	Bullet:      "* ",
	NumberItems: true,
	ItemSep:     "\n",

	DefinitionPrefix: ":\t",
	DefinitionSep:    "\n\n",

	Rule: "---",
}

// StyleByName returns the style registered under name ("flat" or "display").
func StyleByName(name string) (Style, bool) {
	switch name {
	case FlatStyle.Name, "":
		return FlatStyle, true
	case DisplayStyle.Name:
		return DisplayStyle, true
	}
	return Style{}, false
}

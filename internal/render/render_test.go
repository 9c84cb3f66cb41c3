package render

import (
	"strings"
	"testing"

	"github.com/dgallion1/docseg/internal/pandoc"
)

func str(s string) pandoc.Inline { return &pandoc.Str{Text: s} }

func para(inlines ...pandoc.Inline) pandoc.Block { return &pandoc.Para{Inlines: inlines} }

func plain(inlines ...pandoc.Inline) pandoc.Block { return &pandoc.Plain{Inlines: inlines} }

func TestFlatInline_TextAndWhitespace(t *testing.T) {
	inlines := []pandoc.Inline{
		str("Hello"), &pandoc.Space{}, str("world"), &pandoc.SoftBreak{},
		str("next"), &pandoc.LineBreak{}, str("line"),
	}
	got := Flat.Inlines(inlines)
	want := "Hello world\nnext\nline"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFlatInline_ContainersDropMarkers(t *testing.T) {
	tests := []struct {
		name string
		in   pandoc.Inline
		want string
	}{
		{"emph", &pandoc.Emph{Inlines: []pandoc.Inline{str("a"), &pandoc.Space{}, str("b")}}, "a b"},
		{"strong", &pandoc.Strong{Inlines: []pandoc.Inline{str("bold")}}, "bold"},
		{"underline", &pandoc.Underline{Inlines: []pandoc.Inline{str("u")}}, "u"},
		{"strikeout", &pandoc.Strikeout{Inlines: []pandoc.Inline{str("gone")}}, "gone"},
		{"superscript", &pandoc.Superscript{Inlines: []pandoc.Inline{str("2")}}, "2"},
		{"subscript", &pandoc.Subscript{Inlines: []pandoc.Inline{str("i")}}, "i"},
		{"smallcaps", &pandoc.SmallCaps{Inlines: []pandoc.Inline{str("Caps")}}, "Caps"},
		{"quoted", &pandoc.Quoted{Type: pandoc.DoubleQuote, Inlines: []pandoc.Inline{str("q")}}, "q"},
		{"cite", &pandoc.Cite{Citations: []pandoc.Citation{{ID: "k"}}, Inlines: []pandoc.Inline{str("[@k]")}}, "[@k]"},
		{"link", &pandoc.Link{Inlines: []pandoc.Inline{str("here")}, Target: pandoc.Target{URL: "http://x"}}, "here"},
		{"image", &pandoc.Image{Inlines: []pandoc.Inline{str("alt")}, Target: pandoc.Target{URL: "a.png"}}, "alt"},
		{"span", &pandoc.Span{Inlines: []pandoc.Inline{str("s")}}, "s"},
		{"nested", &pandoc.Strong{Inlines: []pandoc.Inline{&pandoc.Emph{Inlines: []pandoc.Inline{str("deep")}}}}, "deep"},
		{"empty container", &pandoc.Emph{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flat.Inline(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFlatInline_Literals(t *testing.T) {
	tests := []struct {
		in   pandoc.Inline
		want string
	}{
		{&pandoc.Code{Text: "x := 1"}, "x := 1"},
		{&pandoc.Math{Type: pandoc.InlineMath, Text: "a^2"}, "a^2"},
		{&pandoc.Math{Type: pandoc.DisplayMath, Text: "\\sum"}, "\\sum"},
		{&pandoc.RawInline{Format: "html", Text: "<br>"}, "<br>"},
	}
	for _, tt := range tests {
		if got := Flat.Inline(tt.in); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.in.Tag(), tt.want, got)
		}
	}
}

func TestFlatInline_NoteJoinsBlocksWithNewline(t *testing.T) {
	note := &pandoc.Note{Blocks: []pandoc.Block{para(str("one")), para(str("two"))}}
	if got := Flat.Inline(note); got != "one\ntwo" {
		t.Errorf("expected %q, got %q", "one\ntwo", got)
	}
}

func TestFlatInline_UnknownIsEmpty(t *testing.T) {
	if got := Flat.Inline(&pandoc.UnknownInline{T: "Sparkle"}); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := Flat.Inline(nil); got != "" {
		t.Errorf("expected empty string for nil, got %q", got)
	}
}

func TestFlatBlock_Variants(t *testing.T) {
	tests := []struct {
		name string
		b    pandoc.Block
		want string
	}{
		{"para", para(str("a"), &pandoc.Space{}, str("b")), "a b"},
		{"plain", plain(str("p")), "p"},
		{"header drops level", &pandoc.Header{Level: 3, Attr: pandoc.Attr{ID: "h"}, Inlines: []pandoc.Inline{str("Title")}}, "Title"},
		{"line block", &pandoc.LineBlock{Lines: [][]pandoc.Inline{{str("l1")}, {str("l"), str("2")}}}, "l1\nl2"},
		{"code block", &pandoc.CodeBlock{Attr: pandoc.Attr{Classes: []string{"go"}}, Text: "fmt.Println()"}, "fmt.Println()"},
		{"raw block", &pandoc.RawBlock{Format: "html", Text: "<hr>"}, "<hr>"},
		{"block quote concatenates", &pandoc.BlockQuote{Blocks: []pandoc.Block{para(str("a")), para(str("b"))}}, "ab"},
		{"div concatenates", &pandoc.Div{Blocks: []pandoc.Block{para(str("x")), para(str("y"))}}, "xy"},
		{"bullet list", &pandoc.BulletList{Items: [][]pandoc.Block{{plain(str("A"))}, {plain(str("B")), plain(str("C"))}}}, "A\nBC"},
		{"ordered list", &pandoc.OrderedList{ListAttrs: pandoc.ListAttrs{Start: 3}, Items: [][]pandoc.Block{{plain(str("one"))}, {plain(str("two"))}}}, "one\ntwo"},
		{"horizontal rule", &pandoc.HorizontalRule{}, ""},
		{"table", &pandoc.Table{}, ""},
		{"figure", &pandoc.Figure{}, ""},
		{"null", &pandoc.Null{}, ""},
		{"unknown", &pandoc.UnknownBlock{T: "Widget"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flat.Block(tt.b); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFlatBlock_DefinitionList(t *testing.T) {
	dl := &pandoc.DefinitionList{Items: []pandoc.Definition{
		{
			Term: []pandoc.Inline{str("Term")},
			Definitions: [][]pandoc.Block{
				{para(str("first"))},
				{para(str("second"))},
			},
		},
		{
			Term:        []pandoc.Inline{str("Other")},
			Definitions: [][]pandoc.Block{{para(str("def"))}},
		},
	}}
	want := "Term\nfirst\nsecond\nOther\ndef"
	if got := Flat.Block(dl); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFlatBlock_NestedLists(t *testing.T) {
	inner := &pandoc.BulletList{Items: [][]pandoc.Block{{plain(str("x"))}, {plain(str("y"))}}}
	outer := &pandoc.BulletList{Items: [][]pandoc.Block{{plain(str("top")), inner}, {plain(str("end"))}}}
	want := "topx\ny\nend"
	if got := Flat.Block(outer); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDisplayBlock_DefinitionList(t *testing.T) {
	dl := &pandoc.DefinitionList{Items: []pandoc.Definition{{
		Term:        []pandoc.Inline{str("Term")},
		Definitions: [][]pandoc.Block{{para(str("Def"), &pandoc.Space{}, str("text"))}},
	}}}
	want := "Term\n:\tDef text"
	if got := Display.Block(dl); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDisplayBlock_BulletList(t *testing.T) {
	bl := &pandoc.BulletList{Items: [][]pandoc.Block{{plain(str("A"))}, {plain(str("B"))}}}
	got := Display.Block(bl)
	lines := strings.Split(got, "\n")
	hasA, hasB := false, false
	for _, l := range lines {
		if l == "* A" {
			hasA = true
		}
		if l == "* B" {
			hasB = true
		}
	}
	if !hasA || !hasB {
		t.Errorf("expected separate lines %q and %q, got %q", "* A", "* B", got)
	}
}

func TestDisplayBlock_OrderedListNumbersFromStart(t *testing.T) {
	ol := &pandoc.OrderedList{
		ListAttrs: pandoc.ListAttrs{Start: 4},
		Items:     [][]pandoc.Block{{plain(str("four"))}, {plain(str("five"))}},
	}
	want := "4. four\n5. five"
	if got := Display.Block(ol); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDisplayBlock_ListContinuationIndented(t *testing.T) {
	bl := &pandoc.BulletList{Items: [][]pandoc.Block{{para(str("first")), para(str("second"))}}}
	want := "* first\n\n  second"
	if got := Display.Block(bl); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDisplayBlock_QuotePrefixesEveryLine(t *testing.T) {
	bq := &pandoc.BlockQuote{Blocks: []pandoc.Block{para(str("a")), para(str("b"))}}
	want := "> a\n>\n> b"
	if got := Display.Block(bq); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDisplayBlock_HeaderCodeAndRule(t *testing.T) {
	h := &pandoc.Header{Level: 2, Inlines: []pandoc.Inline{str("Setup")}}
	if got := Display.Block(h); got != "## Setup" {
		t.Errorf("header: expected %q, got %q", "## Setup", got)
	}
	cb := &pandoc.CodeBlock{Attr: pandoc.Attr{Classes: []string{"sh"}}, Text: "ls"}
	if got := Display.Block(cb); got != "```sh\nls\n```" {
		t.Errorf("code: got %q", got)
	}
	if got := Display.Block(&pandoc.HorizontalRule{}); got != "---" {
		t.Errorf("rule: expected %q, got %q", "---", got)
	}
	if got := Display.Block(&pandoc.Table{}); got != "" {
		t.Errorf("table: expected empty, got %q", got)
	}
}

func TestDisplayInline_Markers(t *testing.T) {
	tests := []struct {
		in   pandoc.Inline
		want string
	}{
		{&pandoc.Emph{Inlines: []pandoc.Inline{str("e")}}, "*e*"},
		{&pandoc.Strong{Inlines: []pandoc.Inline{str("s")}}, "**s**"},
		{&pandoc.Strikeout{Inlines: []pandoc.Inline{str("x")}}, "~~x~~"},
		{&pandoc.Code{Text: "c"}, "`c`"},
		{&pandoc.Math{Type: pandoc.InlineMath, Text: "m"}, "$m$"},
		{&pandoc.Quoted{Type: pandoc.SingleQuote, Inlines: []pandoc.Inline{str("q")}}, "'q'"},
		{&pandoc.Link{Inlines: []pandoc.Inline{str("go")}, Target: pandoc.Target{URL: "https://go.dev"}}, "[go](https://go.dev)"},
		{&pandoc.Image{Inlines: []pandoc.Inline{str("logo")}, Target: pandoc.Target{URL: "l.png"}}, "![logo](l.png)"},
	}
	for _, tt := range tests {
		if got := Display.Inline(tt.in); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.in.Tag(), tt.want, got)
		}
	}
}

func TestMarkdown_JoinsTopLevelWithBlankLines(t *testing.T) {
	blocks := []pandoc.Block{
		&pandoc.Header{Level: 1, Inlines: []pandoc.Inline{str("Intro")}},
		para(str("Hello")),
		&pandoc.Null{},
	}
	want := "# Intro\n\nHello"
	if got := Markdown(blocks); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRender_Idempotent(t *testing.T) {
	b := &pandoc.BlockQuote{Blocks: []pandoc.Block{
		para(&pandoc.Emph{Inlines: []pandoc.Inline{str("a")}}, &pandoc.Space{}, str("b")),
		&pandoc.BulletList{Items: [][]pandoc.Block{{plain(str("c"))}}},
	}}
	for _, r := range []Renderer{Flat, Display} {
		first := r.Block(b)
		second := r.Block(b)
		if first != second {
			t.Errorf("%s: renders differ: %q vs %q", r.Style().Name, first, second)
		}
	}
}

func TestStyleByName(t *testing.T) {
	if s, ok := StyleByName("display"); !ok || s.Name != "display" {
		t.Errorf("expected display style, got %+v ok=%v", s.Name, ok)
	}
	if s, ok := StyleByName(""); !ok || s.Name != "flat" {
		t.Errorf("expected flat default, got %q ok=%v", s.Name, ok)
	}
	if _, ok := StyleByName("rtf"); ok {
		t.Error("expected unknown style to be rejected")
	}
}

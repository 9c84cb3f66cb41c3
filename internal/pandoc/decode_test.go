package pandoc

import (
	"errors"
	"strings"
	"testing"
)

const sampleDoc = `{
  "pandoc-api-version": [1, 23, 1],
  "meta": {"title": {"t": "MetaInlines", "c": [{"t": "Str", "c": "Kubernetes"}, {"t": "Space"}, {"t": "Str", "c": "Basics"}]}},
  "blocks": [
    {"t": "Header", "c": [1, ["intro", [], []], [{"t": "Str", "c": "Intro"}]]},
    {"t": "Para", "c": [{"t": "Str", "c": "Hello"}, {"t": "Space"}, {"t": "Emph", "c": [{"t": "Str", "c": "world"}]}]},
    {"t": "BulletList", "c": [[{"t": "Plain", "c": [{"t": "Str", "c": "A"}]}], [{"t": "Plain", "c": [{"t": "Str", "c": "B"}]}]]},
    {"t": "OrderedList", "c": [[3, {"t": "Decimal"}, {"t": "Period"}], [[{"t": "Plain", "c": [{"t": "Str", "c": "three"}]}]]]},
    {"t": "CodeBlock", "c": [["", ["yaml"], []], "kind: Pod"]},
    {"t": "RawBlock", "c": ["html", "<hr>"]},
    {"t": "BlockQuote", "c": [{"t": "Para", "c": [{"t": "Str", "c": "quoted"}]}]},
    {"t": "DefinitionList", "c": [[[{"t": "Str", "c": "Term"}], [[{"t": "Para", "c": [{"t": "Str", "c": "Def"}]}]]]]},
    {"t": "LineBlock", "c": [[{"t": "Str", "c": "l1"}], [{"t": "Str", "c": "l2"}]]},
    {"t": "Div", "c": [["box", ["note"], [["k", "v"]]], [{"t": "Para", "c": [{"t": "Str", "c": "inside"}]}]]},
    {"t": "HorizontalRule"},
    {"t": "Table", "c": [["tbl", [], []], [null, []], [], [["", [], []], []], [], [["", [], []], []]]},
    {"t": "Para", "c": [
      {"t": "Link", "c": [["", [], []], [{"t": "Str", "c": "docs"}], ["https://k8s.io", ""]]},
      {"t": "Code", "c": [["", [], []], "kubectl"]},
      {"t": "Math", "c": [{"t": "InlineMath"}, "x^2"]},
      {"t": "RawInline", "c": ["tex", "\\LaTeX"]},
      {"t": "Quoted", "c": [{"t": "DoubleQuote"}, [{"t": "Str", "c": "q"}]]},
      {"t": "Cite", "c": [[{"citationId": "doe", "citationPrefix": [], "citationSuffix": [], "citationMode": {"t": "NormalCitation"}, "citationNoteNum": 1, "citationHash": 0}], [{"t": "Str", "c": "[@doe]"}]]},
      {"t": "Note", "c": [{"t": "Para", "c": [{"t": "Str", "c": "fn"}]}]},
      {"t": "Span", "c": [["", [], []], [{"t": "Str", "c": "sp"}]]},
      {"t": "Image", "c": [["", [], []], [{"t": "Str", "c": "alt"}], ["a.png", "fig:"]]},
      {"t": "SoftBreak"},
      {"t": "LineBreak"},
      {"t": "Sparkle", "c": 42}
    ]},
    {"t": "Widget", "c": {"any": "thing"}}
  ]
}`

func TestUnmarshal_AllVariants(t *testing.T) {
	doc, err := Unmarshal([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.APIVersion) != 3 || doc.APIVersion[0] != 1 {
		t.Errorf("expected api version [1 23 1], got %v", doc.APIVersion)
	}

	wantTags := []Tag{
		HeaderTag, ParaTag, BulletListTag, OrderedListTag, CodeBlockTag, RawBlockTag,
		BlockQuoteTag, DefinitionListTag, LineBlockTag, DivTag, HorizontalRuleTag,
		TableTag, ParaTag, "Widget",
	}
	if len(doc.Blocks) != len(wantTags) {
		t.Fatalf("expected %d blocks, got %d", len(wantTags), len(doc.Blocks))
	}
	for i, tag := range wantTags {
		if doc.Blocks[i].Tag() != tag {
			t.Errorf("block %d: expected %s, got %s", i, tag, doc.Blocks[i].Tag())
		}
	}

	h := doc.Blocks[0].(*Header)
	if h.Level != 1 || h.ID != "intro" || len(h.Inlines) != 1 {
		t.Errorf("unexpected header: %+v", h)
	}

	ol := doc.Blocks[3].(*OrderedList)
	if ol.Start != 3 || ol.Style != "Decimal" || ol.Delimiter != "Period" || len(ol.Items) != 1 {
		t.Errorf("unexpected ordered list: %+v", ol)
	}

	cb := doc.Blocks[4].(*CodeBlock)
	if cb.Text != "kind: Pod" || len(cb.Classes) != 1 || cb.Classes[0] != "yaml" {
		t.Errorf("unexpected code block: %+v", cb)
	}

	div := doc.Blocks[9].(*Div)
	if div.ID != "box" || len(div.KVs) != 1 || div.KVs[0] != [2]string{"k", "v"} {
		t.Errorf("unexpected div attr: %+v", div.Attr)
	}

	if tbl := doc.Blocks[11].(*Table); tbl.ID != "tbl" {
		t.Errorf("expected table id %q, got %q", "tbl", tbl.ID)
	}

	inlines := doc.Blocks[12].(*Para).Inlines
	wantInline := []Tag{
		LinkTag, CodeTag, MathTag, RawInlineTag, QuotedTag, CiteTag, NoteTag,
		SpanTag, ImageTag, SoftBreakTag, LineBreakTag, "Sparkle",
	}
	if len(inlines) != len(wantInline) {
		t.Fatalf("expected %d inlines, got %d", len(wantInline), len(inlines))
	}
	for i, tag := range wantInline {
		if inlines[i].Tag() != tag {
			t.Errorf("inline %d: expected %s, got %s", i, tag, inlines[i].Tag())
		}
	}
	if link := inlines[0].(*Link); link.Target.URL != "https://k8s.io" {
		t.Errorf("expected link url, got %q", link.Target.URL)
	}
	if cite := inlines[5].(*Cite); len(cite.Citations) != 1 || cite.Citations[0].ID != "doe" || cite.Citations[0].Mode != "NormalCitation" {
		t.Errorf("unexpected citation: %+v", cite.Citations)
	}
	if _, ok := inlines[11].(*UnknownInline); !ok {
		t.Errorf("expected unknown inline catch-all, got %T", inlines[11])
	}
	if _, ok := doc.Blocks[13].(*UnknownBlock); !ok {
		t.Errorf("expected unknown block catch-all, got %T", doc.Blocks[13])
	}
}

func TestDocument_TitleInlines(t *testing.T) {
	doc, err := Unmarshal([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	title := doc.TitleInlines()
	if len(title) != 3 {
		t.Fatalf("expected 3 title inlines, got %d", len(title))
	}
	if s, ok := title[2].(*Str); !ok || s.Text != "Basics" {
		t.Errorf("unexpected title inline: %#v", title[2])
	}

	doc, err = Unmarshal([]byte(`{"meta":{"title":{"t":"MetaString","c":"Plain title"}},"blocks":[]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(doc.TitleInlines()); got != 3 {
		t.Errorf("expected 3 inlines from MetaString title, got %d", got)
	}
}

func TestUnmarshal_EmptyBlocks(t *testing.T) {
	doc, err := Unmarshal([]byte(`{"pandoc-api-version":[1,23],"meta":{},"blocks":[]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Blocks) != 0 {
		t.Errorf("expected 0 blocks, got %d", len(doc.Blocks))
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", `{"blocks": [`, ""},
		{"missing blocks", `{"meta": {}}`, "missing blocks"},
		{"header wrong arity", `{"blocks": [{"t": "Header", "c": [1, ["", [], []]]}]}`, "Header"},
		{"str not a string", `{"blocks": [{"t": "Para", "c": [{"t": "Str", "c": 5}]}]}`, "Str"},
		{"block without tag", `{"blocks": [{"c": []}]}`, "without tag"},
		{"nested bad inline", `{"blocks": [{"t": "BlockQuote", "c": [{"t": "Para", "c": [{"t": "Emph", "c": "oops"}]}]}]}`, "Emph"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error to mention %q, got %q", tt.want, err)
			}
		})
	}
}

func TestWords(t *testing.T) {
	got := Words("  Hello   big\nworld ")
	want := []Inline{&Str{"Hello"}, &Space{}, &Str{"big"}, &SoftBreak{}, &Str{"world"}}
	if len(got) != len(want) {
		t.Fatalf("expected %d inlines, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Tag() != want[i].Tag() {
			t.Errorf("inline %d: expected %s, got %s", i, want[i].Tag(), got[i].Tag())
		}
		if ws, ok := want[i].(*Str); ok {
			if gs := got[i].(*Str); gs.Text != ws.Text {
				t.Errorf("inline %d: expected %q, got %q", i, ws.Text, gs.Text)
			}
		}
	}
	if Words("   ") != nil {
		t.Error("expected nil for blank input")
	}
}

func TestTokenize_KeepsEdgeBlanks(t *testing.T) {
	got := Tokenize(" a\n")
	want := []Tag{SpaceTag, StrTag, SoftBreakTag}
	if len(got) != len(want) {
		t.Fatalf("expected %d inlines, got %d", len(want), len(got))
	}
	for i, tag := range want {
		if got[i].Tag() != tag {
			t.Errorf("inline %d: expected %s, got %s", i, tag, got[i].Tag())
		}
	}
}

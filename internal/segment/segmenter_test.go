package segment

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/dgallion1/docseg/internal/pandoc"
	"github.com/dgallion1/docseg/internal/render"
)

func str(s string) pandoc.Inline { return &pandoc.Str{Text: s} }

func header(level int, inlines ...pandoc.Inline) pandoc.Block {
	return &pandoc.Header{Level: level, Inlines: inlines}
}

func para(inlines ...pandoc.Inline) pandoc.Block { return &pandoc.Para{Inlines: inlines} }

func plain(inlines ...pandoc.Inline) pandoc.Block { return &pandoc.Plain{Inlines: inlines} }

func TestSplit_HeadingBoundaries(t *testing.T) {
	blocks := []pandoc.Block{
		header(1, str("Intro")),
		para(str("Hello world")),
		header(1, str("Next")),
		para(str("Bye")),
	}
	got := Split(blocks).Fragments()
	want := [][]string{{"Intro", "Hello world"}, {"Next", "Bye"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSplit_NoHeadingsYieldsOneSegment(t *testing.T) {
	blocks := []pandoc.Block{
		para(str("a"), &pandoc.Space{}, str("b")),
		&pandoc.CodeBlock{Text: "code"},
		plain(str("c")),
	}
	doc := Split(blocks)
	if len(doc) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(doc))
	}
	want := []string{"a", " ", "b", "code", "c"}
	if !reflect.DeepEqual(doc[0].Fragments, want) {
		t.Errorf("expected %q, got %q", want, doc[0].Fragments)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	doc := Split(nil)
	if len(doc) != 0 {
		t.Errorf("expected 0 segments, got %d", len(doc))
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("expected empty JSON array, got %s", data)
	}
}

func TestSplit_SingleHeadingFlushedAtFinalize(t *testing.T) {
	doc := Split([]pandoc.Block{header(2, str("Only"), &pandoc.Space{}, str("heading"))})
	if len(doc) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(doc))
	}
	if doc[0].Len() != 3 {
		t.Errorf("expected one fragment per inline child (3), got %d", doc[0].Len())
	}
}

func TestSplit_AdjacentHeadings(t *testing.T) {
	blocks := []pandoc.Block{
		header(1, str("A")),
		header(2, str("B")),
		para(str("body")),
	}
	got := Split(blocks).Fragments()
	want := [][]string{{"A"}, {"B", "body"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSplit_EmptyHeadingsNeverEmitEmptySegments(t *testing.T) {
	blocks := []pandoc.Block{
		header(1),
		header(1),
		&pandoc.HorizontalRule{},
		header(1),
	}
	if doc := Split(blocks); len(doc) != 0 {
		t.Errorf("expected 0 segments, got %v", doc.Fragments())
	}
}

func TestSplit_SegmentCountForKHeadings(t *testing.T) {
	blocks := []pandoc.Block{
		para(str("preface")),
		header(1, str("One")),
		para(str("1")),
		header(1, str("Two")),
		para(str("2")),
		header(1, str("Three")),
		para(str("3")),
	}
	if doc := Split(blocks); len(doc) != 4 {
		t.Errorf("expected k+1 = 4 segments, got %d", len(doc))
	}
}

func TestSegmentHeading(t *testing.T) {
	blocks := []pandoc.Block{
		para(str("preface")),
		para(str("more")),
		header(1, str("One")),
		para(str("1")),
		header(1),
		para(str("orphan")),
	}
	doc := Split(blocks)
	if len(doc) != 3 {
		t.Fatalf("expected 3 segments, got %v", doc.Fragments())
	}
	if h, ok := doc[0].Heading(); ok {
		t.Errorf("leading paragraphs reported heading %q", h)
	}
	if h, ok := doc[1].Heading(); !ok || h != "One" {
		t.Errorf("expected heading %q, got %q (%v)", "One", h, ok)
	}
	if h, ok := doc[2].Heading(); ok {
		t.Errorf("segment after an empty header reported heading %q", h)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded[1].Heading(); ok {
		t.Error("decoded segment should not report a heading")
	}
}

func TestProcess_FragmentGranularity(t *testing.T) {
	tests := []struct {
		name string
		b    pandoc.Block
		want []string
	}{
		{
			"line block is one fragment",
			&pandoc.LineBlock{Lines: [][]pandoc.Inline{{str("roses")}, {str("violets")}}},
			[]string{"roses\nviolets"},
		},
		{
			"bullet list is one fragment per item",
			&pandoc.BulletList{Items: [][]pandoc.Block{{plain(str("A"))}, {plain(str("B")), plain(str("C"))}}},
			[]string{"A", "BC"},
		},
		{
			"ordered list is one fragment per item",
			&pandoc.OrderedList{Items: [][]pandoc.Block{{plain(str("x"))}, {plain(str("y"))}}},
			[]string{"x", "y"},
		},
		{
			"block quote is one fragment per child",
			&pandoc.BlockQuote{Blocks: []pandoc.Block{para(str("q1")), para(str("q2"))}},
			[]string{"q1", "q2"},
		},
		{
			"div is one fragment per child",
			&pandoc.Div{Blocks: []pandoc.Block{para(str("d"))}},
			[]string{"d"},
		},
		{
			"code block is its literal",
			&pandoc.CodeBlock{Attr: pandoc.Attr{Classes: []string{"go"}}, Text: "x := 1"},
			[]string{"x := 1"},
		},
		{
			"raw block is its literal",
			&pandoc.RawBlock{Format: "tex", Text: "\\newpage"},
			[]string{"\\newpage"},
		},
		{
			"para is one fragment per inline",
			para(&pandoc.Strong{Inlines: []pandoc.Inline{str("bold")}}, &pandoc.Space{}, &pandoc.Code{Text: "c"}),
			[]string{"bold", " ", "c"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			if err := s.Process(tt.b); err != nil {
				t.Fatalf("process: %v", err)
			}
			doc, err := s.Finalize()
			if err != nil {
				t.Fatalf("finalize: %v", err)
			}
			if len(doc) != 1 {
				t.Fatalf("expected 1 segment, got %d", len(doc))
			}
			if !reflect.DeepEqual(doc[0].Fragments, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, doc[0].Fragments)
			}
		})
	}
}

func TestProcess_SkippedBlocks(t *testing.T) {
	skipped := []pandoc.Block{
		&pandoc.DefinitionList{Items: []pandoc.Definition{{Term: []pandoc.Inline{str("t")}}}},
		&pandoc.HorizontalRule{},
		&pandoc.Table{},
		&pandoc.Figure{},
		&pandoc.Null{},
		&pandoc.UnknownBlock{T: "Custom"},
	}
	s := New()
	for _, b := range skipped {
		if err := s.Process(b); err != nil {
			t.Fatalf("process %s: %v", b.Tag(), err)
		}
		if s.Pending() != 0 {
			t.Errorf("%s: expected no fragments, got %d", b.Tag(), s.Pending())
		}
	}
	doc, _ := s.Finalize()
	if len(doc) != 0 {
		t.Errorf("expected 0 segments, got %d", len(doc))
	}
}

func TestFinalize_TwiceRejected(t *testing.T) {
	s := New()
	if err := s.Process(para(str("x"))); err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := s.Finalize(); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := s.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Errorf("expected ErrFinalized on second finalize, got %v", err)
	}
	if err := s.Process(para(str("y"))); !errors.Is(err, ErrFinalized) {
		t.Errorf("expected ErrFinalized from process after finalize, got %v", err)
	}
}

func TestFinalize_ClosedSegmentsUnaffectedByLaterInput(t *testing.T) {
	s := New()
	_ = s.ProcessAll([]pandoc.Block{header(1, str("A")), para(str("a"))})
	_ = s.Process(header(1, str("B")))
	_ = s.Process(para(str("b")))
	doc, err := s.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	want := [][]string{{"A", "a"}, {"B", "b"}}
	if !reflect.DeepEqual(doc.Fragments(), want) {
		t.Errorf("expected %v, got %v", want, doc.Fragments())
	}
}

func TestWithRenderer_Display(t *testing.T) {
	blocks := []pandoc.Block{para(&pandoc.Emph{Inlines: []pandoc.Inline{str("hi")}})}
	doc := Split(blocks, WithRenderer(render.Display))
	if got := doc[0].Fragments[0]; got != "*hi*" {
		t.Errorf("expected %q, got %q", "*hi*", got)
	}
}

func TestSegmentText_JoinsBlocks(t *testing.T) {
	blocks := []pandoc.Block{
		header(1, str("Intro")),
		para(str("Hello"), &pandoc.Space{}, str("world")),
		&pandoc.BulletList{Items: [][]pandoc.Block{{plain(str("one"))}, {plain(str("two"))}}},
	}
	doc := Split(blocks)
	want := "Intro\n\nHello world\n\none\ntwo"
	if got := doc[0].Text(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDocument_JSONShape(t *testing.T) {
	doc := Split([]pandoc.Block{
		header(1, str("Intro")),
		para(str("Hello world")),
		header(1, str("Next")),
		para(str("Bye")),
	})
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[["Intro","Hello world"],["Next","Bye"]]`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}

	var back Document
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Fragments(), doc.Fragments()) {
		t.Errorf("expected %v after decode, got %v", doc.Fragments(), back.Fragments())
	}
	if got := back[1].Text(); got != "NextBye" {
		t.Errorf("decoded segment text: expected %q, got %q", "NextBye", got)
	}
}

func TestSplitParallel_MatchesSequentialPerPart(t *testing.T) {
	parts := [][]pandoc.Block{
		{header(1, str("A")), para(str("a"))},
		{para(str("loose"))},
		{header(1, str("B")), para(str("b")), header(2, str("C"))},
	}
	got, err := SplitParallel(context.Background(), parts, 2)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	want := [][]string{{"A", "a"}, {"loose"}, {"B", "b"}, {"C"}}
	if !reflect.DeepEqual(got.Fragments(), want) {
		t.Errorf("expected %v, got %v", want, got.Fragments())
	}
}

func TestSplitParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	parts := [][]pandoc.Block{{para(str("a"))}, {para(str("b"))}}
	if _, err := SplitParallel(ctx, parts, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

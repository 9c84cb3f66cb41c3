package segment

import (
	"context"
	"errors"

	"github.com/dgallion1/docseg/internal/pandoc"
	"github.com/dgallion1/docseg/internal/render"
)

// ErrFinalized is returned by Process and Finalize once Finalize has run.
var ErrFinalized = errors.New("segmenter already finalized")

// Segmenter accumulates rendered fragments from top-level blocks and closes
// the running segment whenever a heading arrives. It is not safe for
// concurrent use; run independent Segmenters instead.
type Segmenter struct {
	r         render.Renderer
	current   Segment
	closed    Document
	finalized bool
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithRenderer replaces the Flat renderer used to produce fragments.
func WithRenderer(r render.Renderer) Option {
	return func(s *Segmenter) { s.r = r }
}

// New returns an empty Segmenter.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{r: render.Flat}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process consumes the next top-level block.
func (s *Segmenter) Process(b pandoc.Block) error {
	if s.finalized {
		return ErrFinalized
	}

	// The boundary check runs before the heading's own text is added.
	if _, ok := b.(*pandoc.Header); ok {
		s.flush()
	}

	switch b := b.(type) {
	case *pandoc.Header:
		frags := s.eachInline(b.Inlines)
		s.current.heading = s.current.Len() == 0 && len(frags) > 0
		s.current.add("", frags...)
	case *pandoc.Para:
		s.current.add("", s.eachInline(b.Inlines)...)
	case *pandoc.Plain:
		s.current.add("", s.eachInline(b.Inlines)...)
	case *pandoc.LineBlock:
		s.current.add("", s.r.Block(b))
	case *pandoc.BulletList:
		s.current.add("\n", s.eachItem(b.Items)...)
	case *pandoc.OrderedList:
		s.current.add("\n", s.eachItem(b.Items)...)
	case *pandoc.BlockQuote:
		s.current.add("\n", s.eachBlock(b.Blocks)...)
	case *pandoc.Div:
		s.current.add("\n", s.eachBlock(b.Blocks)...)
	case *pandoc.CodeBlock:
		s.current.add("", b.Text)
	case *pandoc.RawBlock:
		s.current.add("", b.Text)
	}
	return nil
}

// ProcessAll feeds blocks in order.
func (s *Segmenter) ProcessAll(blocks []pandoc.Block) error {
	for _, b := range blocks {
		if err := s.Process(b); err != nil {
			return err
		}
	}
	return nil
}

// Pending reports the number of fragments in the open segment.
func (s *Segmenter) Pending() int { return s.current.Len() }

// Finalize closes the open segment, if it has any fragments, and returns
// every closed segment. It may be called once.
func (s *Segmenter) Finalize() (Document, error) {
	if s.finalized {
		return nil, ErrFinalized
	}
	s.flush()
	s.finalized = true

	out := s.closed
	if out == nil {
		out = Document{}
	}
	s.closed = nil
	return out, nil
}

// flush closes the running segment unless it is empty.
func (s *Segmenter) flush() {
	if s.current.Len() == 0 {
		return
	}
	s.closed = append(s.closed, s.current)
	s.current = Segment{}
}

func (s *Segmenter) eachInline(inlines []pandoc.Inline) []string {
	out := make([]string, 0, len(inlines))
	for _, in := range inlines {
		out = append(out, s.r.Inline(in))
	}
	return out
}

func (s *Segmenter) eachItem(items [][]pandoc.Block) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, s.r.Blocks(item))
	}
	return out
}

func (s *Segmenter) eachBlock(blocks []pandoc.Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, s.r.Block(b))
	}
	return out
}

// Split segments a block sequence with a fresh Segmenter.
func Split(blocks []pandoc.Block, opts ...Option) Document {
	s := New(opts...)
	// A fresh Segmenter cannot be finalized yet, so neither call fails.
	_ = s.ProcessAll(blocks)
	doc, _ := s.Finalize()
	return doc
}

// SplitParallel segments independent block runs on separate Segmenters,
// at most workers at a time, and concatenates the results in input order.
// Each run's end closes its last segment.
func SplitParallel(ctx context.Context, parts [][]pandoc.Block, workers int, opts ...Option) (Document, error) {
	if workers <= 0 {
		workers = 1
	}

	results := make([]Document, len(parts))
	sem := make(chan struct{}, workers)
	done := make(chan struct{}, len(parts))

	for i, part := range parts {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			// Drain the workers already started before returning.
			for range i {
				<-done
			}
			return nil, ctx.Err()
		}
		go func(i int, part []pandoc.Block) {
			defer func() {
				<-sem
				done <- struct{}{}
			}()
			results[i] = Split(part, opts...)
		}(i, part)
	}
	for range parts {
		<-done
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := Document{}
	for _, doc := range results {
		out = append(out, doc...)
	}
	return out, nil
}

package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgallion1/docseg/internal/pandoc"
	"github.com/dgallion1/docseg/internal/parser"
	"github.com/dgallion1/docseg/internal/render"
	"github.com/dgallion1/docseg/internal/segment"
)

// Prepared is a parsed and segmented upload.
type Prepared struct {
	Title       string
	Doc         *pandoc.Document
	Segments    segment.Document
	ContentHash string
}

// Prepare parses data with the parser for filename and segments the result.
// The content hash covers the segmented form, so uploads that render to the
// same flat text but split into different segments or blocks hash apart.
func Prepare(filename string, data []byte, opts parser.Options) (*Prepared, error) {
	p, err := parser.ForFileWith(filename, opts)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	seg := segment.New()
	if err := seg.ProcessAll(doc.Blocks); err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	segments, err := seg.Finalize()
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}

	title := strings.TrimSpace(render.Flat.Inlines(doc.TitleInlines()))
	if title == "" {
		title = filename
	}
	return &Prepared{
		Title:       title,
		Doc:         doc,
		Segments:    segments,
		ContentHash: segmentsHash(segments),
	}, nil
}

// segmentsHash digests each segment's fragments, its block texts and whether
// it opens with a header.
func segmentsHash(doc segment.Document) string {
	type entry struct {
		Heading   bool     `json:"h"`
		Blocks    []string `json:"b"`
		Fragments []string `json:"f"`
	}
	entries := make([]entry, len(doc))
	for i, seg := range doc {
		_, heading := seg.Heading()
		entries[i] = entry{Heading: heading, Blocks: seg.BlockTexts(), Fragments: seg.Fragments}
	}
	data, _ := json.Marshal(entries)
	return ContentHashHex(data)
}

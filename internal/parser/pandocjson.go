package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/docseg/internal/pandoc"
)

// PandocParser reads documents already converted with `pandoc -t json`.
// Metadata is passed through untouched.
type PandocParser struct{}

func (p *PandocParser) Parse(r io.Reader, filename string) (*pandoc.Document, error) {
	doc, err := pandoc.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("parse pandoc json: %w", err)
	}
	return doc, nil
}

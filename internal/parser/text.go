package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docseg/internal/pandoc"
)

// TextParser handles plain text files. Blank lines separate paragraphs;
// line breaks inside a paragraph become soft breaks.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*pandoc.Document, error) {
	paragraphs, err := scanParagraphs(r)
	if err != nil {
		return nil, err
	}

	blocks := make([]pandoc.Block, 0, len(paragraphs))
	for _, para := range paragraphs {
		blocks = append(blocks, &pandoc.Para{Inlines: words(para)})
	}
	return newDocument(BaseTitle(filename), blocks), nil
}

func scanParagraphs(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paragraphs, nil
}

// splitParagraphs is scanParagraphs over an in-memory string.
func splitParagraphs(text string) []string {
	// Reading from a strings.Reader only fails on over-long lines; such a
	// page yields no paragraphs.
	paragraphs, _ := scanParagraphs(strings.NewReader(text))
	return paragraphs
}

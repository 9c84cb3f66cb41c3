package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docseg/internal/pandoc"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser reads PDFs with ledongthuc/pdf. When that fails or finds no
// text and FallbackPdftotext is set, it runs pdftotext instead. Every
// non-empty page becomes a "Page N" header followed by one paragraph per
// blank-line separated run of text, so pages segment independently.
type PDFParser struct {
	FallbackPdftotext bool
}

var errNoPDFText = errors.New("no extractable text")

func (p *PDFParser) Parse(r io.Reader, filename string) (*pandoc.Document, error) {
	// pdflib.Open needs a file, not a stream.
	tmp, err := os.CreateTemp("", "docseg-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	_, err = io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	pages, err := pdfPages(path)
	if err != nil && p.FallbackPdftotext {
		pages, err = pdftotextPages(path)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var blocks []pandoc.Block
	for i, page := range pages {
		paragraphs := splitParagraphs(page)
		if len(paragraphs) == 0 {
			continue
		}
		blocks = append(blocks, header(1, fmt.Sprintf("Page %d", i+1)))
		for _, para := range paragraphs {
			blocks = append(blocks, &pandoc.Para{Inlines: words(para)})
		}
	}
	return newDocument(BaseTitle(filename), blocks), nil
}

// pdfPages returns the plain text of each page. Pages that fail to decode
// are kept as empty strings so numbering stays aligned.
func pdfPages(path string) ([]string, error) {
	f, doc, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := make([]string, doc.NumPage())
	found := false
	for i := range pages {
		pg := doc.Page(i + 1)
		if pg.V.IsNull() {
			continue
		}
		text, err := pg.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i] = text
		found = found || strings.TrimSpace(text) != ""
	}
	if !found {
		return nil, errNoPDFText
	}
	return pages, nil
}

// pdftotextPages shells out to poppler's pdftotext, which separates pages
// with form feeds.
func pdftotextPages(path string) ([]string, error) {
	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(strings.TrimSuffix(string(out), "\f"), "\f"), nil
}

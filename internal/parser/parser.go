package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docseg/internal/pandoc"
	"golang.org/x/text/unicode/norm"
)

// Parser converts raw document bytes into a pandoc document tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*pandoc.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
// Any of them may additionally carry an .xz suffix.
var SupportedExtensions = map[string]bool{
	".json":     true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tunes the parsers ForFile returns.
type Options struct {
	// PDFFallbackPdftotext lets the PDF parser shell out to pdftotext when
	// the pure-Go extraction yields no text.
	PDFFallbackPdftotext bool
}

// DefaultOptions is used by ForFile.
var DefaultOptions = Options{PDFFallbackPdftotext: true}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	return ForFileWith(filename, DefaultOptions)
}

// ForFileWith is ForFile with explicit options.
func ForFileWith(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".xz" {
		inner, err := ForFileWith(strings.TrimSuffix(filename, filepath.Ext(filename)), opts)
		if err != nil {
			return nil, err
		}
		return &XZParser{Inner: inner}, nil
	}
	switch ext {
	case ".json":
		return &PandocParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".xz" {
		return IsSupportedExtension(strings.TrimSuffix(filename, filepath.Ext(filename)))
	}
	return SupportedExtensions[ext]
}

// BaseTitle strips the directory and any supported or .xz extensions from
// filename. Dots inside the name itself are kept.
func BaseTitle(filename string) string {
	name := filepath.Base(filename)
	for {
		ext := filepath.Ext(name)
		if ext == "" || (!SupportedExtensions[strings.ToLower(ext)] && strings.ToLower(ext) != ".xz") {
			return name
		}
		name = strings.TrimSuffix(name, ext)
	}
}

// newDocument wraps blocks in a document whose metadata carries title.
func newDocument(title string, blocks []pandoc.Block) *pandoc.Document {
	doc := &pandoc.Document{APIVersion: []int{1, 23, 1}, Blocks: blocks}
	if doc.Blocks == nil {
		doc.Blocks = []pandoc.Block{}
	}
	if title = strings.TrimSpace(title); title != "" {
		meta, err := json.Marshal(map[string]any{
			"title": map[string]string{"t": "MetaString", "c": norm.NFC.String(title)},
		})
		if err == nil {
			doc.Meta = meta
		}
	}
	return doc
}

// words NFC-normalizes s and tokenizes it.
func words(s string) []pandoc.Inline {
	return pandoc.Words(norm.NFC.String(s))
}

func header(level int, s string) *pandoc.Header {
	return &pandoc.Header{Level: level, Inlines: words(s)}
}

func para(s string) *pandoc.Para {
	return &pandoc.Para{Inlines: words(s)}
}

// inlineBuilder accumulates text across source runs and tokenizes it only
// when a structural inline interrupts, so words split over several runs
// stay one Str.
type inlineBuilder struct {
	out []pandoc.Inline
	buf strings.Builder
}

func (b *inlineBuilder) text(s string) { b.buf.WriteString(s) }

func (b *inlineBuilder) flush() {
	if b.buf.Len() == 0 {
		return
	}
	b.out = append(b.out, pandoc.Tokenize(norm.NFC.String(b.buf.String()))...)
	b.buf.Reset()
}

func (b *inlineBuilder) add(in pandoc.Inline) {
	b.flush()
	b.out = append(b.out, in)
}

func (b *inlineBuilder) inlines() []pandoc.Inline {
	b.flush()
	return b.out
}

// trimmed returns the builder's inlines without leading or trailing blanks.
func (b *inlineBuilder) trimmed() []pandoc.Inline {
	out := b.inlines()
	for len(out) > 0 && isBlank(out[0]) {
		out = out[1:]
	}
	for len(out) > 0 && isBlank(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func (b *inlineBuilder) reset() {
	b.out = nil
	b.buf.Reset()
}

func isBlank(in pandoc.Inline) bool {
	switch in.(type) {
	case *pandoc.Space, *pandoc.SoftBreak:
		return true
	}
	return false
}

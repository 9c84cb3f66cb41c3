// Package chunker cuts segment text into pieces small enough for a single
// Q/A generation request.
package chunker

import (
	"strings"
	"unicode"

	"github.com/dgallion1/docseg/internal/segment"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive pieces of one segment, in tokens.
	MinChunk     int // Chunks below this many tokens are dropped.
}

// DefaultConfig returns the defaults used by the pipeline.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = min(d.ChunkOverlap, c.ChunkSize/4)
	}
	if c.MinChunk <= 0 {
		c.MinChunk = d.MinChunk
	}
	return c
}

// Chunk is a piece of one segment's text.
type Chunk struct {
	Text    string
	Index   int    // position among all chunks of the document
	Segment int    // index of the source segment
	Heading string // header text when the segment opens with one and has a body
}

// ChunkDocument turns every segment of doc into one or more chunks. Segments
// that fit ChunkSize become a single chunk; larger ones go through SplitText.
func ChunkDocument(doc segment.Document, cfg Config) []Chunk {
	cfg = cfg.withDefaults()

	var chunks []Chunk
	for i, seg := range doc {
		text := seg.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		var heading string
		if h, ok := seg.Heading(); ok && len(seg.BlockTexts()) > 1 {
			heading = h
		}

		parts := []string{text}
		if EstimateTokens(text) > cfg.ChunkSize {
			parts = SplitText(text, cfg.ChunkSize, cfg.ChunkOverlap)
		}
		for _, p := range parts {
			if EstimateTokens(p) < cfg.MinChunk {
				continue
			}
			chunks = append(chunks, Chunk{Text: p, Index: len(chunks), Segment: i, Heading: heading})
		}
	}
	return chunks
}

// SplitText breaks text into pieces of about target tokens. Paragraph
// boundaries are preferred; a paragraph larger than target is cut at
// sentence ends. Each new piece repeats the last overlap tokens of the
// previous one.
func SplitText(text string, target, overlap int) []string {
	var p packer
	p.target, p.overlap, p.sep = target, overlap, "\n\n"

	for _, para := range paragraphs(text) {
		if EstimateTokens(para) <= target {
			p.add(para)
			continue
		}
		var s packer
		s.target, s.overlap, s.sep = target, overlap, " "
		// Pending short paragraphs lead the first sentence piece.
		if p.fresh > 0 {
			s.add(p.buf.String())
		}
		p.reset()
		for _, sent := range sentences(para) {
			s.add(sent)
		}
		s.flush()
		p.out = append(p.out, s.out...)
	}
	p.flush()
	return p.out
}

// packer greedily fills pieces up to target tokens.
type packer struct {
	target, overlap int
	sep             string

	buf    strings.Builder
	tokens int
	fresh  int // tokens added since the last emitted piece
	out    []string
}

func (p *packer) add(s string) {
	n := EstimateTokens(s)
	if p.fresh > 0 && p.tokens+n > p.target {
		prev := p.buf.String()
		p.out = append(p.out, prev)
		p.buf.Reset()
		p.tokens, p.fresh = 0, 0
		if tail := tailWords(prev, wordsFor(p.overlap)); tail != "" {
			p.buf.WriteString(tail)
			p.tokens = EstimateTokens(tail)
		}
	}
	if p.buf.Len() > 0 {
		p.buf.WriteString(p.sep)
	}
	p.buf.WriteString(s)
	p.tokens += n
	p.fresh += n
}

func (p *packer) flush() {
	if p.fresh > 0 {
		p.out = append(p.out, p.buf.String())
	}
	p.reset()
}

func (p *packer) reset() {
	p.buf.Reset()
	p.tokens, p.fresh = 0, 0
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentences splits after '.', '!' or '?' followed by whitespace.
func sentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// tailWords returns the last n words of text, or "" when text has no more
// than n words.
func tailWords(text string, n int) string {
	words := strings.Fields(text)
	if n <= 0 || len(words) <= n {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ")
}

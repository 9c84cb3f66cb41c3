// Package segment partitions a document's top-level blocks into text
// segments, starting a new segment at every heading.
package segment

import (
	"encoding/json"
	"strings"
)

// Segment is the ordered list of text fragments of one document section.
// On the wire it is a JSON array of strings.
type Segment struct {
	Fragments []string

	// groups records where each source block's fragments end and how they
	// join, so Text can rebuild readable prose. Absent after decoding.
	groups []group

	// heading is set when the first group came from a Header block.
	heading bool
}

type group struct {
	end int
	sep string
}

// Len returns the number of fragments.
func (s Segment) Len() int { return len(s.Fragments) }

// Text joins the fragments for downstream consumers: the BlockTexts
// separated by a blank line.
func (s Segment) Text() string {
	return strings.Join(s.BlockTexts(), "\n\n")
}

// BlockTexts returns one string per non-blank source block, each made of
// that block's fragments joined by its separator. A decoded segment has no
// block boundaries and yields its fragments concatenated.
func (s Segment) BlockTexts() []string {
	if len(s.groups) == 0 {
		if len(s.Fragments) == 0 {
			return nil
		}
		return []string{strings.Join(s.Fragments, "")}
	}
	parts := make([]string, 0, len(s.groups))
	start := 0
	for _, g := range s.groups {
		if text := strings.Join(s.Fragments[start:g.end], g.sep); strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
		start = g.end
	}
	return parts
}

// Heading returns the text of the header the segment opened with. It
// reports false for a leading run of non-heading blocks and for decoded
// segments, which carry no block kinds.
func (s Segment) Heading() (string, bool) {
	if !s.heading || len(s.groups) == 0 {
		return "", false
	}
	g := s.groups[0]
	text := strings.Join(s.Fragments[:g.end], g.sep)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func (s Segment) MarshalJSON() ([]byte, error) {
	if s.Fragments == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Fragments)
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	s.groups, s.heading = nil, false
	return json.Unmarshal(data, &s.Fragments)
}

func (s *Segment) add(sep string, fragments ...string) {
	if len(fragments) == 0 {
		return
	}
	s.Fragments = append(s.Fragments, fragments...)
	s.groups = append(s.groups, group{end: len(s.Fragments), sep: sep})
}

// Document is the ordered list of closed segments for one input document.
// On the wire it is a JSON array of arrays of strings.
type Document []Segment

// Fragments returns the plain nested-slice form.
func (d Document) Fragments() [][]string {
	out := make([][]string, len(d))
	for i, seg := range d {
		out[i] = append([]string(nil), seg.Fragments...)
	}
	return out
}

// Texts returns Segment.Text for every segment, in order.
func (d Document) Texts() []string {
	out := make([]string, len(d))
	for i, seg := range d {
		out[i] = seg.Text()
	}
	return out
}

// FromFragments builds a Document from the nested-slice form.
func FromFragments(fragments [][]string) Document {
	doc := make(Document, 0, len(fragments))
	for _, f := range fragments {
		doc = append(doc, Segment{Fragments: append([]string(nil), f...)})
	}
	return doc
}

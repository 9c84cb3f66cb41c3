// Package sink delivers finalized segmented documents to their
// destinations: a JSON file, any io.Writer, a pathstore service or the
// SQLite store.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dgallion1/docseg/internal/pathstore"
	"github.com/dgallion1/docseg/internal/segment"
)

// DefaultFileName is the file FileSink writes when Name is empty.
const DefaultFileName = "segmented_text.json"

// Sink receives a finalized document.
type Sink interface {
	Write(ctx context.Context, name string, doc segment.Document) error
}

// Func adapts a function to Sink.
type Func func(ctx context.Context, name string, doc segment.Document) error

func (f Func) Write(ctx context.Context, name string, doc segment.Document) error {
	return f(ctx, name, doc)
}

// FileSink writes the document as compact JSON to Dir/Name. The file is
// replaced atomically.
type FileSink struct {
	Dir  string
	Name string
}

// Path returns the destination file path.
func (s FileSink) Path() string {
	name := s.Name
	if name == "" {
		name = DefaultFileName
	}
	return filepath.Join(s.Dir, name)
}

func (s FileSink) Write(ctx context.Context, _ string, doc segment.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("file sink: marshal: %w", err)
	}

	path := s.Path()
	tmp, err := os.CreateTemp(filepath.Dir(path), ".segmented-*.json")
	if err != nil {
		return fmt.Errorf("file sink: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("file sink: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("file sink: close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("file sink: rename: %w", err)
	}
	return nil
}

// WriterSink encodes the document as JSON to W, one document per line.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Write(_ context.Context, _ string, doc segment.Document) error {
	if err := json.NewEncoder(s.W).Encode(doc); err != nil {
		return fmt.Errorf("writer sink: %w", err)
	}
	return nil
}

// PathstoreSink publishes each segment under documents/{name}/segments/{i}
// and a summary node at documents/{name}. Consecutive segments are linked.
type PathstoreSink struct {
	Client *pathstore.Client
	Source string
}

type segmentNode struct {
	Index     int             `json:"index"`
	Fragments segment.Segment `json:"fragments"`
	Text      string          `json:"text"`
}

type documentNode struct {
	Name         string `json:"name"`
	SegmentCount int    `json:"segment_count"`
}

// DocumentKey returns the pathstore key of the summary node for name.
// Deleting it recursively removes the segments too.
func DocumentKey(name string) string { return "documents/" + name }

// SegmentKey returns the pathstore key of segment i of document name.
func SegmentKey(name string, i int) string {
	return DocumentKey(name) + "/segments/" + strconv.Itoa(i)
}

func (s PathstoreSink) Write(ctx context.Context, name string, doc segment.Document) error {
	root := DocumentKey(name)
	// Remove segments of an earlier, possibly longer, version.
	if err := s.Client.DeleteNode(ctx, root, true); err != nil {
		var se *pathstore.StatusError
		if !errors.As(err, &se) || se.Code != http.StatusNotFound {
			return fmt.Errorf("pathstore sink: %w", err)
		}
	}

	for i, seg := range doc {
		node := segmentNode{Index: i, Fragments: seg, Text: seg.Text()}
		if err := s.Client.PutNode(ctx, SegmentKey(name, i), pathstore.NodeRequest{Value: node, Source: s.Source}); err != nil {
			return fmt.Errorf("pathstore sink: %w", err)
		}
		if i > 0 {
			link := pathstore.LinkRequest{From: SegmentKey(name, i-1), To: SegmentKey(name, i), Weight: 1, Summary: "next"}
			if err := s.Client.PutLink(ctx, link); err != nil {
				return fmt.Errorf("pathstore sink: %w", err)
			}
		}
	}

	summary := documentNode{Name: name, SegmentCount: len(doc)}
	if err := s.Client.PutNode(ctx, root, pathstore.NodeRequest{Value: summary, Source: s.Source}); err != nil {
		return fmt.Errorf("pathstore sink: %w", err)
	}
	return nil
}

// Multi writes to every sink in order and joins their errors.
type Multi []Sink

func (m Multi) Write(ctx context.Context, name string, doc segment.Document) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, name, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

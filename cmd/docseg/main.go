// Command docseg segments documents from the command line, renders them as
// plain text or Markdown and generates question/answer pairs.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"github.com/dgallion1/docseg/internal/config"
	"github.com/dgallion1/docseg/internal/pandoc"
	"github.com/dgallion1/docseg/internal/parser"
	"github.com/dgallion1/docseg/internal/pathstore"
	"github.com/dgallion1/docseg/internal/pipeline"
	"github.com/dgallion1/docseg/internal/qagen"
	"github.com/dgallion1/docseg/internal/render"
	"github.com/dgallion1/docseg/internal/segment"
	"github.com/dgallion1/docseg/internal/sink"
	"github.com/dgallion1/docseg/internal/store"
)

// QAFileName is the file the qa command writes into its output directory.
const QAFileName = "generated_qa.json"

// CLI defines the command-line interface for docseg.
var CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging"`

	Segment SegmentCmd `cmd:"" help:"Split documents into heading-led segments"`
	Render  RenderCmd  `cmd:"" help:"Render a document as flat text or Markdown"`
	QA      QACmd      `cmd:"" name:"qa" help:"Generate question/answer pairs for a document"`
}

// SegmentCmd writes the segmented form of one or more documents.
type SegmentCmd struct {
	Files   []string `arg:"" optional:"" help:"Input files; - or nothing reads pandoc JSON from stdin"`
	Out     string   `short:"o" help:"Output directory" default:"." type:"path"`
	Name    string   `help:"Output file name" default:"segmented_text.json"`
	Stdout  bool     `help:"Write JSON to stdout instead of a file"`
	DB      string   `help:"Also store the segments in this SQLite database" type:"path"`
	DocID   string   `name:"doc-id" help:"Document name used by --db and the pathstore mirror"`
	Mode    string   `help:"Fragment rendering" enum:"flat,display" default:"flat"`
	Workers int      `help:"Files segmented concurrently" default:"4"`
}

func (c *SegmentCmd) Run(log *slog.Logger, stdout io.Writer) error {
	ctx := context.Background()
	files := c.Files
	if len(files) == 0 {
		files = []string{"-"}
	}
	style, ok := render.StyleByName(c.Mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	opts := parser.DefaultOptions

	parts := make([][]pandoc.Block, 0, len(files))
	for _, f := range files {
		doc, err := loadDocument(f, opts)
		if err != nil {
			return err
		}
		log.Debug("parsed", "file", f, "blocks", len(doc.Blocks))
		parts = append(parts, doc.Blocks)
	}

	doc, err := segment.SplitParallel(ctx, parts, c.Workers, segment.WithRenderer(render.New(style)))
	if err != nil {
		return fmt.Errorf("segment: %w", err)
	}

	var sinks sink.Multi
	if c.Stdout {
		sinks = append(sinks, sink.WriterSink{W: stdout})
	} else {
		sinks = append(sinks, sink.FileSink{Dir: c.Out, Name: c.Name})
	}
	if c.DB != "" {
		st, err := store.Open(c.DB)
		if err != nil {
			return err
		}
		defer st.Close()
		sinks = append(sinks, st)
	}
	if url := os.Getenv("PATHSTORE_URL"); url != "" {
		ps := pathstore.NewClient(url, os.Getenv("PATHSTORE_API_KEY"))
		defer ps.Close()
		sinks = append(sinks, sink.PathstoreSink{Client: ps, Source: "docseg-cli"})
	}

	name := c.DocID
	if name == "" {
		name = docName(files[0])
	}
	if err := sinks.Write(ctx, name, doc); err != nil {
		return err
	}
	log.Info("segmented", "files", len(files), "segments", len(doc), "name", name)
	return nil
}

// RenderCmd prints a document as text.
type RenderCmd struct {
	File string `arg:"" help:"Input file; - reads pandoc JSON from stdin"`
	Mode string `help:"Rendering style" enum:"flat,display" default:"flat"`
}

func (c *RenderCmd) Run(log *slog.Logger, stdout io.Writer) error {
	style, ok := render.StyleByName(c.Mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	doc, err := loadDocument(c.File, parser.DefaultOptions)
	if err != nil {
		return err
	}
	text := render.New(style).Blocks(doc.Blocks)
	log.Debug("rendered", "file", c.File, "mode", style.Name, "size", humanize.Bytes(uint64(len(text))))
	_, err = fmt.Fprintln(stdout, text)
	return err
}

// QACmd runs the full pipeline for one document and writes the resulting
// pairs as a JSON list. Settings come from the same environment and
// DOCSEG_CONFIG file as the server.
type QACmd struct {
	File  string `arg:"" help:"Input file" type:"existingfile"`
	Out   string `short:"o" help:"Output directory" default:"." type:"path"`
	Title string `help:"Document title used in prompts"`
	DB    string `help:"SQLite database for segments and pairs (defaults to a temporary one)" type:"path"`
}

func (c *QACmd) Run(log *slog.Logger, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.QAEnabled() {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}

	dbPath := c.DB
	if dbPath == "" {
		dir, err := os.MkdirTemp("", "docseg-qa-*")
		if err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(dir)
		dbPath = filepath.Join(dir, "docseg.db")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := []qagen.Option{
		qagen.WithSystemPrompt(cfg.SystemPrompt),
		qagen.WithRateLimit(cfg.LLMRateLimit, cfg.MaxConcurrentGenerate),
	}
	if cfg.AnthropicBaseURL != "" {
		opts = append(opts, qagen.WithBaseURL(cfg.AnthropicBaseURL))
	}
	gen := qagen.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, opts...)
	defer gen.Close()

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}
	job := pipeline.NewJob(filepath.Base(c.File), data)
	job.Title = c.Title
	job.Force = true

	stats := qagen.NewLLMStats(cfg.LLMStatsWindow)
	orch := pipeline.NewOrchestrator(cfg, pipeline.WorkerConfig{
		Gen:   gen,
		Store: st,
		Stats: stats,
		Log:   log,
	})
	ctx := context.Background()
	orch.Start(ctx)
	defer orch.Stop()
	if err := orch.Submit(job); err != nil {
		return err
	}
	job.Wait(ctx)

	snap := job.Snapshot()
	if snap.Status == pipeline.StatusFailed {
		return fmt.Errorf("q/a generation failed in %s: %s", snap.Phase, strings.Join(snap.Progress.Errors, "; "))
	}

	stored, err := st.QAPairs(ctx, job.DocID)
	if err != nil {
		return err
	}
	pairs := make([]qagen.Pair, len(stored))
	for i, p := range stored {
		pairs[i] = qagen.Pair{Question: p.Question, Answer: p.Answer}
	}
	out, err := qagen.EncodePairs(pairs)
	if err != nil {
		return err
	}
	path := filepath.Join(c.Out, QAFileName)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	s := stats.Snapshot()
	log.Info("generated q/a pairs",
		"status", snap.Status,
		"pairs", len(pairs),
		"segments", snap.Progress.Segments,
		"calls", s.Count,
		"p50_ms", s.P50Ms,
	)
	fmt.Fprintf(stdout, "%s: %s pairs from %s segments\n", path,
		humanize.Comma(int64(len(pairs))), humanize.Comma(int64(snap.Progress.Segments)))
	return nil
}

// loadDocument parses path with the parser for its extension. "-" reads
// pandoc JSON from stdin.
func loadDocument(path string, opts parser.Options) (*pandoc.Document, error) {
	if path == "-" {
		return pandoc.Decode(os.Stdin)
	}
	p, err := parser.ForFileWith(path, opts)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := p.Parse(bytes.NewReader(data), filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// docName is the file's base name without its extensions.
func docName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return parser.BaseTitle(path)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("docseg"),
		kong.Description("Segment documents into heading-led sections"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(io.Writer(os.Stdout), (*io.Writer)(nil)),
	)
	err := ctx.Run(newLogger(CLI.Verbose))
	ctx.FatalIfErrorf(err)
}

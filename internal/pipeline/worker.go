package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docseg/internal/chunker"
	"github.com/dgallion1/docseg/internal/parser"
	"github.com/dgallion1/docseg/internal/qagen"
	"github.com/dgallion1/docseg/internal/sink"
	"github.com/dgallion1/docseg/internal/store"
)

// Generator produces Q/A pairs for one prompt. *qagen.Client implements it.
type Generator interface {
	GeneratePairs(ctx context.Context, prompt string) ([]qagen.Pair, error)
}

// Worker processes a single document job.
type Worker struct {
	gen    Generator
	store  *store.Store
	mirror sink.Sink
	stats  *qagen.LLMStats
	log    *slog.Logger

	chunkCfg    chunker.Config
	parseOpts   parser.Options
	maxGenerate int
	delay       func(err error, attempt int) time.Duration
}

// WorkerConfig holds the Worker dependencies. Gen, Mirror and Stats may be nil.
type WorkerConfig struct {
	Gen         Generator
	Store       *store.Store
	Mirror      sink.Sink
	Stats       *qagen.LLMStats
	Log         *slog.Logger
	Chunk       chunker.Config
	Parse       parser.Options
	MaxGenerate int
}

func NewWorker(c WorkerConfig) *Worker {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		gen:         c.Gen,
		store:       c.Store,
		mirror:      c.Mirror,
		stats:       c.Stats,
		log:         log,
		chunkCfg:    c.Chunk,
		parseOpts:   c.Parse,
		maxGenerate: max(c.MaxGenerate, 1),
		delay:       retryDelay,
	}
}

// Process runs parse, segment, store and generate for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)

	// Phase 1: parse
	job.SetStatus(StatusParsing, "parsing")
	prep, err := Prepare(job.Filename, job.FileData(), w.parseOpts)
	job.releaseFileData()
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	title := job.Snapshot().Title
	if title == "" {
		title = prep.Title
	}
	job.setParsed(title, prep.ContentHash)

	// Phase 2: segment, then dedup against stored documents.
	job.SetStatus(StatusSegmenting, "segmenting")
	job.SetSegments(len(prep.Segments))
	log.Info("segmented document", "segments", len(prep.Segments))

	if !job.Force {
		existing, err := w.store.FindByHash(ctx, prep.ContentHash)
		switch {
		case err == nil:
			log.Info("duplicate document, skipping", "existing_doc_id", existing.ID)
			job.markDuplicate(existing.ID)
			return
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	if len(prep.Segments) == 0 {
		log.Warn("no segments produced")
		job.AddError("no segmentable content")
		job.SetStatus(StatusFailed, "segmenting")
		return
	}

	// Phase 3: store the segmented document.
	job.SetStatus(StatusStoring, "storing segments")
	doc := store.Document{
		ID:          job.DocID,
		Filename:    job.Filename,
		Title:       title,
		ContentHash: prep.ContentHash,
		CreatedAt:   job.CreatedAt,
	}
	if err := w.store.SaveSegmented(ctx, doc, prep.Segments); err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing segments")
		return
	}

	hadErrors := false
	if w.mirror != nil {
		if err := w.mirror.Write(ctx, job.DocID, prep.Segments); err != nil {
			log.Error("mirror write failed", "error", err)
			job.AddError(fmt.Sprintf("mirror: %s", err))
			hadErrors = true
		}
	}

	if w.gen == nil {
		w.finish(job, hadErrors, true)
		return
	}

	// Phase 4: generate Q/A pairs with bounded concurrency.
	job.SetStatus(StatusGenerating, "generating")
	chunks := chunker.ChunkDocument(prep.Segments, w.chunkCfg)
	job.SetTotalChunks(len(chunks))
	log.Info("chunked segments", "chunks", len(chunks))

	pairs, genErrors := w.generate(ctx, log, job, title, chunks)
	hadErrors = hadErrors || genErrors > 0
	job.AddPairs(len(pairs), 0)
	log.Info("generation complete", "valid_pairs", len(pairs), "failed_chunks", genErrors)

	if len(chunks) > 0 && genErrors == len(chunks) {
		job.SetStatus(StatusFailed, "generating")
		return
	}

	// Phase 5: store the pairs.
	job.SetStatus(StatusStoring, "storing pairs")
	if err := w.store.SaveQAPairs(ctx, job.DocID, pairs); err != nil {
		log.Error("storing pairs failed", "error", err)
		job.AddError(fmt.Sprintf("store pairs: %s", err))
		w.finish(job, true, false)
		return
	}
	job.AddPairs(0, len(pairs))
	w.finish(job, hadErrors, true)
}

// finish sets the terminal status. Segments were stored when stored is true,
// so errors after that point leave the job partial rather than failed.
func (w *Worker) finish(job *Job, hadErrors, stored bool) {
	switch {
	case hadErrors && stored:
		job.SetStatus(StatusPartial, "done")
	case hadErrors:
		job.SetStatus(StatusFailed, "storing pairs")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}

type chunkResult struct {
	chunk chunker.Chunk
	pairs []qagen.Pair
	err   error
}

// generate runs the generator over chunks and returns the validated pairs
// in chunk order, plus the number of chunks that failed.
func (w *Worker) generate(ctx context.Context, log *slog.Logger, job *Job, title string, chunks []chunker.Chunk) ([]store.QAPair, int) {
	results := make([]chunkResult, len(chunks))
	done := make(chan int, len(chunks))
	sem := make(chan struct{}, w.maxGenerate)

	for i, c := range chunks {
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- i }()
			results[i] = w.generateChunk(ctx, log, title, c)
		}()
	}

	for range chunks {
		<-done
		job.IncrChunksProcessed()
	}

	var pairs []store.QAPair
	failed := 0
	for _, r := range results {
		if r.err != nil {
			log.Error("generation failed", "chunk", r.chunk.Index, "segment", r.chunk.Segment, "error", r.err)
			job.AddError(fmt.Sprintf("chunk %d (segment %d): %s", r.chunk.Index, r.chunk.Segment, r.err))
			failed++
			continue
		}
		for _, p := range qagen.FilterPairs(r.pairs) {
			pairs = append(pairs, store.QAPair{SegmentIndex: r.chunk.Segment, Question: p.Question, Answer: p.Answer})
		}
	}
	return pairs, failed
}

func (w *Worker) generateChunk(ctx context.Context, log *slog.Logger, title string, c chunker.Chunk) chunkResult {
	prompt := qagen.BuildPrompt(title, c.Heading, c.Text)
	var lastErr error
	for attempt := range MaxRetries {
		start := time.Now()
		pairs, err := w.gen.GeneratePairs(ctx, prompt)
		if w.stats != nil {
			if err != nil {
				w.stats.RecordError(time.Since(start))
			} else {
				w.stats.Record(time.Since(start))
			}
		}
		if err == nil {
			return chunkResult{chunk: c, pairs: pairs}
		}
		lastErr = err
		if !IsRetryable(err) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable generation error", "chunk", c.Index, "attempt", attempt, "error", err)
		t := time.NewTimer(w.delay(err, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return chunkResult{chunk: c, err: ctx.Err()}
		}
	}
	return chunkResult{chunk: c, err: lastErr}
}

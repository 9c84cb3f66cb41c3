package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docseg/internal/config"
	"github.com/dgallion1/docseg/internal/qagen"
	"github.com/dgallion1/docseg/internal/segment"
	"github.com/dgallion1/docseg/internal/sink"
	"github.com/dgallion1/docseg/internal/store"
)

const guide = `# Intro

Hello world.

# Usage

Run the tool.
`

// fakeGen answers every prompt with a valid pair naming the section and an
// invalid one. Prompts containing a key of errs fail with the queued errors;
// the last error repeats.
type fakeGen struct {
	mu    sync.Mutex
	calls int
	errs  map[string][]error
}

func (g *fakeGen) GeneratePairs(_ context.Context, prompt string) ([]qagen.Pair, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	for key, errs := range g.errs {
		if strings.Contains(prompt, key) && len(errs) > 0 {
			err := errs[0]
			if len(errs) > 1 {
				g.errs[key] = errs[1:]
			}
			return nil, err
		}
	}
	section := "Intro"
	if strings.Contains(prompt, "Usage") {
		section = "Usage"
	}
	return []qagen.Pair{
		{Question: "What is " + section + " about?", Answer: "The " + section + " section."},
		{Question: "", Answer: "dropped by validation"},
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "docseg.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestWorker(st *store.Store, gen Generator, mirror sink.Sink) *Worker {
	w := NewWorker(WorkerConfig{
		Gen:         gen,
		Store:       st,
		Mirror:      mirror,
		Stats:       qagen.NewLLMStats(time.Hour),
		Log:         testLogger(),
		MaxGenerate: 2,
	})
	w.delay = func(error, int) time.Duration { return time.Millisecond }
	return w
}

func TestWorker_Completed(t *testing.T) {
	st := openStore(t)
	w := newTestWorker(st, &fakeGen{}, nil)
	ctx := context.Background()

	job := NewJob("guide.md", []byte(guide))
	w.Process(ctx, job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Title != "guide" || snap.ContentHash == "" {
		t.Errorf("unexpected title/hash %q/%q", snap.Title, snap.ContentHash)
	}
	if snap.Progress.Segments != 2 || snap.Progress.TotalChunks != 2 || snap.Progress.ChunksProcessed != 2 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if snap.Progress.PairsValid != 2 || snap.Progress.PairsStored != 2 {
		t.Errorf("expected 2 valid and stored pairs, got %+v", snap.Progress)
	}
	if job.FileData() != nil {
		t.Error("expected upload to be released after parsing")
	}

	segs, err := st.Segments(ctx, job.DocID)
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	if len(segs) != 2 || segs[1].Text != "Usage\n\nRun the tool." {
		t.Errorf("unexpected stored segments %+v", segs)
	}

	pairs, err := st.QAPairs(ctx, job.DocID)
	if err != nil {
		t.Fatalf("qa pairs: %v", err)
	}
	if len(pairs) != 2 || pairs[0].SegmentIndex != 0 || pairs[1].SegmentIndex != 1 {
		t.Fatalf("unexpected pairs %+v", pairs)
	}
	if pairs[1].Question != "What is Usage about?" {
		t.Errorf("unexpected question %q", pairs[1].Question)
	}
}

func TestWorker_DuplicateSkipped(t *testing.T) {
	st := openStore(t)
	gen := &fakeGen{}
	w := newTestWorker(st, gen, nil)
	ctx := context.Background()

	first := NewJob("guide.md", []byte(guide))
	w.Process(ctx, first)

	// Same content from a differently named upload.
	dup := NewJob("copy.md", []byte(guide))
	w.Process(ctx, dup)
	snap := dup.Snapshot()
	if snap.Status != StatusDupSkipped || snap.DuplicateOf != first.DocID {
		t.Fatalf("expected duplicate of %s, got %s/%s", first.DocID, snap.Status, snap.DuplicateOf)
	}
	if gen.calls != 2 {
		t.Errorf("expected no generation for the duplicate, got %d calls", gen.calls)
	}

	forced := NewJob("copy.md", []byte(guide))
	forced.Force = true
	w.Process(ctx, forced)
	if s := forced.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected forced job to complete, got %s", s)
	}
}

func TestWorker_SameFlatTextDifferentStructureNotDuplicate(t *testing.T) {
	st := openStore(t)
	w := newTestWorker(st, &fakeGen{}, nil)
	ctx := context.Background()

	first := NewJob("a.md", []byte("# Intro\n\nHello world\n"))
	w.Process(ctx, first)
	if s := first.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected first job to complete, got %s", s)
	}

	second := NewJob("b.md", []byte("IntroHello world\n"))
	w.Process(ctx, second)
	if s := second.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected structurally different upload to be processed, got %s", s)
	}
	if first.Snapshot().ContentHash == second.Snapshot().ContentHash {
		t.Error("expected different content hashes")
	}
}

func TestWorker_FailedStoreDoesNotClaimHash(t *testing.T) {
	st := openStore(t)
	w := newTestWorker(st, &fakeGen{}, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	failed := NewJob("guide.md", []byte(guide))
	w.Process(cancelled, failed)
	snap := failed.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "storing segments" {
		t.Fatalf("expected failure while storing, got %s in %q", snap.Status, snap.Phase)
	}
	if _, err := st.GetDocument(context.Background(), failed.DocID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected no document row for the failed job, got %v", err)
	}

	retry := NewJob("guide.md", []byte(guide))
	w.Process(context.Background(), retry)
	if s := retry.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected resubmission to complete, got %s", s)
	}
}

func TestWorker_RetriesRetryableErrors(t *testing.T) {
	st := openStore(t)
	gen := &fakeGen{errs: map[string][]error{
		"Usage": {&qagen.RetryableError{StatusCode: 429}},
	}}
	w := newTestWorker(st, gen, nil)

	job := NewJob("guide.md", []byte(guide))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial after exhausting retries, got %s", snap.Status)
	}
	if gen.calls != 1+MaxRetries {
		t.Errorf("expected %d calls, got %d", 1+MaxRetries, gen.calls)
	}
	if snap.Progress.PairsStored != 1 || len(snap.Progress.Errors) != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
}

func TestWorker_RetryThenSuccess(t *testing.T) {
	st := openStore(t)
	gen := &onceFailing{err: &qagen.RetryableError{StatusCode: 503}}
	w := newTestWorker(st, gen, nil)

	job := NewJob("guide.md", []byte(guide))
	w.Process(context.Background(), job)
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected completed after retry, got %s", s)
	}
	if gen.calls != 3 {
		t.Errorf("expected 3 calls (one retried), got %d", gen.calls)
	}
}

// onceFailing fails its first call only.
type onceFailing struct {
	fakeGen
	err  error
	used bool
}

func (g *onceFailing) GeneratePairs(ctx context.Context, prompt string) ([]qagen.Pair, error) {
	g.mu.Lock()
	if !g.used {
		g.used = true
		g.calls++
		g.mu.Unlock()
		return nil, g.err
	}
	g.mu.Unlock()
	return g.fakeGen.GeneratePairs(ctx, prompt)
}

func TestWorker_AllGenerationFails(t *testing.T) {
	st := openStore(t)
	boom := errors.New("bad request")
	gen := &fakeGen{errs: map[string][]error{"---": {boom}}}
	w := newTestWorker(st, gen, nil)

	job := NewJob("guide.md", []byte(guide))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "generating" {
		t.Fatalf("expected failed in generating, got %s/%s", snap.Status, snap.Phase)
	}
	if gen.calls != 2 {
		t.Errorf("expected non-retryable errors not to be retried, got %d calls", gen.calls)
	}
	// Segments stay stored even when generation fails.
	if segs, err := st.Segments(context.Background(), job.DocID); err != nil || len(segs) != 2 {
		t.Errorf("expected stored segments, got %d (%v)", len(segs), err)
	}
}

func TestWorker_ParseFailure(t *testing.T) {
	w := newTestWorker(openStore(t), &fakeGen{}, nil)

	for _, name := range []string{"tool.exe", "broken.json"} {
		job := NewJob(name, []byte("{"))
		w.Process(context.Background(), job)
		snap := job.Snapshot()
		if snap.Status != StatusFailed || snap.Phase != "parsing" || len(snap.Progress.Errors) != 1 {
			t.Errorf("%s: expected parse failure, got %+v", name, snap)
		}
	}
}

func TestWorker_EmptyDocumentFails(t *testing.T) {
	w := newTestWorker(openStore(t), &fakeGen{}, nil)
	job := NewJob("empty.txt", []byte("\n\n"))
	w.Process(context.Background(), job)
	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Phase != "segmenting" {
		t.Errorf("expected failure in segmenting, got %s/%s", snap.Status, snap.Phase)
	}
}

func TestWorker_WithoutGeneratorAndMirror(t *testing.T) {
	st := openStore(t)
	var mirrored segment.Document
	mirror := sink.Func(func(_ context.Context, _ string, doc segment.Document) error {
		mirrored = doc
		return nil
	})
	w := newTestWorker(st, nil, mirror)

	job := NewJob("guide.md", []byte(guide))
	w.Process(context.Background(), job)
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected completed, got %s", s)
	}
	if len(mirrored) != 2 {
		t.Errorf("expected mirror to receive 2 segments, got %d", len(mirrored))
	}
}

func TestWorker_MirrorFailureIsPartial(t *testing.T) {
	mirror := sink.Func(func(context.Context, string, segment.Document) error {
		return errors.New("pathstore sink: unavailable")
	})
	w := newTestWorker(openStore(t), nil, mirror)

	job := NewJob("guide.md", []byte(guide))
	w.Process(context.Background(), job)
	snap := job.Snapshot()
	if snap.Status != StatusPartial || !strings.HasPrefix(snap.Progress.Errors[0], "mirror:") {
		t.Errorf("expected partial with mirror error, got %s %v", snap.Status, snap.Progress.Errors)
	}
}

func TestOrchestrator_RunsSubmittedJobs(t *testing.T) {
	cfg := config.Defaults()
	cfg.WorkerCount = 2
	cfg.MaxQueueSize = 4

	o := NewOrchestrator(cfg, WorkerConfig{Gen: &fakeGen{}, Store: openStore(t), Log: testLogger()})
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("guide.md", []byte(guide))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Error("expected job to be registered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if !job.Wait(ctx) {
		t.Fatal("job did not finish")
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected completed, got %s", s)
	}
}

func TestOrchestrator_QueueFullAndStopped(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, WorkerConfig{Store: openStore(t), Log: testLogger()})

	// Not started: the first job fills the queue.
	if err := o.Submit(NewJob("a.md", nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
	full := NewJob("b.md", nil)
	if err := o.Submit(full); err == nil {
		t.Error("expected queue full error")
	}
	if s := full.Snapshot(); s.Status != StatusFailed || s.Phase != "queue_full" {
		t.Errorf("expected queue_full failure, got %s/%s", s.Status, s.Phase)
	}

	o.Stop()
	o.Stop()
	if err := o.Submit(NewJob("c.md", nil)); err == nil {
		t.Error("expected error submitting after stop")
	}
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	cfg := config.Defaults()
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = 4
	o := NewOrchestrator(cfg, WorkerConfig{Gen: &fakeGen{}, Store: openStore(t), Log: testLogger()})

	jobs := []*Job{NewJob("a.md", []byte(guide)), NewJob("b.md", []byte(guide))}
	for _, j := range jobs {
		if err := o.Submit(j); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.Start(ctx)
	o.Stop()

	for _, j := range jobs {
		s := j.Snapshot()
		if s.Status != StatusFailed || s.Phase != "shutdown" {
			t.Errorf("%s: expected shutdown failure, got %s/%s", j.Filename, s.Status, s.Phase)
		}
	}
}

func TestSweepInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{0, 5 * time.Minute},
		{time.Hour, 5 * time.Minute},
		{4 * time.Minute, 2 * time.Minute},
		{time.Second, time.Second},
	}
	for _, tt := range tests {
		if got := sweepInterval(tt.ttl); got != tt.want {
			t.Errorf("sweepInterval(%s) = %s, want %s", tt.ttl, got, tt.want)
		}
	}
}

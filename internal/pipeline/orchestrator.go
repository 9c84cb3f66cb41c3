package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docseg/internal/chunker"
	"github.com/dgallion1/docseg/internal/config"
	"github.com/dgallion1/docseg/internal/parser"
)

// Orchestrator runs queued jobs on a fixed pool of workers.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	log   *slog.Logger
	cfg   config.Config
	wcfg  WorkerConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewOrchestrator creates the pipeline. Chunk, parse and concurrency
// settings in wcfg are taken from cfg.
func NewOrchestrator(cfg config.Config, wcfg WorkerConfig) *Orchestrator {
	wcfg.Chunk = chunker.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		MinChunk:     chunker.DefaultConfig().MinChunk,
	}
	wcfg.Parse = parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}
	wcfg.MaxGenerate = cfg.MaxConcurrentGenerate
	log := wcfg.Log
	if log == nil {
		log = slog.Default()
		wcfg.Log = log
	}
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		log:   log,
		cfg:   cfg,
		wcfg:  wcfg,
	}
}

// Start launches the workers and the expired-job sweeper. Jobs still queued
// when Stop is called are marked failed rather than processed.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go o.runWorker(workerCtx)
	}

	o.wg.Add(1)
	go o.sweep(workerCtx, sweepInterval(o.cfg.JobTTL))
}

func (o *Orchestrator) runWorker(ctx context.Context) {
	defer o.wg.Done()
	w := NewWorker(o.wcfg)
	for job := range o.queue {
		if ctx.Err() != nil {
			job.AddError("pipeline stopped before the job started")
			job.SetStatus(StatusFailed, "shutdown")
			continue
		}
		w.Process(ctx, job)
	}
}

func (o *Orchestrator) sweep(ctx context.Context, every time.Duration) {
	defer o.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.jobs.Cleanup()
		}
	}
}

// sweepInterval checks for expired jobs twice per TTL, at most every five
// minutes.
func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 5 * time.Minute
	}
	return max(min(ttl/2, 5*time.Minute), time.Second)
}

// Stop cancels in-flight work and waits for the workers to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a job. It fails when the queue is full or the orchestrator
// is stopped.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		job.SetStatus(StatusFailed, "shutdown")
		return fmt.Errorf("pipeline is stopped")
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

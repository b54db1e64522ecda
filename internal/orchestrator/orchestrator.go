package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rohmanhakim/polite-crawler/internal/frontier"
	"github.com/rohmanhakim/polite-crawler/internal/metadata"
	"github.com/rohmanhakim/polite-crawler/internal/worker"
)

/*
Orchestrator is the crawl's process-lifetime authority (C7): it
initializes the Frontier, spawns one Worker per shard, and tears the
pool down on a shutdown signal. It owns no crawling logic itself —
every admission, fetch, and parse decision belongs to the Frontier and
the Workers it spawns, the same separation of concerns the teacher's
scheduler documented for its own single-worker pipeline ("Introduce
worker-scoped recorders when concurrency exists" is the TODO this type
resolves).
*/
type Orchestrator struct {
	Frontier       *frontier.Frontier
	CrawlFinalizer metadata.CrawlFinalizer

	WorkerCount     int
	Resume          bool
	Seeds           []string
	SeedConcurrency int

	// GracePeriod is how long a graceful shutdown waits for in-flight
	// fetches to finish before the context is forcibly cancelled.
	GracePeriod time.Duration

	newWorker func(shardID int64) *worker.Worker
}

// New wires an Orchestrator. newWorker is called once per shard id in
// [0, workerCount) at Run time, so callers can close over shared
// dependencies (store, fetcher, extractor, ...) without the
// Orchestrator needing to know about any of them directly.
func New(
	f *frontier.Frontier,
	crawlFinalizer metadata.CrawlFinalizer,
	workerCount int,
	resume bool,
	seeds []string,
	seedConcurrency int,
	newWorker func(shardID int64) *worker.Worker,
) *Orchestrator {
	return &Orchestrator{
		Frontier:        f,
		CrawlFinalizer:  crawlFinalizer,
		WorkerCount:     workerCount,
		Resume:          resume,
		Seeds:           seeds,
		SeedConcurrency: seedConcurrency,
		GracePeriod:     30 * time.Second,
		newWorker:       newWorker,
	}
}

// Run initializes the Frontier, spawns WorkerCount Workers (one per
// shard id), and blocks until ctx is cancelled. The workers' context is
// derived from ctx, so cancellation reaches them at once and an
// in-flight fetch is aborted rather than finished. Run then waits for
// every worker to return; GracePeriod only bounds the wait before it
// cancels the workers' context a second time, after which it keeps
// waiting.
func (o *Orchestrator) Run(ctx context.Context) error {
	crawlStart := time.Now()

	var totalErrors int
	defer func() {
		count, err := o.Frontier.Count(context.Background())
		if err != nil {
			count = 0
		}
		if o.CrawlFinalizer != nil {
			o.CrawlFinalizer.RecordFinalCrawlStats(int(count), totalErrors, 0, time.Since(crawlStart))
		}
	}()

	if _, err := o.Frontier.Initialize(ctx, o.Resume, int64(o.WorkerCount), o.Seeds, o.SeedConcurrency); err != nil {
		totalErrors++
		return err
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	for shard := 0; shard < o.WorkerCount; shard++ {
		w := o.newWorker(int64(shard))
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(workerCtx)
		}()
	}

	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(o.GracePeriod):
		cancelWorkers()
		<-done
	}

	return nil
}

// Health is a coarse snapshot of crawl progress, intended for a
// liveness/readiness endpoint rather than detailed observability.
type Health struct {
	FrontierCount int64
	WorkersAlive  int
}

// Ping reports the current frontier depth. WorkersAlive is left to the
// caller to fill in from whatever supervises the Run goroutines (the
// Orchestrator itself tracks liveness only via wg, which Ping has no
// access to once Run has returned control to the caller's goroutine).
func (o *Orchestrator) Ping(ctx context.Context) (Health, error) {
	count, err := o.Frontier.Count(ctx)
	if err != nil {
		return Health{}, err
	}
	return Health{FrontierCount: count}, nil
}

package worker

import (
	"context"
	"math/rand"
	"net/url"
	"strconv"
	"time"

	"github.com/rohmanhakim/polite-crawler/internal/extractor"
	"github.com/rohmanhakim/polite-crawler/internal/fetcher"
	"github.com/rohmanhakim/polite-crawler/internal/frontier"
	"github.com/rohmanhakim/polite-crawler/internal/metadata"
	"github.com/rohmanhakim/polite-crawler/internal/storage"
	"github.com/rohmanhakim/polite-crawler/pkg/hashutil"
	"github.com/rohmanhakim/polite-crawler/pkg/limiter"
	"github.com/rohmanhakim/polite-crawler/pkg/retry"
	"github.com/rohmanhakim/polite-crawler/pkg/timeutil"
	"github.com/rohmanhakim/polite-crawler/pkg/urlutil"
)

/*
Worker is the Fetch/Parse component (C6): one cooperative loop per
shard. It owns no persistent state; every durable update goes through
the Frontier, the corpus sink, or the visit recorder.

State machine: Idle -> Polling -> Fetching -> Parsing -> Recording ->
Idle, with a terminal Stopped state observed at ctx.Done(). The five
states are not tracked as an explicit field; each is a straight-line
segment of Run's loop body, matching the single-pass pipeline shape the
scheduler (single-worker predecessor of this type) used.
*/
type Worker struct {
	ShardID int64

	Frontier      *frontier.Frontier
	Fetcher       fetcher.Fetcher
	Extractor     *extractor.DomExtractor
	CorpusSink    storage.CorpusSink
	VisitRecorder *storage.VisitRecorder
	MetadataSink  metadata.MetadataSink
	Sleeper       timeutil.Sleeper

	// ErrorBackoff is an in-process, per-shard courtesy layer on top of the
	// store-backed Politeness Gate: it only ever grows a domain's delay
	// past what the Gate already enforces, in response to consecutive
	// fetch errors from that domain, and resets on the next success. Safe
	// to hold as worker-local state because §4.5.5 guarantees a domain is
	// only ever dequeued by the one worker that owns its shard.
	ErrorBackoff limiter.RateLimiter

	UserAgent  string
	OutputDir  string
	MaxDepth   int
	RetryParam retry.RetryParam
	HashAlgo   hashutil.HashAlgo

	rng *rand.Rand
}

// New wires a Worker for a single shard. The caller owns the lifetime of
// every dependency; Worker only reads through them.
func New(
	shardID int64,
	f *frontier.Frontier,
	htmlFetcher fetcher.Fetcher,
	domExtractor *extractor.DomExtractor,
	corpusSink storage.CorpusSink,
	visitRecorder *storage.VisitRecorder,
	metadataSink metadata.MetadataSink,
	sleeper timeutil.Sleeper,
	userAgent string,
	outputDir string,
	maxDepth int,
	retryParam retry.RetryParam,
) *Worker {
	errorBackoff := limiter.NewConcurrentRateLimiter()
	errorBackoff.SetJitter(100 * time.Millisecond)

	return &Worker{
		ShardID:       shardID,
		Frontier:      f,
		Fetcher:       htmlFetcher,
		Extractor:     domExtractor,
		CorpusSink:    corpusSink,
		VisitRecorder: visitRecorder,
		MetadataSink:  metadataSink,
		Sleeper:       sleeper,
		ErrorBackoff:  errorBackoff,
		UserAgent:     userAgent,
		OutputDir:     outputDir,
		MaxDepth:      maxDepth,
		RetryParam:    retryParam,
		HashAlgo:      hashutil.HashAlgoBLAKE3,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano() + shardID)),
	}
}

const (
	minBackoff = 50 * time.Millisecond
	maxBackoff = 500 * time.Millisecond
)

// Run loops until ctx is cancelled. It never panics out to the caller:
// every stage failure is recorded and the loop continues, per §7's "no
// exception crosses the Worker loop boundary" rule.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := w.Frontier.GetNextURL(ctx, w.ShardID)
		if err != nil {
			w.recordError("Worker.Run", err)
			w.backoff(ctx)
			continue
		}
		if item == nil {
			w.backoff(ctx)
			continue
		}

		w.process(ctx, item)
	}
}

func (w *Worker) backoff(ctx context.Context) {
	span := int64(maxBackoff - minBackoff)
	d := minBackoff + time.Duration(w.rng.Int63n(span+1))
	w.Sleeper.Sleep(ctx, d)
}

func (w *Worker) process(ctx context.Context, item *frontier.PoppedURL) {
	target, err := url.Parse(item.URL)
	if err != nil {
		w.recordError("Worker.process", err)
		return
	}

	if w.ErrorBackoff != nil {
		if d := w.ErrorBackoff.ResolveDelay(item.Domain); d > 0 {
			w.Sleeper.Sleep(ctx, d)
		}
	}

	fetchParam := fetcher.NewFetchParam(*target, w.UserAgent)
	result, fetchErr := w.Fetcher.Fetch(ctx, item.Depth, fetchParam, w.RetryParam)
	if fetchErr != nil {
		if w.ErrorBackoff != nil {
			w.ErrorBackoff.MarkLastFetchAsNow(item.Domain)
			w.ErrorBackoff.Backoff(item.Domain)
		}
		w.VisitRecorder.SaveVisited(ctx, storage.VisitRecord{
			URL:    item.URL,
			Domain: item.Domain,
			Status: storage.VisitStatusFetchError,
			Depth:  item.Depth,
			Err:    fetchErr.Error(),
		})
		return
	}

	if w.ErrorBackoff != nil {
		w.ErrorBackoff.MarkLastFetchAsNow(item.Domain)
		w.ErrorBackoff.ResetBackoff(item.Domain)
	}

	if item.Depth >= w.MaxDepth {
		w.VisitRecorder.SaveVisited(ctx, storage.VisitRecord{
			URL:        item.URL,
			Domain:     item.Domain,
			Status:     storage.VisitStatusFetched,
			HTTPStatus: result.Code(),
			Depth:      item.Depth,
		})
		return
	}

	extraction, extractErr := w.Extractor.Extract(result.URL(), result.Body())
	if extractErr != nil {
		w.VisitRecorder.SaveVisited(ctx, storage.VisitRecord{
			URL:        item.URL,
			Domain:     item.Domain,
			Status:     storage.VisitStatusParseError,
			HTTPStatus: result.Code(),
			Depth:      item.Depth,
			Err:        extractErr.Error(),
		})
		return
	}

	corpusPath := w.writeCorpus(result.URL(), extraction)
	w.enqueueDiscoveredLinks(ctx, result.URL(), extraction, item.Depth)

	w.VisitRecorder.SaveVisited(ctx, storage.VisitRecord{
		URL:        item.URL,
		Domain:     item.Domain,
		Status:     storage.VisitStatusFetched,
		HTTPStatus: result.Code(),
		Depth:      item.Depth,
		CorpusPath: corpusPath,
	})
}

func (w *Worker) writeCorpus(sourceURL url.URL, extraction extractor.ExtractionResult) string {
	if w.CorpusSink == nil {
		return ""
	}
	text := extractor.ExtractText(extraction.ContentNode)
	if text == "" {
		return ""
	}
	result, err := w.CorpusSink.Write(w.OutputDir, sourceURL.String(), []byte(text), w.HashAlgo)
	if err != nil {
		return ""
	}
	return result.Path()
}

func (w *Worker) enqueueDiscoveredLinks(ctx context.Context, base url.URL, extraction extractor.ExtractionResult, depth int) {
	links := extractor.DiscoverLinks(extraction.DocumentRoot)
	if len(links) == 0 {
		return
	}

	normalized := make([]string, 0, len(links))
	for _, link := range links {
		resolved, ok := urlutil.Resolve(base, link.String())
		if !ok {
			continue
		}
		canonical := urlutil.Canonicalize(resolved)
		normalized = append(normalized, canonical.String())
	}
	if len(normalized) == 0 {
		return
	}

	if _, err := w.Frontier.AddURLsBatch(ctx, normalized, depth+1); err != nil {
		w.recordError("Worker.enqueueDiscoveredLinks", err)
	}
}

func (w *Worker) recordError(action string, err error) {
	if w.MetadataSink == nil {
		return
	}
	w.MetadataSink.RecordError(
		time.Now(),
		"worker",
		action,
		metadata.CauseUnknown,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrShard, strconv.FormatInt(w.ShardID, 10)),
		},
	)
}

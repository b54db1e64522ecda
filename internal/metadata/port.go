package metadata

import "time"

// MetadataSink is the observability port every pipeline package writes
// through. It never returns an error and never gates control flow: a
// failing sink must not be able to stop a crawl.
type MetadataSink interface {
	RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int)
	RecordAssetFetch(fetchURL string, httpStatus int, duration time.Duration, retryCount int)
	RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, errorString string, attrs []Attribute)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
	RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration)
}

// CrawlFinalizer is the narrow slice of MetadataSink the Orchestrator
// calls on shutdown to emit the single terminal crawlStats record.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration)
}

// NoopSink is a zero-value MetadataSink that discards everything. Tests
// embed it to satisfy the interface and only override the methods they
// care about; callers that genuinely have nowhere to route observability
// data (e.g. a one-shot CLI command that never fetches) can use it directly
// instead of passing a nil sink around.
type NoopSink struct{}

var _ MetadataSink = NoopSink{}

func (NoopSink) RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
}

func (NoopSink) RecordAssetFetch(fetchURL string, httpStatus int, duration time.Duration, retryCount int) {
}

func (NoopSink) RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, errorString string, attrs []Attribute) {
}

func (NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (NoopSink) RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration) {
}

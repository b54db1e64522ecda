package metadata

import (
	"time"

	"go.uber.org/zap"
)

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Crawl depth

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (page ID, crawl ID)
*/

// Recorder is the zap-backed MetadataSink used in production. crawlID
// tags every emitted record so logs from concurrent crawls can be
// told apart.
type Recorder struct {
	crawlID string
	log     *zap.Logger
}

// NewRecorder builds a Recorder over a production JSON zap logger
// tagged with crawlID.
func NewRecorder(crawlID string) *Recorder {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return &Recorder{crawlID: crawlID, log: logger}
}

// NewRecorderWithLogger builds a Recorder over a caller-supplied logger,
// used by tests and by callers that want a different zap configuration.
func NewRecorderWithLogger(crawlID string, logger *zap.Logger) *Recorder {
	return &Recorder{crawlID: crawlID, log: logger}
}

func (r *Recorder) RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
	r.log.Info("fetch",
		zap.String("crawl_id", r.crawlID),
		zap.String("url", fetchURL),
		zap.Int("http_status", httpStatus),
		zap.Duration("duration", duration),
		zap.String("content_type", contentType),
		zap.Int("retry_count", retryCount),
		zap.Int("crawl_depth", crawlDepth),
	)
}

func (r *Recorder) RecordAssetFetch(fetchURL string, httpStatus int, duration time.Duration, retryCount int) {
	r.log.Info("asset_fetch",
		zap.String("crawl_id", r.crawlID),
		zap.String("url", fetchURL),
		zap.Int("http_status", httpStatus),
		zap.Duration("duration", duration),
		zap.Int("retry_count", retryCount),
	)
}

func (r *Recorder) RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, errorString string, attrs []Attribute) {
	fields := make([]zap.Field, 0, len(attrs)+5)
	fields = append(fields,
		zap.String("crawl_id", r.crawlID),
		zap.Time("observed_at", observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.Int("cause", int(cause)),
	)
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	r.log.Error(errorString, fields...)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	fields := make([]zap.Field, 0, len(attrs)+3)
	fields = append(fields,
		zap.String("crawl_id", r.crawlID),
		zap.Int("kind", int(kind)),
		zap.String("path", path),
	)
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	r.log.Info("artifact", fields...)
}

func (r *Recorder) RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration) {
	r.log.Info("crawl_finished",
		zap.String("crawl_id", r.crawlID),
		zap.Int("total_pages", totalPages),
		zap.Int("total_errors", totalErrors),
		zap.Int("total_assets", totalAssets),
		zap.Duration("duration", duration),
	)
}

var (
	_ MetadataSink   = (*Recorder)(nil)
	_ CrawlFinalizer = (*Recorder)(nil)
)

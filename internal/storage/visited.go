package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/rohmanhakim/polite-crawler/internal/metadata"
	"github.com/rohmanhakim/polite-crawler/internal/store"
	"github.com/rohmanhakim/polite-crawler/pkg/failure"
	"github.com/rohmanhakim/polite-crawler/pkg/hashutil"
)

/*
VisitRecorder owns visited:<urlhash>, the exact-visit audit record
(§6.6). It is write-only and best-effort: a Worker calls SaveVisited once
per dequeued URL, and a failure here must never abort the crawl loop.
*/
type VisitRecorder struct {
	store        store.Store
	metadataSink metadata.MetadataSink
	hashAlgo     hashutil.HashAlgo
}

func NewVisitRecorder(s store.Store, metadataSink metadata.MetadataSink) *VisitRecorder {
	return &VisitRecorder{store: s, metadataSink: metadataSink, hashAlgo: hashutil.HashAlgoBLAKE3}
}

func visitedKey(urlHash string) string {
	return "visited:" + urlHash
}

// SaveVisited persists VisitRecord as a best-effort side effect. Errors
// are logged through the metadata sink and swallowed; save_visited is
// explicitly "may be best-effort" per §4.6.
func (r *VisitRecorder) SaveVisited(ctx context.Context, rec VisitRecord) {
	urlHash, err := hashutil.HashBytes([]byte(rec.URL), r.hashAlgo)
	if err != nil {
		r.recordFailure(rec.URL, err)
		return
	}

	fields := map[string]string{
		"url":         rec.URL,
		"domain":      rec.Domain,
		"status":      string(rec.Status),
		"http_status": strconv.Itoa(rec.HTTPStatus),
		"depth":       strconv.Itoa(rec.Depth),
		"visited_at":  strconv.FormatInt(time.Now().Unix(), 10),
	}
	if rec.CorpusPath != "" {
		fields["corpus_path"] = rec.CorpusPath
	}
	if rec.Err != "" {
		fields["error"] = rec.Err
	}

	if err := r.store.HSet(ctx, visitedKey(urlHash), fields); err != nil {
		r.recordFailure(rec.URL, err)
		return
	}

	r.metadataSink.RecordArtifact(
		metadata.ArtifactVisitRecord,
		visitedKey(urlHash),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, rec.URL),
			metadata.NewAttr(metadata.AttrHost, rec.Domain),
		},
	)
}

func (r *VisitRecorder) recordFailure(url string, err error) {
	if r.metadataSink == nil {
		return
	}
	r.metadataSink.RecordError(
		time.Now(),
		"storage",
		"VisitRecorder.SaveVisited",
		metadata.CauseStorageFailure,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, url),
		},
	)
}

var _ failure.ClassifiedError = (*StorageError)(nil)

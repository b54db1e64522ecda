package storage

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rohmanhakim/polite-crawler/internal/metadata"
	"github.com/rohmanhakim/polite-crawler/pkg/failure"
	"github.com/rohmanhakim/polite-crawler/pkg/fileutil"
	"github.com/rohmanhakim/polite-crawler/pkg/hashutil"
)

/*
Responsibilities
- Persist fetched page text to a deterministic path derived from the URL's hash
- Idempotent, overwrite-safe writes

CorpusSink never converts or sanitizes content; by the time text reaches
it, extraction has already happened.
*/

type CorpusSink interface {
	Write(outputDir string, canonicalURL string, text []byte, hashAlgo hashutil.HashAlgo) (WriteResult, failure.ClassifiedError)
}

type LocalCorpusSink struct {
	metadataSink metadata.MetadataSink
}

func NewLocalCorpusSink(metadataSink metadata.MetadataSink) LocalCorpusSink {
	return LocalCorpusSink{metadataSink: metadataSink}
}

func (s *LocalCorpusSink) Write(outputDir string, canonicalURL string, text []byte, hashAlgo hashutil.HashAlgo) (WriteResult, failure.ClassifiedError) {
	result, err := write(outputDir, canonicalURL, text, hashAlgo)
	if err != nil {
		var storageError *StorageError
		errors.As(err, &storageError)
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"LocalCorpusSink.Write",
			mapStorageErrorToMetadataCause(storageError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, canonicalURL),
				metadata.NewAttr(metadata.AttrWritePath, storageError.Path),
			},
		)
		return WriteResult{}, storageError
	}
	s.metadataSink.RecordArtifact(
		metadata.ArtifactCorpusPage,
		result.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, result.Path()),
			metadata.NewAttr(metadata.AttrURL, canonicalURL),
		},
	)
	return result, nil
}

func write(outputDir string, canonicalURL string, text []byte, hashAlgo hashutil.HashAlgo) (WriteResult, failure.ClassifiedError) {
	urlHashFull, err := hashutil.HashBytes([]byte(canonicalURL), hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
		}
	}
	urlHash := urlHashFull[:12]

	if fileErr := fileutil.EnsureDir(outputDir); fileErr != nil {
		return WriteResult{}, &StorageError{
			Message:   fileErr.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      outputDir,
		}
	}

	contentHash, err := hashutil.HashBytes(text, hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
		}
	}

	path := filepath.Join(outputDir, urlHash+".txt")
	if err := os.WriteFile(path, text, 0644); err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseWriteFailure,
			Path:      path,
		}
	}

	return NewWriteResult(urlHash, path, contentHash), nil
}

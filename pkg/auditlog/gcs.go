package auditlog

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GCSClient abstracts the top-level *storage.Client.
type GCSClient interface {
	Bucket(name string) GCSBucketHandle
}

// GCSBucketHandle abstracts a *storage.BucketHandle.
type GCSBucketHandle interface {
	Object(name string) GCSObjectHandle
}

// GCSObjectHandle abstracts a *storage.ObjectHandle.
type GCSObjectHandle interface {
	NewWriter(ctx context.Context) io.WriteCloser
}

type gcsClientAdapter struct{ client *storage.Client }

// NewGCSClientAdapter makes a *storage.Client conform to GCSClient.
func NewGCSClientAdapter(client *storage.Client) GCSClient {
	if client == nil {
		return nil
	}
	return &gcsClientAdapter{client: client}
}

func (a *gcsClientAdapter) Bucket(name string) GCSBucketHandle {
	return &gcsBucketAdapter{handle: a.client.Bucket(name)}
}

type gcsBucketAdapter struct{ handle *storage.BucketHandle }

func (a *gcsBucketAdapter) Object(name string) GCSObjectHandle {
	return &gcsObjectAdapter{handle: a.handle.Object(name)}
}

type gcsObjectAdapter struct{ handle *storage.ObjectHandle }

func (a *gcsObjectAdapter) NewWriter(ctx context.Context) io.WriteCloser {
	w := a.handle.NewWriter(ctx)
	w.ContentType = "application/x-ndjson"
	w.ContentEncoding = "gzip"
	return w
}

// GCSArchiverConfig holds configuration for the GCS archiver.
type GCSArchiverConfig struct {
	Bucket       string
	ObjectPrefix string
}

// GCSArchiver writes each batch as gzipped JSONL objects, one per key
// returned by keyFunc, under <prefix>/<key>/<uuid>.jsonl.gz.
type GCSArchiver[T any] struct {
	client  GCSClient
	config  GCSArchiverConfig
	keyFunc func(*T) string
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewGCSArchiver creates an archiver. A nil keyFunc puts every item in one
// object per batch.
func NewGCSArchiver[T any](client GCSClient, cfg GCSArchiverConfig, keyFunc func(*T) string, logger zerolog.Logger) (*GCSArchiver[T], error) {
	if client == nil {
		return nil, errors.New("GCS client cannot be nil")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("GCS bucket name is required")
	}
	if keyFunc == nil {
		keyFunc = func(*T) string { return "" }
	}
	return &GCSArchiver[T]{
		client:  client,
		config:  cfg,
		keyFunc: keyFunc,
		logger:  logger.With().Str("component", "GCSArchiver").Logger(),
	}, nil
}

// InsertBatch groups items by key and uploads the groups in parallel.
func (a *GCSArchiver[T]) InsertBatch(ctx context.Context, items []*T) error {
	groups := make(map[string][]*T)
	for _, item := range items {
		if item != nil {
			key := a.keyFunc(item)
			groups[key] = append(groups[key], item)
		}
	}
	if len(groups) == 0 {
		return nil
	}

	var mu sync.Mutex
	var errs []error
	var uploads sync.WaitGroup
	for key, group := range groups {
		uploads.Add(1)
		a.wg.Add(1)
		go func() {
			defer uploads.Done()
			defer a.wg.Done()
			if err := a.upload(ctx, key, group); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	uploads.Wait()
	return errors.Join(errs...)
}

func (a *GCSArchiver[T]) upload(ctx context.Context, key string, items []*T) error {
	objectName := path.Join(a.config.ObjectPrefix, key, uuid.NewString()+".jsonl.gz")
	w := a.client.Bucket(a.config.Bucket).Object(objectName).NewWriter(ctx)
	pr, pw := io.Pipe()

	go func() {
		gz := gzip.NewWriter(pw)
		enc := json.NewEncoder(gz)
		var err error
		for _, item := range items {
			if err = enc.Encode(item); err != nil {
				err = fmt.Errorf("json encoding failed for %s: %w", objectName, err)
				break
			}
		}
		if closeErr := gz.Close(); err == nil {
			err = closeErr
		}
		_ = pw.CloseWithError(err)
	}()

	written, copyErr := io.Copy(w, pr)
	_ = pr.Close()
	closeErr := w.Close()
	if copyErr != nil {
		return fmt.Errorf("failed to stream data for GCS object %s: %w", objectName, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close GCS object writer for %s: %w", objectName, closeErr)
	}
	a.logger.Debug().Str("object_name", objectName).Int("record_count", len(items)).Int64("bytes_written", written).Msg("Uploaded batch to GCS.")
	return nil
}

// Close waits for in-flight uploads.
func (a *GCSArchiver[T]) Close() error {
	a.wg.Wait()
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/solewatch/solewatch/internal/release"
)

// GCSConfig identifies the bucket object holding the snapshot.
type GCSConfig struct {
	Bucket string
	Object string
}

// GCSStore persists the snapshot document as a single GCS object.
// Authentication uses Application Default Credentials.
type GCSStore struct {
	client *storage.Client
	bucket string
	object string
	logger *zap.Logger
}

// NewGCSStore creates the client and fails fast if the bucket is unreachable.
func NewGCSStore(ctx context.Context, cfg GCSConfig, logger *zap.Logger) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	object := cfg.Object
	if object == "" {
		object = "sneaker_releases.json"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close gcs client after failed bucket check", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("bucket %q attrs: %w", cfg.Bucket, err)
	}

	return &GCSStore{
		client: client,
		bucket: cfg.Bucket,
		object: object,
		logger: logger,
	}, nil
}

// Close releases the GCS client.
func (s *GCSStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Save overwrites the snapshot object.
func (s *GCSStore) Save(ctx context.Context, snap release.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	wc := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	wc.ContentType = "application/json"
	if _, err := wc.Write(data); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			s.logger.Warn("close gcs writer after write failure", zap.Error(closeErr))
		}
		return fmt.Errorf("write snapshot object: %w", err)
	}
	// Close finalizes the upload; the object is not visible until it returns.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("finalize snapshot object: %w", err)
	}
	return nil
}

// Load reads the snapshot object. A missing object reports ok=false with no
// error; a malformed one is logged and treated as absent.
func (s *GCSStore) Load(ctx context.Context) (release.Snapshot, bool, error) {
	rc, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return release.Snapshot{}, false, nil
		}
		return release.Snapshot{}, false, fmt.Errorf("open snapshot object: %w", err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			s.logger.Warn("close gcs reader", zap.Error(closeErr))
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return release.Snapshot{}, false, fmt.Errorf("read snapshot object: %w", err)
	}
	var snap release.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("snapshot object is malformed, starting empty", zap.Error(err))
		return release.Snapshot{}, false, nil
	}
	return snap, true, nil
}

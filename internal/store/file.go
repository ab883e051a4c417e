// Package store provides the durable snapshot persistence providers.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/solewatch/solewatch/internal/release"
)

// FileConfig captures the parameters for the file-backed snapshot store.
type FileConfig struct {
	// Path is the JSON file holding the last successful snapshot.
	Path string `mapstructure:"path"`
}

// FileStore persists the snapshot as a single JSON file, overwritten
// wholesale on every save.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore validates the target path and ensures its directory exists.
func NewFileStore(cfg FileConfig, logger *zap.Logger) (*FileStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &FileStore{path: cfg.Path, logger: logger}, nil
}

// Save writes the snapshot, replacing any previous file.
func (s *FileStore) Save(_ context.Context, snap release.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	s.logger.Info("snapshot saved",
		zap.String("path", s.path),
		zap.Int("releases", snap.TotalReleases),
	)
	return nil
}

// Load reads the last saved snapshot. A missing file reports ok=false with no
// error; a malformed file is logged and likewise reported as absent, so the
// cache simply starts empty.
func (s *FileStore) Load(_ context.Context) (release.Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no snapshot file yet", zap.String("path", s.path))
			return release.Snapshot{}, false, nil
		}
		return release.Snapshot{}, false, fmt.Errorf("read snapshot file: %w", err)
	}

	var snap release.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("snapshot file is malformed, starting empty",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return release.Snapshot{}, false, nil
	}
	s.logger.Info("snapshot loaded",
		zap.String("path", s.path),
		zap.Int("releases", snap.TotalReleases),
	)
	return snap, true, nil
}

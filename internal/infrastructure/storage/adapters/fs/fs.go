// Package fs stores snapshot objects on the local filesystem, for local
// development and tests.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reviewmonitor/internal/application/ports"
)

type fsStorage struct {
	basePath string
	logger   ports.Logger
	metrics  ports.Metrics
}

// New creates a filesystem-backed object store rooted at basePath.
func New(basePath string, obs ports.Observability) (ports.Storage, error) {
	logger, metrics, err := obs.ComponentsScoped("storage.filesystem")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		logger.Error("Failed to create base path", "path", basePath, "error", err)
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	logger.Info("Filesystem storage initialized", "base_path", basePath)

	return &fsStorage{
		basePath: basePath,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

func (s *fsStorage) Put(ctx context.Context, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	startTime := time.Now()
	s.metrics.IncrementCounter("storage.put.attempts", nil)

	objectPath := s.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(objectPath), 0755); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "mkdir"})
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	file, err := os.Create(objectPath)
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "create"})
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	bytesWritten, err := io.Copy(file, reader)
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "write"})
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := s.saveMetadata(key, metadata); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "metadata"})
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	s.logger.Info("Object stored",
		"key", key,
		"bytes", bytesWritten,
		"duration_ms", time.Since(startTime).Milliseconds())
	s.metrics.IncrementCounter("storage.put.success", nil)
	s.metrics.RecordHistogram("storage.put.bytes", float64(bytesWritten), nil)

	return nil
}

func (s *fsStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.metrics.IncrementCounter("storage.get.attempts", nil)

	file, err := os.Open(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			s.metrics.IncrementCounter("storage.get.not_found", nil)
			return nil, ports.ErrObjectNotFound
		}
		s.metrics.IncrementCounter("storage.get.errors", nil)
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	s.metrics.IncrementCounter("storage.get.success", nil)
	return file, nil
}

func (s *fsStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.objectPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object existence: %w", err)
}

func (s *fsStorage) List(ctx context.Context, prefix string) ([]ports.ObjectInfo, error) {
	s.metrics.IncrementCounter("storage.list.attempts", nil)

	var objects []ports.ObjectInfo
	err := filepath.Walk(s.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.IsDir() || strings.HasSuffix(path, ".metadata.json") {
			return nil
		}

		relPath, _ := filepath.Rel(s.basePath, path)
		key := filepath.ToSlash(relPath)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}

		objects = append(objects, ports.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		s.metrics.IncrementCounter("storage.list.errors", nil)
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	s.metrics.IncrementCounter("storage.list.success", nil)
	return objects, nil
}

func (s *fsStorage) objectPath(key string) string {
	// strip leading slashes so keys cannot escape the base path
	key = strings.TrimPrefix(key, "/")
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

func (s *fsStorage) saveMetadata(key string, metadata ports.ObjectMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(s.objectPath(key)+".metadata.json", data, 0644)
}

package ports

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata represents metadata associated with stored objects
type ObjectMetadata struct {
	ContentType   string
	ContentLength int64
	UserMetadata  map[string]string
}

// ObjectInfo represents information about a stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage abstracts the raw-snapshot archive so implementations can be
// swapped between S3-compatible services and the local filesystem.
type Storage interface {
	// Put stores an object under the given key
	Put(ctx context.Context, key string, reader io.Reader, metadata ObjectMetadata) error

	// Get retrieves an object by key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// List returns objects under the given prefix
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Package archive persists run reports to a local directory or an
// S3-compatible bucket.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/retsign/internal/core"
)

// Backend names accepted by Open.
const (
	BackendNone    = "none"
	BackendLocalFS = "localfs"
	BackendS3      = "s3"
)

// ErrNotFound is returned by Get for a key that does not exist.
var ErrNotFound = errors.New("archive object not found")

// Store is a flat blob store keyed by slash-separated paths
type Store interface {
	// Put stores data under key, replacing any existing object
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get retrieves the object at key
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys under prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if an object is stored at key
	Exists(ctx context.Context, key string) (bool, error)
}

// Open creates the Store for a backend. BackendNone yields a nil Store.
func Open(backend, path string, s3cfg S3Config) (Store, error) {
	switch backend {
	case "", BackendNone:
		return nil, nil
	case BackendLocalFS:
		return NewLocalFS(path)
	case BackendS3:
		return NewS3(s3cfg)
	}
	return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive backend %q", backend))
}

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/2beens/healthdash/internal/config"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// Store holds raw health exports (export.xml, workouts CSVs) until they are imported.
// Exports can be several GB, so objects are streamed in both directions.
type Store interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) (int64, error)
	// GetObject returns the object body; the caller closes it.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

type S3Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// NewStore builds the blob store selected by cfg.BlobMode.
func NewStore(cfg *config.Config, creds S3Credentials) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.BlobMode)) {
	case "", config.BlobModeLocal:
		return NewDiskStore(cfg.BlobLocalRoot)
	case config.BlobModeS3:
		return NewS3Store(S3StoreParams{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     creds.AccessKeyID,
			SecretAccessKey: creds.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unsupported blob mode: %s", cfg.BlobMode)
	}
}

// CleanKey normalises an object key and rejects keys escaping the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return cleaned, nil
}

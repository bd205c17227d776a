package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/2beens/healthdash/internal/telemetry/tracing"
	"github.com/2beens/healthdash/pkg"

	"go.opentelemetry.io/otel/attribute"
)

// DiskStore keeps objects as files under a root dir; keys map to relative paths.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("disk store root path empty")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs root path: %w", err)
	}

	exists, err := pkg.PathExists(absRoot, true)
	if err != nil {
		return nil, fmt.Errorf("check root path: %w", err)
	}
	if !exists {
		if err := os.MkdirAll(absRoot, 0o755); err != nil {
			return nil, fmt.Errorf("create root dir: %w", err)
		}
	}

	return &DiskStore{root: absRoot}, nil
}

func (s *DiskStore) path(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

func (s *DiskStore) PutObject(ctx context.Context, key string, body io.Reader, _ string) (_ int64, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "blob.disk.put")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("key", key))

	p, err := s.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return 0, fmt.Errorf("create object dir: %w", err)
	}

	// write to a temp file first, so readers never see a partial export
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, body)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return 0, fmt.Errorf("rename object: %w", err)
	}

	span.SetAttributes(attribute.Int64("size", size))
	return size, nil
}

func (s *DiskStore) GetObject(ctx context.Context, key string) (_ io.ReadCloser, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "blob.disk.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("key", key))

	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

func (s *DiskStore) DeleteObject(ctx context.Context, key string) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "blob.disk.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (s *DiskStore) ListObjects(ctx context.Context, prefix string) (_ []string, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "blob.disk.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var keys []string
	err = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk root: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

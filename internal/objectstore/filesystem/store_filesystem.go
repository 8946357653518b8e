package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"brokerage/internal/objectstore"
)

// Store keeps objects on local disk under root/<bucket>/<path>. A bucket is
// any existing directory directly under root.
type Store struct {
	root    string
	baseURL string
}

func New(root, baseURL string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve object store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create object store root: %w", err)
	}
	return &Store{root: abs, baseURL: baseURL}, nil
}

// Root returns the absolute directory objects are written under.
func (s *Store) Root() string {
	return s.root
}

// CreateBucket makes bucket available for writes.
func (s *Store) CreateBucket(bucket string) error {
	if !validBucket(bucket) {
		return fmt.Errorf("bucket %q: %w", bucket, objectstore.ErrInvalidPath)
	}
	return os.MkdirAll(filepath.Join(s.root, bucket), 0o750)
}

// Put writes data atomically: bytes go to a temp file in the target directory
// which is renamed into place, so a failed write leaves nothing behind.
func (s *Store) Put(ctx context.Context, bucket, objectPath string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := objectstore.CleanPath(objectPath)
	if err != nil {
		return err
	}
	if !validBucket(bucket) {
		return fmt.Errorf("%q: %w", bucket, objectstore.ErrBucketNotFound)
	}
	bucketDir := filepath.Join(s.root, bucket)
	info, err := os.Stat(bucketDir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return fmt.Errorf("%q: %w", bucket, objectstore.ErrBucketNotFound)
	}
	if err != nil {
		return fmt.Errorf("stat bucket %q: %w", bucket, err)
	}

	target := filepath.Join(bucketDir, filepath.FromSlash(p))
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return fmt.Errorf("commit object: %w", err)
	}
	return nil
}

func (s *Store) PublicURL(bucket, objectPath string) string {
	return objectstore.PublicURL(s.baseURL, bucket, objectPath)
}

func validBucket(bucket string) bool {
	p, err := objectstore.CleanPath(bucket)
	return err == nil && p == bucket && filepath.Base(bucket) == bucket
}

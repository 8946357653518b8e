// Package objectstore holds the object store backends used for document
// placement. Backends expose named buckets; writing to a bucket the backend
// does not know fails with ErrBucketNotFound so callers can try the next one.
package objectstore

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"brokerage/pkg/platform/sentinel"
)

var (
	ErrBucketNotFound = fmt.Errorf("bucket %w", sentinel.ErrNotFound)
	ErrInvalidPath    = errors.New("invalid object path")
)

// CleanPath validates an object path and returns it in canonical form.
// Paths are relative, slash separated and never escape the bucket.
func CleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// PublicURL joins a base URL, bucket and object path, escaping each segment.
func PublicURL(baseURL, bucket, objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

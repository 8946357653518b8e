package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"brokerage/internal/objectstore"
)

// Object is a stored blob.
type Object struct {
	Data        []byte
	ContentType string
}

// InMemoryStore is an object store with a fixed set of buckets.
type InMemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	buckets map[string]map[string]Object
}

func New(baseURL string, buckets ...string) *InMemoryStore {
	s := &InMemoryStore{baseURL: baseURL, buckets: make(map[string]map[string]Object)}
	for _, b := range buckets {
		s.buckets[b] = make(map[string]Object)
	}
	return s
}

func (s *InMemoryStore) Put(ctx context.Context, bucket, objectPath string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := objectstore.CleanPath(objectPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("%q: %w", bucket, objectstore.ErrBucketNotFound)
	}
	objects[p] = Object{Data: bytes.Clone(data), ContentType: contentType}
	return nil
}

func (s *InMemoryStore) PublicURL(bucket, objectPath string) string {
	return objectstore.PublicURL(s.baseURL, bucket, objectPath)
}

// Object returns a stored blob.
func (s *InMemoryStore) Object(bucket, objectPath string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.buckets[bucket][objectPath]
	return obj, ok
}

// Len returns the number of objects across all buckets.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, objects := range s.buckets {
		n += len(objects)
	}
	return n
}

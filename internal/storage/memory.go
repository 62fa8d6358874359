package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage for tests. Not suitable for
// anything beyond a single process.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string

	// Failure injection for tests
	DeleteErr error
	PutErr    error

	// Call tracking
	DeleteCalls int
	PutCalls    int
}

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]memoryObject),
		baseURL: "https://storage.test",
	}
}

// Put stores data at the specified key.
func (s *MemoryStorage) Put(_ context.Context, key string, data io.Reader, opts PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PutCalls++
	if s.PutErr != nil {
		return &StorageError{Op: "Put", Key: key, Err: s.PutErr}
	}
	if err := validateKey(key); err != nil {
		return &StorageError{Op: "Put", Key: key, Err: err}
	}
	if _, exists := s.objects[key]; exists && !opts.Overwrite {
		return &StorageError{Op: "Put", Key: key, Err: ErrKeyExists}
	}

	b, err := io.ReadAll(data)
	if err != nil {
		return &StorageError{Op: "Put", Key: key, Err: err}
	}
	if opts.MaxSize > 0 && int64(len(b)) > opts.MaxSize {
		return &StorageError{Op: "Put", Key: key, Err: ErrTooLarge}
	}

	s.objects[key] = memoryObject{
		data:        b,
		contentType: DetectContentType(opts.ContentType, key, nil),
		modified:    time.Now(),
	}
	return nil
}

// Get retrieves the data at the specified key.
func (s *MemoryStorage) Get(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: ErrNotFound}
	}
	info := ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
	}
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

// Delete removes the object at the specified key. Idempotent.
func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.DeleteCalls++
	if s.DeleteErr != nil {
		return &StorageError{Op: "Delete", Key: key, Err: s.DeleteErr}
	}
	delete(s.objects, key)
	return nil
}

// List returns up to limit objects under the prefix, ordered by key.
func (s *MemoryStorage) List(_ context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 1000
	}

	var infos []ObjectInfo
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, ObjectInfo{
				Key:          key,
				Size:         int64(len(obj.data)),
				ContentType:  obj.contentType,
				LastModified: obj.modified,
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	if len(infos) > limit {
		infos = infos[:limit]
	}
	return infos, nil
}

// URL returns a stable fake public URL for the object.
func (s *MemoryStorage) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	if err := validateKey(key); err != nil {
		return "", &StorageError{Op: "URL", Key: key, Err: err}
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}

// Exists checks if an object exists at the specified key.
func (s *MemoryStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Len returns the number of stored objects. Test helper.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

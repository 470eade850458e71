package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/EcommerceGo/catalog/internal/storage"
)

type object struct {
	contentType string
	data        []byte
}

// Storage implements storage.Storage in process memory. It backs local
// development and tests. Mounted under the path of its base URL it also
// serves the stored objects, so the URLs it hands out resolve.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

var _ storage.Storage = (*Storage)(nil)

// New creates an empty store whose URLs are rooted at baseURL.
func New(baseURL string) *Storage {
	return &Storage{
		objects: make(map[string]object),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload reads the file fully and keeps it under its key.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, input.Data); err != nil {
		return nil, fmt.Errorf("read %s: %w", input.Key, err)
	}

	s.mu.Lock()
	s.objects[input.Key] = object{contentType: input.ContentType, data: buf.Bytes()}
	s.mu.Unlock()

	return &storage.UploadResult{Key: input.Key, URL: s.baseURL + "/" + input.Key}, nil
}

// Delete removes the object stored under key.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	delete(s.objects, key)
	return nil
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error { return nil }

// Get returns the bytes stored under key.
func (s *Storage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.data, ok
}

// ServeHTTP writes the object named by the request path.
func (s *Storage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if obj.contentType != "" {
		w.Header().Set("Content-Type", obj.contentType)
	}
	http.ServeContent(w, r, key, time.Time{}, bytes.NewReader(obj.data))
}

// Len returns the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

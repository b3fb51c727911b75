package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/atelier/profile-portal/internal/core/domain"
)

type blob struct {
	data        []byte
	contentType string
}

// BlobStore implements ports.BlobStore in memory. Download URLs point at
// baseURL/blobs/{path}.
type BlobStore struct {
	mu      sync.RWMutex
	blobs   map[string]blob
	baseURL string
}

func NewBlobStore(baseURL string) *BlobStore {
	return &BlobStore{blobs: make(map[string]blob), baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *BlobStore) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if _, err := domain.SplitPath(path); err != nil {
		return err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read blob %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = blob{data: b, contentType: contentType}
	return nil
}

func (s *BlobStore) Open(ctx context.Context, path string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	b, ok := s.blobs[path]
	s.mu.RUnlock()
	if !ok {
		return nil, "", domain.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), b.contentType, nil
}

func (s *BlobStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, path)
	return nil
}

func (s *BlobStore) DownloadURL(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	_, ok := s.blobs[path]
	s.mu.RUnlock()
	if !ok {
		return "", domain.ErrBlobNotFound
	}
	return BlobURL(s.baseURL, path), nil
}

// BlobURL joins baseURL and the escaped segments of path under /blobs.
func BlobURL(baseURL, path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") + "/blobs/" + strings.Join(segments, "/")
}

// Package memory provides in-process implementations of the remote
// collaborators for local development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/ports"
	"github.com/atelier/profile-portal/internal/infrastructure/queue"
)

// DocumentStore implements ports.DocumentStore on a map guarded by a mutex.
// Writes are published to subscribers before the write call returns.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]bson.M
	hub  *queue.Hub
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]bson.M), hub: queue.NewHub()}
}

func (s *DocumentStore) Get(ctx context.Context, path string) (ports.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ports.Snapshot{}, err
	}
	if err := checkDocumentPath(path); err != nil {
		return ports.Snapshot{}, err
	}

	s.mu.RLock()
	doc, ok := s.docs[path]
	s.mu.RUnlock()
	if !ok {
		return ports.Snapshot{Path: path}, nil
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return ports.Snapshot{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return ports.Snapshot{Path: path, Exists: true, Data: raw}, nil
}

func (s *DocumentStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkDocumentPath(path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return fmt.Errorf("update %s: %w", path, domain.ErrDocumentNotFound)
	}
	next := make(bson.M, len(doc)+len(fields))
	for k, v := range doc {
		next[k] = v
	}
	for k, v := range fields {
		next[k] = v
	}
	return s.commitLocked(path, next)
}

func (s *DocumentStore) Set(ctx context.Context, path string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkDocumentPath(path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(bson.M, len(fields))
	for k, v := range fields {
		next[k] = v
	}
	return s.commitLocked(path, next)
}

func (s *DocumentStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkDocumentPath(path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(path)
	return nil
}

func (s *DocumentStore) DeleteChildren(ctx context.Context, collectionPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	segments, err := domain.SplitPath(collectionPath)
	if err != nil {
		return err
	}
	if len(segments)%2 != 1 {
		return fmt.Errorf("%w: %s is not a collection", domain.ErrInvalidPath, collectionPath)
	}

	prefix := collectionPath + "/"
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if ok && !strings.Contains(rest, "/") {
			s.deleteLocked(path)
		}
	}
	return nil
}

func (s *DocumentStore) Subscribe(ctx context.Context, path string) (<-chan ports.Snapshot, error) {
	if err := checkDocumentPath(path); err != nil {
		return nil, err
	}
	return s.hub.Stream(ctx, path, func(ctx context.Context) (ports.Snapshot, error) {
		return s.Get(ctx, path)
	})
}

func (s *DocumentStore) commitLocked(path string, doc bson.M) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	s.docs[path] = doc
	return s.hub.Deliver(context.Background(), ports.DocumentChange{Path: path, Data: raw})
}

func (s *DocumentStore) deleteLocked(path string) {
	if _, ok := s.docs[path]; !ok {
		return
	}
	delete(s.docs, path)
	_ = s.hub.Deliver(context.Background(), ports.DocumentChange{Path: path, Deleted: true})
}

// checkDocumentPath accepts paths with an even number of segments
// (collection/id pairs).
func checkDocumentPath(path string) error {
	segments, err := domain.SplitPath(path)
	if err != nil {
		return err
	}
	if len(segments)%2 != 0 {
		return fmt.Errorf("%w: %s is not a document", domain.ErrInvalidPath, path)
	}
	return nil
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/ports"
	"github.com/atelier/profile-portal/internal/infrastructure/queue"
)

// DocumentStore implements ports.DocumentStore on MongoDB. Live subscriptions
// are fed by a Watcher publishing into the same hub.
type DocumentStore struct {
	db  *mongo.Database
	hub *queue.Hub
}

func NewDocumentStore(db *mongo.Database, hub *queue.Hub) *DocumentStore {
	return &DocumentStore{db: db, hub: hub}
}

func (s *DocumentStore) collection(path string) (*mongo.Collection, error) {
	name, err := documentCollection(path)
	if err != nil {
		return nil, err
	}
	return s.db.Collection(name), nil
}

func (s *DocumentStore) Get(ctx context.Context, path string) (ports.Snapshot, error) {
	col, err := s.collection(path)
	if err != nil {
		return ports.Snapshot{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	raw, err := col.FindOne(ctx, bson.M{"_id": path}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ports.Snapshot{Path: path}, nil
		}
		return ports.Snapshot{}, fmt.Errorf("get %s: %w", path, err)
	}
	return ports.Snapshot{Path: path, Exists: true, Data: raw}, nil
}

func (s *DocumentStore) Update(ctx context.Context, path string, fields map[string]any) error {
	col, err := s.collection(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := col.UpdateOne(ctx, bson.M{"_id": path}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s: %w", path, domain.ErrDocumentNotFound)
	}
	return nil
}

func (s *DocumentStore) Set(ctx context.Context, path string, fields map[string]any) error {
	col, err := s.collection(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{}
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = path

	_, err = col.ReplaceOne(ctx, bson.M{"_id": path}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, path string) error {
	col, err := s.collection(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := col.DeleteOne(ctx, bson.M{"_id": path}); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *DocumentStore) DeleteChildren(ctx context.Context, collectionPath string) error {
	name, err := childCollection(collectionPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(collectionPath+"/") + "[^/]+$"}}
	if _, err := s.db.Collection(name).DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("delete children of %s: %w", collectionPath, err)
	}
	return nil
}

func (s *DocumentStore) Subscribe(ctx context.Context, path string) (<-chan ports.Snapshot, error) {
	if _, err := documentCollection(path); err != nil {
		return nil, err
	}
	return s.hub.Stream(ctx, path, func(ctx context.Context) (ports.Snapshot, error) {
		return s.Get(ctx, path)
	})
}

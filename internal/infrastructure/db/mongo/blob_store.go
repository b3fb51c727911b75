package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/infrastructure/db/memory"
)

const blobBucket = "blobs"

// BlobStore implements ports.BlobStore on a GridFS bucket. The blob path is
// the GridFS filename; a Put leaves only the newest revision.
type BlobStore struct {
	bucket  *gridfs.Bucket
	baseURL string
}

func NewBlobStore(db *mongo.Database, baseURL string) (*BlobStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(blobBucket))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return &BlobStore{bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

type fileID struct {
	ID primitive.ObjectID `bson:"_id"`
}

func (s *BlobStore) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if _, err := domain.SplitPath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	id, err := s.bucket.UploadFromStream(path, data, opts)
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}

	return s.deleteRevisions(ctx, bson.M{"filename": path, "_id": bson.M{"$ne": id}})
}

func (s *BlobStore) Open(ctx context.Context, path string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	stream, err := s.bucket.OpenDownloadStreamByName(path)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", domain.ErrBlobNotFound
		}
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}

	contentType := "application/octet-stream"
	if file := stream.GetFile(); file != nil {
		if ct, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok && ct != "" {
			contentType = ct
		}
	}
	return stream, contentType, nil
}

func (s *BlobStore) Delete(ctx context.Context, path string) error {
	return s.deleteRevisions(ctx, bson.M{"filename": path})
}

func (s *BlobStore) DownloadURL(ctx context.Context, path string) (string, error) {
	cur, err := s.bucket.FindContext(ctx, bson.M{"filename": path}, options.GridFSFind().SetLimit(1))
	if err != nil {
		return "", fmt.Errorf("find %s: %w", path, err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return "", fmt.Errorf("find %s: %w", path, err)
		}
		return "", domain.ErrBlobNotFound
	}
	return memory.BlobURL(s.baseURL, path), nil
}

func (s *BlobStore) deleteRevisions(ctx context.Context, filter bson.M) error {
	cur, err := s.bucket.FindContext(ctx, filter)
	if err != nil {
		return fmt.Errorf("find revisions: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var f fileID
		if err := cur.Decode(&f); err != nil {
			return fmt.Errorf("decode revision: %w", err)
		}
		if err := s.bucket.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("delete revision %s: %w", f.ID.Hex(), err)
		}
	}
	return cur.Err()
}

package ports

import (
	"context"
	"io"
)

// BlobStore holds binary objects such as avatars.
type BlobStore interface {
	// Put stores data at path, replacing any previous object. It returns once
	// the upload has completed.
	Put(ctx context.Context, path string, data io.Reader, contentType string) error

	// Open streams the object at path. Callers must close the reader.
	Open(ctx context.Context, path string) (io.ReadCloser, string, error)

	Delete(ctx context.Context, path string) error

	// DownloadURL returns a URL the client can fetch the object from. It fails
	// with domain.ErrBlobNotFound when nothing is stored at path.
	DownloadURL(ctx context.Context, path string) (string, error)
}

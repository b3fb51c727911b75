package ports

import (
	"context"
	"io"
)

// Navigator moves the client to another route.
type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// PhotoFetcher downloads the identity's provider photo.
type PhotoFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, string, error)
}

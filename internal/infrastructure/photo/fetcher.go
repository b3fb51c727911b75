// Package photo downloads identity provider photos.
package photo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atelier/profile-portal/internal/core/domain"
)

const defaultTimeout = 15 * time.Second

type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch returns the photo body and its content type. The caller closes the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("fetch photo: no photo url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch photo: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch photo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch photo: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > domain.MaxAvatarBytes {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch photo: %d bytes: %w", resp.ContentLength, domain.ErrAvatarTooLarge)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	return resp.Body, ct, nil
}

package photo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/atelier/profile-portal/internal/core/domain"
)

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	body, ct, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL+"/photo.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "png-bytes" || ct != "image/png" {
		t.Fatalf("unexpected photo: %q %s", data, ct)
	}
}

func TestFetcher_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, _, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestFetcher_EmptyURL(t *testing.T) {
	if _, _, err := NewFetcher(0).Fetch(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestFetcher_RejectsOversizedPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(domain.MaxAvatarBytes+1))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, _, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrAvatarTooLarge) {
		t.Fatalf("expected ErrAvatarTooLarge, got %v", err)
	}
}

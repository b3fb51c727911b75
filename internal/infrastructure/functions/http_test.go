package functions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/ports"
)

func TestRemote_SendsCallableRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"result":null}`))
	}))
	defer srv.Close()

	gw := NewRemote(srv.URL+"/", time.Second)
	if err := gw.Invoke(callerCtx("u1"), ports.FunctionBecomeArtist); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/becomeArtist" {
		t.Errorf("expected /becomeArtist, got %s", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if v, ok := gotBody["data"]; !ok || v != nil {
		t.Errorf(`expected {"data":null}, got %v`, gotBody)
	}
}

func TestRemote_FunctionErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"status":"INTERNAL","message":"profile is locked"}}`))
	}))
	defer srv.Close()

	err := NewRemote(srv.URL, time.Second).Invoke(callerCtx("u1"), ports.FunctionDeleteProfile)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Error() != "profile is locked" || remote.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected error: %+v", remote)
	}
}

func TestRemote_StatusWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRemote(srv.URL, time.Second).Invoke(callerCtx("u1"), ports.FunctionDeleteProfile)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Status != http.StatusBadGateway {
		t.Fatalf("expected 502 RemoteError, got %v", err)
	}
}

func TestRemote_RequiresToken(t *testing.T) {
	err := NewRemote("http://127.0.0.1:0", time.Second).Invoke(context.Background(), ports.FunctionBecomeArtist)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

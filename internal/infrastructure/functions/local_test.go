package functions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/identity"
	"github.com/atelier/profile-portal/internal/core/ports"
	"github.com/atelier/profile-portal/internal/infrastructure/db/memory"
)

func callerCtx(uid string) context.Context {
	return identity.NewContext(context.Background(), &domain.Identity{UID: uid, Token: "tok"})
}

func TestLocal_BecomeArtist(t *testing.T) {
	docs := memory.NewDocumentStore()
	ctx := callerCtx("u1")
	_ = docs.Set(ctx, domain.ProfilePath("u1"), map[string]any{domain.FieldName: "Ada", domain.FieldIsArtist: false})

	gw := NewLocal(docs, memory.NewBlobStore("http://x"), zerolog.Nop())
	if err := gw.Invoke(ctx, ports.FunctionBecomeArtist); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, _ := docs.Get(ctx, domain.ProfilePath("u1"))
	var p domain.Profile
	_ = snap.Decode(&p)
	if !p.IsArtist || p.Name != "Ada" {
		t.Fatalf("expected artist flag set, got %+v", p)
	}
}

func TestLocal_BecomeArtistWithoutProfile(t *testing.T) {
	gw := NewLocal(memory.NewDocumentStore(), memory.NewBlobStore("http://x"), zerolog.Nop())
	err := gw.Invoke(callerCtx("u1"), ports.FunctionBecomeArtist)
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestLocal_DeleteProfile(t *testing.T) {
	docs := memory.NewDocumentStore()
	blobs := memory.NewBlobStore("http://x")
	ctx := callerCtx("u1")
	_ = docs.Set(ctx, domain.ProfilePath("u1"), map[string]any{domain.FieldName: "Ada"})
	_ = docs.Set(ctx, domain.DevicePath("u1", "d1"), map[string]any{domain.FieldShowMessaging: true})
	_ = docs.Set(ctx, domain.ProfilePath("u2"), map[string]any{domain.FieldName: "Grace"})
	_ = blobs.Put(ctx, domain.ProfileAvatarPath("u1"), strings.NewReader("img"), "image/png")

	gw := NewLocal(docs, blobs, zerolog.Nop())
	if err := gw.Invoke(ctx, ports.FunctionDeleteProfile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range []string{domain.ProfilePath("u1"), domain.DevicePath("u1", "d1")} {
		if snap, _ := docs.Get(ctx, p); snap.Exists {
			t.Errorf("expected %s deleted", p)
		}
	}
	if snap, _ := docs.Get(ctx, domain.ProfilePath("u2")); !snap.Exists {
		t.Error("another profile must survive")
	}
	if _, err := blobs.DownloadURL(ctx, domain.ProfileAvatarPath("u1")); !errors.Is(err, domain.ErrBlobNotFound) {
		t.Errorf("expected avatar deleted, got %v", err)
	}
}

func TestLocal_RequiresCaller(t *testing.T) {
	gw := NewLocal(memory.NewDocumentStore(), memory.NewBlobStore("http://x"), zerolog.Nop())
	if err := gw.Invoke(context.Background(), ports.FunctionBecomeArtist); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestLocal_UnknownFunction(t *testing.T) {
	gw := NewLocal(memory.NewDocumentStore(), memory.NewBlobStore("http://x"), zerolog.Nop())
	if err := gw.Invoke(callerCtx("u1"), "mintCoins"); !errors.Is(err, domain.ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
}

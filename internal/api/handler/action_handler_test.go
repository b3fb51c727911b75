package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/atelier/profile-portal/internal/core/domain"
)

type invocationBody struct {
	ID         string                               `json:"invocation_id"`
	Action     string                               `json:"action"`
	State      string                               `json:"state"`
	Prompt     *struct{ Stage, Title, Text string } `json:"prompt"`
	Notice     *domain.Notice                       `json:"notice"`
	RedirectTo string                               `json:"redirect_to"`
	Error      string                               `json:"error"`
}

func decodeInvocation(t *testing.T, body []byte) invocationBody {
	t.Helper()
	var resp invocationBody
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func (a *app) begin(t *testing.T, kind, uid string) invocationBody {
	t.Helper()
	rec, err := a.serve(t, a.actions.Begin, http.MethodPost, "/v1/actions/"+kind, "", bearer(t, uid), "kind", kind)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	return decodeInvocation(t, rec.Body.Bytes())
}

func TestActionHandler_BecomeArtistFlow(t *testing.T) {
	a := newApp(t)
	a.seedProfile(t, "u1")

	inv := a.begin(t, "become-artist", "u1")
	if inv.State != "confirming" || inv.Prompt == nil || inv.Prompt.Text != "Are you sure you want to become an artist?" {
		t.Fatalf("unexpected invocation: %+v", inv)
	}

	rec, err := a.serve(t, a.actions.Confirm, http.MethodPost, "/v1/actions/invocations/"+inv.ID+"/confirm", "", bearer(t, "u1"), "id", inv.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decodeInvocation(t, rec.Body.Bytes())
	if out.State != "succeeded" || out.RedirectTo != "/profile-artist" || out.Notice.Title != "Now an artist" {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	prof, err := a.sessions.ProfileOf(context.Background(), "u1")
	if err != nil || !prof.IsArtist {
		t.Fatalf("expected artist flag, got %+v %v", prof, err)
	}
	if _, err := a.blobs.DownloadURL(context.Background(), domain.ArtistAvatarPath("u1")); err != nil {
		t.Fatalf("expected artist avatar: %v", err)
	}

	_, err = a.serve(t, a.actions.Confirm, http.MethodPost, "/", "", bearer(t, "u1"), "id", inv.ID)
	if !errors.Is(err, domain.ErrInvocationFinished) {
		t.Fatalf("expected ErrInvocationFinished on a second confirm, got %v", err)
	}
}

func TestActionHandler_DeleteProfileSignsOut(t *testing.T) {
	a := newApp(t)
	a.seedProfile(t, "u1")

	inv := a.begin(t, "delete-profile", "u1")
	rec, err := a.serve(t, a.actions.Confirm, http.MethodPost, "/", "", bearer(t, "u1"), "id", inv.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	out := decodeInvocation(t, rec.Body.Bytes())
	if out.State != "succeeded" || out.RedirectTo != "/" {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	if snap, _ := a.docs.Get(context.Background(), domain.ProfilePath("u1")); snap.Exists {
		t.Error("expected profile deleted")
	}
	revoked, _ := a.revocations.IsRevoked(context.Background(), "sess-u1")
	if !revoked {
		t.Error("expected session revoked")
	}
}

func TestActionHandler_DeclineNeverRuns(t *testing.T) {
	a := newApp(t)
	a.seedProfile(t, "u1")

	inv := a.begin(t, "delete-profile", "u1")
	rec, err := a.serve(t, a.actions.Decline, http.MethodPost, "/", "", bearer(t, "u1"), "id", inv.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if out := decodeInvocation(t, rec.Body.Bytes()); out.State != "cancelled" {
		t.Fatalf("expected cancelled, got %+v", out)
	}
	if snap, _ := a.docs.Get(context.Background(), domain.ProfilePath("u1")); !snap.Exists {
		t.Fatal("declined action must not delete the profile")
	}

	_, err = a.serve(t, a.actions.Confirm, http.MethodPost, "/", "", bearer(t, "u1"), "id", inv.ID)
	if !errors.Is(err, domain.ErrInvocationFinished) {
		t.Fatalf("expected ErrInvocationFinished, got %v", err)
	}
}

func TestActionHandler_OtherUsersInvocation(t *testing.T) {
	a := newApp(t)
	inv := a.begin(t, "delete-profile", "u1")

	_, err := a.serve(t, a.actions.Confirm, http.MethodPost, "/", "", bearer(t, "u2"), "id", inv.ID)
	if !errors.Is(err, domain.ErrInvocationNotFound) {
		t.Fatalf("expected ErrInvocationNotFound, got %v", err)
	}
}

func TestActionHandler_FailureCarriesNotice(t *testing.T) {
	a := newApp(t)
	// No profile document: the role change fails.
	inv := a.begin(t, "become-artist", "u1")

	rec, err := a.serve(t, a.actions.Confirm, http.MethodPost, "/", "", bearer(t, "u1"), "id", inv.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	out := decodeInvocation(t, rec.Body.Bytes())
	if out.State != "failed" || out.Notice == nil || out.Notice.Title != "Become an artist failed" || out.Error == "" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.RedirectTo != "" {
		t.Fatalf("failed run must not navigate, got %q", out.RedirectTo)
	}
}

func TestActionHandler_UnknownKind(t *testing.T) {
	a := newApp(t)
	_, err := a.serve(t, a.actions.Begin, http.MethodPost, "/", "", bearer(t, "u1"), "kind", "launch")
	if !errors.Is(err, domain.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestActionHandler_GetShowsPrompt(t *testing.T) {
	a := newApp(t)
	inv := a.begin(t, "become-artist", "u1")

	rec, err := a.serve(t, a.actions.Get, http.MethodGet, "/", "", bearer(t, "u1"), "id", inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	out := decodeInvocation(t, rec.Body.Bytes())
	if out.State != "confirming" || out.Prompt == nil || out.Prompt.Title != "Become an artist" {
		t.Fatalf("unexpected invocation: %+v", out)
	}
}

package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/infrastructure/db/memory"
)

type stubDevices struct {
	id  string
	err error
}

func (d stubDevices) DeviceID(context.Context) (string, error) { return d.id, d.err }

type stubTokens struct {
	token string
	err   error
	calls int
}

func (t *stubTokens) RequestToken(context.Context) (string, error) {
	t.calls++
	return t.token, t.err
}

// countingDocs wraps the memory store and counts writes.
type countingDocs struct {
	*memory.DocumentStore
	mu      sync.Mutex
	updates int
}

func newCountingDocs() *countingDocs {
	return &countingDocs{DocumentStore: memory.NewDocumentStore()}
}

func (d *countingDocs) Update(ctx context.Context, path string, fields map[string]any) error {
	d.mu.Lock()
	d.updates++
	d.mu.Unlock()
	return d.DocumentStore.Update(ctx, path, fields)
}

func (d *countingDocs) Updates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updates
}

// flakyBlobs fails every Put with putErr when set.
type flakyBlobs struct {
	*memory.BlobStore
	putErr error
}

func (b *flakyBlobs) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if b.putErr != nil {
		return b.putErr
	}
	return b.BlobStore.Put(ctx, path, data, contentType)
}

type stubPhotos struct {
	err  error
	body io.Reader
}

func (p stubPhotos) Fetch(context.Context, string) (io.ReadCloser, string, error) {
	if p.err != nil {
		return nil, "", p.err
	}
	if p.body != nil {
		return io.NopCloser(p.body), "image/jpeg", nil
	}
	return io.NopCloser(strings.NewReader("photo")), "image/jpeg", nil
}

// journal records the calls of the run collaborators in order.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(call string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call)
}

func (j *journal) Calls() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

type journalNavigator struct{ j *journal }

func (n journalNavigator) Navigate(_ context.Context, route string) error {
	n.j.add("navigate " + route)
	return nil
}

type journalSessions struct {
	j   *journal
	err error
}

func (s journalSessions) SignOut(_ context.Context, id *domain.Identity) error {
	s.j.add("signout " + id.UID)
	return s.err
}

// journalFunctions wraps a gateway and records invocations.
type journalFunctions struct {
	j    *journal
	next interface {
		Invoke(ctx context.Context, name string) error
	}
	err error
}

func (f journalFunctions) Invoke(ctx context.Context, name string) error {
	f.j.add("invoke " + name)
	if f.err != nil {
		return f.err
	}
	if f.next == nil {
		return nil
	}
	return f.next.Invoke(ctx, name)
}

var errUpload = errors.New("storage quota exceeded")

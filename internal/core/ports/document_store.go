package ports

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Snapshot is one observed state of a document. Exists is false when the
// document is absent or was deleted.
type Snapshot struct {
	Path   string
	Exists bool
	Data   bson.Raw
}

// Decode unmarshals the document body into v. Decoding a missing document
// leaves v untouched.
func (s Snapshot) Decode(v any) error {
	if !s.Exists || len(s.Data) == 0 {
		return nil
	}
	return bson.Unmarshal(s.Data, v)
}

// DocumentStore is the remote document database addressed by slash separated
// paths such as profiles/{uid} or profiles/{uid}/devices/{deviceId}.
type DocumentStore interface {
	// Get reads the current document. A missing document yields a snapshot with
	// Exists=false and no error.
	Get(ctx context.Context, path string) (Snapshot, error)

	// Update merges fields into an existing document. It fails with
	// domain.ErrDocumentNotFound when the document does not exist and writes
	// either every field or none.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Set creates or replaces the document.
	Set(ctx context.Context, path string, fields map[string]any) error

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error

	// DeleteChildren removes every document directly under collectionPath.
	DeleteChildren(ctx context.Context, collectionPath string) error

	// Subscribe emits the current snapshot followed by every later change until
	// ctx is cancelled, then closes the channel.
	Subscribe(ctx context.Context, path string) (<-chan Snapshot, error)
}

// DocumentChange is a single committed write observed on the store.
type DocumentChange struct {
	Path    string
	Deleted bool
	Data    bson.Raw
}

// Snapshot converts the change into the value delivered to subscribers.
func (c DocumentChange) Snapshot() Snapshot {
	return Snapshot{Path: c.Path, Exists: !c.Deleted, Data: c.Data}
}

// ChangeSink receives document changes, one path at a time in commit order.
type ChangeSink interface {
	Deliver(ctx context.Context, change DocumentChange) error
}

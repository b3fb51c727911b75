package redis

import "testing"

func TestStore_Keys(t *testing.T) {
	s := NewStore(nil, "atelier:")
	if got := NewActionLock(s).key("u1", "becomeArtist"); got != "atelier:action-lock:u1:becomeArtist" {
		t.Errorf("lock key: %q", got)
	}
	if got := NewRevocations(s).key("sess-1"); got != "atelier:revoked:sess-1" {
		t.Errorf("revocation key: %q", got)
	}
	if got := NewStore(nil, "").key("revoked", "x"); got != "revoked:x" {
		t.Errorf("unprefixed key: %q", got)
	}
}

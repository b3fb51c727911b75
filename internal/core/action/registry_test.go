package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atelier/profile-portal/internal/core/domain"
)

func TestRegistry_GetScopedToSubject(t *testing.T) {
	a := NewAction("deleteProfile", testCopy, func(context.Context) error { return nil })
	inv, _ := newOrchestrator(nil).Begin(context.Background(), "u1", a, nil)

	r := NewRegistry(time.Minute)
	r.Add(inv)

	if got, err := r.Get(inv.ID(), "u1"); err != nil || got != inv {
		t.Fatalf("expected invocation, got %v %v", got, err)
	}
	if _, err := r.Get(inv.ID(), "u2"); !errors.Is(err, domain.ErrInvocationNotFound) {
		t.Fatalf("expected other subject to be refused, got %v", err)
	}
	if _, err := r.Get("missing", "u1"); !errors.Is(err, domain.ErrInvocationNotFound) {
		t.Fatalf("expected ErrInvocationNotFound, got %v", err)
	}
}

func TestRegistry_SweepDeclinesStaleConfirmations(t *testing.T) {
	var ran bool
	a := NewAction("deleteProfile", testCopy, func(context.Context) error {
		ran = true
		return nil
	})
	inv, _ := newOrchestrator(nil).Begin(context.Background(), "u1", a, nil)

	r := NewRegistry(time.Minute)
	r.Add(inv)

	if n := r.Sweep(context.Background(), time.Now()); n != 0 {
		t.Fatalf("fresh invocation must survive, swept %d", n)
	}
	if n := r.Sweep(context.Background(), time.Now().Add(2*time.Minute)); n != 1 {
		t.Fatalf("expected one expired invocation, swept %d", n)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry")
	}
	out, ok := inv.Outcome()
	if !ok || out.State != Cancelled || ran {
		t.Fatalf("expected expired invocation to be declined, got %+v", out)
	}
}

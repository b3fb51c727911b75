package service

import (
	"context"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/ports"
)

// documentSubscriber is the part of ports.DocumentStore follow needs.
type documentSubscriber interface {
	Subscribe(ctx context.Context, path string) (<-chan ports.Snapshot, error)
}

// followIdentity maps an identity stream to a stream of views over one
// document per identity. Whenever the resolved path changes the previous
// subscription is cancelled first, so a view never mixes two users. The
// output keeps only the latest unread value.
func followIdentity[T any](
	ctx context.Context,
	docs documentSubscriber,
	ids <-chan *domain.Identity,
	resolve func(context.Context, *domain.Identity) (string, error),
	view func(*domain.Identity, ports.Snapshot) T,
	absent func(*domain.Identity, error) T,
) <-chan T {
	out := make(chan T, 1)

	go func() {
		defer close(out)

		var (
			current *domain.Identity
			path    string
			snaps   <-chan ports.Snapshot
			stop    context.CancelFunc = func() {}
		)
		defer func() { stop() }()

		for {
			select {
			case <-ctx.Done():
				return

			case id, ok := <-ids:
				if !ok {
					return
				}
				current = id
				if id == nil || id.UID == "" {
					stop()
					path, snaps = "", nil
					publish(out, absent(nil, nil))
					continue
				}
				next, err := resolve(ctx, id)
				if err != nil {
					stop()
					path, snaps = "", nil
					publish(out, absent(id, err))
					continue
				}
				if next == path {
					continue
				}
				stop()
				subCtx, cancel := context.WithCancel(ctx)
				ch, err := docs.Subscribe(subCtx, next)
				if err != nil {
					cancel()
					path, snaps = "", nil
					publish(out, absent(id, err))
					continue
				}
				path, snaps, stop = next, ch, cancel

			case snap, ok := <-snaps:
				if !ok {
					snaps = nil
					continue
				}
				if snap.Path != path {
					continue
				}
				publish(out, view(current, snap))
			}
		}
	}()
	return out
}

// publish replaces any unread value in out with v. Only the owning goroutine
// sends on out.
func publish[T any](out chan T, v T) {
	select {
	case <-out:
	default:
	}
	out <- v
}

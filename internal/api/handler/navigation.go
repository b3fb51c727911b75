package handler

import (
	"context"
	"errors"
	"sync"
)

var errNoClient = errors.New("navigate: no client attached to the request")

type routeKey struct{}

// routeRecorder captures where the client should go once the request ends.
type routeRecorder struct {
	mu    sync.Mutex
	route string
}

func (r *routeRecorder) set(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.route = route
}

func (r *routeRecorder) Route() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route
}

func withRouteRecorder(ctx context.Context) (context.Context, *routeRecorder) {
	rec := &routeRecorder{}
	return context.WithValue(ctx, routeKey{}, rec), rec
}

// ClientNavigator implements ports.Navigator for HTTP clients: the route is
// handed back in the response as redirect_to.
type ClientNavigator struct{}

func (ClientNavigator) Navigate(ctx context.Context, route string) error {
	rec, ok := ctx.Value(routeKey{}).(*routeRecorder)
	if !ok {
		return errNoClient
	}
	rec.set(route)
	return nil
}

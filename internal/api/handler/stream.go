package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const defaultHeartbeat = 25 * time.Second

// streamEvents writes every value of ch as a server-sent event named event
// until the client goes away or ch closes. Comment lines keep idle
// connections open through proxies.
func streamEvents[T any](c echo.Context, event string, ch <-chan T, heartbeat time.Duration) error {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case v, ok := <-ch:
			if !ok {
				return nil
			}
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

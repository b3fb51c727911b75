package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/identity"
)

const defaultTimeout = 30 * time.Second

// Remote calls functions hosted at {baseURL}/{name}. Requests carry the
// caller's bearer token and a {"data": null} body; failures come back as
// {"error": {"message": "..."}}.
type Remote struct {
	baseURL string
	client  *http.Client
}

func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type callRequest struct {
	Data any `json:"data"`
}

type callResponse struct {
	Error *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// RemoteError is a failure reported by the function itself.
type RemoteError struct {
	Function string
	Status   int
	Message  string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (r *Remote) Invoke(ctx context.Context, name string) error {
	caller, ok := identity.FromContext(ctx)
	if !ok || caller.Token == "" {
		return domain.ErrUnauthenticated
	}

	body, err := json.Marshal(callRequest{})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/"+name, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+caller.Token)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", name, err)
	}

	var out callResponse
	_ = json.Unmarshal(raw, &out)
	if out.Error != nil && out.Error.Message != "" {
		return &RemoteError{Function: name, Status: resp.StatusCode, Message: out.Error.Message}
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrUnknownFunction, name)
	}
	if resp.StatusCode >= 300 {
		return &RemoteError{Function: name, Status: resp.StatusCode, Message: fmt.Sprintf("%s failed with status %d", name, resp.StatusCode)}
	}
	return nil
}

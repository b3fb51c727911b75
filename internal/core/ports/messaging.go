package ports

import "context"

// MessagingTokens asks the platform for a push messaging token. It returns
// domain.ErrPermissionDenied when the user refuses notifications.
type MessagingTokens interface {
	RequestToken(ctx context.Context) (string, error)
}

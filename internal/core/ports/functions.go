package ports

import "context"

const (
	FunctionBecomeArtist  = "becomeArtist"
	FunctionDeleteProfile = "deleteProfile"
)

// FunctionGateway invokes privileged remote functions on behalf of the
// identity carried by ctx (see identity.NewContext).
type FunctionGateway interface {
	Invoke(ctx context.Context, name string) error
}

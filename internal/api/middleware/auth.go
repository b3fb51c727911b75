package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/atelier/profile-portal/internal/core/domain"
	"github.com/atelier/profile-portal/internal/core/identity"
	"github.com/atelier/profile-portal/internal/core/ports"
)

const (
	identityKey    = "identity"
	identityErrKey = "identity_error"
)

// Claims is the payload of the identity provider's tokens.
type Claims struct {
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Picture string   `json:"picture,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// RevocationChecker reports sessions that were signed out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// Identify resolves the bearer token, if any, into a domain.Identity. A request
// without a token continues anonymously. A bad or revoked token is recorded and
// surfaces later through RequireIdentity or the admin guard.
func Identify(jwtSecret string, revocations RevocationChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			id, err := parseIdentity(authHeader, jwtSecret)
			if err == nil && revocations != nil {
				revoked, rerr := revocations.IsRevoked(c.Request().Context(), id.SessionID)
				switch {
				case rerr != nil:
					err = fmt.Errorf("revocation check: %w", rerr)
				case revoked:
					err = domain.ErrSessionRevoked
				}
			}
			if err != nil {
				c.Set(identityErrKey, err)
				return next(c)
			}

			c.Set(identityKey, id)
			c.SetRequest(c.Request().WithContext(identity.NewContext(c.Request().Context(), id)))
			return next(c)
		}
	}
}

func parseIdentity(authHeader, jwtSecret string) (*domain.Identity, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, fmt.Errorf("%w: invalid authorization header", domain.ErrUnauthenticated)
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token without subject", domain.ErrUnauthenticated)
	}

	id := &domain.Identity{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		PhotoURL:    claims.Picture,
		Roles:       claims.Roles,
		SessionID:   sessionID(parts[1], claims.ID),
		Token:       parts[1],
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// sessionID prefers the token id and falls back to a digest of the token.
func sessionID(token, jti string) string {
	if jti != "" {
		return jti
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RequireIdentity rejects anonymous requests and requests whose token failed.
func RequireIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err, ok := c.Get(identityErrKey).(error); ok {
				msg := "invalid token"
				if errors.Is(err, domain.ErrSessionRevoked) {
					msg = "session revoked"
				}
				return echo.NewHTTPError(http.StatusUnauthorized, msg)
			}
			if IdentityFrom(c) == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			return next(c)
		}
	}
}

// IdentityFrom returns the identity set by Identify, or nil.
func IdentityFrom(c echo.Context) *domain.Identity {
	id, _ := c.Get(identityKey).(*domain.Identity)
	return id
}

// Session exposes the request's identity as a ports.IdentitySource. A token
// failure is reported as a resolution error.
func Session(c echo.Context) ports.IdentitySource {
	if err, ok := c.Get(identityErrKey).(error); ok {
		return failedSession{err: err}
	}
	return identity.Static{Identity: IdentityFrom(c)}
}

type failedSession struct {
	err error
}

func (s failedSession) Current(context.Context) (*domain.Identity, error) {
	return nil, s.err
}

func (s failedSession) Watch(ctx context.Context) <-chan *domain.Identity {
	ch := make(chan *domain.Identity)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

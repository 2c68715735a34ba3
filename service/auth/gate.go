package auth

import (
	"context"
	"time"

	"relaygate/logger"
	"relaygate/tools/errs"
	"relaygate/tools/security"
)

// User is the resolved owner of a connection.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UserStore resolves a token subject to a user record. Implementations live
// outside this package (Mongo in production, memory in tests).
type UserStore interface {
	Get(ctx context.Context, id int64) (*User, error)
}

// TokenStore answers whether a token id refers to an active, non-revoked
// credential.
type TokenStore interface {
	IsActive(ctx context.Context, tokenID string) (bool, error)
}

// TokenLifecycle extends TokenStore with the issuance side used by the login
// and logout endpoints.
type TokenLifecycle interface {
	TokenStore
	Activate(ctx context.Context, tokenID string, ttl time.Duration) error
	Revoke(ctx context.Context, tokenID string) error
}

// Gate authenticates WebSocket connection attempts. It is the only path by
// which a connection enters the system; there is no unauthenticated mode.
type Gate struct {
	jwtOpts      security.Options
	serverSecret []byte
	tokens       TokenStore
	users        UserStore
}

func NewGate(jwtOpts security.Options, serverSecret []byte, tokens TokenStore, users UserStore) *Gate {
	return &Gate{jwtOpts: jwtOpts, serverSecret: serverSecret, tokens: tokens, users: users}
}

// Authenticate validates a raw bearer token and returns the user plus the
// derived 32-byte session key. Every failure is a *errs.CodeError with close
// code 4001; the Detail is the only text that may reach the peer.
func (g *Gate) Authenticate(ctx context.Context, rawToken string) (*User, []byte, error) {
	if rawToken == "" {
		return nil, nil, errs.ErrAuthFailed.WithDetail("missing token")
	}

	claims, err := security.Verify(g.jwtOpts, rawToken)
	if err != nil {
		logger.Infof("[auth] token verify failed: %v", err)
		return nil, nil, errs.ErrAuthFailed.WithDetail("invalid or expired token")
	}

	active, err := g.tokens.IsActive(ctx, claims.TokenID)
	if err != nil {
		logger.Errorf("[auth] token store lookup jti=%s: %v", claims.TokenID, err)
		return nil, nil, errs.ErrAuthFailed.WithDetail("invalid or expired token")
	}
	if !active {
		return nil, nil, errs.ErrAuthFailed.WithDetail("token has been revoked")
	}

	user, err := g.users.Get(ctx, claims.UserID)
	if err != nil || user == nil || !user.IsActive {
		return nil, nil, errs.ErrAuthFailed.WithDetail("user not found or inactive")
	}

	key := security.DeriveSessionKey(g.serverSecret, claims.TokenID)
	return user, key, nil
}

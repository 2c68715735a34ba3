package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"relaygate/tools/errs"
	toolsec "relaygate/tools/security"
)

// Context keys set for downstream handlers.
const (
	CtxUserIDKey  = "auth_user_id"  // int64
	CtxTokenIDKey = "auth_token_id" // string
)

type Options struct {
	JWT toolsec.Options
}

// Middleware verifies a Bearer token on REST routes. This is the plain REST
// credential check; the WebSocket auth gate with its revocation and user
// lookups is a separate, stricter path.
func Middleware(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		claims, err := toolsec.Verify(opts.JWT, token)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxTokenIDKey, claims.TokenID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		errs.ErrAuthFailed.WithDetail(detail))
}

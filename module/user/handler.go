package user

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"relaygate/logger"
	midsec "relaygate/middleware/security"
	"relaygate/service/auth"
	toolsec "relaygate/tools/security"
)

// Handler issues and revokes the short-lived bearer credentials the WebSocket
// gate consumes. Full account authentication (passwords, OAuth) lives in the
// surrounding application; this endpoint only turns a known active user into
// a token with an activated jti.
type Handler struct {
	jwt    toolsec.Options
	tokens auth.TokenLifecycle
	users  auth.UserStore
}

func NewHandler(jwt toolsec.Options, tokens auth.TokenLifecycle, users auth.UserStore) *Handler {
	return &Handler{jwt: jwt, tokens: tokens, users: users}
}

type loginRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id required"})
		return
	}
	u, err := h.users.Get(c.Request.Context(), req.UserID)
	if err != nil || !u.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "unknown or inactive user"})
		return
	}

	token, jti, exp, err := toolsec.Generate(h.jwt, u.ID, nil)
	if err != nil {
		logger.Errorf("[user] mint token user=%d: %v", u.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "token generation failed"})
		return
	}
	if err := h.tokens.Activate(c.Request.Context(), jti, time.Until(exp)); err != nil {
		logger.Errorf("[user] activate jti=%s: %v", jti, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "token activation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
		"user":       u,
	})
}

// Logout revokes the presented token's jti; the next WebSocket handshake with
// it fails with 4001.
func (h *Handler) Logout(c *gin.Context) {
	jti := c.GetString(midsec.CtxTokenIDKey)
	if jti == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "no token"})
		return
	}
	if err := h.tokens.Revoke(c.Request.Context(), jti); err != nil {
		logger.Errorf("[user] revoke jti=%s: %v", jti, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "revocation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}

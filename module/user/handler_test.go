package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaygate/middleware"
	midsec "relaygate/middleware/security"
	"relaygate/service/auth"
	toolsec "relaygate/tools/security"
)

func newUserRouter(t *testing.T) (*gin.Engine, *auth.MemoryTokens, toolsec.Options) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtOpts := toolsec.DefaultOptions([]byte("user-test-secret"))
	tokens := auth.NewMemoryTokens()
	users := auth.NewMemoryUsers(
		auth.User{ID: 1, Username: "alice", IsActive: true, IsSuperuser: true},
		auth.User{ID: 3, Username: "mallory", IsActive: false},
	)
	h := NewHandler(jwtOpts, tokens, users)

	r := gin.New()
	rt := middleware.NewRouter(midsec.Options{JWT: jwtOpts})
	rt.POST(r, "/login", h.Login, middleware.RouteOpt{IsAuth: false})
	rt.POST(r, "/logout", h.Logout, middleware.RouteOpt{IsAuth: true})
	return r, tokens, jwtOpts
}

func postJSON(r *gin.Engine, path, body, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesActivatedToken(t *testing.T) {
	r, tokens, jwtOpts := newUserRouter(t)

	w := postJSON(r, "/login", `{"user_id":1}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token     string    `json:"token"`
		ExpiresAt string    `json:"expires_at"`
		User      auth.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.User.Username)
	assert.NotEmpty(t, body.ExpiresAt)

	claims, err := toolsec.Verify(jwtOpts, body.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)

	active, err := tokens.IsActive(context.Background(), claims.TokenID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestLoginRejectsBadRequests(t *testing.T) {
	r, _, _ := newUserRouter(t)

	cases := map[string]struct {
		body string
		code int
	}{
		"missing user_id": {`{}`, http.StatusBadRequest},
		"not json":        {`nope`, http.StatusBadRequest},
		"unknown user":    {`{"user_id":99}`, http.StatusUnauthorized},
		"inactive user":   {`{"user_id":3}`, http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := postJSON(r, "/login", tc.body, "")
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	r, tokens, jwtOpts := newUserRouter(t)

	w := postJSON(r, "/login", `{"user_id":1}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	claims, err := toolsec.Verify(jwtOpts, body.Token)
	require.NoError(t, err)

	w = postJSON(r, "/logout", "", "Bearer "+body.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"revoked":true`)

	active, err := tokens.IsActive(context.Background(), claims.TokenID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestLogoutRequiresToken(t *testing.T) {
	r, _, _ := newUserRouter(t)

	w := postJSON(r, "/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaygate/middleware"
	midsec "relaygate/middleware/security"
	"relaygate/service/ws"
	toolsec "relaygate/tools/security"
)

func newStatsRouter(t *testing.T) (*gin.Engine, *ws.ConnManager, toolsec.Options) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtOpts := toolsec.DefaultOptions([]byte("stats-test-secret"))
	mgr := ws.NewConnManager(ws.ManagerConf{GatewayID: "gw-stats"})
	h := NewHandler(mgr)

	r := gin.New()
	rt := middleware.NewRouter(midsec.Options{JWT: jwtOpts})
	rt.GET(r, "/stats", h.Stats, middleware.RouteOpt{IsAuth: true})
	rt.GET(r, "/online/:user_id", h.Online, middleware.RouteOpt{IsAuth: true})
	return r, mgr, jwtOpts
}

func bearer(t *testing.T, jwtOpts toolsec.Options) string {
	t.Helper()
	token, _, _, err := toolsec.Generate(jwtOpts, 1, nil)
	require.NoError(t, err)
	return "Bearer " + token
}

func doGet(r *gin.Engine, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatsRequiresToken(t *testing.T) {
	r, _, _ := newStatsRouter(t)

	w := doGet(r, "/stats", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing bearer token")

	w = doGet(r, "/stats", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(r, "/stats", "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatsEmptyManager(t *testing.T) {
	r, _, jwtOpts := newStatsRouter(t)

	w := doGet(r, "/stats", bearer(t, jwtOpts))
	require.Equal(t, http.StatusOK, w.Code)

	var st ws.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Zero(t, st.TotalConnections)
	assert.Empty(t, st.Rooms)
	assert.Empty(t, st.UsersOnline)
}

func TestOnlineEndpoint(t *testing.T) {
	r, _, jwtOpts := newStatsRouter(t)

	w := doGet(r, "/online/7", bearer(t, jwtOpts))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UserID int64 `json:"user_id"`
		Online bool  `json:"online"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.UserID)
	assert.False(t, body.Online)
}

func TestOnlineRejectsNonNumericID(t *testing.T) {
	r, _, jwtOpts := newStatsRouter(t)

	w := doGet(r, "/online/alice", bearer(t, jwtOpts))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
